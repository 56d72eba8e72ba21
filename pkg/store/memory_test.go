package store_test

import (
	"context"
	"fmt"
	"sync"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/zeriontech/codestore/pkg/store"
)

var _ = Describe("MemoryRepository", func() {

	itBehavesLikeARepository(func() store.Repository {
		return store.NewMemoryRepository()
	})

	It("should return a copy that callers cannot mutate", func() {
		repository := store.NewMemoryRepository()
		ctx := context.Background()

		saved, err := repository.PutItem(ctx, "key", "value", 10)
		Expect(err).NotTo(HaveOccurred())
		saved.Value = "changed"

		item, err := repository.GetItem(ctx, "key")
		Expect(err).NotTo(HaveOccurred())
		Expect(item.Value).To(Equal("value"))
	})

	It("should keep expired items until they are deleted", func() {
		repository := store.NewMemoryRepository()
		ctx := context.Background()

		_, err := repository.PutItem(ctx, "old", "value", 1)
		Expect(err).NotTo(HaveOccurred())

		item, err := repository.GetItem(ctx, "old")
		Expect(err).NotTo(HaveOccurred())
		Expect(item.TTL).To(Equal(int64(1)))
		Expect(repository.Len()).To(Equal(1))
	})

	It("should be safe for concurrent writers", func() {
		repository := store.NewMemoryRepository()
		ctx := context.Background()

		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, _ = repository.PutItem(ctx, fmt.Sprintf("key-%d", i%5), "value", 0)
				_, _ = repository.GetItem(ctx, "key-0")
			}(i)
		}
		wg.Wait()

		Expect(repository.Len()).To(Equal(5))
	})
})
