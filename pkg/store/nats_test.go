package store_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/zeriontech/codestore/pkg/store"
)

// fakeKV implements the jetstream.KeyValue calls the repository makes.
// Any other method panics through the nil embedded interface.
type fakeKV struct {
	jetstream.KeyValue

	mu   sync.Mutex
	data map[string][]byte
	err  error
}

type fakeEntry struct {
	jetstream.KeyValueEntry
	value []byte
}

func (e *fakeEntry) Value() []byte { return e.value }

func (f *fakeKV) Get(_ context.Context, key string) (jetstream.KeyValueEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	v, ok := f.data[key]
	if !ok {
		return nil, jetstream.ErrKeyNotFound
	}
	return &fakeEntry{value: v}, nil
}

func (f *fakeKV) Put(_ context.Context, key string, value []byte) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	f.data[key] = value
	return uint64(len(f.data)), nil
}

func (f *fakeKV) Delete(_ context.Context, key string, _ ...jetstream.KVDeleteOpt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	delete(f.data, key)
	return nil
}

var _ = Describe("NATSRepository", func() {

	Context("with an in-memory bucket", func() {
		var kv *fakeKV

		BeforeEach(func() {
			kv = &fakeKV{data: make(map[string][]byte)}
		})

		itBehavesLikeARepository(func() store.Repository {
			return store.NewNATSRepositoryWithKV(kv)
		})

		It("should encode keys that jetstream would reject", func() {
			repository := store.NewNATSRepositoryWithKV(kv)

			_, err := repository.PutItem(context.Background(), "user@example.com otp", "1234", 0)
			Expect(err).NotTo(HaveOccurred())

			Expect(kv.data).To(HaveKey("dXNlckBleGFtcGxlLmNvbSBvdHA"))
		})

		It("should wrap bucket failures as unavailable", func() {
			repository := store.NewNATSRepositoryWithKV(kv)
			kv.err = errors.New("nats: timeout")

			_, err := repository.GetItem(context.Background(), "key")
			Expect(errors.Is(err, store.ErrUnavailable)).To(BeTrue())

			_, err = repository.PutItem(context.Background(), "key", "value", 0)
			Expect(errors.Is(err, store.ErrUnavailable)).To(BeTrue())
		})
	})

	Context("against a nats server", func() {
		var repository *store.NATSRepository

		BeforeEach(func() {
			url := os.Getenv("CODESTORE_TEST_NATS_URL")
			if url == "" {
				Skip("CODESTORE_TEST_NATS_URL not set")
			}

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			var err error
			repository, err = store.NewNATSRepository(ctx, store.NATSConfig{URL: url, Bucket: "codestore_test"}, zap.NewNop())
			Expect(err).NotTo(HaveOccurred())
		})

		AfterEach(func() {
			if repository != nil {
				Expect(repository.Close()).To(Succeed())
			}
		})

		itBehavesLikeARepository(func() store.Repository {
			return repository
		})
	})
})
