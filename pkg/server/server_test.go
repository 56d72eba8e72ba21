package server_test

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/golang/mock/gomock"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/zeriontech/codestore/pkg/server"
	"github.com/zeriontech/codestore/pkg/store"
	"github.com/zeriontech/codestore/pkg/store/mock_store"
	"github.com/zeriontech/codestore/pkg/ttl"
)

var defaultTTL = ttl.Config{DefaultTTLSeconds: ttl.DefaultTTLSeconds, Enabled: true}

var _ = Describe("Item routes", func() {
	var (
		repo    *store.MemoryRepository
		handler http.Handler
		ctx     context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		repo = store.NewMemoryRepository()
		handler = newTestServer(repo, server.Settings{AuthDisabled: true}, defaultTTL).Router()
	})

	Describe("GET /item/{key}", func() {
		It("returns the stored value as plain text", func() {
			_, _ = repo.PutItem(ctx, "greeting", "hello", testNow+60)

			w := serve(handler, request{method: http.MethodGet, target: "/item/greeting"})

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Body.String()).To(Equal("hello"))
			Expect(w.Header().Get("Content-Type")).To(HavePrefix("text/plain"))
		})

		It("returns 404 for a missing key", func() {
			w := serve(handler, request{method: http.MethodGet, target: "/item/nope"})

			Expect(w.Code).To(Equal(http.StatusNotFound))
			Expect(w.Body.String()).To(Equal("Item not found"))
		})

		It("returns 404 for an expired item without deleting it", func() {
			_, _ = repo.PutItem(ctx, "old", "stale", testNow-1)

			w := serve(handler, request{method: http.MethodGet, target: "/item/old"})

			Expect(w.Code).To(Equal(http.StatusNotFound))
			Expect(w.Body.String()).To(Equal("Item not found"))
			Expect(repo.Len()).To(Equal(1))
		})

		It("still serves an item whose ttl equals now", func() {
			_, _ = repo.PutItem(ctx, "edge", "v", testNow)

			w := serve(handler, request{method: http.MethodGet, target: "/item/edge"})

			Expect(w.Code).To(Equal(http.StatusOK))
		})

		It("serves expired items when expiry checks are disabled", func() {
			handler = newTestServer(repo, server.Settings{AuthDisabled: true},
				ttl.Config{DefaultTTLSeconds: 60, Enabled: false}).Router()
			_, _ = repo.PutItem(ctx, "old", "stale", testNow-1000)

			w := serve(handler, request{method: http.MethodGet, target: "/item/old"})

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Body.String()).To(Equal("stale"))
		})

		It("unescapes the key", func() {
			_, _ = repo.PutItem(ctx, "a/b@c", "v", 0)

			w := serve(handler, request{method: http.MethodGet, target: "/item/a%2Fb%40c"})

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Body.String()).To(Equal("v"))
		})

		It("decodes a percent-encoded key exactly once", func() {
			w := serve(handler, request{method: http.MethodPut, target: "/item/a%2541", body: "v"})
			Expect(w.Code).To(Equal(http.StatusOK))

			item, err := repo.GetItem(ctx, "a%41")
			Expect(err).NotTo(HaveOccurred())
			Expect(item.Value).To(Equal("v"))

			_, err = repo.GetItem(ctx, "aA")
			Expect(errors.Is(err, store.ErrNotFound)).To(BeTrue())

			Expect(serve(handler, request{method: http.MethodGet, target: "/item/a%2541"}).Body.String()).To(Equal("v"))
		})

		It("rejects a request without a key", func() {
			w := serve(handler, request{method: http.MethodGet, target: "/item/"})

			Expect(w.Code).To(Equal(http.StatusBadRequest))
			Expect(w.Body.String()).To(Equal("Key is required"))
		})
	})

	Describe("PUT /item/{key}", func() {
		It("stores the body with the default ttl", func() {
			w := serve(handler, request{method: http.MethodPut, target: "/item/k", body: "value"})

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Body.String()).To(Equal("Item successfully saved"))
			Expect(w.Header().Get(server.ExpiresAtHeader)).To(Equal(strconv.FormatInt(testNow+86400, 10)))

			item, err := repo.GetItem(ctx, "k")
			Expect(err).NotTo(HaveOccurred())
			Expect(item.Value).To(Equal("value"))
			Expect(item.TTL).To(Equal(testNow + 86400))
		})

		It("honours X-TTL-Seconds", func() {
			serve(handler, request{method: http.MethodPut, target: "/item/k", body: "v",
				headers: map[string]string{"X-TTL-Seconds": "3600"}})

			item, _ := repo.GetItem(ctx, "k")
			Expect(item.TTL).To(Equal(testNow + 3600))
		})

		It("falls back to X-TTL and then the ttl query parameter", func() {
			serve(handler, request{method: http.MethodPut, target: "/item/a", body: "v",
				headers: map[string]string{"X-TTL": "30"}})
			serve(handler, request{method: http.MethodPut, target: "/item/b?ttl=90", body: "v"})

			a, _ := repo.GetItem(ctx, "a")
			b, _ := repo.GetItem(ctx, "b")
			Expect(a.TTL).To(Equal(testNow + 30))
			Expect(b.TTL).To(Equal(testNow + 90))
		})

		It("prefers the header over the query parameter", func() {
			serve(handler, request{method: http.MethodPut, target: "/item/k?ttl=90", body: "v",
				headers: map[string]string{"X-TTL-Seconds": "10"}})

			item, _ := repo.GetItem(ctx, "k")
			Expect(item.TTL).To(Equal(testNow + 10))
		})

		It("skips invalid ttl values", func() {
			serve(handler, request{method: http.MethodPut, target: "/item/a?ttl=20", body: "v",
				headers: map[string]string{"X-TTL-Seconds": "soon"}})
			serve(handler, request{method: http.MethodPut, target: "/item/b?ttl=-5", body: "v"})

			a, _ := repo.GetItem(ctx, "a")
			b, _ := repo.GetItem(ctx, "b")
			Expect(a.TTL).To(Equal(testNow + 20))
			Expect(b.TTL).To(Equal(testNow + 86400))
		})

		It("falls back to the default ttl for a duration too large to store", func() {
			w := serve(handler, request{method: http.MethodPut, target: "/item/k", body: "v",
				headers: map[string]string{"X-TTL-Seconds": "9223372036854775000"}})

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Header().Get(server.ExpiresAtHeader)).To(Equal(strconv.FormatInt(testNow+86400, 10)))

			item, _ := repo.GetItem(ctx, "k")
			Expect(item.TTL).To(Equal(testNow + 86400))
			Expect(item.HasTTL()).To(BeTrue())
		})

		It("overwrites an existing value", func() {
			serve(handler, request{method: http.MethodPut, target: "/item/k", body: "one"})
			serve(handler, request{method: http.MethodPut, target: "/item/k", body: "two"})

			w := serve(handler, request{method: http.MethodGet, target: "/item/k"})
			Expect(w.Body.String()).To(Equal("two"))
		})

		It("rejects an empty body", func() {
			w := serve(handler, request{method: http.MethodPut, target: "/item/k"})

			Expect(w.Code).To(Equal(http.StatusBadRequest))
			Expect(w.Body.String()).To(Equal("Value is required in the request body"))
			Expect(repo.Len()).To(BeZero())
		})

		It("rejects a request without a key", func() {
			w := serve(handler, request{method: http.MethodPut, target: "/item", body: "v"})

			Expect(w.Code).To(Equal(http.StatusBadRequest))
			Expect(w.Body.String()).To(Equal("Key is required"))
		})
	})

	Describe("DELETE /item/{key}", func() {
		It("removes the item", func() {
			_, _ = repo.PutItem(ctx, "k", "v", 0)

			w := serve(handler, request{method: http.MethodDelete, target: "/item/k"})

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Body.String()).To(Equal("Item successfully deleted"))
			Expect(serve(handler, request{method: http.MethodGet, target: "/item/k"}).Code).To(Equal(http.StatusNotFound))
		})

		It("succeeds for a key that does not exist", func() {
			w := serve(handler, request{method: http.MethodDelete, target: "/item/ghost"})

			Expect(w.Code).To(Equal(http.StatusOK))
		})
	})

	It("does not route unknown paths", func() {
		w := serve(handler, request{method: http.MethodGet, target: "/items/k"})
		Expect(w.Code).To(Equal(http.StatusNotFound))
	})
})

var _ = Describe("Backend failures", func() {
	var (
		ctrl    *gomock.Controller
		repo    *mock_store.MockRepository
		srv     *server.Server
		handler http.Handler
	)

	backendErr := errors.New("connection refused to 10.0.0.7")

	BeforeEach(func() {
		ctrl = gomock.NewController(GinkgoT())
		repo = mock_store.NewMockRepository(ctrl)
		srv = newTestServer(repo, server.Settings{AuthDisabled: true}, defaultTTL)
		handler = srv.Router()
	})

	AfterEach(func() {
		ctrl.Finish()
	})

	It("hides the cause of a failed read", func() {
		repo.EXPECT().GetItem(gomock.Any(), "k").Return(nil, backendErr)

		w := serve(handler, request{method: http.MethodGet, target: "/item/k"})

		Expect(w.Code).To(Equal(http.StatusInternalServerError))
		Expect(w.Body.String()).To(Equal("Error retrieving item"))
	})

	It("reports a failed write", func() {
		repo.EXPECT().PutItem(gomock.Any(), "k", "v", testNow+86400).Return(nil, backendErr)

		w := serve(handler, request{method: http.MethodPut, target: "/item/k", body: "v"})

		Expect(w.Code).To(Equal(http.StatusInternalServerError))
		Expect(w.Body.String()).To(Equal("Error saving item"))
	})

	It("reports a failed delete", func() {
		repo.EXPECT().DeleteItem(gomock.Any(), "k").Return(backendErr)

		w := serve(handler, request{method: http.MethodDelete, target: "/item/k"})

		Expect(w.Code).To(Equal(http.StatusInternalServerError))
		Expect(w.Body.String()).To(Equal("Error deleting item"))
	})

	It("reports a failed store after extraction", func() {
		repo.EXPECT().PutItem(gomock.Any(), "k", "1234", testNow+86400).Return(nil, backendErr)

		w := serve(handler, request{method: http.MethodPost, target: "/extractCode/k", body: "code 1234"})

		Expect(w.Code).To(Equal(http.StatusInternalServerError))
		Expect(w.Body.String()).To(Equal("An error occurred while processing your request"))
	})

	It("recovers from a panicking backend", func() {
		repo.EXPECT().GetItem(gomock.Any(), "k").DoAndReturn(
			func(context.Context, string) (*store.Item, error) {
				panic("boom")
			})

		w := serve(handler, request{method: http.MethodGet, target: "/item/k"})

		Expect(w.Code).To(Equal(http.StatusInternalServerError))
		Expect(w.Body.String()).To(Equal("An error occurred while processing your request"))
		Expect(testutil.ToFloat64(
			srv.Prometheus.TotalRequestCounter.WithLabelValues(http.MethodGet, "/item/{key}", "500"))).To(Equal(1.0))
	})

	It("does not touch the store for invalid requests", func() {
		serve(handler, request{method: http.MethodPut, target: "/item/k"})
		serve(handler, request{method: http.MethodPost, target: "/extractCode/k", body: "no code here"})
		serve(handler, request{method: http.MethodPost, target: "/extractCode/k?characterType=hex", body: "1234"})
	})
})
