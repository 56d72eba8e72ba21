package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/zeriontech/codestore/pkg/store"
	"github.com/zeriontech/codestore/pkg/ttl"
)

const (
	applicationDefaultPort = ":9191"
	defaultShutdownTimeout = 10 * time.Second
)

type Settings struct {
	Port string
	// APIKey is the expected x-api-key value. Empty accepts any non-empty key.
	APIKey          string
	AuthDisabled    bool
	ShutdownTimeout time.Duration
}

type Server struct {
	Repo       store.Repository
	Policy     *ttl.Policy
	Prometheus *Prometheus
	Logger     *zap.Logger
	Settings   Settings
}

func NewServer(repo store.Repository, policy *ttl.Policy, prom *Prometheus, logger *zap.Logger, settings Settings) *Server {
	if settings.ShutdownTimeout <= 0 {
		settings.ShutdownTimeout = defaultShutdownTimeout
	}
	return &Server{
		Repo:       repo,
		Policy:     policy,
		Prometheus: prom,
		Logger:     logger,
		Settings:   settings,
	}
}

// Router wires every route. /health and /metrics skip API-key checks.
func (server *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(RequestID)
	r.Use(server.Instrument)
	r.Use(server.Recoverer)

	r.Get("/health", server.HealthHandler)
	r.Method(http.MethodGet, "/metrics", server.Prometheus.Handler())

	r.Group(func(r chi.Router) {
		r.Use(APIKeyAuth(server.Settings.APIKey, server.Settings.AuthDisabled, server.Logger))

		r.Get("/item/{key}", server.GetItemHandler)
		r.Put("/item/{key}", server.PutItemHandler)
		r.Delete("/item/{key}", server.DeleteItemHandler)
		r.Post("/extractCode/{key}", server.ExtractCodeHandler)

		for _, path := range []string{"/item", "/item/"} {
			r.Get(path, server.missingKey(msgKeyRequired))
			r.Put(path, server.missingKey(msgKeyRequired))
			r.Delete(path, server.missingKey(msgKeyRequired))
		}
		for _, path := range []string{"/extractCode", "/extractCode/"} {
			r.Post(path, server.missingKey(msgKeyNotInPath))
		}
	})

	return r
}

// Start serves until stopChan receives or is closed, then shuts down gracefully.
func (server *Server) Start(stopChan chan int) {
	port := server.listenAddr()
	httpServer := &http.Server{
		Addr:              port,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	server.Logger.Info("codestore process started", zap.String("port", port))

	go func() {
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			server.Logger.Error("server stopped unexpectedly", zap.Error(err))
			return
		}
		server.Logger.Warn("Server closed")
	}()

	<-stopChan

	ctx, cancel := context.WithTimeout(context.Background(), server.Settings.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		server.Logger.Error("shutdown hook error", zap.Error(err))
	}
}

func (server *Server) listenAddr() string {
	port := strings.TrimPrefix(server.Settings.Port, ":")
	if port == "" {
		return applicationDefaultPort
	}
	return ":" + port
}
