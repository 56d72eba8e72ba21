package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/zeriontech/codestore/pkg/config"
	"github.com/zeriontech/codestore/pkg/logger"
	"github.com/zeriontech/codestore/pkg/server"
	"github.com/zeriontech/codestore/pkg/store"
	"github.com/zeriontech/codestore/pkg/ttl"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

const storeOpenTimeout = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLogger := logger.DefaultZapLogger()
		bootLogger.Fatal("could not load configuration", zap.Error(err))
	}

	log, closeLog, err := logger.NewZapLogger(cfg.Log)
	if err != nil {
		log, closeLog = logger.DefaultZapLogger(), func() {}
		log.Error("could not build configured logger, using default", zap.Error(err))
	}
	defer closeLog()
	defer log.Sync()

	log.Info("Codestore process started...",
		zap.String("version", version),
		zap.String("environment", cfg.Environment),
		zap.String("backend", cfg.Store.Backend))

	ctx, cancel := context.WithTimeout(context.Background(), storeOpenTimeout)
	backend, err := store.Open(ctx, cfg.Store, log)
	cancel()
	if err != nil {
		log.Fatal("could not open store", zap.Error(err))
	}
	defer func() {
		if err := backend.Close(); err != nil {
			log.Error("closing store failed", zap.Error(err))
		}
	}()

	if cfg.AuthDisabled {
		log.Warn("api key check is disabled")
	}

	policy := ttl.NewPolicy(cfg.TTL, ttl.WithLogger(log))
	log.Info("ttl policy",
		zap.Int64("defaultTtlSeconds", cfg.TTL.DefaultTTLSeconds),
		zap.Bool("enabled", cfg.TTL.Enabled))

	prom := server.NewPrometheusClient()
	prom.BuildInfo(version)

	codeServer := server.NewServer(backend, policy, prom, log, server.Settings{
		Port:            cfg.Port,
		APIKey:          cfg.APIKey,
		AuthDisabled:    cfg.AuthDisabled,
		ShutdownTimeout: cfg.ShutdownTimeout,
	})

	stopChan := make(chan int)
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-signals
		log.Info("shutting down", zap.String("signal", sig.String()))
		close(stopChan)
	}()

	codeServer.Start(stopChan)
}
