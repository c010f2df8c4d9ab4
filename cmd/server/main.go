package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"bookshelf/internal/app"
	"bookshelf/internal/config"
	"bookshelf/internal/metrics"
	"bookshelf/internal/ratelimit"
	"bookshelf/internal/server"
	"bookshelf/internal/util"
	"bookshelf/pkg/auth"
	"bookshelf/pkg/store"
	"bookshelf/pkg/token"
)

func main() {
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	tokenTTL, err := config.ParseTokenTTL(cfg.TokenTTL)
	if err != nil {
		log.Fatalf("failed to parse token TTL: %v", err)
	}

	util.InitLogger(cfg.LogLevel)

	// Migrations run here, once, before the first request.
	st, err := store.NewGormStore(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}

	tokens, err := token.NewService(cfg.JWTSecret, tokenTTL, token.Options{})
	if err != nil {
		log.Fatalf("failed to init token service: %v", err)
	}

	appCore, err := app.New(app.Config{
		Store:  st,
		Hasher: auth.NewHasher(cfg.BcryptCost),
		Tokens: tokens,
	})
	if err != nil {
		log.Fatalf("failed to init app: %v", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	httpServer, err := server.New(server.Config{
		App:             appCore,
		Tokens:          tokens,
		Metrics:         metrics.NewCollector(registry),
		Gatherer:        registry,
		CORSOrigin:      cfg.CORSOrigin,
		LoginLimiter:    ratelimit.New(cfg.LoginRateLimitPerMinute),
		RegisterLimiter: ratelimit.New(cfg.RegisterRateLimitPerMinute),
	})
	if err != nil {
		log.Fatalf("failed to init server: %v", err)
	}

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "err", err)
	}
	slog.Info("server stopped")
}
