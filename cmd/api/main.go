package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bryanwahyu/logtriage/internal/bootstrap"
	"github.com/bryanwahyu/logtriage/internal/config"
	"github.com/bryanwahyu/logtriage/internal/infra/httpserver"
	"github.com/bryanwahyu/logtriage/internal/middleware"
)

func main() {
	// load config (CONFIG_PATH or config.yaml, then .env and env overrides)
	cfg, err := config.Load("")
	if err != nil {
		slog.Error("config load error", "err", err)
		os.Exit(1)
	}
	logger := cfg.NewLogger(os.Stderr)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.Build(ctx, cfg, logger, bootstrap.Options{})
	if err != nil {
		logger.Error("startup failed", "err", err)
		os.Exit(1)
	}
	defer app.Close()

	limiter := middleware.NewRateLimiter(cfg.Server.RateLimit.Capacity, cfg.Server.RateLimit.RefillPerSec)
	defer limiter.Close()

	handler := httpserver.NewRouter(app.Service, httpserver.Options{
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
		CORSOrigins:    cfg.Server.CORSOrigins,
		RateLimiter:    limiter,
		Health:         app.Health,
		Logger:         logger,
	})

	// the analyzer call dominates request time
	writeTimeout := 30 * time.Second
	if cfg.AI.Timeout > 0 {
		writeTimeout += cfg.AI.Timeout
	}
	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: writeTimeout,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		logger.Error("server error", "err", err)
	}
	logger.Info("shutting down server...")

	ctx2, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		logger.Error("shutdown error", "err", err)
	}
}
