// Package bootstrap builds the log service and its backends from config.
// Both binaries start here.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bryanwahyu/logtriage/internal/application"
	appai "github.com/bryanwahyu/logtriage/internal/application/ai"
	applogs "github.com/bryanwahyu/logtriage/internal/application/logs"
	"github.com/bryanwahyu/logtriage/internal/config"
	domai "github.com/bryanwahyu/logtriage/internal/domain/ai"
	domain "github.com/bryanwahyu/logtriage/internal/domain/logs"
	"github.com/bryanwahyu/logtriage/internal/domain/redact"
	"github.com/bryanwahyu/logtriage/internal/infra/ai/ollama"
	"github.com/bryanwahyu/logtriage/internal/infra/ai/openai"
	"github.com/bryanwahyu/logtriage/internal/infra/db/memory"
	mysqlp "github.com/bryanwahyu/logtriage/internal/infra/db/mysql"
	"github.com/bryanwahyu/logtriage/internal/infra/db/postgres"
	"github.com/bryanwahyu/logtriage/internal/infra/db/sqlite"
	"github.com/bryanwahyu/logtriage/internal/infra/storage"
	"github.com/bryanwahyu/logtriage/internal/middleware"
)

// Options narrows what Build sets up.
type Options struct {
	// SkipAnalyzer builds the service without an analyzer client, for
	// commands that only read history or preview redaction.
	SkipAnalyzer bool
}

type App struct {
	Service *applogs.Service
	Health  map[string]middleware.HealthChecker
	Logger  *slog.Logger

	closers []func() error
}

// Close releases database handles in reverse order of creation.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}

func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts Options) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	app := &App{Logger: logger, Health: map[string]middleware.HealthChecker{}}

	red, err := redact.New(redact.Options{
		SecretLabels:    cfg.Redaction.SecretLabels,
		SecretMinLength: cfg.Redaction.SecretMinLength,
		RedactPaths:     cfg.Redaction.RedactPaths,
	})
	if err != nil {
		return nil, fmt.Errorf("redaction config: %w", err)
	}

	repo, err := app.openRepository(ctx, cfg)
	if err != nil {
		_ = app.Close()
		return nil, err
	}

	svc := &applogs.Service{
		Repo:     repo,
		Redactor: red,
		Clock:    application.SystemClock{},
		Logger:   logger,
	}

	if !opts.SkipAnalyzer {
		client, err := app.newAIClient(cfg)
		if err != nil {
			if !errors.Is(err, domai.ErrNotConfigured) {
				_ = app.Close()
				return nil, err
			}
			// uploads still work; each one reports a failed analysis
			logger.Warn("analyzer not configured", "provider", cfg.AI.Provider, "err", err)
			app.Health["analyzer"] = middleware.Optional(middleware.HealthCheckerFunc(
				func(context.Context) error { return err }))
		} else {
			svc.Analyzer = appai.NewService(client).WithTimeout(cfg.AI.Timeout)
		}
	}

	if cfg.Minio.Enabled {
		store, err := storage.New(ctx, storage.Config{
			Endpoint:  cfg.Minio.Endpoint,
			Region:    cfg.Minio.Region,
			Bucket:    cfg.Minio.BucketName,
			AccessKey: cfg.Minio.AccessKey,
			SecretKey: cfg.Minio.SecretKey,
			UseSSL:    cfg.Minio.UseSSL,
		})
		if err != nil {
			_ = app.Close()
			return nil, fmt.Errorf("minio init: %w", err)
		}
		svc.Archive = store
		app.Health["archive"] = middleware.Optional(store)
	}

	app.Service = svc
	logger.Info("service ready",
		"storage", cfg.Storage.Driver,
		"ai_provider", cfg.AI.Provider,
		"ai_model", cfg.AI.Model,
		"archive", cfg.Minio.Enabled,
		"redact_paths", cfg.Redaction.RedactPaths)
	return app, nil
}

type checkingRepository interface {
	domain.Repository
	middleware.HealthChecker
}

func (a *App) openRepository(ctx context.Context, cfg *config.Config) (domain.Repository, error) {
	var repo checkingRepository
	switch cfg.Storage.Driver {
	case "memory":
		repo = memory.NewLogRepository()
	case "sqlite":
		db, err := sqlite.Open(ctx, sqlite.Options{Path: cfg.Storage.SQLitePath})
		if err != nil {
			return nil, err
		}
		r := sqlite.NewLogRepository(db)
		a.closers = append(a.closers, r.Close)
		repo = r
	case "mysql":
		db, err := mysqlp.Connect(ctx, mysqlp.DSN(cfg.Database.Host, cfg.Database.Port,
			cfg.Database.User, cfg.Database.Password, cfg.Database.Name))
		if err != nil {
			return nil, fmt.Errorf("mysql connect: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		r := mysqlp.NewLogRepository(db)
		if err := r.Migrate(ctx); err != nil {
			return nil, err
		}
		repo = r
	case "postgres":
		db, err := postgres.Connect(ctx, postgres.DSN(cfg.Database.Host, cfg.Database.Port,
			cfg.Database.User, cfg.Database.Password, cfg.Database.Name, cfg.Database.SSLMode))
		if err != nil {
			return nil, fmt.Errorf("postgres connect: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		r := postgres.NewLogRepository(db)
		if err := r.Migrate(ctx); err != nil {
			return nil, err
		}
		repo = r
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
	a.Health["storage"] = repo
	return repo, nil
}

func (a *App) newAIClient(cfg *config.Config) (domai.Client, error) {
	switch cfg.AI.Provider {
	case "ollama":
		c, err := ollama.New(ollama.Config{
			Host:      cfg.AI.BaseURL,
			Model:     cfg.AI.Model,
			MaxTokens: cfg.AI.MaxTokens,
		}, a.Logger)
		if err != nil {
			return nil, err
		}
		a.Health["analyzer"] = middleware.Optional(c)
		return c, nil
	case "openai":
		c, err := openai.NewClient(openai.Config{
			APIKey:    cfg.AI.APIKey,
			BaseURL:   cfg.AI.BaseURL,
			Model:     cfg.AI.Model,
			MaxTokens: cfg.AI.MaxTokens,
		})
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown ai provider %q", cfg.AI.Provider)
	}
}
