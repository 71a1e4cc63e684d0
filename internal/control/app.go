// Package control assembles the enrichment service: rate limit store,
// retry manager, progress tracker, dispatcher and HTTP server.
package control

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/minhvu-dev/enricher/internal/core/config"
	"github.com/minhvu-dev/enricher/internal/enrichment/dispatch"
	"github.com/minhvu-dev/enricher/internal/enrichment/progress"
	"github.com/minhvu-dev/enricher/internal/enrichment/recovery"
	"github.com/minhvu-dev/enricher/internal/infra/completion"
	"github.com/minhvu-dev/enricher/internal/infra/ratelimit"
	"github.com/minhvu-dev/enricher/internal/server"
)

// App is the assembled service.
type App struct {
	cfg        *config.AppConfig
	log        *slog.Logger
	retry      *recovery.Manager
	tracker    *progress.Tracker
	httpServer *server.Server
	redisStore *ratelimit.RedisStore
}

// NewApp wires all components from configuration.
func NewApp(cfg *config.AppConfig) (*App, error) {
	app := &App{
		cfg: cfg,
		log: slog.Default(),
	}

	var store ratelimit.Store
	switch cfg.RateLimit.Store {
	case "", "memory":
		store = ratelimit.NewMemoryStore()
	case "redis":
		redisStore, err := ratelimit.NewRedisStore(cfg.RateLimit.Redis)
		if err != nil {
			return nil, fmt.Errorf("rate limit store: %w", err)
		}
		app.redisStore = redisStore
		store = redisStore
		app.log.Info("Using Redis rate limit store")
	default:
		return nil, fmt.Errorf("unknown rate limit store %q", cfg.RateLimit.Store)
	}

	client := completion.NewOpenAIClient(cfg.Completion.APIKey, cfg.Completion.Model)
	app.retry = recovery.NewManager(app.log)
	app.tracker = progress.NewTracker(cfg.Progress.Liveness)

	dispatcher := dispatch.New(client, app.retry, app.tracker, app.log)
	handlers := server.NewHandlers(dispatcher, app.tracker, app.log)
	app.httpServer = server.NewServer(handlers, store, cfg.RateLimit.Budgets, cfg.Server.Port)

	return app, nil
}

// Start starts the HTTP server and background workers.
func (a *App) Start(ctx context.Context) error {
	go func() {
		if err := a.httpServer.Start(); err != nil {
			a.log.Error("HTTP server failed", "error", err)
		}
	}()

	// Failure-table purge loop.
	go a.retry.Start(ctx)

	a.log.Info("Enricher started", "port", a.cfg.Server.Port)
	return nil
}

// Stop shuts everything down gracefully.
func (a *App) Stop(ctx context.Context) error {
	a.log.Info("Stopping enricher...")

	if err := a.httpServer.Stop(ctx); err != nil {
		a.log.Warn("Failed to stop HTTP server", "error", err)
	}

	a.retry.Close()
	a.tracker.Close()

	if a.redisStore != nil {
		if err := a.redisStore.Close(); err != nil {
			a.log.Warn("Failed to close Redis", "error", err)
		}
	}

	return nil
}
