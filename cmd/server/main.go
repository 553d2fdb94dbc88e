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

	"github.com/cidadao-ativo/cidadao-api/internal/camara"
	"github.com/cidadao-ativo/cidadao-api/internal/catalog"
	"github.com/cidadao-ativo/cidadao-api/internal/httpapi"
	"github.com/cidadao-ativo/cidadao-api/internal/notify"
	"github.com/cidadao-ativo/cidadao-api/internal/platform/cache"
	"github.com/cidadao-ativo/cidadao-api/internal/platform/config"
	"github.com/cidadao-ativo/cidadao-api/internal/platform/database"
	"github.com/cidadao-ativo/cidadao-api/internal/session"
)

// Cached listings outlive the staleness window so that degraded mode can
// still serve them.
const cacheRetentionFactor = 12

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	logger := cfg.Log.NewLogger()
	slog.SetDefault(logger)

	// Graceful shutdown on SIGTERM/SIGINT.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer a.close()

	if err := a.run(ctx); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// app holds the wired components of the server.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	catalog  *catalog.Catalog
	sessions *session.MemoryStore
	hub      *notify.Hub
	server   *http.Server
	closers  []func()
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	client := camara.NewClient(
		camara.WithBaseURL(cfg.Upstream.BaseURL),
		camara.WithHTTPClient(&http.Client{Timeout: cfg.Upstream.Timeout}),
	)

	quizzes, err := catalog.LoadQuizBank(cfg.QuizPath, logger)
	if err != nil {
		return nil, err
	}

	repo := catalog.NewRepository(client, catalog.RepositoryConfig{
		SiglaTipo:   cfg.Upstream.SiglaTipo,
		Year:        cfg.Upstream.Year,
		Concurrency: cfg.Upstream.Concurrency,
		Retries:     cfg.Upstream.Retries,
	}, catalog.WithQuizzes(quizzes), catalog.WithRepositoryLogger(logger))

	opts := []catalog.Option{catalog.WithLogger(logger)}
	var checks []httpapi.Checker

	if cfg.Cache.URL != "" {
		c, err := cache.New(ctx, cfg.Cache.URL, cache.WithNamespace(cfg.Cache.Namespace))
		if err != nil {
			a.close()
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = c.Close() })
		checks = append(checks, c)
		opts = append(opts, catalog.WithCache(catalog.NewRedisCache(c, cfg.Catalog.StaleAfter*cacheRetentionFactor)))
		logger.Info("listing cache connected")
	}

	if cfg.Database.URL != "" {
		db, err := database.New(ctx, cfg.Database.URL, cfg.Database.MaxConns, cfg.Database.MinConns)
		if err != nil {
			a.close()
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		checks = append(checks, db)

		snapshots, err := catalog.NewPostgresSnapshotStore(ctx, db)
		if err != nil {
			a.close()
			return nil, err
		}
		opts = append(opts, catalog.WithSnapshots(snapshots))
		logger.Info("listing snapshots enabled")
	}

	a.catalog, err = catalog.New(repo, catalog.Config{
		StaleAfter:      cfg.Catalog.StaleAfter,
		DefaultPageSize: cfg.Catalog.PageSize,
	}, opts...)
	if err != nil {
		a.close()
		return nil, err
	}

	a.hub = notify.NewHub(logger, notify.WithOriginPatterns(cfg.Server.AllowedOrigins...))
	a.sessions = session.NewMemoryStore()
	engine := session.NewEngine(session.EngineConfig{
		Store:     a.sessions,
		Bills:     a.catalog,
		Publisher: a.hub,
		Logger:    logger,
	})

	api := httpapi.New(httpapi.Config{
		Catalog:         a.catalog,
		Engine:          engine,
		Notifications:   a.hub,
		Checks:          checks,
		AllowedOrigins:  cfg.Server.AllowedOrigins,
		DefaultPageSize: cfg.Catalog.PageSize,
		Logger:          logger,
	})

	// No write timeout: /ws connections are long-lived.
	a.server = &http.Server{
		Addr:              cfg.Addr(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return a, nil
}

func (a *app) run(ctx context.Context) error {
	if a.cfg.Catalog.Prewarm {
		go a.prewarm(ctx)
	}
	go a.pruneSessions(ctx)

	errc := make(chan error, 1)
	go func() {
		a.logger.Info("server starting", "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	a.logger.Info("shutting down")

	// Hijacked WebSocket connections are not tracked by Shutdown.
	a.hub.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("shutdown error", "error", err)
	}
	return nil
}

func (a *app) prewarm(ctx context.Context) {
	l, err := a.catalog.List(ctx, a.cfg.Catalog.PageSize)
	if err != nil {
		a.logger.Warn("listing prewarm cancelled", "error", err)
		return
	}
	a.logger.Info("listing prewarmed", "bills", len(l.Bills), "source", l.Source, "degraded", l.Degraded)
}

func (a *app) pruneSessions(ctx context.Context) {
	ticker := time.NewTicker(pruneInterval(a.cfg.Session.IdleTimeout))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := a.sessions.PruneIdle(a.cfg.Session.IdleTimeout); n > 0 {
				a.logger.Info("idle sessions pruned", "pruned", n, "active", a.sessions.Len())
			}
		}
	}
}

// pruneInterval checks for idle sessions four times per idle timeout, at most
// once a minute and at least once every ten minutes.
func pruneInterval(idle time.Duration) time.Duration {
	return min(max(idle/4, time.Minute), 10*time.Minute)
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
