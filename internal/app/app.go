// Package app wires configuration, storage, auth and the HTTP server
// into a runnable service.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"webapi-template/internal/adapter/httpapi"
	"webapi-template/internal/adapter/repo/memory"
	"webapi-template/internal/adapter/repo/postgres"
	"webapi-template/internal/adapter/repo/sqlite"
	"webapi-template/internal/adapter/scheduler"
	"webapi-template/internal/auth"
	"webapi-template/internal/auth/authgate"
	"webapi-template/internal/auth/jwtverify"
	"webapi-template/internal/config"
	"webapi-template/internal/domain/user"
	"webapi-template/internal/middleware"
	"webapi-template/internal/platform/logger"
	"webapi-template/pkg/retry"
)

// App wires application components.
type App struct {
	cfg config.Config
	log *slog.Logger
}

// New creates a new App instance and loads configuration.
func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log := logger.New(logger.Options{
		Env:          cfg.Env,
		ConsoleLevel: cfg.Log.ConsoleLevel,
		FileLevel:    cfg.Log.FileLevel,
		File:         cfg.Log.File,
		App:          "webapi",
	})
	return &App{cfg: cfg, log: log}, nil
}

// Run starts the application and blocks until shutdown.
func (a *App) Run() error {
	a.log.Info("starting", slog.String("env", a.cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	verifier, err := a.buildVerifier()
	if err != nil {
		return err
	}
	resolver := auth.NewResolver(verifier, store, a.log)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	var limiter *middleware.RateLimiter
	if a.cfg.HTTP.RateLimit > 0 {
		limiter = middleware.NewRateLimiter(a.cfg.HTTP.RateLimit)
	}

	router := httpapi.NewRouter(httpapi.RouterOptions{
		Log:         a.log,
		Production:  a.cfg.Production(),
		Resolver:    resolver,
		Users:       store,
		Registry:    registry,
		Limiter:     limiter,
		CORSOrigins: a.cfg.HTTP.CORSOrigins,
	})

	sched := scheduler.New(ctx, a.log)
	if limiter != nil {
		_, err = sched.Add("@every 10m", func(context.Context) error {
			removed := limiter.Prune(time.Hour)
			if removed > 0 {
				a.log.Debug("rate limiter pruned", slog.Int("removed", removed))
			}
			return nil
		}, scheduler.Options{Name: "ratelimit-prune"})
		if err != nil {
			return err
		}
	}
	sched.Start()

	srv := &http.Server{
		Addr:              a.cfg.HTTP.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("listening", slog.String("addr", a.cfg.HTTP.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := sched.Stop(shutdownCtx); err != nil {
		a.log.Warn("scheduler shutdown", slog.Any("err", err))
	}
	return srv.Shutdown(shutdownCtx)
}

// openStore selects and opens the configured user store, waiting for it to
// become reachable before the server accepts traffic.
func (a *App) openStore(ctx context.Context) (user.Store, func(), error) {
	var (
		store      user.Store
		closeStore func()
	)
	switch a.cfg.Store.Driver {
	case "memory":
		store, closeStore = memory.New(), func() {}
	case "sqlite":
		s, err := sqlite.Open(ctx, a.cfg.Store.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite store: %w", err)
		}
		store, closeStore = s, func() { _ = s.Close() }
	case "postgres":
		s, err := postgres.Open(ctx, a.cfg.Store.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres store: %w", err)
		}
		store, closeStore = s, s.Close
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", a.cfg.Store.Driver)
	}

	pingCfg := retry.DefaultConfig()
	pingCfg.MaxAttempts = 5
	pingCfg.OnRetry = func(attempt int, err error, next time.Duration) {
		a.log.Warn("store not ready, retrying",
			slog.Int("attempt", attempt),
			slog.Duration("next", next),
			slog.Any("err", err))
	}
	err := retry.DoWithRetryable(ctx, pingCfg,
		func(ctx context.Context) error { return store.Ping(ctx) },
		func(err error) bool { return !errors.Is(err, context.Canceled) })
	if err != nil {
		closeStore()
		return nil, nil, fmt.Errorf("store unreachable: %w", err)
	}
	return store, closeStore, nil
}

func (a *App) buildVerifier() (auth.Verifier, error) {
	switch a.cfg.Auth.Mode {
	case "local":
		return jwtverify.New(jwtverify.Options{
			Secret:     []byte(a.cfg.Auth.JWTSecret),
			CookieName: a.cfg.Auth.CookieName,
			Leeway:     30 * time.Second,
		})
	case "remote":
		return authgate.New(authgate.Options{
			BaseURL:    a.cfg.Auth.ProviderURL,
			APIKey:     a.cfg.Auth.APIKey,
			CookieName: a.cfg.Auth.CookieName,
			Logger:     a.log,
		}), nil
	default:
		return nil, fmt.Errorf("unknown auth mode %q", a.cfg.Auth.Mode)
	}
}
