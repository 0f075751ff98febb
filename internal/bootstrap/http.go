package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/loveliiivelaugh/exercise-tracker/config"
	httpx "github.com/loveliiivelaugh/exercise-tracker/internal/http"
)

const shutdownTimeout = 10 * time.Second

// RunConfig contains everything needed to run the HTTP surface.
type RunConfig struct {
	Config   *config.AppConfig
	Services ServiceContainer
	Logger   *slog.Logger
}

// Run attaches the session reconciler, starts the HTTP server, and blocks
// until ctx is canceled or the server fails. Shutdown is graceful with a
// bounded drain window.
func Run(ctx context.Context, cfg *RunConfig) error {
	if cfg == nil {
		return errors.New("run config is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if err := cfg.Services.Session.Start(ctx); err != nil {
		return err
	}
	defer cfg.Services.Session.Close()

	server := newServer(cfg)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting HTTP server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down HTTP server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	err := g.Wait()

	if cfg.Services.Metrics != nil {
		if cerr := cfg.Services.Metrics.Close(); cerr != nil {
			logger.Warn("close statsd client failed", "error", cerr)
		}
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("HTTP server stopped")
	return nil
}

func newServer(cfg *RunConfig) *http.Server {
	addr := cfg.Config.HTTP.Addr
	if addr == "" {
		addr = ":8080"
	}

	handler := httpx.NewRouter(httpx.RouterServices{
		Session:      cfg.Services.Session,
		Activities:   cfg.Services.Activities,
		Sessions:     cfg.Services.Sessions,
		Broker:       cfg.Services.Broker,
		CookieDomain: cfg.Config.HTTP.CookieDomain,
		Logger:       cfg.Logger,
	})

	return &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
}
