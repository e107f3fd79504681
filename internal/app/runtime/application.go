// Package runtime wires configuration, services, middleware and the HTTP
// server into a runnable process.
package runtime

import (
	"context"
	"fmt"
	"net/http"
	"time"

	app "github.com/corner-store/storefront/internal/app"
	"github.com/corner-store/storefront/internal/app/httpapi"
	"github.com/corner-store/storefront/internal/app/metrics"
	"github.com/corner-store/storefront/internal/config"
	"github.com/corner-store/storefront/internal/middleware"
	"github.com/corner-store/storefront/pkg/logger"
)

// Application wires core dependencies and manages the HTTP server lifecycle.
type Application struct {
	cfg        config.Config
	log        *logger.Logger
	app        *app.Application
	httpServer *http.Server
}

// NewApplication constructs a new application instance with default wiring.
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return NewApplicationWithConfig(cfg)
}

// NewApplicationWithConfig constructs an application from an explicit
// configuration.
func NewApplicationWithConfig(cfg config.Config) (*Application, error) {
	log := logger.New(cfg.Logging).Named("storefront")

	core, err := app.New(app.Stores{}, app.Options{
		FeedURL:        cfg.Feed.URL,
		FeedCurrency:   cfg.Feed.Currency,
		FeedPerPage:    cfg.Feed.PerPage,
		FeedAPIKey:     cfg.Feed.APIKey,
		FeedSchedule:   cfg.Feed.Schedule,
		HTTPTimeout:    cfg.Feed.Timeout.Std(),
		SessionMaxIdle: cfg.Session.MaxIdle.Std(),
	}, log)
	if err != nil {
		return nil, fmt.Errorf("build application: %w", err)
	}

	handler := httpapi.NewHandler(core)

	limiter := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, log)
	// The cleanup sweep runs under the application lifecycle so it stops with
	// everything else on shutdown.
	if err := core.Attach(limiter); err != nil {
		return nil, fmt.Errorf("register rate limiter: %w", err)
	}
	cors := middleware.NewCORSMiddleware(cfg.CORS.AllowedOrigins)

	chained := cors.Handler(limiter.Handler(metrics.InstrumentHandler(handler)))

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      chained,
		ReadTimeout:  cfg.Server.ReadTimeout.Std(),
		WriteTimeout: cfg.Server.WriteTimeout.Std(),
	}

	return &Application{
		cfg:        cfg,
		log:        log,
		app:        core,
		httpServer: srv,
	}, nil
}

// Run starts the background services and the HTTP server, blocking until the
// context is cancelled or the server fails.
func (a *Application) Run(ctx context.Context) error {
	if err := a.app.Start(ctx); err != nil {
		return fmt.Errorf("start services: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Infof("HTTP server listening on %s", a.cfg.Server.Addr)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// Shutdown gracefully stops the HTTP server and background services.
func (a *Application) Shutdown(ctx context.Context) error {
	timeout := a.cfg.Server.ShutdownTimeout.Std()
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.log.WithError(err).Warn("HTTP server shutdown")
	}
	return a.app.Stop(shutdownCtx)
}
