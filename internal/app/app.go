// Package app provides application lifecycle management for extguard: it wires
// the list pipeline and runs the HTTP API with background refreshing.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/stacklok/extguard/internal/api"
	"github.com/stacklok/extguard/internal/config"
	"github.com/stacklok/extguard/internal/service"
	pkgsync "github.com/stacklok/extguard/internal/sync"
	"github.com/stacklok/extguard/internal/sync/coordinator"
	"github.com/stacklok/extguard/internal/telemetry"
)

// ExtguardApp runs the HTTP API and the background refresh coordinator
type ExtguardApp struct {
	config      *config.Config
	components  *Components
	coordinator coordinator.Coordinator
	httpServer  *http.Server

	// Lifecycle management
	ctx        context.Context
	cancelFunc context.CancelFunc
}

// NewExtguardApp builds the server application
func NewExtguardApp(ctx context.Context, opts ...AppOption) (*ExtguardApp, error) {
	cfg, err := baseConfig(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build base configuration: %w", err)
	}

	components, err := buildComponents(ctx, cfg)
	if err != nil {
		if cfg.storageFactory != nil {
			cfg.storageFactory.Cleanup()
		}
		return nil, fmt.Errorf("failed to build components: %w", err)
	}

	httpServer, err := buildHTTPServer(cfg, components.Service)
	if err != nil {
		components.Close()
		return nil, fmt.Errorf("failed to build HTTP server: %w", err)
	}

	coord := coordinator.New(components.Manager,
		coordinator.WithBootstrap(),
		coordinator.WithInterval(cfg.config.GetRefreshInterval()),
		coordinator.WithBatchHook(badgeHook(components.Service)),
	)

	appCtx, cancel := context.WithCancel(ctx)
	return &ExtguardApp{
		config:      cfg.config,
		components:  components,
		coordinator: coord,
		httpServer:  httpServer,
		ctx:         appCtx,
		cancelFunc:  cancel,
	}, nil
}

// Start starts the refresh coordinator and the HTTP server.
// This method blocks until the HTTP server stops or encounters an error.
func (app *ExtguardApp) Start() error {
	go func() {
		if err := app.coordinator.Start(app.ctx); err != nil {
			slog.Error("Refresh coordinator failed", "error", err)
		}
	}()

	slog.Info("Server listening", "address", app.httpServer.Addr)
	if err := app.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server failed: %w", err)
	}
	return nil
}

// Serve is like Start but accepts connections on an existing listener
func (app *ExtguardApp) Serve(l net.Listener) error {
	go func() {
		if err := app.coordinator.Start(app.ctx); err != nil {
			slog.Error("Refresh coordinator failed", "error", err)
		}
	}()

	slog.Info("Server listening", "address", l.Addr().String())
	if err := app.httpServer.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server failed: %w", err)
	}
	return nil
}

// Stop gracefully stops the application with the given timeout.
// It stops the coordinator first, then shuts down the HTTP server and releases storage.
func (app *ExtguardApp) Stop(timeout time.Duration) error {
	slog.Info("Shutting down server")

	if err := app.coordinator.Stop(); err != nil {
		slog.Error("Failed to stop refresh coordinator", "error", err)
	}
	if app.cancelFunc != nil {
		app.cancelFunc()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	err := app.httpServer.Shutdown(shutdownCtx)
	app.components.Close()
	if err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	slog.Info("Server shutdown complete")
	return nil
}

// GetConfig returns the application configuration
func (app *ExtguardApp) GetConfig() *config.Config {
	return app.config
}

// GetHTTPServer returns the HTTP server
func (app *ExtguardApp) GetHTTPServer() *http.Server {
	return app.httpServer
}

// Service returns the list service backing the API
func (app *ExtguardApp) Service() service.ListService {
	return app.components.Service
}

// badgeHook recounts flagged installed extensions after every background batch
func badgeHook(svc service.ListService) coordinator.BatchHook {
	return func(ctx context.Context, _ *pkgsync.BatchResult) {
		result, err := svc.Scan(ctx)
		if errors.Is(err, service.ErrNoEnumerator) {
			return
		}
		if err != nil {
			slog.WarnContext(ctx, "Failed to scan installed extensions", "error", err)
			return
		}
		slog.InfoContext(ctx, "Installed extensions checked",
			"flagged", result.Count(),
			"clear", len(result.Clear))
	}
}

// buildHTTPServer builds the HTTP server with router and middleware
func buildHTTPServer(b *appConfig, svc service.ListService) (*http.Server, error) {
	middlewares := b.middlewares
	if middlewares == nil {
		middlewares = []func(http.Handler) http.Handler{
			middleware.RequestID,
			middleware.RealIP,
			middleware.Recoverer,
			middleware.Timeout(b.requestTimeout),
			api.LoggingMiddleware,
		}
	}

	if b.meterProvider != nil {
		httpMetrics, err := telemetry.NewHTTPMetrics(b.meterProvider)
		if err != nil {
			return nil, fmt.Errorf("failed to create HTTP metrics: %w", err)
		}
		middlewares = append([]func(http.Handler) http.Handler{httpMetrics.Middleware}, middlewares...)
		slog.Debug("HTTP metrics middleware enabled")
	}
	if b.tracerProvider != nil {
		middlewares = append([]func(http.Handler) http.Handler{telemetry.TracingMiddleware(b.tracerProvider)},
			middlewares...)
	}

	serverOpts := []api.ServerOption{api.WithMiddlewares(middlewares...)}
	if b.metricsHandler != nil {
		serverOpts = append(serverOpts, api.WithMetricsHandler(b.metricsHandler))
	}

	return &http.Server{
		Addr:              b.address,
		Handler:           api.NewServer(svc, serverOpts...),
		ReadHeaderTimeout: defaultReadTimeout,
		ReadTimeout:       defaultReadTimeout,
		WriteTimeout:      defaultWriteTimeout,
		IdleTimeout:       defaultIdleTimeout,
	}, nil
}
