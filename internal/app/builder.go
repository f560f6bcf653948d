package app

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/stacklok/extguard/internal/app/storage"
	"github.com/stacklok/extguard/internal/bundle"
	"github.com/stacklok/extguard/internal/config"
	"github.com/stacklok/extguard/internal/extid"
	"github.com/stacklok/extguard/internal/httpclient"
	"github.com/stacklok/extguard/internal/inventory"
	"github.com/stacklok/extguard/internal/parser"
	"github.com/stacklok/extguard/internal/registry"
	"github.com/stacklok/extguard/internal/service"
	pkgsync "github.com/stacklok/extguard/internal/sync"
	"github.com/stacklok/extguard/internal/telemetry"
)

const (
	defaultHTTPAddress    = ":8080"
	defaultRequestTimeout = 60 * time.Second
	defaultReadTimeout    = 10 * time.Second
	defaultWriteTimeout   = 90 * time.Second
	defaultIdleTimeout    = 60 * time.Second
)

// AppOption configures component and server construction
type AppOption func(*appConfig) error

type appConfig struct {
	config *config.Config

	// Optional component overrides (primarily for testing)
	storageFactory storage.Factory
	httpClient     httpclient.Client
	enumerator     inventory.Enumerator
	bundle         bundle.Reader
	clock          func() time.Time

	// HTTP server options
	address        string
	middlewares    []func(http.Handler) http.Handler
	requestTimeout time.Duration
	metricsHandler http.Handler

	// Telemetry components
	meterProvider  metric.MeterProvider
	tracerProvider trace.TracerProvider
}

func baseConfig(opts ...AppOption) (*appConfig, error) {
	cfg := &appConfig{
		address:        defaultHTTPAddress,
		requestTimeout: defaultRequestTimeout,
	}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}
	if cfg.config == nil {
		cfg.config = config.Default()
	}
	return cfg, nil
}

// WithConfig sets the configuration
func WithConfig(c *config.Config) AppOption {
	return func(cfg *appConfig) error {
		if c == nil {
			return fmt.Errorf("config cannot be nil")
		}
		cfg.config = c
		return nil
	}
}

// WithStorageFactory replaces the backend selected by the configuration
func WithStorageFactory(f storage.Factory) AppOption {
	return func(cfg *appConfig) error {
		cfg.storageFactory = f
		return nil
	}
}

// WithHTTPClient replaces the network client used to fetch lists
func WithHTTPClient(c httpclient.Client) AppOption {
	return func(cfg *appConfig) error {
		cfg.httpClient = c
		return nil
	}
}

// WithEnumerator replaces the installed-extension source selected by the configuration
func WithEnumerator(e inventory.Enumerator) AppOption {
	return func(cfg *appConfig) error {
		cfg.enumerator = e
		return nil
	}
}

// WithBundle replaces the bundled list directory selected by the configuration
func WithBundle(r bundle.Reader) AppOption {
	return func(cfg *appConfig) error {
		cfg.bundle = r
		return nil
	}
}

// WithClock sets the clock used for snapshot and status timestamps
func WithClock(clock func() time.Time) AppOption {
	return func(cfg *appConfig) error {
		cfg.clock = clock
		return nil
	}
}

// WithAddress sets the HTTP server address
func WithAddress(addr string) AppOption {
	return func(cfg *appConfig) error {
		if addr == "" {
			return fmt.Errorf("address cannot be empty")
		}

		host, port, err := net.SplitHostPort(addr)
		if err != nil {
			return fmt.Errorf("address is not a valid host:port: %w", err)
		}
		if port == "" {
			return fmt.Errorf("address is not a valid port: %s", addr)
		}
		switch host {
		case "":
			host = "0.0.0.0"
		case "localhost":
			host = "127.0.0.1"
		}

		if _, err := netip.ParseAddrPort(net.JoinHostPort(host, port)); err != nil {
			return fmt.Errorf("address is not a valid port: %w", err)
		}

		cfg.address = addr
		return nil
	}
}

// WithMiddlewares replaces the default HTTP middlewares
func WithMiddlewares(mw ...func(http.Handler) http.Handler) AppOption {
	return func(cfg *appConfig) error {
		cfg.middlewares = mw
		return nil
	}
}

// WithRequestTimeout bounds the handling time of a single API request
func WithRequestTimeout(d time.Duration) AppOption {
	return func(cfg *appConfig) error {
		if d <= 0 {
			return fmt.Errorf("request timeout must be positive, got %s", d)
		}
		cfg.requestTimeout = d
		return nil
	}
}

// WithMeterProvider sets the meter provider for refresh, scan and HTTP metrics
func WithMeterProvider(mp metric.MeterProvider) AppOption {
	return func(cfg *appConfig) error {
		cfg.meterProvider = mp
		return nil
	}
}

// WithTracerProvider sets the tracer provider for refresh and HTTP spans
func WithTracerProvider(tp trace.TracerProvider) AppOption {
	return func(cfg *appConfig) error {
		cfg.tracerProvider = tp
		return nil
	}
}

// WithMetricsHandler serves the Prometheus scrape handler at /metrics
func WithMetricsHandler(h http.Handler) AppOption {
	return func(cfg *appConfig) error {
		cfg.metricsHandler = h
		return nil
	}
}

// buildComponents wires storage, registry, refresh manager and list service
func buildComponents(ctx context.Context, b *appConfig) (*Components, error) {
	cfg := b.config

	if b.storageFactory == nil {
		f, err := storage.NewStorageFactory(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create storage factory: %w", err)
		}
		b.storageFactory = f
	}

	validator, err := extid.NewValidator(cfg.ExtensionID)
	if err != nil {
		return nil, err
	}
	dispatcher := parser.NewDispatcher(validator)

	if b.bundle == nil {
		b.bundle = bundle.NewDirReader(cfg.Lists.Dir)
	}
	if b.httpClient == nil {
		b.httpClient = httpclient.NewDefaultClient(cfg.GetFetchTimeout())
	}
	if b.clock == nil {
		b.clock = time.Now
	}
	if b.enumerator == nil {
		b.enumerator = enumeratorFromConfig(cfg)
	}

	cacheStore := b.storageFactory.CreateCacheStore()
	statusStore := b.storageFactory.CreateStatusPersistence()
	writeLock := &sync.Mutex{}
	reg := b.storageFactory.CreateRegistry(b.bundle, registry.Options{
		DefaultNames: cfg.Lists.DefaultFolders,
		Formats:      dispatcher,
		WriteLock:    writeLock,
	})

	managerOpts := []pkgsync.Option{
		pkgsync.WithWriteLock(writeLock),
		pkgsync.WithBundle(b.bundle),
		pkgsync.WithClock(b.clock),
		pkgsync.WithStalenessChecker(pkgsync.NewValidityChecker(cfg.GetCacheValidity(), b.clock)),
	}
	if b.tracerProvider != nil {
		managerOpts = append(managerOpts, pkgsync.WithTracer(b.tracerProvider.Tracer(telemetry.RefreshTracerName)))
	}
	refreshMetrics, err := telemetry.NewRefreshMetrics(b.meterProvider)
	if err != nil {
		return nil, fmt.Errorf("failed to create refresh metrics: %w", err)
	}
	if refreshMetrics != nil {
		managerOpts = append(managerOpts, pkgsync.WithRefreshMetrics(refreshMetrics))
		slog.Debug("Refresh metrics enabled")
	}
	manager := pkgsync.NewManager(reg, cacheStore, statusStore, b.httpClient, dispatcher, managerOpts...)

	serviceOpts := []service.PipelineOption{
		service.WithHostExtensionID(cfg.Inventory.HostExtensionID),
	}
	if b.enumerator != nil {
		serviceOpts = append(serviceOpts, service.WithEnumerator(b.enumerator))
	}
	scanMetrics, err := telemetry.NewScanMetrics(b.meterProvider)
	if err != nil {
		return nil, fmt.Errorf("failed to create scan metrics: %w", err)
	}
	if scanMetrics != nil {
		serviceOpts = append(serviceOpts, service.WithScanMetrics(scanMetrics))
	}

	return &Components{
		Config:   cfg,
		Storage:  b.storageFactory,
		Registry: reg,
		Manager:  manager,
		Service:  service.NewPipeline(reg, cacheStore, statusStore, manager, serviceOpts...),
	}, nil
}

// enumeratorFromConfig prefers a Chromium profile over an exported file.
// It returns nil when neither is configured.
func enumeratorFromConfig(cfg *config.Config) inventory.Enumerator {
	switch {
	case cfg.Inventory.ChromiumProfile != "":
		return inventory.NewChromiumEnumerator(cfg.Inventory.ChromiumProfile)
	case cfg.Inventory.File != "":
		return inventory.NewFileEnumerator(cfg.Inventory.File)
	default:
		return nil
	}
}
