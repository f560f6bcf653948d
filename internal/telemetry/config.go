// Package telemetry provides OpenTelemetry instrumentation for extguard.
// Metrics are exported in Prometheus format; traces go to an OTLP collector.
package telemetry

import (
	"errors"
	"fmt"
	"time"
)

const (
	// DefaultServiceName is the default service name for telemetry
	DefaultServiceName = "extguard"

	// DefaultEndpoint is the default OTLP endpoint for traces
	DefaultEndpoint = "localhost:4318"

	// DefaultSampling is the default trace sampling rate
	DefaultSampling = 0.05

	// DefaultPushInterval is how often metrics are pushed over OTLP
	DefaultPushInterval = 60 * time.Second
)

// Config represents the telemetry section of the configuration file
type Config struct {
	// Enabled controls whether telemetry is enabled globally
	Enabled bool `yaml:"enabled"`

	// ServiceName is the name of the service for telemetry identification
	ServiceName string `yaml:"serviceName,omitempty"`

	// ServiceVersion defaults to the application version
	ServiceVersion string `yaml:"serviceVersion,omitempty"`

	// Endpoint is the OTLP collector endpoint for traces ("host:port")
	Endpoint string `yaml:"endpoint,omitempty"`

	// Insecure allows HTTP connections to the collector
	Insecure bool `yaml:"insecure,omitempty"`

	Tracing *TracingConfig `yaml:"tracing,omitempty"`
	Metrics *MetricsConfig `yaml:"metrics,omitempty"`
}

// TracingConfig defines tracing-specific configuration
type TracingConfig struct {
	Enabled bool `yaml:"enabled"`

	// Sampling is the trace sampling ratio between 0.0 and 1.0. Zero means DefaultSampling.
	Sampling float64 `yaml:"sampling,omitempty"`
}

// MetricsConfig defines metrics-specific configuration
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`

	// Push additionally exports metrics to the OTLP endpoint on PushInterval
	Push bool `yaml:"push,omitempty"`

	// PushInterval is a duration string such as "60s"
	PushInterval string `yaml:"pushInterval,omitempty"`
}

// GetServiceName returns the service name, using default if not specified
func (c *Config) GetServiceName() string {
	if c.ServiceName == "" {
		return DefaultServiceName
	}
	return c.ServiceName
}

// GetServiceVersion returns the service version, using "unknown" if not specified
func (c *Config) GetServiceVersion() string {
	if c.ServiceVersion == "" {
		return "unknown"
	}
	return c.ServiceVersion
}

// GetEndpoint returns the endpoint, using default if not specified
func (c *Config) GetEndpoint() string {
	if c.Endpoint == "" {
		return DefaultEndpoint
	}
	return c.Endpoint
}

// GetSampling returns the sampling ratio
func (c *TracingConfig) GetSampling() float64 {
	if c.Sampling == 0.0 {
		return DefaultSampling
	}
	return c.Sampling
}

// TracingEnabled reports whether traces should be exported
func (c *Config) TracingEnabled() bool {
	return c != nil && c.Enabled && c.Tracing != nil && c.Tracing.Enabled
}

// MetricsPushEnabled reports whether metrics are also pushed over OTLP
func (c *Config) MetricsPushEnabled() bool {
	return c.MetricsEnabled() && c.Metrics.Push
}

// GetPushInterval returns the OTLP metrics push interval
func (c *MetricsConfig) GetPushInterval() time.Duration {
	if c == nil || c.PushInterval == "" {
		return DefaultPushInterval
	}
	d, err := time.ParseDuration(c.PushInterval)
	if err != nil || d <= 0 {
		return DefaultPushInterval
	}
	return d
}

// MetricsEnabled reports whether metrics should be collected
func (c *Config) MetricsEnabled() bool {
	return c != nil && c.Enabled && c.Metrics != nil && c.Metrics.Enabled
}

// Validate validates the telemetry configuration
func (c *Config) Validate() error {
	if c == nil || !c.Enabled {
		return nil
	}

	var errs []error
	if c.Tracing != nil && c.Tracing.Enabled {
		if c.Tracing.Sampling < 0 || c.Tracing.Sampling > 1.0 {
			errs = append(errs, fmt.Errorf("tracing: sampling must be between 0.0 and 1.0, got %f", c.Tracing.Sampling))
		}
	}
	if c.Metrics != nil && c.Metrics.Enabled && c.Metrics.PushInterval != "" {
		if d, err := time.ParseDuration(c.Metrics.PushInterval); err != nil || d <= 0 {
			errs = append(errs, fmt.Errorf("metrics: pushInterval must be a positive duration, got %q", c.Metrics.PushInterval))
		}
	}
	return errors.Join(errs...)
}
