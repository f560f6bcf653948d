package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	// RefreshMetricsMeterName is the name used for the list refresh meter
	RefreshMetricsMeterName = "github.com/stacklok/extguard/refresh"

	// ScanMetricsMeterName is the name used for the installed extension scan meter
	ScanMetricsMeterName = "github.com/stacklok/extguard/scan"

	// RefreshTracerName is the name used for per-source refresh spans
	RefreshTracerName = "github.com/stacklok/extguard/sync"
)

// RefreshMetrics holds the instruments recorded by the refresh orchestrator
type RefreshMetrics struct {
	refreshDuration metric.Float64Histogram
	sourceRecords   metric.Int64Gauge
	refreshOutcomes metric.Int64Counter
}

// NewRefreshMetrics creates refresh instruments.
// If provider is nil, it returns nil (no-op metrics).
func NewRefreshMetrics(provider metric.MeterProvider) (*RefreshMetrics, error) {
	if provider == nil {
		return nil, nil
	}

	meter := provider.Meter(RefreshMetricsMeterName)

	refreshDuration, err := meter.Float64Histogram(
		"extguard_refresh_duration_seconds",
		metric.WithDescription("Duration of list refresh operations in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60),
	)
	if err != nil {
		return nil, err
	}

	sourceRecords, err := meter.Int64Gauge(
		"extguard_source_records",
		metric.WithDescription("Number of records cached for each source"),
		metric.WithUnit("{record}"),
	)
	if err != nil {
		return nil, err
	}

	refreshOutcomes, err := meter.Int64Counter(
		"extguard_refresh_outcomes_total",
		metric.WithDescription("Refresh outcomes per source by phase and reason"),
		metric.WithUnit("{refresh}"),
	)
	if err != nil {
		return nil, err
	}

	return &RefreshMetrics{
		refreshDuration: refreshDuration,
		sourceRecords:   sourceRecords,
		refreshOutcomes: refreshOutcomes,
	}, nil
}

// RecordRefreshDuration records how long fetching and parsing a source took
func (m *RefreshMetrics) RecordRefreshDuration(ctx context.Context, source string, duration time.Duration, success bool) {
	if m == nil || m.refreshDuration == nil {
		return
	}
	m.refreshDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("source", source),
		attribute.Bool("success", success),
	))
}

// RecordSourceRecords records the number of records now cached for a source
func (m *RefreshMetrics) RecordSourceRecords(ctx context.Context, source string, count int64) {
	if m == nil || m.sourceRecords == nil {
		return
	}
	m.sourceRecords.Record(ctx, count, metric.WithAttributes(attribute.String("source", source)))
}

// RecordOutcome counts one refresh decision for a source
func (m *RefreshMetrics) RecordOutcome(ctx context.Context, source, phase, reason string) {
	if m == nil || m.refreshOutcomes == nil {
		return
	}
	m.refreshOutcomes.Add(ctx, 1, metric.WithAttributes(
		attribute.String("source", source),
		attribute.String("phase", phase),
		attribute.String("reason", reason),
	))
}

// ScanMetrics holds the instruments recorded when installed extensions are classified
type ScanMetrics struct {
	flagged metric.Int64Gauge
}

// NewScanMetrics creates scan instruments.
// If provider is nil, it returns nil (no-op metrics).
func NewScanMetrics(provider metric.MeterProvider) (*ScanMetrics, error) {
	if provider == nil {
		return nil, nil
	}

	flagged, err := provider.Meter(ScanMetricsMeterName).Int64Gauge(
		"extguard_flagged_extensions",
		metric.WithDescription("Number of installed extensions matching a malicious list"),
		metric.WithUnit("{extension}"),
	)
	if err != nil {
		return nil, err
	}
	return &ScanMetrics{flagged: flagged}, nil
}

// RecordFlagged records the badge count of the last classification
func (m *ScanMetrics) RecordFlagged(ctx context.Context, count int64) {
	if m == nil || m.flagged == nil {
		return
	}
	m.flagged.Record(ctx, count)
}
