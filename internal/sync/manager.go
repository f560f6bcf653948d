package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/stacklok/extguard/internal/bundle"
	"github.com/stacklok/extguard/internal/cache"
	"github.com/stacklok/extguard/internal/httpclient"
	"github.com/stacklok/extguard/internal/lists"
	"github.com/stacklok/extguard/internal/otel"
	"github.com/stacklok/extguard/internal/parser"
	"github.com/stacklok/extguard/internal/registry"
	"github.com/stacklok/extguard/internal/status"
	"github.com/stacklok/extguard/internal/telemetry"
)

var (
	// ErrNoURL is returned by RefreshSource for a local-only source
	ErrNoURL = errors.New("source has no url")

	// ErrEmptyResponse is reported when a fetch succeeds with an empty body
	ErrEmptyResponse = errors.New("empty response body")
)

// Manager refreshes cached list snapshots
//
//go:generate mockgen -destination=mocks/mock_manager.go -package=mocks github.com/stacklok/extguard/internal/sync Manager
type Manager interface {
	// UpdateAll processes every registered source in order. Unless force is
	// set, sources whose snapshot is still fresh are skipped.
	UpdateAll(ctx context.Context, force bool) (*BatchResult, error)

	// RefreshSource fetches one source regardless of snapshot age or enabled flag
	RefreshSource(ctx context.Context, name string) (*SourceOutcome, error)

	// LoadInitialData fills snapshots from bundled data. With reload every
	// source is reloaded, otherwise only sources without records are.
	LoadInitialData(ctx context.Context, reload bool) (*BatchResult, error)
}

type defaultManager struct {
	registry   registry.Registry
	cache      cache.Store
	status     status.StatusPersistence
	client     httpclient.Client
	dispatcher *parser.Dispatcher
	bundle     bundle.Reader
	staleness  StalenessChecker
	now        func() time.Time
	tracer     trace.Tracer
	metrics    *telemetry.RefreshMetrics

	// mu ensures at most one batch runs at a time
	mu sync.Locker
}

// Option configures the Manager
type Option func(*defaultManager)

// WithBundle sets the reader used by LoadInitialData
func WithBundle(reader bundle.Reader) Option {
	return func(m *defaultManager) {
		m.bundle = reader
	}
}

// WithStalenessChecker replaces the default seven-day validity window
func WithStalenessChecker(checker StalenessChecker) Option {
	return func(m *defaultManager) {
		m.staleness = checker
	}
}

// WithWriteLock sets the lock held for the duration of a batch or single
// refresh. Pass the registry's write lock so source mutations wait for it.
func WithWriteLock(lock sync.Locker) Option {
	return func(m *defaultManager) {
		m.mu = lock
	}
}

// WithClock sets the clock used for lastUpdate and status timestamps
func WithClock(clock func() time.Time) Option {
	return func(m *defaultManager) {
		m.now = clock
	}
}

// WithTracer sets the tracer used for per-source spans
func WithTracer(tracer trace.Tracer) Option {
	return func(m *defaultManager) {
		m.tracer = tracer
	}
}

// WithRefreshMetrics sets the refresh instruments
func WithRefreshMetrics(metrics *telemetry.RefreshMetrics) Option {
	return func(m *defaultManager) {
		m.metrics = metrics
	}
}

// NewManager creates a Manager
func NewManager(
	reg registry.Registry,
	cacheStore cache.Store,
	statusStore status.StatusPersistence,
	client httpclient.Client,
	dispatcher *parser.Dispatcher,
	opts ...Option,
) Manager {
	m := &defaultManager{
		registry:   reg,
		cache:      cacheStore,
		status:     statusStore,
		client:     client,
		dispatcher: dispatcher,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.mu == nil {
		m.mu = &sync.Mutex{}
	}
	if m.staleness == nil {
		m.staleness = NewValidityChecker(7*24*time.Hour, m.now)
	}
	return m
}

func (m *defaultManager) UpdateAll(ctx context.Context, force bool) (*BatchResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	names, err := m.registry.Names(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list sources: %w", err)
	}

	runID := uuid.NewString()
	result := newBatchResult(runID)
	slog.InfoContext(ctx, "Starting list refresh", "runId", runID, "force", force, "sources", len(names))

	for _, name := range names {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		result.add(m.refreshOne(ctx, runID, name, force, false))
	}

	slog.InfoContext(ctx, "List refresh finished",
		"runId", runID,
		"succeeded", result.Succeeded,
		"failed", result.Failed,
		"skipped", result.Skipped)
	return result, nil
}

func (m *defaultManager) RefreshSource(ctx context.Context, name string) (*SourceOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	outcome := m.refreshOne(ctx, uuid.NewString(), name, true, true)
	if outcome.Err != nil {
		return &outcome, outcome.Err
	}
	return &outcome, nil
}

// refreshOne processes one source. With single set, the enabled flag is ignored
// and a missing url is a config error instead of a skip.
func (m *defaultManager) refreshOne(ctx context.Context, runID, name string, force, single bool) SourceOutcome {
	ctx, span := otel.StartSpan(ctx, m.tracer, "sync.refreshSource",
		trace.WithAttributes(
			otel.AttrSourceName.String(name),
			otel.AttrRefreshForced.Bool(force),
			otel.AttrRunID.String(runID),
		),
	)
	defer span.End()

	start := m.now()
	outcome := m.decideAndFetch(ctx, name, force, single)

	span.SetAttributes(
		otel.AttrRefreshReason.String(outcome.Reason),
		otel.AttrRecordCount.Int(outcome.RecordCount),
	)
	if outcome.Err != nil {
		otel.RecordError(span, outcome.Err)
	}

	m.metrics.RecordOutcome(ctx, name, string(outcome.Phase), outcome.Reason)
	if outcome.Phase != status.SyncPhaseSkipped {
		m.metrics.RecordRefreshDuration(ctx, name, m.now().Sub(start), !outcome.Failed())
	}
	if outcome.Phase == status.SyncPhaseComplete {
		m.metrics.RecordSourceRecords(ctx, name, int64(outcome.RecordCount))
	}

	m.persistOutcome(ctx, &outcome)
	return outcome
}

func (m *defaultManager) decideAndFetch(ctx context.Context, name string, force, single bool) SourceOutcome {
	desc, err := m.registry.Descriptor(ctx, name)
	if err != nil {
		return failed(name, &Error{
			Err:             err,
			Message:         fmt.Sprintf("Failed to load descriptor: %v", err),
			Kind:            KindConfig,
			ConditionReason: conditionReasonDescriptorUnavailable,
		})
	}

	if !desc.HasURL() {
		if single {
			return failed(name, &Error{
				Err:             ErrNoURL,
				Message:         fmt.Sprintf("Cannot refresh %s: %v", name, ErrNoURL),
				Kind:            KindConfig,
				ConditionReason: conditionReasonDescriptorUnavailable,
			})
		}
		return skipped(name, ReasonNoURL)
	}
	if !single && !desc.Enabled {
		return skipped(name, ReasonDisabled)
	}

	reason := ReasonForced
	if !force {
		entry, found, err := m.cache.Load(ctx, name)
		if err != nil {
			slog.WarnContext(ctx, "Unreadable cache entry, refreshing", "source", name, "error", err)
		}
		if !found {
			entry = nil
		}
		var needed bool
		needed, reason = m.staleness.NeedsRefresh(entry)
		if !needed {
			slog.DebugContext(ctx, "Cache is fresh, skipping fetch", "source", name)
			return skipped(name, reason)
		}
	}

	return m.fetchAndStore(ctx, name, desc, reason)
}

func (m *defaultManager) fetchAndStore(ctx context.Context, name string, desc *lists.Descriptor, reason string) SourceOutcome {
	m.markSyncing(ctx, name)

	slog.InfoContext(ctx, "Fetching list", "source", name, "url", desc.URL, "reason", reason)
	body, err := m.client.Get(ctx, desc.URL)
	if err != nil {
		slog.ErrorContext(ctx, "Fetch failed", "source", name, "error", err)
		return failed(name, &Error{
			Err:             err,
			Message:         fmt.Sprintf("Fetch failed: %v", err),
			Kind:            KindTransport,
			ConditionReason: conditionReasonFetchFailed,
		})
	}

	if len(body) == 0 {
		slog.WarnContext(ctx, "Fetched list is empty, keeping cache", "source", name)
		return failed(name, &Error{
			Err:             ErrEmptyResponse,
			Message:         fmt.Sprintf("Fetch failed: %v", ErrEmptyResponse),
			Kind:            KindTransport,
			ConditionReason: conditionReasonFetchFailed,
		})
	}

	records := m.dispatcher.Dispatch(ctx, desc.Format, string(body), desc)
	if len(records) == 0 {
		slog.WarnContext(ctx, "No records parsed from fetched list", "source", name, "bytes", len(body))
	}

	if err := m.cache.Save(ctx, name, cache.NewEntry(records, desc, m.now())); err != nil {
		slog.ErrorContext(ctx, "Failed to store list", "source", name, "error", err)
		return failed(name, &Error{
			Err:             err,
			Message:         fmt.Sprintf("Failed to store records: %v", err),
			Kind:            KindStorage,
			ConditionReason: conditionReasonStorageFailed,
		})
	}

	slog.InfoContext(ctx, "List refreshed", "source", name, "records", len(records))
	return SourceOutcome{
		Name:        name,
		Phase:       status.SyncPhaseComplete,
		Reason:      reason,
		RecordCount: len(records),
		Message:     fmt.Sprintf("Refreshed %d records", len(records)),
	}
}

func (m *defaultManager) markSyncing(ctx context.Context, name string) {
	if m.status == nil {
		return
	}
	st, err := m.status.LoadStatus(ctx, name)
	if err != nil {
		st = &status.SyncStatus{}
	}
	now := m.now()
	st.Phase = status.SyncPhaseSyncing
	st.Message = "Refresh in progress"
	st.LastAttempt = &now
	if err := m.status.SaveStatus(ctx, name, st); err != nil {
		slog.WarnContext(ctx, "Failed to persist syncing status", "source", name, "error", err)
	}
}

// persistOutcome folds an outcome into the stored status of its source
func (m *defaultManager) persistOutcome(ctx context.Context, o *SourceOutcome) {
	if m.status == nil {
		return
	}
	st, err := m.status.LoadStatus(ctx, o.Name)
	if err != nil {
		st = &status.SyncStatus{}
	}

	now := m.now()
	st.Phase = o.Phase
	st.Reason = o.Reason
	st.Message = o.Message
	switch o.Phase {
	case status.SyncPhaseComplete:
		if o.Reason != ReasonBootstrapped {
			st.LastSyncTime = &now
			st.LastAttempt = &now
			st.AttemptCount = 0
		}
		st.RecordCount = o.RecordCount
	case status.SyncPhaseFailed:
		st.LastAttempt = &now
		st.AttemptCount++
	}

	if err := m.status.SaveStatus(ctx, o.Name, st); err != nil {
		slog.WarnContext(ctx, "Failed to persist refresh status", "source", o.Name, "error", err)
	}
}

func skipped(name, reason string) SourceOutcome {
	return SourceOutcome{
		Name:    name,
		Phase:   status.SyncPhaseSkipped,
		Reason:  reason,
		Message: fmt.Sprintf("Refresh skipped: %s", reason),
	}
}

func failed(name string, err *Error) SourceOutcome {
	return SourceOutcome{
		Name:    name,
		Phase:   status.SyncPhaseFailed,
		Reason:  ReasonFailed,
		Message: err.Message,
		Err:     err,
	}
}
