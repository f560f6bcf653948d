package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/stacklok/extguard/internal/bundle"
	"github.com/stacklok/extguard/internal/cache"
	"github.com/stacklok/extguard/internal/otel"
	"github.com/stacklok/extguard/internal/status"
)

func (m *defaultManager) LoadInitialData(ctx context.Context, reload bool) (*BatchResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.bundle == nil {
		return nil, fmt.Errorf("no bundled lists configured")
	}

	names, err := m.registry.Names(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list sources: %w", err)
	}

	runID := uuid.NewString()
	result := newBatchResult(runID)
	slog.InfoContext(ctx, "Loading bundled lists", "runId", runID, "reload", reload, "sources", len(names))

	for _, name := range names {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		result.add(m.bootstrapOne(ctx, runID, name, reload))
	}

	slog.InfoContext(ctx, "Bundled lists loaded",
		"runId", runID,
		"loaded", result.Succeeded,
		"failed", result.Failed,
		"skipped", result.Skipped)
	return result, nil
}

func (m *defaultManager) bootstrapOne(ctx context.Context, runID, name string, reload bool) SourceOutcome {
	ctx, span := otel.StartSpan(ctx, m.tracer, "sync.bootstrapSource",
		trace.WithAttributes(
			otel.AttrSourceName.String(name),
			otel.AttrRunID.String(runID),
		),
	)
	defer span.End()

	outcome := m.loadBundled(ctx, name, reload)
	span.SetAttributes(
		otel.AttrRefreshReason.String(outcome.Reason),
		otel.AttrRecordCount.Int(outcome.RecordCount),
	)
	if outcome.Err != nil {
		otel.RecordError(span, outcome.Err)
	}

	m.metrics.RecordOutcome(ctx, name, string(outcome.Phase), outcome.Reason)
	if outcome.Phase == status.SyncPhaseComplete {
		m.metrics.RecordSourceRecords(ctx, name, int64(outcome.RecordCount))
		m.persistOutcome(ctx, &outcome)
	} else if outcome.Failed() {
		m.persistOutcome(ctx, &outcome)
	}
	return outcome
}

func (m *defaultManager) loadBundled(ctx context.Context, name string, reload bool) SourceOutcome {
	if !reload {
		entry, found, err := m.cache.Load(ctx, name)
		if err != nil {
			slog.WarnContext(ctx, "Unreadable cache entry, reloading bundled data", "source", name, "error", err)
		}
		if found && !entry.IsEmpty() {
			slog.DebugContext(ctx, "Cache already populated", "source", name, "records", len(entry.Data))
			return skipped(name, ReasonCachePresent)
		}
	}

	desc, err := bundle.ReadDescriptor(m.bundle, name)
	if err != nil {
		if errors.Is(err, bundle.ErrNotFound) {
			slog.DebugContext(ctx, "Source is not bundled", "source", name)
			return skipped(name, ReasonNotBundled)
		}
		slog.ErrorContext(ctx, "Failed to read bundled descriptor", "source", name, "error", err)
		return failed(name, &Error{
			Err:             err,
			Message:         fmt.Sprintf("Failed to read bundled descriptor: %v", err),
			Kind:            KindConfig,
			ConditionReason: conditionReasonBundleUnavailable,
		})
	}

	data, err := bundle.ReadData(m.bundle, name, desc)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to read bundled data", "source", name, "error", err)
		return failed(name, &Error{
			Err:             err,
			Message:         fmt.Sprintf("Failed to read bundled data: %v", err),
			Kind:            KindConfig,
			ConditionReason: conditionReasonBundleUnavailable,
		})
	}

	records := m.dispatcher.Dispatch(ctx, desc.Format, string(data), desc)
	if err := m.cache.Save(ctx, name, cache.NewEntry(records, desc, time.Time{})); err != nil {
		slog.ErrorContext(ctx, "Failed to store bundled list", "source", name, "error", err)
		return failed(name, &Error{
			Err:             err,
			Message:         fmt.Sprintf("Failed to store records: %v", err),
			Kind:            KindStorage,
			ConditionReason: conditionReasonStorageFailed,
		})
	}

	slog.InfoContext(ctx, "Bundled list loaded", "source", name, "records", len(records))
	return SourceOutcome{
		Name:        name,
		Phase:       status.SyncPhaseComplete,
		Reason:      ReasonBootstrapped,
		RecordCount: len(records),
		Message:     fmt.Sprintf("Loaded %d bundled records", len(records)),
	}
}
