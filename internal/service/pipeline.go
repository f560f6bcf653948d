package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/stacklok/extguard/internal/cache"
	"github.com/stacklok/extguard/internal/inventory"
	"github.com/stacklok/extguard/internal/lists"
	"github.com/stacklok/extguard/internal/matcher"
	"github.com/stacklok/extguard/internal/registry"
	"github.com/stacklok/extguard/internal/status"
	pkgsync "github.com/stacklok/extguard/internal/sync"
	"github.com/stacklok/extguard/internal/telemetry"
)

// emptyListWarning is attached to an added source whose first fetch parsed nothing
const emptyListWarning = "no valid extension identifiers were found in the fetched list"

type pipeline struct {
	registry    registry.Registry
	cache       cache.Store
	status      status.StatusPersistence
	manager     pkgsync.Manager
	aggregator  *matcher.Aggregator
	enumerator  inventory.Enumerator
	hostID      string
	scanMetrics *telemetry.ScanMetrics
}

// PipelineOption configures the ListService returned by NewPipeline
type PipelineOption func(*pipeline)

// WithEnumerator sets the installed-extension source used by Scan
func WithEnumerator(e inventory.Enumerator) PipelineOption {
	return func(p *pipeline) {
		p.enumerator = e
	}
}

// WithHostExtensionID excludes the extension running the check from classification
func WithHostExtensionID(id string) PipelineOption {
	return func(p *pipeline) {
		p.hostID = id
	}
}

// WithScanMetrics sets the instruments recorded on every classification
func WithScanMetrics(m *telemetry.ScanMetrics) PipelineOption {
	return func(p *pipeline) {
		p.scanMetrics = m
	}
}

// NewPipeline creates a ListService over the given registry, stores and manager
func NewPipeline(
	reg registry.Registry,
	cacheStore cache.Store,
	statusStore status.StatusPersistence,
	manager pkgsync.Manager,
	opts ...PipelineOption,
) ListService {
	p := &pipeline{
		registry:   reg,
		cache:      cacheStore,
		status:     statusStore,
		manager:    manager,
		aggregator: matcher.NewAggregator(reg, cacheStore),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *pipeline) LoadInitialData(ctx context.Context, reload bool) (*pkgsync.BatchResult, error) {
	return p.manager.LoadInitialData(ctx, reload)
}

func (p *pipeline) UpdateAllLists(ctx context.Context, force bool) (*pkgsync.BatchResult, error) {
	return p.manager.UpdateAll(ctx, force)
}

func (p *pipeline) LoadAllMaliciousData(ctx context.Context) ([]lists.Record, error) {
	return p.aggregator.AggregateAll(ctx)
}

func (p *pipeline) Classify(ctx context.Context, installed []inventory.InstalledExtension) (*matcher.Result, error) {
	records, err := p.aggregator.AggregateAll(ctx)
	if err != nil {
		return nil, err
	}
	result := matcher.Classify(installed, matcher.BuildIndex(records), p.hostID)
	p.scanMetrics.RecordFlagged(ctx, int64(result.Count()))
	slog.DebugContext(ctx, "Classified installed extensions",
		"installed", len(installed),
		"flagged", result.Count(),
		"records", len(records))
	return result, nil
}

func (p *pipeline) Scan(ctx context.Context) (*matcher.Result, error) {
	if p.enumerator == nil {
		return nil, ErrNoEnumerator
	}
	installed, err := p.enumerator.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate installed extensions: %w", err)
	}
	return p.Classify(ctx, installed)
}

func (p *pipeline) Sources(ctx context.Context) ([]SourceInfo, error) {
	names, err := p.registry.Names(ctx)
	if err != nil {
		return nil, err
	}
	statuses, err := p.status.LoadAllStatus(ctx, names)
	if err != nil {
		return nil, fmt.Errorf("failed to load source status: %w", err)
	}

	infos := make([]SourceInfo, 0, len(names))
	for _, name := range names {
		info := SourceInfo{Name: name}
		if st, ok := statuses[name]; ok && st != nil && st.Phase != "" {
			info.Status = st
		}

		desc, err := p.registry.Descriptor(ctx, name)
		if err != nil {
			info.Error = err.Error()
		} else {
			info.Descriptor = desc
		}

		entry, found, err := p.cache.Load(ctx, name)
		if err != nil {
			slog.WarnContext(ctx, "Unreadable cache entry", "source", name, "error", err)
		} else if found {
			info.RecordCount = len(entry.Data)
			info.LastUpdate = entry.LastUpdate
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// AddSource fills in display name and local file defaults before registering.
// The enabled flag is kept as given. A source with a url is fetched right away
// and the registration is rolled back when the fetch fails.
func (p *pipeline) AddSource(ctx context.Context, desc *lists.Descriptor) (*AddResult, error) {
	if desc == nil {
		return nil, fmt.Errorf("%w: descriptor is required", lists.ErrInvalidDescriptor)
	}
	d := desc.Clone()
	if d.DisplayName == "" {
		d.DisplayName = d.Name
	}
	if d.LocalFile == "" {
		d.LocalFile = "data." + d.NormalizedFormat()
	}

	if err := p.registry.Add(ctx, d); err != nil {
		return nil, err
	}
	result := &AddResult{Descriptor: d}
	if !d.HasURL() {
		slog.InfoContext(ctx, "Source added without url", "source", d.Name)
		return result, nil
	}

	outcome, err := p.manager.RefreshSource(ctx, d.Name)
	if err != nil {
		if rmErr := p.registry.Remove(ctx, d.Name); rmErr != nil {
			slog.ErrorContext(ctx, "Failed to roll back source", "source", d.Name, "error", rmErr)
		}
		return nil, fmt.Errorf("failed to fetch new source: %w", err)
	}
	result.Outcome = outcome
	if outcome.RecordCount == 0 {
		slog.WarnContext(ctx, "Added source has no records", "source", d.Name)
		result.Warning = emptyListWarning
	}
	return result, nil
}

func (p *pipeline) RemoveSource(ctx context.Context, name string) error {
	return p.registry.Remove(ctx, name)
}

func (p *pipeline) SetSourceEnabled(ctx context.Context, name string, enabled bool) (*lists.Descriptor, error) {
	return p.registry.SetEnabled(ctx, name, enabled)
}

func (p *pipeline) RefreshSource(ctx context.Context, name string) (*pkgsync.SourceOutcome, error) {
	return p.manager.RefreshSource(ctx, name)
}

func (p *pipeline) ClearCache(ctx context.Context, name string) error {
	if name == "" {
		return p.registry.ClearAllCaches(ctx)
	}
	return p.registry.ClearCache(ctx, name)
}
