// Package matcher merges every cached list into one record set and classifies
// installed extensions against it.
package matcher

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/stacklok/extguard/internal/cache"
	"github.com/stacklok/extguard/internal/inventory"
	"github.com/stacklok/extguard/internal/lists"
)

const maxConcurrentLoads = 4

// SourceNames lists registered sources in order
type SourceNames interface {
	Names(ctx context.Context) ([]string, error)
}

// Aggregator concatenates the cached records of every registered source
type Aggregator struct {
	sources SourceNames
	cache   cache.Store
}

// NewAggregator creates an Aggregator
func NewAggregator(sources SourceNames, cacheStore cache.Store) *Aggregator {
	return &Aggregator{sources: sources, cache: cacheStore}
}

// AggregateAll returns the records of every source in registry order, then
// record order. Duplicates are kept. Sources without a snapshot contribute nothing.
func (a *Aggregator) AggregateAll(ctx context.Context) ([]lists.Record, error) {
	names, err := a.sources.Names(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list sources: %w", err)
	}

	// Snapshots load concurrently; slots keep registry order
	slots := make([][]lists.Record, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentLoads)
	for i, name := range names {
		g.Go(func() error {
			entry, found, err := a.cache.Load(gctx, name)
			if err != nil {
				slog.WarnContext(gctx, "Skipping unreadable cache entry", "source", name, "error", err)
				return nil
			}
			if found {
				slots[i] = entry.Data
			}
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	all := []lists.Record{}
	for _, records := range slots {
		all = append(all, records...)
	}

	slog.DebugContext(ctx, "Aggregated records", "records", len(all), "sources", len(names))
	return all, nil
}

// Index groups records by identifier, keeping encounter order within each group
type Index map[string][]lists.Record

// BuildIndex indexes records by identifier
func BuildIndex(records []lists.Record) Index {
	idx := make(Index, len(records))
	for _, r := range records {
		idx[r.ID] = append(idx[r.ID], r)
	}
	return idx
}

// Contains reports whether id is flagged by any record
func (idx Index) Contains(id string) bool {
	_, ok := idx[id]
	return ok
}

// Flagged is an installed extension with every record that matched it
type Flagged struct {
	Extension inventory.InstalledExtension `json:"extension"`
	Matches   []lists.Record               `json:"matches"`
}

// Result partitions installed extensions into flagged and clear, both in input order
type Result struct {
	Flagged []Flagged                      `json:"flagged"`
	Clear   []inventory.InstalledExtension `json:"clear"`
}

// Count is the number of flagged extensions, used as the badge value
func (r *Result) Count() int {
	return len(r.Flagged)
}

// Classify matches installed extensions against idx. The extension whose id is
// hostID is left out of both partitions.
func Classify(installed []inventory.InstalledExtension, idx Index, hostID string) *Result {
	result := &Result{
		Flagged: []Flagged{},
		Clear:   []inventory.InstalledExtension{},
	}
	for _, ext := range installed {
		if hostID != "" && ext.ID == hostID {
			continue
		}
		if matches, ok := idx[ext.ID]; ok {
			result.Flagged = append(result.Flagged, Flagged{Extension: ext, Matches: matches})
			continue
		}
		result.Clear = append(result.Clear, ext)
	}
	return result
}
