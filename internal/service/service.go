// Package service provides the list ingestion and matching operations used by
// the CLI and the HTTP API
package service

import (
	"context"
	"errors"
	"time"

	"github.com/stacklok/extguard/internal/inventory"
	"github.com/stacklok/extguard/internal/lists"
	"github.com/stacklok/extguard/internal/matcher"
	"github.com/stacklok/extguard/internal/status"
	pkgsync "github.com/stacklok/extguard/internal/sync"
)

var (
	// ErrNoEnumerator is returned by Scan when no installed-extension source is configured
	ErrNoEnumerator = errors.New("no installed extension source configured")
)

//go:generate mockgen -destination=mocks/mock_service.go -package=mocks -source=service.go ListService

// ListService defines the operations over registered malicious-extension lists
type ListService interface {
	// LoadInitialData fills empty snapshots from bundled data, or every snapshot with reload
	LoadInitialData(ctx context.Context, reload bool) (*pkgsync.BatchResult, error)

	// UpdateAllLists refreshes every enabled networked source whose snapshot is stale,
	// or all of them with force
	UpdateAllLists(ctx context.Context, force bool) (*pkgsync.BatchResult, error)

	// LoadAllMaliciousData returns the concatenated records of every source
	LoadAllMaliciousData(ctx context.Context) ([]lists.Record, error)

	// Classify matches installed extensions against every cached record
	Classify(ctx context.Context, installed []inventory.InstalledExtension) (*matcher.Result, error)

	// Scan enumerates installed extensions and classifies them
	Scan(ctx context.Context) (*matcher.Result, error)

	// Sources lists registered sources with their descriptor, snapshot and status
	Sources(ctx context.Context) ([]SourceInfo, error)

	// AddSource registers a new source
	AddSource(ctx context.Context, desc *lists.Descriptor) (*AddResult, error)

	// RemoveSource unregisters a source and deletes its snapshot and status
	RemoveSource(ctx context.Context, name string) error

	// SetSourceEnabled turns background refreshing of a source on or off
	SetSourceEnabled(ctx context.Context, name string, enabled bool) (*lists.Descriptor, error)

	// RefreshSource fetches one source now
	RefreshSource(ctx context.Context, name string) (*pkgsync.SourceOutcome, error)

	// ClearCache deletes the snapshot of one source, or of every source when name is empty
	ClearCache(ctx context.Context, name string) error
}

// SourceInfo summarizes one registered source for display
type SourceInfo struct {
	Name        string             `json:"name"`
	Descriptor  *lists.Descriptor  `json:"descriptor,omitempty"`
	RecordCount int                `json:"recordCount"`
	LastUpdate  *time.Time         `json:"lastUpdate"`
	Status      *status.SyncStatus `json:"status,omitempty"`
	Error       string             `json:"error,omitempty"`
}

// AddResult reports the outcome of adding a source
type AddResult struct {
	Descriptor *lists.Descriptor      `json:"descriptor"`
	Outcome    *pkgsync.SourceOutcome `json:"outcome,omitempty"`
	Warning    string                 `json:"warning,omitempty"`
}
