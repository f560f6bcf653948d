// Package status provides per-source refresh status tracking and persistence.
package status

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/stacklok/extguard/internal/kvstore"
)

const keyPrefix = "status_"

// StatusPersistence defines the interface for refresh status persistence
//
//nolint:revive // This name is fine
type StatusPersistence interface {
	// SaveStatus saves the refresh status of a source
	SaveStatus(ctx context.Context, name string, status *SyncStatus) error

	// LoadStatus loads the refresh status of a source.
	// Returns an empty SyncStatus if none was saved yet.
	LoadStatus(ctx context.Context, name string) (*SyncStatus, error)

	// LoadAllStatus loads the refresh status of every named source
	LoadAllStatus(ctx context.Context, names []string) (map[string]*SyncStatus, error)

	// DeleteStatus removes the saved status of a source
	DeleteStatus(ctx context.Context, name string) error
}

// kvStatusPersistence implements StatusPersistence on a key-value store
type kvStatusPersistence struct {
	kv kvstore.Store
}

// NewStatusPersistence creates a status persistence backed by kv
func NewStatusPersistence(kv kvstore.Store) StatusPersistence {
	return &kvStatusPersistence{kv: kv}
}

// Key returns the storage key for a source's status
func Key(name string) string {
	return keyPrefix + name
}

// SaveStatus saves the status as JSON
func (p *kvStatusPersistence) SaveStatus(ctx context.Context, name string, status *SyncStatus) error {
	data, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("failed to marshal status data for source '%s': %w", name, err)
	}
	if err := p.kv.Set(ctx, Key(name), data); err != nil {
		return fmt.Errorf("failed to save status for source '%s': %w", name, err)
	}
	return nil
}

// LoadStatus loads the status of a source
func (p *kvStatusPersistence) LoadStatus(ctx context.Context, name string) (*SyncStatus, error) {
	data, found, err := p.kv.Get(ctx, Key(name))
	if err != nil {
		return nil, fmt.Errorf("failed to read status for source '%s': %w", name, err)
	}
	if !found {
		return &SyncStatus{}, nil
	}

	var status SyncStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, fmt.Errorf("failed to unmarshal status data for source '%s': %w", name, err)
	}
	return &status, nil
}

// LoadAllStatus loads the status of every named source. Unreadable entries
// are logged and left out so one corrupt entry does not hide the others.
func (p *kvStatusPersistence) LoadAllStatus(ctx context.Context, names []string) (map[string]*SyncStatus, error) {
	result := make(map[string]*SyncStatus, len(names))
	for _, name := range names {
		status, err := p.LoadStatus(ctx, name)
		if err != nil {
			slog.WarnContext(ctx, "Failed to load refresh status", "source", name, "error", err)
			continue
		}
		result[name] = status
	}
	return result, nil
}

// DeleteStatus removes the status of a source
func (p *kvStatusPersistence) DeleteStatus(ctx context.Context, name string) error {
	if err := p.kv.Remove(ctx, Key(name)); err != nil {
		return fmt.Errorf("failed to delete status for source '%s': %w", name, err)
	}
	return nil
}
