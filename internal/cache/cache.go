// Package cache persists the parsed snapshot of each source list.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/stacklok/extguard/internal/kvstore"
	"github.com/stacklok/extguard/internal/lists"
)

const keyPrefix = "cache_"

// Entry is the persisted snapshot of one source. A nil LastUpdate means the
// records came from bundled data and were never refreshed from the network.
type Entry struct {
	Data       []lists.Record    `json:"data"`
	LastUpdate *time.Time        `json:"lastUpdate"`
	Config     *lists.Descriptor `json:"config"`
}

// NewEntry creates an entry for records parsed with desc. Pass a zero time for bundled data.
func NewEntry(records []lists.Record, desc *lists.Descriptor, updated time.Time) *Entry {
	if records == nil {
		records = []lists.Record{}
	}
	e := &Entry{
		Data:   records,
		Config: desc.Clone(),
	}
	if !updated.IsZero() {
		u := updated.UTC()
		e.LastUpdate = &u
	}
	return e
}

// IsBootstrap reports whether the entry was loaded from bundled data
func (e *Entry) IsBootstrap() bool {
	return e.LastUpdate == nil
}

// IsEmpty reports whether the entry holds no records
func (e *Entry) IsEmpty() bool {
	return e == nil || len(e.Data) == 0
}

// Store loads and saves cache entries keyed by source name
type Store interface {
	// Load returns the entry for name, or found=false when there is none
	Load(ctx context.Context, name string) (entry *Entry, found bool, err error)

	// Save replaces the entry for name
	Save(ctx context.Context, name string, entry *Entry) error

	// Delete removes the entry for name
	Delete(ctx context.Context, name string) error
}

type kvStore struct {
	kv kvstore.Store
}

var _ Store = (*kvStore)(nil)

// NewStore creates a Store on top of a key-value backend
func NewStore(kv kvstore.Store) Store {
	return &kvStore{kv: kv}
}

// Key returns the storage key for a source's entry
func Key(name string) string {
	return keyPrefix + name
}

func (s *kvStore) Load(ctx context.Context, name string) (*Entry, bool, error) {
	data, found, err := s.kv.Get(ctx, Key(name))
	if err != nil {
		return nil, false, fmt.Errorf("failed to load cache for %s: %w", name, err)
	}
	if !found {
		return nil, false, nil
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, false, fmt.Errorf("failed to decode cache for %s: %w", name, err)
	}
	return &entry, true, nil
}

func (s *kvStore) Save(ctx context.Context, name string, entry *Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode cache for %s: %w", name, err)
	}
	if err := s.kv.Set(ctx, Key(name), data); err != nil {
		return fmt.Errorf("failed to save cache for %s: %w", name, err)
	}
	return nil
}

func (s *kvStore) Delete(ctx context.Context, name string) error {
	if err := s.kv.Remove(ctx, Key(name)); err != nil {
		return fmt.Errorf("failed to delete cache for %s: %w", name, err)
	}
	return nil
}
