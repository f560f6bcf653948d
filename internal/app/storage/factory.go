// Package storage creates the components that share one key-value backend.
// The cache store, status persistence and source registry are always built
// as a family over the same backend so they agree on where data lives.
package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/stacklok/extguard/internal/bundle"
	"github.com/stacklok/extguard/internal/cache"
	"github.com/stacklok/extguard/internal/config"
	"github.com/stacklok/extguard/internal/kvstore"
	"github.com/stacklok/extguard/internal/registry"
	"github.com/stacklok/extguard/internal/status"
)

// Factory creates storage-dependent components as a family
type Factory interface {
	// CreateCacheStore creates the per-source snapshot store
	CreateCacheStore() cache.Store

	// CreateStatusPersistence creates the per-source refresh status store
	CreateStatusPersistence() status.StatusPersistence

	// CreateRegistry creates the source registry, reading bundled descriptors from reader
	CreateRegistry(reader bundle.Reader, opts registry.Options) registry.Registry

	// Cleanup releases resources held by the backend, such as a Redis connection pool
	Cleanup()
}

type kvFactory struct {
	kv     kvstore.Store
	cache  cache.Store
	status status.StatusPersistence
}

// NewStorageFactory opens the backend selected by cfg
func NewStorageFactory(ctx context.Context, cfg *config.Config) (Factory, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	kv, err := kvstore.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s storage: %w", cfg.GetStorageType(), err)
	}
	slog.Info("Storage initialized", "type", cfg.GetStorageType())
	return NewFactory(kv), nil
}

// NewFactory creates a factory over an existing backend
func NewFactory(kv kvstore.Store) Factory {
	return &kvFactory{
		kv:     kv,
		cache:  cache.NewStore(kv),
		status: status.NewStatusPersistence(kv),
	}
}

func (f *kvFactory) CreateCacheStore() cache.Store {
	return f.cache
}

func (f *kvFactory) CreateStatusPersistence() status.StatusPersistence {
	return f.status
}

func (f *kvFactory) CreateRegistry(reader bundle.Reader, opts registry.Options) registry.Registry {
	return registry.New(f.kv, reader, f.cache, f.status, opts)
}

func (f *kvFactory) Cleanup() {
	if c, ok := f.kv.(kvstore.Closer); ok {
		if err := c.Close(); err != nil {
			slog.Warn("Failed to close storage", "error", err)
		}
	}
}
