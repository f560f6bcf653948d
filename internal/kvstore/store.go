// Package kvstore provides the persistent key-value collaborator used for
// the source registry, cached lists and refresh status.
package kvstore

import (
	"context"
	"fmt"
	"regexp"

	"github.com/stacklok/extguard/internal/config"
)

// Store is a minimal persistent key-value store. A missing key is reported
// through found=false, never as an error.
type Store interface {
	// Get returns the value stored under key
	Get(ctx context.Context, key string) (value []byte, found bool, err error)

	// Set stores value under key, replacing any previous value
	Set(ctx context.Context, key string, value []byte) error

	// Remove deletes key. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error
}

// Closer is implemented by stores holding external resources
type Closer interface {
	Close() error
}

var keyPattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// ValidateKey rejects keys that cannot be stored safely by every backend
func ValidateKey(key string) error {
	if !keyPattern.MatchString(key) {
		return fmt.Errorf("invalid key %q", key)
	}
	return nil
}

// New creates the backend selected by the storage configuration
func New(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.GetStorageType() {
	case config.StorageTypeFile:
		return NewFileStore(cfg.GetFileStorageBaseDir())
	case config.StorageTypeRedis:
		if cfg.Storage.Redis == nil {
			return nil, fmt.Errorf("redis storage requires storage.redis configuration")
		}
		return NewRedisStore(ctx, *cfg.Storage.Redis)
	case config.StorageTypeMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Storage.Type)
	}
}
