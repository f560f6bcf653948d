package kvstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

const (
	fileExtension  = ".json"
	lockFileName   = ".lock"
	lockRetryDelay = 50 * time.Millisecond
)

// FileStore keeps one file per key in a directory. Writes go to a uniquely
// named temporary file that is renamed into place while holding a
// directory-wide file lock, so readers never observe a partially written value.
type FileStore struct {
	basePath string
	lock     *flock.Flock

	// mu serializes writers in this process; the file lock does not
	// exclude goroutines sharing the same flock handle
	mu sync.Mutex
}

var _ Store = (*FileStore)(nil)

// NewFileStore creates a file-backed store rooted at basePath
func NewFileStore(basePath string) (*FileStore, error) {
	if basePath == "" {
		return nil, fmt.Errorf("file storage path is required")
	}
	if err := os.MkdirAll(basePath, 0750); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &FileStore{
		basePath: basePath,
		lock:     flock.New(filepath.Join(basePath, lockFileName)),
	}, nil
}

// Path returns the directory backing the store
func (f *FileStore) Path() string {
	return f.basePath
}

func (f *FileStore) pathFor(key string) (string, error) {
	if err := ValidateKey(key); err != nil {
		return "", err
	}
	return filepath.Join(f.basePath, key+fileExtension), nil
}

// Get implements Store
func (f *FileStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	path, err := f.pathFor(key)
	if err != nil {
		return nil, false, err
	}

	//nolint:gosec // path is built from a validated key inside the store directory
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return data, true, nil
}

// Set implements Store
func (f *FileStore) Set(ctx context.Context, key string, value []byte) error {
	path, err := f.pathFor(key)
	if err != nil {
		return err
	}

	return f.withLock(ctx, func() error {
		tmp, err := os.CreateTemp(f.basePath, key+".*.tmp")
		if err != nil {
			return fmt.Errorf("failed to create temporary file for %s: %w", key, err)
		}
		tempPath := tmp.Name()
		_, err = tmp.Write(value)
		if closeErr := tmp.Close(); err == nil {
			err = closeErr
		}
		if err != nil {
			_ = os.Remove(tempPath)
			return fmt.Errorf("failed to write temporary file for %s: %w", key, err)
		}

		if err := os.Rename(tempPath, path); err != nil {
			_ = os.Remove(tempPath)
			return fmt.Errorf("failed to rename file for %s: %w", key, err)
		}
		return nil
	})
}

// Remove implements Store
func (f *FileStore) Remove(ctx context.Context, key string) error {
	path, err := f.pathFor(key)
	if err != nil {
		return err
	}

	return f.withLock(ctx, func() error {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to remove %s: %w", key, err)
		}
		return nil
	})
}

func (f *FileStore) withLock(ctx context.Context, fn func() error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	locked, err := f.lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("failed to acquire storage lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("failed to acquire storage lock")
	}
	defer func() {
		_ = f.lock.Unlock()
	}()
	return fn()
}
