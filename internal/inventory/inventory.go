// Package inventory enumerates the browser extensions installed on this machine.
package inventory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// InstalledExtension describes one installed browser extension
type InstalledExtension struct {
	ID      string            `json:"id"`
	Name    string            `json:"name"`
	Enabled bool              `json:"enabled"`
	Version string            `json:"version,omitempty"`
	Icons   map[string]string `json:"icons,omitempty"`
}

// Enumerator lists installed extensions
//
//go:generate mockgen -destination=mocks/mock_enumerator.go -package=mocks -source=inventory.go Enumerator
type Enumerator interface {
	// ListAll returns every installed extension, sorted by id
	ListAll(ctx context.Context) ([]InstalledExtension, error)
}

// FileEnumerator reads a JSON array of installed extensions exported by a browser helper
type FileEnumerator struct {
	path string
}

var _ Enumerator = (*FileEnumerator)(nil)

// NewFileEnumerator creates an enumerator over the export at path
func NewFileEnumerator(path string) *FileEnumerator {
	return &FileEnumerator{path: path}
}

// ListAll implements Enumerator
func (f *FileEnumerator) ListAll(_ context.Context) ([]InstalledExtension, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read extension export: %w", err)
	}

	var exts []InstalledExtension
	if err := json.Unmarshal(trimBOM(data), &exts); err != nil {
		return nil, fmt.Errorf("failed to parse extension export %s: %w", f.path, err)
	}
	if exts == nil {
		exts = []InstalledExtension{}
	}
	sortByID(exts)
	return exts, nil
}

func sortByID(exts []InstalledExtension) {
	sort.SliceStable(exts, func(i, j int) bool {
		return exts[i].ID < exts[j].ID
	})
}

var byteOrderMark = []byte("\ufeff")

// trimBOM drops a leading UTF-8 byte order mark, which encoding/json rejects
func trimBOM(data []byte) []byte {
	return bytes.TrimPrefix(data, byteOrderMark)
}
