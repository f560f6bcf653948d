// Package bundle reads the list folders shipped alongside extguard. Each
// folder holds a config.json descriptor and the data file it names as localFile.
package bundle

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"

	"github.com/stacklok/extguard/internal/lists"
)

// DescriptorFileName is the descriptor file inside each list folder
const DescriptorFileName = "config.json"

// ErrNotFound is returned when a bundled file does not exist
var ErrNotFound = errors.New("bundled file not found")

// Reader reads files from the bundled list tree
type Reader interface {
	// Read returns the content of a slash-separated path relative to the bundle root
	Read(name string) ([]byte, error)
}

// FSReader reads bundled lists from a file system
type FSReader struct {
	fsys fs.FS
}

var _ Reader = (*FSReader)(nil)

// NewFSReader creates a reader over fsys
func NewFSReader(fsys fs.FS) *FSReader {
	return &FSReader{fsys: fsys}
}

// NewDirReader creates a reader over a directory on disk
func NewDirReader(dir string) *FSReader {
	return NewFSReader(os.DirFS(dir))
}

// Read implements Reader
func (r *FSReader) Read(name string) ([]byte, error) {
	if !fs.ValidPath(name) {
		return nil, fmt.Errorf("invalid bundle path %q", name)
	}
	data, err := fs.ReadFile(r.fsys, name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("failed to read bundled file %s: %w", name, err)
	}
	return data, nil
}

// Folders lists the folders that contain a descriptor, sorted by name
func (r *FSReader) Folders() ([]string, error) {
	entries, err := fs.ReadDir(r.fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to list bundle: %w", err)
	}

	var folders []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := fs.Stat(r.fsys, path.Join(e.Name(), DescriptorFileName)); err == nil {
			folders = append(folders, e.Name())
		}
	}
	sort.Strings(folders)
	return folders, nil
}

// ReadDescriptor reads and parses <folder>/config.json
func ReadDescriptor(r Reader, folder string) (*lists.Descriptor, error) {
	data, err := r.Read(path.Join(folder, DescriptorFileName))
	if err != nil {
		return nil, err
	}
	d, err := lists.ParseDescriptor(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", folder, err)
	}
	return d, nil
}

// ReadData reads the bootstrap data file named by the descriptor's localFile
func ReadData(r Reader, folder string, d *lists.Descriptor) ([]byte, error) {
	if d.LocalFile == "" {
		return nil, fmt.Errorf("%w: %s has no localFile", ErrNotFound, folder)
	}
	return r.Read(path.Join(folder, d.LocalFile))
}
