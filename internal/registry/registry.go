// Package registry maintains the ordered set of list sources and their descriptors.
//
// Source names are persisted under the listFolders key. A source's descriptor
// is read from a descriptor_<name> override when one exists, otherwise from the
// bundled <name>/config.json.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"slices"
	"sync"

	"github.com/stacklok/extguard/internal/bundle"
	"github.com/stacklok/extguard/internal/cache"
	"github.com/stacklok/extguard/internal/kvstore"
	"github.com/stacklok/extguard/internal/lists"
	"github.com/stacklok/extguard/internal/parser"
	"github.com/stacklok/extguard/internal/status"
)

const (
	// FoldersKey holds the ordered list of source names
	FoldersKey = "listFolders"

	descriptorKeyPrefix = "descriptor_"
)

var (
	// ErrSourceNotFound is returned when a name is not registered or has no descriptor
	ErrSourceNotFound = errors.New("source not found")

	// ErrSourceExists is returned when adding a name that is already registered
	ErrSourceExists = errors.New("source already exists")

	// ErrInvalidName is returned when a source name is not lowercase alphanumeric with dashes
	ErrInvalidName = errors.New("invalid source name")
)

var namePattern = regexp.MustCompile(`^[a-z0-9-]+$`)

// DescriptorKey returns the storage key of a source's descriptor override
func DescriptorKey(name string) string {
	return descriptorKeyPrefix + name
}

// Registry is the source registry
type Registry interface {
	// Names returns the registered source names in order
	Names(ctx context.Context) ([]string, error)

	// Descriptor returns the effective descriptor of a source
	Descriptor(ctx context.Context, name string) (*lists.Descriptor, error)

	// Add registers a new source and persists its descriptor
	Add(ctx context.Context, desc *lists.Descriptor) error

	// Remove unregisters a source and drops its descriptor, cache entry and status
	Remove(ctx context.Context, name string) error

	// SetEnabled turns refreshing of a source on or off
	SetEnabled(ctx context.Context, name string, enabled bool) (*lists.Descriptor, error)

	// ClearCache deletes the cache entry of one source
	ClearCache(ctx context.Context, name string) error

	// ClearAllCaches deletes the cache entries of every registered source
	ClearAllCaches(ctx context.Context) error
}

// Options configures a Registry
type Options struct {
	// DefaultNames is used while no name list has been persisted
	DefaultNames []string

	// Formats checks that a descriptor's format can be parsed. Nil accepts any format.
	Formats *parser.Dispatcher

	// WriteLock is held while a mutation rewrites names, descriptors or cache
	// entries. Share it with the refresh manager so a toggle or removal never
	// interleaves with a refresh of the same source. Nil uses a private mutex.
	WriteLock sync.Locker
}

type kvRegistry struct {
	kv       kvstore.Store
	bundle   bundle.Reader
	cache    cache.Store
	status   status.StatusPersistence
	defaults []string
	formats  *parser.Dispatcher

	// mu serializes read-modify-write of names, descriptors and cache entries
	mu sync.Locker
}

var _ Registry = (*kvRegistry)(nil)

// New creates a Registry backed by kv with descriptors falling back to the bundle
func New(
	kv kvstore.Store,
	reader bundle.Reader,
	cacheStore cache.Store,
	statusStore status.StatusPersistence,
	opts Options,
) Registry {
	mu := opts.WriteLock
	if mu == nil {
		mu = &sync.Mutex{}
	}
	return &kvRegistry{
		kv:       kv,
		bundle:   reader,
		cache:    cacheStore,
		status:   statusStore,
		defaults: slices.Clone(opts.DefaultNames),
		formats:  opts.Formats,
		mu:       mu,
	}
}

func (r *kvRegistry) Names(ctx context.Context) ([]string, error) {
	return r.loadNames(ctx)
}

func (r *kvRegistry) loadNames(ctx context.Context) ([]string, error) {
	data, found, err := r.kv.Get(ctx, FoldersKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load source names: %w", err)
	}
	if !found {
		return slices.Clone(r.defaults), nil
	}

	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return nil, fmt.Errorf("failed to decode source names: %w", err)
	}
	return names, nil
}

func (r *kvRegistry) saveNames(ctx context.Context, names []string) error {
	if names == nil {
		names = []string{}
	}
	data, err := json.Marshal(names)
	if err != nil {
		return fmt.Errorf("failed to encode source names: %w", err)
	}
	if err := r.kv.Set(ctx, FoldersKey, data); err != nil {
		return fmt.Errorf("failed to save source names: %w", err)
	}
	return nil
}

func (r *kvRegistry) Descriptor(ctx context.Context, name string) (*lists.Descriptor, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: empty name", ErrSourceNotFound)
	}

	override, found, err := r.loadOverride(ctx, name)
	if err != nil {
		return nil, err
	}
	if found {
		return override, nil
	}

	if r.bundle == nil {
		return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, name)
	}
	d, err := bundle.ReadDescriptor(r.bundle, name)
	if err != nil {
		if errors.Is(err, bundle.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, name)
		}
		return nil, err
	}
	return d, nil
}

func (r *kvRegistry) loadOverride(ctx context.Context, name string) (*lists.Descriptor, bool, error) {
	data, found, err := r.kv.Get(ctx, DescriptorKey(name))
	if err != nil {
		return nil, false, fmt.Errorf("failed to load descriptor for %s: %w", name, err)
	}
	if !found {
		return nil, false, nil
	}
	d, err := lists.ParseDescriptor(data)
	if err != nil {
		return nil, false, fmt.Errorf("stored descriptor for %s: %w", name, err)
	}
	return d, true, nil
}

func (r *kvRegistry) saveOverride(ctx context.Context, d *lists.Descriptor) error {
	data, err := lists.MarshalDescriptor(d)
	if err != nil {
		return err
	}
	if err := r.kv.Set(ctx, DescriptorKey(d.Name), data); err != nil {
		return fmt.Errorf("failed to save descriptor for %s: %w", d.Name, err)
	}
	return nil
}

func (r *kvRegistry) Add(ctx context.Context, desc *lists.Descriptor) error {
	if desc == nil {
		return fmt.Errorf("%w: descriptor is required", lists.ErrInvalidDescriptor)
	}
	if !namePattern.MatchString(desc.Name) {
		return fmt.Errorf("%w: %q must contain only lowercase letters, digits and dashes", ErrInvalidName, desc.Name)
	}
	if r.formats != nil {
		if _, err := r.formats.Lookup(desc.Format); err != nil {
			return err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	names, err := r.loadNames(ctx)
	if err != nil {
		return err
	}
	if slices.Contains(names, desc.Name) {
		return fmt.Errorf("%w: %s", ErrSourceExists, desc.Name)
	}

	if err := r.saveOverride(ctx, desc); err != nil {
		return err
	}
	if err := r.saveNames(ctx, append(names, desc.Name)); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Source added", "source", desc.Name, "format", desc.NormalizedFormat(), "hasURL", desc.HasURL())
	return nil
}

func (r *kvRegistry) Remove(ctx context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	names, err := r.loadNames(ctx)
	if err != nil {
		return err
	}
	idx := slices.Index(names, name)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrSourceNotFound, name)
	}

	// Dependent keys go first so a failed delete leaves the name registered
	// and the removal can be retried
	if err := r.cache.Delete(ctx, name); err != nil {
		return err
	}
	if r.status != nil {
		if err := r.status.DeleteStatus(ctx, name); err != nil {
			return err
		}
	}
	if err := r.kv.Remove(ctx, DescriptorKey(name)); err != nil {
		return fmt.Errorf("failed to delete descriptor for %s: %w", name, err)
	}
	if err := r.saveNames(ctx, slices.Delete(names, idx, idx+1)); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Source removed", "source", name)
	return nil
}

func (r *kvRegistry) SetEnabled(ctx context.Context, name string, enabled bool) (*lists.Descriptor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	names, err := r.loadNames(ctx)
	if err != nil {
		return nil, err
	}
	if !slices.Contains(names, name) {
		return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, name)
	}

	d, err := r.Descriptor(ctx, name)
	if err != nil {
		return nil, err
	}
	d.Enabled = enabled
	if err := r.saveOverride(ctx, d); err != nil {
		return nil, err
	}

	entry, found, err := r.cache.Load(ctx, name)
	if err != nil {
		return nil, err
	}
	if found {
		entry.Config = d.Clone()
		if err := r.cache.Save(ctx, name, entry); err != nil {
			return nil, err
		}
	}

	slog.InfoContext(ctx, "Source toggled", "source", name, "enabled", enabled)
	return d, nil
}

func (r *kvRegistry) ClearCache(ctx context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.cache.Delete(ctx, name); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Source cache cleared", "source", name)
	return nil
}

func (r *kvRegistry) ClearAllCaches(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	names, err := r.loadNames(ctx)
	if err != nil {
		return err
	}
	var errs []error
	for _, name := range names {
		if err := r.cache.Delete(ctx, name); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	slog.InfoContext(ctx, "All source caches cleared", "count", len(names))
	return nil
}
