package kvstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/extguard/internal/config"
)

// testStoreContract exercises the behaviour every backend must share
func testStoreContract(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	_, found, err := s.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.Set(ctx, "cache_one", []byte(`{"data":[]}`)))
	v, found, err := s.Get(ctx, "cache_one")
	require.NoError(t, err)
	assert.True(t, found)
	assert.JSONEq(t, `{"data":[]}`, string(v))

	require.NoError(t, s.Set(ctx, "cache_one", []byte(`{"data":[1]}`)))
	v, _, err = s.Get(ctx, "cache_one")
	require.NoError(t, err)
	assert.JSONEq(t, `{"data":[1]}`, string(v))

	require.NoError(t, s.Remove(ctx, "cache_one"))
	_, found, err = s.Get(ctx, "cache_one")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.Remove(ctx, "cache_one"), "removing a missing key is not an error")

	assert.Error(t, s.Set(ctx, "../escape", []byte("x")))
	assert.Error(t, s.Set(ctx, "", []byte("x")))
}

func TestFileStore(t *testing.T) {
	t.Parallel()

	s, err := NewFileStore(filepath.Join(t.TempDir(), "nested", "store"))
	require.NoError(t, err)
	testStoreContract(t, s)
}

func TestFileStore_PersistsAcrossInstances(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	dir := t.TempDir()

	first, err := NewFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, first.Set(ctx, "listFolders", []byte(`["a"]`)))

	second, err := NewFileStore(dir)
	require.NoError(t, err)
	v, found, err := second.Get(ctx, "listFolders")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, `["a"]`, string(v))

	_, err = os.Stat(filepath.Join(dir, "listFolders.json.tmp"))
	assert.True(t, os.IsNotExist(err), "temporary file must not be left behind")
}

func TestFileStore_ConcurrentWriters(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	dir := t.TempDir()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, err := NewFileStore(dir)
			if !assert.NoError(t, err) {
				return
			}
			assert.NoError(t, s.Set(ctx, "shared", []byte(`"value"`)))
		}()
	}
	wg.Wait()

	s, err := NewFileStore(dir)
	require.NoError(t, err)
	v, found, err := s.Get(ctx, "shared")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, `"value"`, string(v))
}

func TestFileStore_ConcurrentSetSameInstance(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	dir := t.TempDir()

	s, err := NewFileStore(dir)
	require.NoError(t, err)

	const writers = 100
	written := make(map[string]bool, writers)
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		value := fmt.Sprintf(`{"writer":%d}`, i)
		written[value] = true
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.Set(ctx, "cache_x", []byte(value)))
		}()
	}
	wg.Wait()

	v, found, err := s.Get(ctx, "cache_x")
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, written[string(v)], "stored value %q was never written whole", v)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotEqual(t, ".tmp", filepath.Ext(e.Name()), "leftover temporary file %s", e.Name())
	}
}

func TestNewFileStore_RequiresPath(t *testing.T) {
	t.Parallel()

	_, err := NewFileStore("")
	require.Error(t, err)
}

func TestMemoryStore(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore()
	testStoreContract(t, s)
	assert.Equal(t, 0, s.Len())
}

func TestMemoryStore_CopiesValues(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s := NewMemoryStore()
	in := []byte("abc")
	require.NoError(t, s.Set(ctx, "k", in))
	in[0] = 'x'

	out, _, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(out))
}

func TestRedisStore(t *testing.T) {
	t.Parallel()

	url := os.Getenv("EXTGUARD_TEST_REDIS_URL")
	if url == "" {
		t.Skip("EXTGUARD_TEST_REDIS_URL not set")
	}

	s, err := NewRedisStore(context.Background(), config.RedisConfig{URL: url, KeyPrefix: "extguard-test:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.Health(context.Background()))
	testStoreContract(t, s)
}

func TestNewRedisStore_InvalidURL(t *testing.T) {
	t.Parallel()

	_, err := NewRedisStore(context.Background(), config.RedisConfig{URL: "not a url"})
	require.Error(t, err)

	_, err = NewRedisStore(context.Background(), config.RedisConfig{})
	require.Error(t, err)
}

func TestNew(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     func(dir string) *config.Config
		want    any
		wantErr bool
	}{
		{
			name: "file",
			cfg: func(dir string) *config.Config {
				cfg := config.Default()
				cfg.Storage.Path = dir
				return cfg
			},
			want: &FileStore{},
		},
		{
			name: "memory",
			cfg: func(string) *config.Config {
				cfg := config.Default()
				cfg.Storage.Type = config.StorageTypeMemory
				return cfg
			},
			want: &MemoryStore{},
		},
		{
			name: "redis without settings",
			cfg: func(string) *config.Config {
				cfg := config.Default()
				cfg.Storage.Type = config.StorageTypeRedis
				return cfg
			},
			wantErr: true,
		},
		{
			name: "unknown",
			cfg: func(string) *config.Config {
				cfg := config.Default()
				cfg.Storage.Type = "etcd"
				return cfg
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s, err := New(context.Background(), tt.cfg(t.TempDir()))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.want, s)
		})
	}
}
