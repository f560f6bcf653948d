package cache

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/extguard/internal/kvstore"
	"github.com/stacklok/extguard/internal/lists"
)

func TestStore_SaveLoadDelete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	kv := kvstore.NewMemoryStore()
	s := NewStore(kv)

	_, found, err := s.Load(ctx, "one")
	require.NoError(t, err)
	assert.False(t, found)

	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	desc := &lists.Descriptor{Name: "one", Format: "txt", Enabled: true}
	entry := NewEntry([]lists.Record{{ID: "a", Source: "one"}}, desc, now)
	require.NoError(t, s.Save(ctx, "one", entry))

	got, found, err := s.Load(ctx, "one")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, entry, got)
	assert.False(t, got.IsBootstrap())

	require.NoError(t, s.Delete(ctx, "one"))
	_, found, err = s.Load(ctx, "one")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestEntry_WireFormat(t *testing.T) {
	t.Parallel()

	entry := NewEntry(nil, &lists.Descriptor{Name: "b", Format: "csv"}, time.Time{})
	assert.True(t, entry.IsBootstrap())
	assert.True(t, entry.IsEmpty())

	data, err := json.Marshal(entry)
	require.NoError(t, err)
	assert.JSONEq(t, `{"data":[],"lastUpdate":null,"config":{"name":"b","format":"csv","enabled":false}}`, string(data))
}

func TestNewEntry_CopiesDescriptor(t *testing.T) {
	t.Parallel()

	desc := &lists.Descriptor{Name: "c", Enabled: true}
	entry := NewEntry(nil, desc, time.Now())
	desc.Enabled = false
	assert.True(t, entry.Config.Enabled)
}

func TestStore_CorruptEntry(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	kv := kvstore.NewMemoryStore()
	require.NoError(t, kv.Set(ctx, Key("bad"), []byte("{not json")))

	_, _, err := NewStore(kv).Load(ctx, "bad")
	require.Error(t, err)
}

func TestKey(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "cache_awesome-lists", Key("awesome-lists"))
}
