package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/stacklok/extguard/internal/bundle"
	"github.com/stacklok/extguard/internal/cache"
	"github.com/stacklok/extguard/internal/extid"
	httpmocks "github.com/stacklok/extguard/internal/httpclient/mocks"
	"github.com/stacklok/extguard/internal/inventory"
	inventorymocks "github.com/stacklok/extguard/internal/inventory/mocks"
	"github.com/stacklok/extguard/internal/kvstore"
	"github.com/stacklok/extguard/internal/lists"
	"github.com/stacklok/extguard/internal/parser"
	"github.com/stacklok/extguard/internal/registry"
	"github.com/stacklok/extguard/internal/status"
	pkgsync "github.com/stacklok/extguard/internal/sync"
)

const (
	idA    = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	idB    = "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	idC    = "cccccccccccccccccccccccccccccccc"
	hostID = "hhhhhhhhhhhhhhhhhhhhhhhhhhhhhhhh"

	alphaURL = "https://lists.example.com/alpha.txt"
	newURL   = "https://lists.example.com/new.txt"
)

var testNow = time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)

type harness struct {
	cache      cache.Store
	registry   registry.Registry
	client     *httpmocks.MockClient
	enumerator *inventorymocks.MockEnumerator
	svc        ListService
}

func newHarness(t *testing.T, withEnumerator bool) *harness {
	t.Helper()
	ctrl := gomock.NewController(t)

	kv := kvstore.NewMemoryStore()
	reader := bundle.NewFSReader(fstest.MapFS{
		"alpha/config.json": {Data: []byte(`{
			"name": "alpha", "displayName": "Alpha", "format": "txt",
			"url": "` + alphaURL + `", "enabled": true, "localFile": "data.txt"
		}`)},
		"alpha/data.txt": {Data: []byte("# host listed too\n" + idA + "\n" + hostID + "\n")},
		"beta/config.json": {Data: []byte(`{
			"name": "beta", "format": "csv", "hasHeaders": true, "enabled": true, "localFile": "data.csv"
		}`)},
		"beta/data.csv": {Data: []byte("id,browser_extension,metadata_category\n" + idA + ",Dup,adware\n" + idB + ",Bad,malware\n")},
	})

	dispatcher := parser.NewDispatcher(extid.Default())
	cacheStore := cache.NewStore(kv)
	statusStore := status.NewStatusPersistence(kv)
	writeLock := &sync.Mutex{}
	reg := registry.New(kv, reader, cacheStore, statusStore, registry.Options{
		DefaultNames: []string{"alpha", "beta"},
		Formats:      dispatcher,
		WriteLock:    writeLock,
	})

	h := &harness{
		cache:    cacheStore,
		registry: reg,
		client:   httpmocks.NewMockClient(ctrl),
	}
	manager := pkgsync.NewManager(reg, cacheStore, statusStore, h.client, dispatcher,
		pkgsync.WithWriteLock(writeLock),
		pkgsync.WithBundle(reader),
		pkgsync.WithClock(func() time.Time { return testNow }),
	)

	opts := []PipelineOption{WithHostExtensionID(hostID)}
	if withEnumerator {
		h.enumerator = inventorymocks.NewMockEnumerator(ctrl)
		opts = append(opts, WithEnumerator(h.enumerator))
	}
	h.svc = NewPipeline(reg, cacheStore, statusStore, manager, opts...)
	return h
}

func (h *harness) bootstrap(t *testing.T) {
	t.Helper()
	result, err := h.svc.LoadInitialData(context.Background(), false)
	require.NoError(t, err)
	require.Equal(t, 2, result.Succeeded)
}

func TestPipeline_LoadAllMaliciousData(t *testing.T) {
	t.Parallel()
	h := newHarness(t, false)
	ctx := context.Background()

	records, err := h.svc.LoadAllMaliciousData(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)

	h.bootstrap(t)

	records, err = h.svc.LoadAllMaliciousData(ctx)
	require.NoError(t, err)
	ids := make([]string, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{idA, hostID, idA, idB}, ids)
	assert.Equal(t, "Alpha", records[0].Source)
	assert.Equal(t, "beta", records[2].Source)
}

func TestPipeline_Classify(t *testing.T) {
	t.Parallel()
	h := newHarness(t, false)
	h.bootstrap(t)

	result, err := h.svc.Classify(context.Background(), []inventory.InstalledExtension{
		{ID: hostID, Name: "Guard"},
		{ID: idC, Name: "Clean"},
		{ID: idA, Name: "Listed twice"},
	})
	require.NoError(t, err)

	require.Equal(t, 1, result.Count())
	assert.Equal(t, idA, result.Flagged[0].Extension.ID)
	assert.Len(t, result.Flagged[0].Matches, 2)
	require.Len(t, result.Clear, 1)
	assert.Equal(t, idC, result.Clear[0].ID)
}

func TestPipeline_Scan(t *testing.T) {
	t.Parallel()

	t.Run("no enumerator", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, false)
		_, err := h.svc.Scan(context.Background())
		require.ErrorIs(t, err, ErrNoEnumerator)
	})

	t.Run("enumerator failure", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, true)
		h.enumerator.EXPECT().ListAll(gomock.Any()).Return(nil, errors.New("profile locked"))
		_, err := h.svc.Scan(context.Background())
		require.ErrorContains(t, err, "profile locked")
	})

	t.Run("classifies enumerated extensions", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, true)
		h.bootstrap(t)
		h.enumerator.EXPECT().ListAll(gomock.Any()).Return([]inventory.InstalledExtension{
			{ID: idB, Name: "Bad", Enabled: true},
		}, nil)

		result, err := h.svc.Scan(context.Background())
		require.NoError(t, err)
		require.Equal(t, 1, result.Count())
		assert.Equal(t, "malware", result.Flagged[0].Matches[0].Category)
	})
}

func TestPipeline_AddSource(t *testing.T) {
	t.Parallel()

	t.Run("fetches and applies defaults", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, false)
		ctx := context.Background()
		h.client.EXPECT().Get(gomock.Any(), newURL).Return([]byte(idC+"\n"+idB+"\n"), nil)

		result, err := h.svc.AddSource(ctx, &lists.Descriptor{
			Name: "new-list", Format: "TXT", URL: newURL, Enabled: true,
		})
		require.NoError(t, err)
		assert.Equal(t, "new-list", result.Descriptor.DisplayName)
		assert.Equal(t, "data.txt", result.Descriptor.LocalFile)
		require.NotNil(t, result.Outcome)
		assert.Equal(t, 2, result.Outcome.RecordCount)
		assert.Empty(t, result.Warning)

		names, err := h.registry.Names(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"alpha", "beta", "new-list"}, names)

		entry, found, err := h.cache.Load(ctx, "new-list")
		require.NoError(t, err)
		require.True(t, found)
		require.NotNil(t, entry.LastUpdate)
		assert.True(t, entry.LastUpdate.Equal(testNow))
	})

	t.Run("empty parse warns", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, false)
		h.client.EXPECT().Get(gomock.Any(), newURL).Return([]byte("# nothing here\nnot-an-id\n"), nil)

		result, err := h.svc.AddSource(context.Background(), &lists.Descriptor{
			Name: "new-list", Format: "txt", URL: newURL, Enabled: true,
		})
		require.NoError(t, err)
		assert.Equal(t, 0, result.Outcome.RecordCount)
		assert.NotEmpty(t, result.Warning)
	})

	t.Run("fetch failure rolls back", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, false)
		ctx := context.Background()
		h.client.EXPECT().Get(gomock.Any(), newURL).Return(nil, errors.New("connection refused"))

		_, err := h.svc.AddSource(ctx, &lists.Descriptor{Name: "new-list", Format: "txt", URL: newURL})
		require.ErrorContains(t, err, "connection refused")

		names, err := h.registry.Names(ctx)
		require.NoError(t, err)
		assert.NotContains(t, names, "new-list")
	})

	t.Run("local source is not fetched", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, false)
		result, err := h.svc.AddSource(context.Background(), &lists.Descriptor{
			Name: "offline", DisplayName: "Offline", Format: "json",
		})
		require.NoError(t, err)
		assert.Nil(t, result.Outcome)
		assert.Equal(t, "Offline", result.Descriptor.DisplayName)
		assert.Equal(t, "data.json", result.Descriptor.LocalFile)
		assert.False(t, result.Descriptor.Enabled)

		stored, err := h.registry.Descriptor(context.Background(), "offline")
		require.NoError(t, err)
		assert.False(t, stored.Enabled)
	})

	t.Run("rejects", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, false)
		ctx := context.Background()

		_, err := h.svc.AddSource(ctx, nil)
		require.ErrorIs(t, err, lists.ErrInvalidDescriptor)

		_, err = h.svc.AddSource(ctx, &lists.Descriptor{Name: "alpha", Format: "txt"})
		require.ErrorIs(t, err, registry.ErrSourceExists)

		_, err = h.svc.AddSource(ctx, &lists.Descriptor{Name: "Bad Name", Format: "txt"})
		require.ErrorIs(t, err, registry.ErrInvalidName)
	})
}

func TestPipeline_Sources(t *testing.T) {
	t.Parallel()
	h := newHarness(t, false)
	ctx := context.Background()
	h.bootstrap(t)

	_, err := h.svc.SetSourceEnabled(ctx, "beta", false)
	require.NoError(t, err)

	infos, err := h.svc.Sources(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 2)

	assert.Equal(t, "alpha", infos[0].Name)
	assert.Equal(t, 2, infos[0].RecordCount)
	assert.Nil(t, infos[0].LastUpdate)
	require.NotNil(t, infos[0].Status)
	assert.Equal(t, status.SyncPhaseComplete, infos[0].Status.Phase)

	require.NotNil(t, infos[1].Descriptor)
	assert.False(t, infos[1].Descriptor.Enabled)
	assert.Equal(t, 2, infos[1].RecordCount)
}

func TestPipeline_RefreshAndClear(t *testing.T) {
	t.Parallel()
	h := newHarness(t, false)
	ctx := context.Background()
	h.bootstrap(t)

	h.client.EXPECT().Get(gomock.Any(), alphaURL).Return([]byte(idC+"\n"), nil)
	outcome, err := h.svc.RefreshSource(ctx, "alpha")
	require.NoError(t, err)
	assert.Equal(t, 1, outcome.RecordCount)

	_, err = h.svc.RefreshSource(ctx, "beta")
	require.ErrorIs(t, err, pkgsync.ErrNoURL)

	require.NoError(t, h.svc.ClearCache(ctx, "alpha"))
	records, err := h.svc.LoadAllMaliciousData(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 2)

	require.NoError(t, h.svc.ClearCache(ctx, ""))
	records, err = h.svc.LoadAllMaliciousData(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)

	require.NoError(t, h.svc.RemoveSource(ctx, "beta"))
	_, err = h.svc.SetSourceEnabled(ctx, "beta", true)
	require.ErrorIs(t, err, registry.ErrSourceNotFound)
}
