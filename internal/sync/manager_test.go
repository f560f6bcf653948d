package sync

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/mock/gomock"

	"github.com/stacklok/extguard/internal/bundle"
	"github.com/stacklok/extguard/internal/cache"
	"github.com/stacklok/extguard/internal/extid"
	"github.com/stacklok/extguard/internal/httpclient"
	"github.com/stacklok/extguard/internal/httpclient/mocks"
	"github.com/stacklok/extguard/internal/kvstore"
	"github.com/stacklok/extguard/internal/lists"
	"github.com/stacklok/extguard/internal/parser"
	"github.com/stacklok/extguard/internal/registry"
	"github.com/stacklok/extguard/internal/status"
)

const (
	idA = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	idB = "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	idC = "cccccccccccccccccccccccccccccccc"

	awesomeURL = "https://lists.example.com/awesome.txt"
	chromeURL  = "https://lists.example.com/chrome.csv"
	freshURL   = "https://lists.example.com/fresh.json"
	offURL     = "https://lists.example.com/off.txt"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func testBundle() fstest.MapFS {
	return fstest.MapFS{
		"awesome-lists/config.json": {Data: []byte(`{
			"name": "awesome-lists", "displayName": "Awesome", "format": "txt",
			"url": "` + awesomeURL + `", "enabled": true, "localFile": "data.txt"
		}`)},
		"awesome-lists/data.txt": {Data: []byte("# bundled\n" + idC + "\n")},
		"chrome-mal-ids/config.json": {Data: []byte(`{
			"name": "chrome-mal-ids", "format": "csv", "hasHeaders": true,
			"url": "` + chromeURL + `", "enabled": true, "localFile": "data.csv"
		}`)},
		"chrome-mal-ids/data.csv": {Data: []byte("id,browser_extension\n" + idA + ",Bundled\n")},
		"fresh-list/config.json": {Data: []byte(`{
			"name": "fresh-list", "format": "json", "url": "` + freshURL + `", "enabled": true
		}`)},
		"disabled-list/config.json": {Data: []byte(`{
			"name": "disabled-list", "format": "txt", "url": "` + offURL + `", "localFile": "data.txt"
		}`)},
		"disabled-list/data.txt": {Data: []byte(idB + "\n")},
		"local-only/config.json": {Data: []byte(`{
			"name": "local-only", "format": "txt", "enabled": true, "localFile": "missing.txt"
		}`)},
	}
}

type testEnv struct {
	kv       *kvstore.MemoryStore
	cache    cache.Store
	status   status.StatusPersistence
	registry registry.Registry
	client   *mocks.MockClient
	exporter *tracetest.InMemoryExporter
	manager  Manager
}

func newTestEnv(t *testing.T, names ...string) *testEnv {
	t.Helper()
	ctrl := gomock.NewController(t)

	kv := kvstore.NewMemoryStore()
	reader := bundle.NewFSReader(testBundle())
	env := &testEnv{
		kv:       kv,
		cache:    cache.NewStore(kv),
		status:   status.NewStatusPersistence(kv),
		client:   mocks.NewMockClient(ctrl),
		exporter: tracetest.NewInMemoryExporter(),
	}
	dispatcher := parser.NewDispatcher(extid.Default())
	writeLock := &sync.Mutex{}
	env.registry = registry.New(kv, reader, env.cache, env.status, registry.Options{
		DefaultNames: names,
		Formats:      dispatcher,
		WriteLock:    writeLock,
	})

	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(env.exporter))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	env.manager = NewManager(env.registry, env.cache, env.status, env.client, dispatcher,
		WithWriteLock(writeLock),
		WithBundle(reader),
		WithClock(func() time.Time { return testNow }),
		WithStalenessChecker(NewValidityChecker(7*24*time.Hour, func() time.Time { return testNow })),
		WithTracer(tp.Tracer("test")),
	)
	return env
}

func (e *testEnv) seedCache(t *testing.T, name string, updated time.Time, ids ...string) {
	t.Helper()
	records := make([]lists.Record, 0, len(ids))
	for _, id := range ids {
		records = append(records, lists.Record{ID: id, Source: name})
	}
	require.NoError(t, e.cache.Save(context.Background(), name,
		cache.NewEntry(records, &lists.Descriptor{Name: name, Format: "txt"}, updated)))
}

func (e *testEnv) loadCache(t *testing.T, name string) *cache.Entry {
	t.Helper()
	entry, found, err := e.cache.Load(context.Background(), name)
	require.NoError(t, err)
	require.True(t, found, "expected cache entry for %s", name)
	return entry
}

func TestValidityChecker_NeedsRefresh(t *testing.T) {
	t.Parallel()

	ago := func(d time.Duration) *time.Time {
		ts := testNow.Add(-d)
		return &ts
	}
	day := 24 * time.Hour

	tests := []struct {
		name       string
		entry      *cache.Entry
		wantNeeded bool
		wantReason string
	}{
		{name: "no entry", entry: nil, wantNeeded: true, wantReason: ReasonNoCache},
		{name: "bundled entry", entry: &cache.Entry{}, wantNeeded: true, wantReason: ReasonNeverRefreshed},
		{name: "six days old", entry: &cache.Entry{LastUpdate: ago(6 * day)}, wantNeeded: false, wantReason: ReasonCacheFresh},
		{name: "eight days old", entry: &cache.Entry{LastUpdate: ago(8 * day)}, wantNeeded: true, wantReason: ReasonCacheStale},
		{name: "exactly seven days", entry: &cache.Entry{LastUpdate: ago(7 * day)}, wantNeeded: true, wantReason: ReasonCacheStale},
		{name: "just refreshed", entry: &cache.Entry{LastUpdate: ago(0)}, wantNeeded: false, wantReason: ReasonCacheFresh},
	}

	checker := NewValidityChecker(7*day, func() time.Time { return testNow })
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			needed, reason := checker.NeedsRefresh(tt.entry)
			assert.Equal(t, tt.wantNeeded, needed)
			assert.Equal(t, tt.wantReason, reason)
		})
	}
}

func TestManager_UpdateAll(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, "awesome-lists", "chrome-mal-ids", "fresh-list", "disabled-list", "local-only", "unknown")
	ctx := context.Background()

	env.seedCache(t, "chrome-mal-ids", testNow.Add(-30*24*time.Hour), idB)
	env.seedCache(t, "fresh-list", testNow.Add(-6*24*time.Hour), idA)

	gomock.InOrder(
		env.client.EXPECT().Get(gomock.Any(), awesomeURL).
			Return([]byte("# https://example.com/report\n"+idA+"\n"+idB+"\n"), nil),
		env.client.EXPECT().Get(gomock.Any(), chromeURL).
			Return(nil, httpclient.NewHTTPError(http.StatusServiceUnavailable, chromeURL, "Service Unavailable")),
	)

	result, err := env.manager.UpdateAll(ctx, false)
	require.NoError(t, err)
	require.NotEmpty(t, result.RunID)

	assert.Equal(t, 1, result.Succeeded)
	assert.Equal(t, 2, result.Failed)
	assert.Equal(t, 3, result.Skipped)

	names := make([]string, 0, len(result.Outcomes))
	for _, o := range result.Outcomes {
		names = append(names, o.Name)
	}
	assert.Equal(t, []string{"awesome-lists", "chrome-mal-ids", "fresh-list", "disabled-list", "local-only", "unknown"}, names)

	awesome, _ := result.Outcome("awesome-lists")
	assert.Equal(t, status.SyncPhaseComplete, awesome.Phase)
	assert.Equal(t, ReasonNoCache, awesome.Reason)
	assert.Equal(t, 2, awesome.RecordCount)

	entry := env.loadCache(t, "awesome-lists")
	require.NotNil(t, entry.LastUpdate)
	assert.True(t, entry.LastUpdate.Equal(testNow))
	require.Len(t, entry.Data, 2)
	assert.Equal(t, "https://example.com/report", entry.Data[0].Link)
	assert.Equal(t, "Awesome", entry.Data[0].Source)
	assert.Empty(t, entry.Data[1].Link)

	chrome, _ := result.Outcome("chrome-mal-ids")
	assert.True(t, chrome.Failed())
	require.NotNil(t, chrome.Err)
	assert.Equal(t, KindTransport, chrome.Err.Kind)
	var httpErr *httpclient.HTTPError
	require.ErrorAs(t, chrome.Err, &httpErr)
	assert.Equal(t, http.StatusServiceUnavailable, httpErr.StatusCode)

	// The stale snapshot survives the failed fetch
	chromeEntry := env.loadCache(t, "chrome-mal-ids")
	require.Len(t, chromeEntry.Data, 1)
	assert.Equal(t, idB, chromeEntry.Data[0].ID)

	fresh, _ := result.Outcome("fresh-list")
	assert.Equal(t, ReasonCacheFresh, fresh.Reason)
	disabled, _ := result.Outcome("disabled-list")
	assert.Equal(t, ReasonDisabled, disabled.Reason)
	local, _ := result.Outcome("local-only")
	assert.Equal(t, ReasonNoURL, local.Reason)

	unknown, _ := result.Outcome("unknown")
	require.NotNil(t, unknown.Err)
	assert.Equal(t, KindConfig, unknown.Err.Kind)
	require.ErrorIs(t, unknown.Err, registry.ErrSourceNotFound)

	spans := env.exporter.GetSpans()
	assert.Len(t, spans, 6)
}

func TestManager_UpdateAll_Force(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, "fresh-list", "disabled-list")
	ctx := context.Background()

	env.seedCache(t, "fresh-list", testNow.Add(-time.Hour), idA)
	env.client.EXPECT().Get(gomock.Any(), freshURL).
		Return([]byte(`[{"id": "`+idB+`", "name": "Forced"}]`), nil)

	result, err := env.manager.UpdateAll(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Succeeded)
	assert.Equal(t, 1, result.Skipped)

	o, _ := result.Outcome("fresh-list")
	assert.Equal(t, ReasonForced, o.Reason)

	entry := env.loadCache(t, "fresh-list")
	require.Len(t, entry.Data, 1)
	assert.Equal(t, idB, entry.Data[0].ID)
	assert.Equal(t, "Forced", entry.Data[0].Name)
	assert.Equal(t, lists.DefaultCategory, entry.Data[0].Category)
}

func TestManager_UpdateAll_EmptyResponse(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, "awesome-lists")
	ctx := context.Background()

	env.seedCache(t, "awesome-lists", time.Time{}, idC)
	env.client.EXPECT().Get(gomock.Any(), awesomeURL).Return([]byte{}, nil)

	result, err := env.manager.UpdateAll(ctx, false)
	require.NoError(t, err)
	o, _ := result.Outcome("awesome-lists")
	require.NotNil(t, o.Err)
	require.ErrorIs(t, o.Err, ErrEmptyResponse)

	entry := env.loadCache(t, "awesome-lists")
	assert.Nil(t, entry.LastUpdate)
	assert.Len(t, entry.Data, 1)
}

func TestManager_UpdateAll_ParseYieldsNothing(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, "fresh-list")
	ctx := context.Background()

	env.client.EXPECT().Get(gomock.Any(), freshURL).Return([]byte(`{"not": "an array"}`), nil)

	result, err := env.manager.UpdateAll(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Succeeded)

	entry := env.loadCache(t, "fresh-list")
	assert.Empty(t, entry.Data)
	assert.NotNil(t, entry.LastUpdate)
}

func TestManager_StatusPersistence(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, "chrome-mal-ids")
	ctx := context.Background()

	env.client.EXPECT().Get(gomock.Any(), chromeURL).
		Return(nil, httpclient.NewHTTPError(http.StatusNotFound, chromeURL, "Not Found")).Times(2)

	for range 2 {
		_, err := env.manager.UpdateAll(ctx, false)
		require.NoError(t, err)
	}

	st, err := env.status.LoadStatus(ctx, "chrome-mal-ids")
	require.NoError(t, err)
	assert.Equal(t, status.SyncPhaseFailed, st.Phase)
	assert.Equal(t, 2, st.AttemptCount)
	assert.Nil(t, st.LastSyncTime)
	assert.Contains(t, st.Message, "HTTP 404")

	env.client.EXPECT().Get(gomock.Any(), chromeURL).Return([]byte("id\n"+idA+"\n"), nil)
	_, err = env.manager.UpdateAll(ctx, false)
	require.NoError(t, err)

	st, err = env.status.LoadStatus(ctx, "chrome-mal-ids")
	require.NoError(t, err)
	assert.Equal(t, status.SyncPhaseComplete, st.Phase)
	assert.Equal(t, 0, st.AttemptCount)
	assert.Equal(t, 1, st.RecordCount)
	require.NotNil(t, st.LastSyncTime)
	assert.True(t, st.LastSyncTime.Equal(testNow))
}

func TestManager_RefreshSource(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, "disabled-list", "local-only")
	ctx := context.Background()

	env.client.EXPECT().Get(gomock.Any(), offURL).Return([]byte(idB+"\n"), nil)

	outcome, err := env.manager.RefreshSource(ctx, "disabled-list")
	require.NoError(t, err)
	assert.Equal(t, status.SyncPhaseComplete, outcome.Phase)
	assert.Equal(t, 1, outcome.RecordCount)

	outcome, err = env.manager.RefreshSource(ctx, "local-only")
	require.ErrorIs(t, err, ErrNoURL)
	assert.True(t, outcome.Failed())

	_, err = env.manager.RefreshSource(ctx, "unknown")
	require.ErrorIs(t, err, registry.ErrSourceNotFound)
}

func TestManager_SetEnabledWaitsForRefresh(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, "awesome-lists")
	ctx := context.Background()

	fetching := make(chan struct{})
	release := make(chan struct{})
	env.client.EXPECT().Get(gomock.Any(), awesomeURL).DoAndReturn(func(context.Context, string) ([]byte, error) {
		close(fetching)
		<-release
		return []byte(idA + "\n" + idB + "\n"), nil
	})

	refreshed := make(chan error, 1)
	go func() {
		_, err := env.manager.RefreshSource(ctx, "awesome-lists")
		refreshed <- err
	}()
	<-fetching

	toggled := make(chan error, 1)
	go func() {
		_, err := env.registry.SetEnabled(ctx, "awesome-lists", false)
		toggled <- err
	}()

	select {
	case err := <-toggled:
		t.Fatalf("toggle finished during a refresh: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	require.NoError(t, <-refreshed)
	require.NoError(t, <-toggled)

	entry, found, err := env.cache.Load(ctx, "awesome-lists")
	require.NoError(t, err)
	require.True(t, found)
	assert.Len(t, entry.Data, 2)
	require.NotNil(t, entry.LastUpdate)
	assert.True(t, testNow.Equal(*entry.LastUpdate))
	require.NotNil(t, entry.Config)
	assert.False(t, entry.Config.Enabled)
}

func TestManager_LoadInitialData(t *testing.T) {
	t.Parallel()
	// The mock client has no expectations: any network call fails the test
	env := newTestEnv(t, "awesome-lists", "chrome-mal-ids", "local-only", "custom")
	ctx := context.Background()

	env.seedCache(t, "chrome-mal-ids", testNow.Add(-time.Hour), idB)

	result, err := env.manager.LoadInitialData(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Succeeded)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 2, result.Skipped)

	awesome := env.loadCache(t, "awesome-lists")
	assert.Nil(t, awesome.LastUpdate)
	require.Len(t, awesome.Data, 1)
	assert.Equal(t, idC, awesome.Data[0].ID)
	assert.Equal(t, "bundled", awesome.Data[0].Comment)

	o, _ := result.Outcome("chrome-mal-ids")
	assert.Equal(t, ReasonCachePresent, o.Reason)
	chrome := env.loadCache(t, "chrome-mal-ids")
	assert.Equal(t, idB, chrome.Data[0].ID)

	o, _ = result.Outcome("local-only")
	require.NotNil(t, o.Err)
	require.ErrorIs(t, o.Err, bundle.ErrNotFound)

	o, _ = result.Outcome("custom")
	assert.Equal(t, ReasonNotBundled, o.Reason)
}

func TestManager_LoadInitialData_Reload(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, "chrome-mal-ids")
	ctx := context.Background()

	env.seedCache(t, "chrome-mal-ids", testNow.Add(-time.Hour), idB)

	result, err := env.manager.LoadInitialData(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Succeeded)

	entry := env.loadCache(t, "chrome-mal-ids")
	assert.Nil(t, entry.LastUpdate)
	require.Len(t, entry.Data, 1)
	assert.Equal(t, idA, entry.Data[0].ID)
	assert.Equal(t, "Bundled", entry.Data[0].Name)

	// Bundled snapshots are refreshed by the next unforced batch
	env.client.EXPECT().Get(gomock.Any(), chromeURL).Return([]byte("id\n"+idC+"\n"), nil)
	batch, err := env.manager.UpdateAll(ctx, false)
	require.NoError(t, err)
	o, _ := batch.Outcome("chrome-mal-ids")
	assert.Equal(t, ReasonNeverRefreshed, o.Reason)
}

func TestManager_UpdateAll_Cancelled(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, "awesome-lists")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := env.manager.UpdateAll(ctx, false)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, result.Outcomes)
}
