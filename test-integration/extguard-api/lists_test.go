package integration

import (
	"net/http"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/stacklok/extguard/internal/inventory"
	"github.com/stacklok/extguard/internal/lists"
	"github.com/stacklok/extguard/internal/service"
	"github.com/stacklok/extguard/internal/status"
	pkgsync "github.com/stacklok/extguard/internal/sync"
	"github.com/stacklok/extguard/test-integration/extguard-api/helpers"
)

const (
	bundledID  = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	upstreamID = "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	offlineID  = "cccccccccccccccccccccccccccccccc"
	addedID    = "dddddddddddddddddddddddddddddddd"
	cleanID    = "eeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee"
)

var _ = Describe("List Lifecycle", Label("api"), func() {
	var (
		tempDir      string
		upstream     *helpers.ListServer
		serverHelper *helpers.ServerTestHelper
	)

	BeforeEach(func() {
		tempDir = createTempDir("extguard-test-")

		upstream = helpers.NewListServer()
		upstream.Serve("/feed.txt", "# served upstream\n"+upstreamID+"\n")

		listsDir := helpers.WriteBundle(tempDir,
			helpers.BundledList{
				Descriptor: lists.Descriptor{
					Name:      "feed",
					Format:    lists.FormatTXT,
					URL:       upstream.URL("/feed.txt"),
					Enabled:   true,
					LocalFile: "data.txt",
				},
				Data: bundledID + "\n",
			},
			helpers.BundledList{
				Descriptor: lists.Descriptor{
					Name:        "offline",
					DisplayName: "Offline List",
					Format:      lists.FormatCSV,
					HasHeaders:  true,
					Enabled:     true,
					LocalFile:   "data.csv",
				},
				Data: "browser_extension,metadata_category\n" + offlineID + ",spyware\n",
			},
		)

		serverHelper = helpers.NewServerTestHelper(ctx, listsDir, "feed", "offline")
		Expect(serverHelper.StartServer()).To(Succeed())
		serverHelper.WaitForServerReady(10 * time.Second)

		// Bundled data is loaded first, then the networked list is refreshed
		// because it has never been fetched
		Eventually(serverHelper.RecordIDs, 10*time.Second, 50*time.Millisecond).
			Should(ConsistOf(upstreamID, offlineID))
	})

	AfterEach(func() {
		Expect(serverHelper.StopServer()).To(Succeed())
		upstream.Close()
		cleanupTempDir(tempDir)
	})

	It("should fetch networked lists once at startup", func() {
		Expect(upstream.Hits("/feed.txt")).To(Equal(1))

		var infos []service.SourceInfo
		Expect(serverHelper.Do(http.MethodGet, "/v1/sources", nil, &infos)).To(Equal(http.StatusOK))
		Expect(infos).To(HaveLen(2))
		Expect(infos[0].Name).To(Equal("feed"))
		Expect(infos[0].LastUpdate).NotTo(BeNil())
		Expect(infos[1].Name).To(Equal("offline"))
		Expect(infos[1].LastUpdate).To(BeNil())
	})

	It("should keep the previous records when the upstream fails", func() {
		upstream.Fail("/feed.txt", http.StatusInternalServerError)

		Expect(serverHelper.Do(http.MethodPost, "/v1/sources/feed/refresh", nil, nil)).
			To(Equal(http.StatusBadGateway))
		Expect(serverHelper.RecordIDs()).To(ConsistOf(upstreamID, offlineID))

		var infos []service.SourceInfo
		Expect(serverHelper.Do(http.MethodGet, "/v1/sources", nil, &infos)).To(Equal(http.StatusOK))
		Expect(infos[0].Status).NotTo(BeNil())
		Expect(infos[0].Status.Phase).To(Equal(status.SyncPhaseFailed))
		Expect(infos[0].RecordCount).To(Equal(1))
	})

	It("should skip fresh lists unless forced", func() {
		var batch pkgsync.BatchResult
		Expect(serverHelper.Do(http.MethodPost, "/v1/refresh", nil, &batch)).To(Equal(http.StatusOK))
		Expect(batch.Skipped).To(Equal(2))
		Expect(upstream.Hits("/feed.txt")).To(Equal(1))

		upstream.Serve("/feed.txt", bundledID+"\n"+upstreamID+"\n")
		Expect(serverHelper.Do(http.MethodPost, "/v1/refresh?force=true", nil, &batch)).To(Equal(http.StatusOK))
		Expect(batch.Succeeded).To(Equal(1))
		Expect(serverHelper.RecordIDs()).To(ConsistOf(bundledID, upstreamID, offlineID))
	})

	It("should add sources from a url and reject bad ones", func() {
		upstream.Serve("/extra.json", `[{"id": "`+addedID+`", "name": "Extra", "category": "adware"}]`)

		var added service.AddResult
		Expect(serverHelper.Do(http.MethodPost, "/v1/sources", map[string]any{
			"name":   "extra",
			"format": "json",
			"url":    upstream.URL("/extra.json"),
		}, &added)).To(Equal(http.StatusCreated))
		Expect(added.Outcome).NotTo(BeNil())
		Expect(added.Outcome.RecordCount).To(Equal(1))
		Expect(added.Descriptor.DisplayName).To(Equal("extra"))
		Expect(serverHelper.RecordIDs()).To(ContainElement(addedID))

		By("rejecting a duplicate name")
		Expect(serverHelper.Do(http.MethodPost, "/v1/sources", map[string]any{
			"name": "extra", "format": "json", "url": upstream.URL("/extra.json"),
		}, nil)).To(Equal(http.StatusConflict))

		By("rejecting an invalid name")
		Expect(serverHelper.Do(http.MethodPost, "/v1/sources", map[string]any{
			"name": "Bad Name", "format": "txt", "url": upstream.URL("/feed.txt"),
		}, nil)).To(Equal(http.StatusBadRequest))

		By("rolling back a source whose first fetch fails")
		Expect(serverHelper.Do(http.MethodPost, "/v1/sources", map[string]any{
			"name": "broken", "format": "txt", "url": upstream.URL("/missing.txt"),
		}, nil)).To(Equal(http.StatusBadGateway))

		var infos []service.SourceInfo
		Expect(serverHelper.Do(http.MethodGet, "/v1/sources", nil, &infos)).To(Equal(http.StatusOK))
		names := make([]string, 0, len(infos))
		for _, info := range infos {
			names = append(names, info.Name)
		}
		Expect(names).To(Equal([]string{"feed", "offline", "extra"}))
	})

	It("should classify installed extensions", func() {
		var resp struct {
			Count   int `json:"count"`
			Flagged []struct {
				Extension inventory.InstalledExtension `json:"extension"`
				Matches   []lists.Record               `json:"matches"`
			} `json:"flagged"`
			Clear []inventory.InstalledExtension `json:"clear"`
		}
		Expect(serverHelper.Do(http.MethodPost, "/v1/classify", map[string]any{
			"extensions": []inventory.InstalledExtension{
				{ID: offlineID, Name: "Listed", Enabled: true},
				{ID: cleanID, Name: "Clean", Enabled: true},
			},
		}, &resp)).To(Equal(http.StatusOK))

		Expect(resp.Count).To(Equal(1))
		Expect(resp.Flagged[0].Extension.ID).To(Equal(offlineID))
		Expect(resp.Flagged[0].Matches).To(HaveLen(1))
		Expect(resp.Flagged[0].Matches[0].Source).To(Equal("Offline List"))
		Expect(resp.Flagged[0].Matches[0].Category).To(Equal("spyware"))
		Expect(resp.Clear).To(HaveLen(1))

		Expect(serverHelper.Do(http.MethodGet, "/v1/scan", nil, nil)).To(Equal(http.StatusServiceUnavailable))
	})

	It("should remove sources, clear caches and reload bundled data", func() {
		Expect(serverHelper.Do(http.MethodDelete, "/v1/sources/offline", nil, nil)).To(Equal(http.StatusNoContent))
		Expect(serverHelper.RecordIDs()).To(ConsistOf(upstreamID))
		Expect(serverHelper.Do(http.MethodDelete, "/v1/sources/offline", nil, nil)).To(Equal(http.StatusNotFound))

		Expect(serverHelper.Do(http.MethodDelete, "/v1/cache", nil, nil)).To(Equal(http.StatusNoContent))
		Expect(serverHelper.RecordIDs()).To(BeEmpty())

		var batch pkgsync.BatchResult
		Expect(serverHelper.Do(http.MethodPost, "/v1/bootstrap?reload=true", nil, &batch)).To(Equal(http.StatusOK))
		Expect(batch.Succeeded).To(Equal(1))
		Expect(serverHelper.RecordIDs()).To(ConsistOf(bundledID))
	})
})
