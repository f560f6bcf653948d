package helpers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/onsi/gomega"

	internalapp "github.com/stacklok/extguard/internal/app"
	"github.com/stacklok/extguard/internal/config"
	"github.com/stacklok/extguard/internal/lists"
)

// BundledList is a list folder written into the test bundle directory
type BundledList struct {
	Descriptor lists.Descriptor
	Data       string
}

// WriteBundle writes one folder per list under dir/lists and returns that directory
func WriteBundle(dir string, bundled ...BundledList) string {
	listsDir := filepath.Join(dir, "lists")
	for _, b := range bundled {
		folder := filepath.Join(listsDir, b.Descriptor.Name)
		gomega.Expect(os.MkdirAll(folder, 0750)).To(gomega.Succeed())

		desc, err := lists.MarshalDescriptor(&b.Descriptor)
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		gomega.Expect(os.WriteFile(filepath.Join(folder, "config.json"), desc, 0600)).To(gomega.Succeed())

		if b.Descriptor.LocalFile != "" {
			gomega.Expect(os.WriteFile(filepath.Join(folder, b.Descriptor.LocalFile), []byte(b.Data), 0600)).
				To(gomega.Succeed())
		}
	}
	return listsDir
}

// ServerTestHelper manages the extguard server lifecycle for testing
type ServerTestHelper struct {
	ctx        context.Context
	cfg        *config.Config
	baseURL    string
	httpClient *http.Client
	app        *internalapp.ExtguardApp
	serveErr   chan error
}

// NewServerTestHelper creates a helper for a server using memory storage over listsDir
func NewServerTestHelper(ctx context.Context, listsDir string, defaultFolders ...string) *ServerTestHelper {
	cfg := config.Default()
	cfg.Storage.Type = config.StorageTypeMemory
	cfg.Lists.Dir = listsDir
	cfg.Lists.DefaultFolders = defaultFolders
	cfg.Refresh.Interval = "1h"
	cfg.Fetch.Timeout = "5s"

	return &ServerTestHelper{
		ctx: ctx,
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// StartServer builds the application and serves it on a random local port
func (s *ServerTestHelper) StartServer() error {
	app, err := internalapp.NewExtguardApp(s.ctx, internalapp.WithConfig(s.cfg))
	if err != nil {
		return fmt.Errorf("failed to build app: %w", err)
	}

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	s.app = app
	s.baseURL = "http://" + listener.Addr().String()
	s.serveErr = make(chan error, 1)
	go func() {
		s.serveErr <- app.Serve(listener)
	}()
	return nil
}

// StopServer gracefully stops the server
func (s *ServerTestHelper) StopServer() error {
	if s.app == nil {
		return nil
	}
	if err := s.app.Stop(5 * time.Second); err != nil {
		return err
	}
	return <-s.serveErr
}

// WaitForServerReady waits for the health endpoint to answer
func (s *ServerTestHelper) WaitForServerReady(timeout time.Duration) {
	gomega.Eventually(func() int {
		resp, err := s.httpClient.Get(s.baseURL + "/health")
		if err != nil {
			return 0
		}
		_ = resp.Body.Close()
		return resp.StatusCode
	}, timeout, 50*time.Millisecond).Should(gomega.Equal(http.StatusOK))
}

// Do sends a request with an optional JSON body and decodes a JSON response into out
func (s *ServerTestHelper) Do(method, path string, body, out any) int {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(s.ctx, method, s.baseURL+path, reader)
	gomega.Expect(err).NotTo(gomega.HaveOccurred())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.httpClient.Do(req)
	gomega.Expect(err).NotTo(gomega.HaveOccurred())
	defer func() {
		_ = resp.Body.Close()
	}()

	if out != nil && resp.StatusCode < http.StatusBadRequest && resp.StatusCode != http.StatusNoContent {
		gomega.Expect(json.NewDecoder(resp.Body).Decode(out)).To(gomega.Succeed())
	}
	return resp.StatusCode
}

// RecordIDs returns the ids served by GET /v1/records in order
func (s *ServerTestHelper) RecordIDs() []string {
	var resp struct {
		Records []lists.Record `json:"records"`
	}
	if s.Do(http.MethodGet, "/v1/records", nil, &resp) != http.StatusOK {
		return nil
	}
	ids := make([]string, 0, len(resp.Records))
	for _, r := range resp.Records {
		ids = append(ids, r.ID)
	}
	return ids
}
