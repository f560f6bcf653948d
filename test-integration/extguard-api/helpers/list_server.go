// Package helpers provides fixtures for the extguard integration tests.
package helpers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
)

type listResponse struct {
	status int
	body   string
}

// ListServer is a fake upstream serving list files whose responses can be
// changed while the test runs
type ListServer struct {
	*httptest.Server

	mu        sync.Mutex
	responses map[string]listResponse
	hits      map[string]int
}

// NewListServer starts an empty list server. Unknown paths return 404.
func NewListServer() *ListServer {
	s := &ListServer{
		responses: make(map[string]listResponse),
		hits:      make(map[string]int),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	return s
}

// Serve makes path return body with 200
func (s *ListServer) Serve(path, body string) {
	s.set(path, http.StatusOK, body)
}

// Fail makes path return status with an empty body
func (s *ListServer) Fail(path string, status int) {
	s.set(path, status, "")
}

// URL returns the absolute URL of path
func (s *ListServer) URL(path string) string {
	return s.Server.URL + path
}

// Hits returns how many times path was requested
func (s *ListServer) Hits(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

func (s *ListServer) set(path string, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses[path] = listResponse{status: status, body: body}
}

func (s *ListServer) serve(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	resp, ok := s.responses[r.URL.Path]
	s.hits[r.URL.Path]++
	s.mu.Unlock()

	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.WriteHeader(resp.status)
	_, _ = fmt.Fprint(w, resp.body)
}
