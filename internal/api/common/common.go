// Package common provides shared HTTP utility functions for API handlers.
package common

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/stacklok/extguard/internal/lists"
	"github.com/stacklok/extguard/internal/parser"
	"github.com/stacklok/extguard/internal/registry"
	"github.com/stacklok/extguard/internal/service"
	pkgsync "github.com/stacklok/extguard/internal/sync"
)

// maxBodyBytes bounds request bodies accepted by the API
const maxBodyBytes = 1 << 20

// WriteJSONResponse writes a JSON response with the given data
func WriteJSONResponse(w http.ResponseWriter, data any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// WriteErrorResponse writes a standardized error response
func WriteErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	WriteJSONResponse(w, map[string]string{"error": message}, statusCode)
}

// StatusForError maps a service error to an HTTP status code
func StatusForError(err error) int {
	var syncErr *pkgsync.Error
	switch {
	case errors.Is(err, registry.ErrSourceNotFound):
		return http.StatusNotFound
	case errors.Is(err, registry.ErrSourceExists):
		return http.StatusConflict
	case errors.Is(err, registry.ErrInvalidName),
		errors.Is(err, lists.ErrInvalidDescriptor),
		errors.Is(err, parser.ErrUnsupportedFormat),
		errors.Is(err, pkgsync.ErrNoURL):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrNoEnumerator):
		return http.StatusServiceUnavailable
	case errors.As(err, &syncErr) && syncErr.Kind == pkgsync.KindTransport:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// WriteServiceError writes err with the status chosen by StatusForError
func WriteServiceError(w http.ResponseWriter, err error) {
	WriteErrorResponse(w, err.Error(), StatusForError(err))
}

// DecodeJSONBody decodes a bounded JSON request body into v, rejecting unknown fields
func DecodeJSONBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// BoolQueryParam parses an optional boolean query parameter. An absent parameter is false.
func BoolQueryParam(r *http.Request, key string) (bool, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean, got %q", key, raw)
	}
	return v, nil
}

// GetAndValidateURLParam extracts and decodes a URL parameter. The value must
// be non-empty and contain no whitespace.
func GetAndValidateURLParam(r *http.Request, paramName string) (string, error) {
	decoded, err := url.PathUnescape(chi.URLParam(r, paramName))
	if err != nil {
		return "", fmt.Errorf("invalid URL encoding in %s", paramName)
	}
	if strings.TrimSpace(decoded) == "" {
		return "", fmt.Errorf("%s cannot be empty", paramName)
	}
	if strings.ContainsAny(decoded, " \t\n\r") {
		return "", fmt.Errorf("%s cannot contain whitespace", paramName)
	}
	return decoded, nil
}
