package v1

import (
	"github.com/stacklok/extguard/internal/inventory"
	"github.com/stacklok/extguard/internal/lists"
	"github.com/stacklok/extguard/internal/matcher"
)

// RecordsResponse is the merged record set of every source
type RecordsResponse struct {
	Count   int            `json:"count"`
	Records []lists.Record `json:"records"`
}

// AddSourceRequest registers a new source. Enabled defaults to true.
type AddSourceRequest struct {
	Name          string `json:"name"`
	DisplayName   string `json:"displayName,omitempty"`
	Format        string `json:"format"`
	URL           string `json:"url,omitempty"`
	HasHeaders    bool   `json:"hasHeaders,omitempty"`
	IDField       string `json:"idField,omitempty"`
	NameField     string `json:"nameField,omitempty"`
	CategoryField string `json:"categoryField,omitempty"`
	TypeField     string `json:"typeField,omitempty"`
	LinkField     string `json:"linkField,omitempty"`
	CommentField  string `json:"commentField,omitempty"`
	Enabled       *bool  `json:"enabled,omitempty"`
	LocalFile     string `json:"localFile,omitempty"`
}

// Descriptor converts the request into a source descriptor
func (r *AddSourceRequest) Descriptor() *lists.Descriptor {
	enabled := true
	if r.Enabled != nil {
		enabled = *r.Enabled
	}
	return &lists.Descriptor{
		Name:          r.Name,
		DisplayName:   r.DisplayName,
		Format:        r.Format,
		URL:           r.URL,
		HasHeaders:    r.HasHeaders,
		IDField:       r.IDField,
		NameField:     r.NameField,
		CategoryField: r.CategoryField,
		TypeField:     r.TypeField,
		LinkField:     r.LinkField,
		CommentField:  r.CommentField,
		Enabled:       enabled,
		LocalFile:     r.LocalFile,
	}
}

// SetEnabledRequest toggles background refreshing of a source
type SetEnabledRequest struct {
	Enabled *bool `json:"enabled"`
}

// ClassifyRequest carries the installed extensions to check
type ClassifyRequest struct {
	Extensions []inventory.InstalledExtension `json:"extensions"`
}

// ClassifyResponse adds the badge count to a classification
type ClassifyResponse struct {
	Count   int                            `json:"count"`
	Flagged []matcher.Flagged              `json:"flagged"`
	Clear   []inventory.InstalledExtension `json:"clear"`
}

func newClassifyResponse(r *matcher.Result) ClassifyResponse {
	return ClassifyResponse{Count: r.Count(), Flagged: r.Flagged, Clear: r.Clear}
}
