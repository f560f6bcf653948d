// Package lists defines the shared model for malicious extension lists:
// source descriptors, normalized records and the field-mapping table that
// turns a source row into a record.
package lists

import "strings"

// Supported list formats
const (
	FormatCSV  = "csv"
	FormatTXT  = "txt"
	FormatJSON = "json"
)

// Default values applied when a record field cannot be resolved from the source
const (
	DefaultCategory = "unknown"
	DefaultType     = "suspicious"

	// MinimalCategory and MinimalType are used for records that carry only an identifier
	MinimalCategory = "malicious"
	MinimalType     = "unknown"
)

// Descriptor identifies one list and how to interpret it.
// JSON tags follow the on-disk config.json layout of a bundled list.
type Descriptor struct {
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
	Enabled       bool   `json:"enabled"`
	LocalFile     string `json:"localFile,omitempty"`
}

// SourceLabel is the value stamped into Record.Source: the display name, else the name
func (d *Descriptor) SourceLabel() string {
	if d == nil {
		return ""
	}
	if d.DisplayName != "" {
		return d.DisplayName
	}
	return d.Name
}

// NormalizedFormat returns the lower-cased format
func (d *Descriptor) NormalizedFormat() string {
	return strings.ToLower(strings.TrimSpace(d.Format))
}

// HasURL reports whether the list can be refreshed from the network
func (d *Descriptor) HasURL() bool {
	return d.URL != ""
}

// Clone returns a copy of the descriptor
func (d *Descriptor) Clone() *Descriptor {
	if d == nil {
		return nil
	}
	c := *d
	return &c
}

// Record is one flagged identifier from one source
type Record struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
	Type     string `json:"type"`
	Link     string `json:"link"`
	Comment  string `json:"comment"`
	Source   string `json:"source"`
}
