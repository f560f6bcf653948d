package parser

import (
	"log/slog"
	"strings"

	"github.com/stacklok/extguard/internal/extid"
	"github.com/stacklok/extguard/internal/lists"
)

const (
	txtCommentMarker = "#"
	txtLinkPrefix    = "http"
)

// TXTParser reads one identifier per line. A "#" line annotates the
// identifier on the line immediately after it.
type TXTParser struct {
	validator *extid.Validator
}

var _ Parser = (*TXTParser)(nil)

// NewTXTParser creates a TXT parser that keeps only identifiers accepted by validator
func NewTXTParser(validator *extid.Validator) *TXTParser {
	return &TXTParser{validator: validator}
}

// Parse implements Parser
func (p *TXTParser) Parse(raw string, d *lists.Descriptor) []lists.Record {
	records := []lists.Record{}
	pending := ""

	for _, line := range splitLines(raw) {
		line = strings.TrimSpace(line)

		if line == "" {
			pending = ""
			continue
		}

		if strings.HasPrefix(line, txtCommentMarker) {
			pending = strings.TrimSpace(strings.TrimPrefix(line, txtCommentMarker))
			continue
		}

		if p.validator.IsValid(line) {
			rec := lists.Record{
				ID:       line,
				Category: lists.MinimalCategory,
				Type:     lists.DefaultType,
				Source:   d.SourceLabel(),
			}
			if strings.HasPrefix(pending, txtLinkPrefix) {
				rec.Link = pending
			} else {
				rec.Comment = pending
			}
			records = append(records, rec)
		}
		pending = ""
	}

	if len(records) == 0 {
		slog.Debug("TXT list produced no records", "source", d.SourceLabel())
	}
	return records
}
