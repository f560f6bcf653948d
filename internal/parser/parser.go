// Package parser turns raw list content into normalized records.
//
// Parsers never fail: malformed input produces fewer (possibly zero) records
// and a log line. The Dispatcher selects a parser by the descriptor format.
package parser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/stacklok/extguard/internal/extid"
	"github.com/stacklok/extguard/internal/lists"
)

// ErrUnsupportedFormat is returned by Lookup for formats without a parser
var ErrUnsupportedFormat = errors.New("unsupported list format")

// byteOrderMark is dropped from the start of raw content before parsing
const byteOrderMark = "\ufeff"

// Parser converts raw list content into records for one descriptor
type Parser interface {
	// Parse returns every valid record found in raw, in source order
	Parse(raw string, d *lists.Descriptor) []lists.Record
}

// Dispatcher routes raw content to the parser registered for its format
type Dispatcher struct {
	parsers map[string]Parser
}

// NewDispatcher creates a dispatcher with the CSV, TXT and JSON parsers
func NewDispatcher(validator *extid.Validator) *Dispatcher {
	return &Dispatcher{
		parsers: map[string]Parser{
			lists.FormatCSV:  NewCSVParser(validator),
			lists.FormatTXT:  NewTXTParser(validator),
			lists.FormatJSON: NewJSONParser(validator),
		},
	}
}

// Lookup returns the parser for format, matched case-insensitively
func (d *Dispatcher) Lookup(format string) (Parser, error) {
	p, ok := d.parsers[strings.ToLower(strings.TrimSpace(format))]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	return p, nil
}

// Dispatch parses raw with the parser for format. A leading byte order mark
// is stripped. Unknown formats yield an empty result and are logged.
func (d *Dispatcher) Dispatch(ctx context.Context, format, raw string, desc *lists.Descriptor) []lists.Record {
	p, err := d.Lookup(format)
	if err != nil {
		slog.WarnContext(ctx, "Cannot parse list",
			"source", desc.SourceLabel(),
			"format", format,
			"error", err)
		return []lists.Record{}
	}

	raw = strings.TrimPrefix(raw, byteOrderMark)
	records := p.Parse(raw, desc)
	slog.DebugContext(ctx, "Parsed list",
		"source", desc.SourceLabel(),
		"format", format,
		"chars", len(raw),
		"records", len(records))
	return records
}

// ParseDescriptor parses raw using the descriptor's own format
func (d *Dispatcher) ParseDescriptor(ctx context.Context, raw string, desc *lists.Descriptor) []lists.Record {
	return d.Dispatch(ctx, desc.Format, raw, desc)
}

var lineEndings = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// splitLines normalizes line endings, trims the whole content and splits it
func splitLines(raw string) []string {
	content := strings.TrimSpace(lineEndings.Replace(raw))
	if content == "" {
		return nil
	}
	return strings.Split(content, "\n")
}
