package parser

import (
	"log/slog"
	"slices"
	"strings"

	"github.com/stacklok/extguard/internal/extid"
	"github.com/stacklok/extguard/internal/lists"
)

// CSVParser reads comma separated lists, optionally with a header row
type CSVParser struct {
	validator *extid.Validator
}

var _ Parser = (*CSVParser)(nil)

// NewCSVParser creates a CSV parser that keeps only identifiers accepted by validator
func NewCSVParser(validator *extid.Validator) *CSVParser {
	return &CSVParser{validator: validator}
}

// Parse implements Parser
func (p *CSVParser) Parse(raw string, d *lists.Descriptor) []lists.Record {
	lines := splitLines(raw)
	records := []lists.Record{}
	if len(lines) == 0 {
		slog.Warn("CSV list is empty", "source", d.SourceLabel())
		return records
	}

	var headers []string
	idIndex := 0
	mapping := lists.NewFieldMapping(d, lists.CSVLegacyKeys)

	for i, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if i == 0 && d.HasHeaders {
			headers = splitCSVLine(line)
			if d.IDField != "" {
				if idx := slices.Index(headers, d.IDField); idx >= 0 {
					idIndex = idx
				} else {
					slog.Warn("CSV id column not found, using first column",
						"source", d.SourceLabel(),
						"id_field", d.IDField)
				}
			}
			continue
		}

		values := splitCSVLine(line)
		id := valueAt(values, idIndex)
		if id == "" || !p.validator.IsValid(id) {
			continue
		}

		if len(headers) == 0 {
			records = append(records, lists.Record{
				ID:       id,
				Category: lists.MinimalCategory,
				Type:     lists.MinimalType,
				Source:   d.SourceLabel(),
			})
			continue
		}

		row := make(map[string]string, len(headers))
		for h, header := range headers {
			row[header] = valueAt(values, h)
		}
		records = append(records, mapping.Record(id, d.SourceLabel(), lists.MapLookup(row)))
	}

	return records
}

func valueAt(values []string, i int) string {
	if i < len(values) {
		return values[i]
	}
	return ""
}

// splitCSVLine splits on commas outside double quotes. Quote characters are
// dropped and every field is trimmed.
func splitCSVLine(line string) []string {
	var (
		fields   []string
		current  strings.Builder
		inQuotes bool
	)
	for _, r := range line {
		switch {
		case r == '"':
			inQuotes = !inQuotes
		case r == ',' && !inQuotes:
			fields = append(fields, strings.TrimSpace(current.String()))
			current.Reset()
		default:
			current.WriteRune(r)
		}
	}
	return append(fields, strings.TrimSpace(current.String()))
}
