package parser

import (
	"log/slog"

	"github.com/tidwall/gjson"

	"github.com/stacklok/extguard/internal/extid"
	"github.com/stacklok/extguard/internal/lists"
)

// JSONParser reads a top-level array of objects
type JSONParser struct {
	validator *extid.Validator
}

var _ Parser = (*JSONParser)(nil)

// NewJSONParser creates a JSON parser that keeps only identifiers accepted by validator
func NewJSONParser(validator *extid.Validator) *JSONParser {
	return &JSONParser{validator: validator}
}

// Parse implements Parser
func (p *JSONParser) Parse(raw string, d *lists.Descriptor) []lists.Record {
	records := []lists.Record{}

	if !gjson.Valid(raw) {
		slog.Warn("JSON list is not valid JSON", "source", d.SourceLabel())
		return records
	}

	doc := gjson.Parse(raw)
	if !doc.IsArray() {
		slog.Warn("JSON list is not an array, ignoring",
			"source", d.SourceLabel(),
			"type", doc.Type.String())
		return records
	}

	mapping := lists.NewFieldMapping(d, lists.JSONKeys)
	doc.ForEach(func(_, item gjson.Result) bool {
		if !item.IsObject() {
			return true
		}

		fields := objectFields(item)
		lookup := lists.MapLookup(fields)
		id := mapping.ID(lookup)
		if id == "" || !p.validator.IsValid(id) {
			return true
		}
		records = append(records, mapping.Record(id, d.SourceLabel(), lookup))
		return true
	})

	return records
}

// objectFields flattens the top-level members of an object into text values.
// Keys are read directly so names containing gjson path syntax still resolve.
func objectFields(obj gjson.Result) map[string]string {
	fields := make(map[string]string)
	obj.ForEach(func(key, value gjson.Result) bool {
		fields[key.String()] = textValue(value)
		return true
	})
	return fields
}

// textValue renders a member as text. null, false and 0 count as absent.
func textValue(v gjson.Result) string {
	switch v.Type {
	case gjson.Null, gjson.False:
		return ""
	case gjson.String:
		return v.Str
	case gjson.Number:
		if v.Num == 0 {
			return ""
		}
		return v.Raw
	default:
		return v.Raw
	}
}
