package lists

// Field identifies a Record field that is resolved through a FieldMapping
type Field int

// Mapped record fields
const (
	FieldName Field = iota
	FieldCategory
	FieldType
	FieldLink
	FieldComment
	numFields
)

// fieldRule is the ordered list of source keys consulted for one field, and
// the value used when none of them yields a non-empty string
type fieldRule struct {
	candidates []string
	fallback   string
}

// FieldMapping resolves record fields from a keyed row (CSV header → value,
// JSON object key → value). It is built once per descriptor.
type FieldMapping struct {
	id    []string
	rules [numFields]fieldRule
}

// Fallback key sets
var (
	// CSVLegacyKeys are the column names used by older CSV lists
	CSVLegacyKeys = FallbackKeys{
		Name:     "browser_extension",
		Category: "metadata_category",
		Type:     "metadata_type",
		Link:     "metadata_link",
		Comment:  "metadata_comment",
	}

	// JSONKeys are the object keys consulted when a JSON list has no explicit mapping
	JSONKeys = FallbackKeys{
		ID:       "id",
		Name:     "name",
		Category: "category",
		Type:     "type",
		Link:     "link",
		Comment:  "comment",
	}
)

// FallbackKeys names the source keys tried after the configured mapping
type FallbackKeys struct {
	ID       string
	Name     string
	Category string
	Type     string
	Link     string
	Comment  string
}

// NewFieldMapping builds the resolution table for a descriptor. Configured
// field names come first, then the fallback keys, then the defaults
// ("", "unknown", "suspicious", "", "").
func NewFieldMapping(d *Descriptor, fallback FallbackKeys) *FieldMapping {
	m := &FieldMapping{
		id: candidates(d.IDField, fallback.ID),
	}
	m.rules[FieldName] = fieldRule{candidates: candidates(d.NameField, fallback.Name)}
	m.rules[FieldCategory] = fieldRule{
		candidates: candidates(d.CategoryField, fallback.Category),
		fallback:   DefaultCategory,
	}
	m.rules[FieldType] = fieldRule{
		candidates: candidates(d.TypeField, fallback.Type),
		fallback:   DefaultType,
	}
	m.rules[FieldLink] = fieldRule{candidates: candidates(d.LinkField, fallback.Link)}
	m.rules[FieldComment] = fieldRule{candidates: candidates(d.CommentField, fallback.Comment)}
	return m
}

func candidates(keys ...string) []string {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if k != "" {
			out = append(out, k)
		}
	}
	return out
}

// ID returns the first non-empty identifier value among the id candidates
func (m *FieldMapping) ID(lookup func(key string) string) string {
	return firstNonEmpty(m.id, lookup)
}

// Resolve returns the value for field f, or its default
func (m *FieldMapping) Resolve(f Field, lookup func(key string) string) string {
	rule := m.rules[f]
	if v := firstNonEmpty(rule.candidates, lookup); v != "" {
		return v
	}
	return rule.fallback
}

// Record assembles a Record for id using the mapping
func (m *FieldMapping) Record(id, source string, lookup func(key string) string) Record {
	return Record{
		ID:       id,
		Name:     m.Resolve(FieldName, lookup),
		Category: m.Resolve(FieldCategory, lookup),
		Type:     m.Resolve(FieldType, lookup),
		Link:     m.Resolve(FieldLink, lookup),
		Comment:  m.Resolve(FieldComment, lookup),
		Source:   source,
	}
}

func firstNonEmpty(keys []string, lookup func(key string) string) string {
	for _, k := range keys {
		if v := lookup(k); v != "" {
			return v
		}
	}
	return ""
}

// MapLookup adapts a map to the lookup function used by FieldMapping
func MapLookup(row map[string]string) func(string) string {
	return func(key string) string {
		return row[key]
	}
}
