package lists

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/tailscale/hujson"
)

const descriptorSchemaURL = "https://extguard.local/schemas/descriptor.json"

const descriptorSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["name", "format"],
  "properties": {
    "name":          {"type": "string", "minLength": 1},
    "displayName":   {"type": "string"},
    "format":        {"type": "string", "minLength": 1},
    "url":           {"type": "string"},
    "hasHeaders":    {"type": "boolean"},
    "idField":       {"type": "string"},
    "nameField":     {"type": "string"},
    "categoryField": {"type": "string"},
    "typeField":     {"type": "string"},
    "linkField":     {"type": "string"},
    "commentField":  {"type": "string"},
    "enabled":       {"type": "boolean"},
    "localFile":     {"type": "string"}
  }
}`

// ErrInvalidDescriptor is returned when a descriptor document cannot be used
var ErrInvalidDescriptor = errors.New("invalid source descriptor")

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	errSchema      error
)

func descriptorValidator() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(strings.NewReader(descriptorSchema))
		if err != nil {
			errSchema = fmt.Errorf("failed to load descriptor schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource(descriptorSchemaURL, doc); err != nil {
			errSchema = fmt.Errorf("failed to add descriptor schema: %w", err)
			return
		}
		compiledSchema, errSchema = c.Compile(descriptorSchemaURL)
	})
	return compiledSchema, errSchema
}

var byteOrderMark = []byte("\ufeff")

// ParseDescriptor decodes a descriptor document. Comments and trailing commas
// are tolerated; the result is checked against the descriptor schema.
func ParseDescriptor(data []byte) (*Descriptor, error) {
	std, err := hujson.Standardize(bytes.Clone(bytes.TrimPrefix(data, byteOrderMark)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDescriptor, err)
	}

	schema, err := descriptorValidator()
	if err != nil {
		return nil, err
	}

	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(std))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDescriptor, err)
	}
	if err := schema.Validate(inst); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDescriptor, err)
	}

	var d Descriptor
	if err := json.Unmarshal(std, &d); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDescriptor, err)
	}
	return &d, nil
}

// MarshalDescriptor encodes a descriptor in its config.json form
func MarshalDescriptor(d *Descriptor) ([]byte, error) {
	return json.MarshalIndent(d, "", "  ")
}
