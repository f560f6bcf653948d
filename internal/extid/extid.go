// Package extid validates browser extension identifiers.
package extid

import (
	"fmt"
	"regexp"

	"github.com/stacklok/extguard/internal/config"
)

// Validator decides whether a string has the shape of an extension identifier.
// A Validator is immutable and safe for concurrent use.
type Validator struct {
	enabled bool
	pattern *regexp.Regexp
}

// NewValidator builds a Validator from the identifier section of the configuration
func NewValidator(cfg config.ExtensionIDConfig) (*Validator, error) {
	if cfg.Length == 0 {
		cfg.Length = config.Default().ExtensionID.Length
	}
	if cfg.Charset == "" {
		cfg.Charset = config.Default().ExtensionID.Charset
	}

	pattern, err := regexp.Compile(cfg.IDPattern())
	if err != nil {
		return nil, fmt.Errorf("invalid extension id pattern %q: %w", cfg.IDPattern(), err)
	}

	return &Validator{
		enabled: cfg.IsIDValidationEnabled(),
		pattern: pattern,
	}, nil
}

// MustNewValidator is like NewValidator but panics on an invalid configuration
func MustNewValidator(cfg config.ExtensionIDConfig) *Validator {
	v, err := NewValidator(cfg)
	if err != nil {
		panic(err)
	}
	return v
}

// Default returns a Validator for 32 lowercase alphanumeric characters
func Default() *Validator {
	return MustNewValidator(config.Default().ExtensionID)
}

// IsValid reports whether id is acceptable. It always returns true when
// validation is disabled.
func (v *Validator) IsValid(id string) bool {
	if !v.enabled {
		return true
	}
	return v.pattern.MatchString(id)
}

// Enabled reports whether shape checking is active
func (v *Validator) Enabled() bool {
	return v.enabled
}
