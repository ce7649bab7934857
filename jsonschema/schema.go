package jsonschema

import (
	"fmt"

	gojson "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// Schema is a minimal JSON Schema representation describing document
// collections. Keep this struct small and extend incrementally.
type Schema struct {
	// Core
	Title       string `json:"title,omitempty" yaml:"title,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Type        string `json:"type,omitempty" yaml:"type,omitempty"`
	Format      string `json:"format,omitempty" yaml:"format,omitempty"`

	// Object
	Properties map[string]*Schema `json:"properties,omitempty" yaml:"properties,omitempty"`
	Required   []string           `json:"required,omitempty" yaml:"required,omitempty"`

	// Array
	Items    *Schema `json:"items,omitempty" yaml:"items,omitempty"`
	MinItems *int    `json:"minItems,omitempty" yaml:"minItems,omitempty"`
	MaxItems *int    `json:"maxItems,omitempty" yaml:"maxItems,omitempty"`
}

// IsObject reports whether s describes a document.
func (s *Schema) IsObject() bool {
	return s != nil && (s.Type == "object" || (s.Type == "" && s.Properties != nil))
}

// IsArray reports whether s describes an array.
func (s *Schema) IsArray() bool {
	return s != nil && (s.Type == "array" || (s.Type == "" && s.Items != nil))
}

// Parse decodes a JSON Schema document.
func Parse(data []byte) (*Schema, error) {
	var s Schema
	if err := gojson.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("jsonschema: parse json: %w", err)
	}
	return &s, nil
}

// ParseYAML decodes a JSON Schema written in YAML.
func ParseYAML(data []byte) (*Schema, error) {
	var s Schema
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("jsonschema: parse yaml: %w", err)
	}
	return &s, nil
}
