// Package component declares the UI component schemas the plugin contributes
// to the host registry, plus the grouping settings form.
package component

import "sort"

// Kind is the value type of a schema field.
type Kind string

const (
	KindString Kind = "string"
	KindBool   Kind = "boolean"
	KindInt    Kind = "integer"
	KindNumber Kind = "number"
	KindEnum   Kind = "enum"
)

// Field describes one property of a component schema or settings form.
type Field struct {
	Name        string   `json:"name"`
	Kind        Kind     `json:"kind"`
	Required    bool     `json:"required,omitempty"`
	Default     any      `json:"default,omitempty"`
	Description string   `json:"description"`
	Min         *float64 `json:"min,omitempty"`
	Max         *float64 `json:"max,omitempty"`
	Options     []string `json:"options,omitempty"`
	// Since is the schema version that introduced the field.
	Since int `json:"since,omitempty"`
}

// Schema is a versioned component declaration.
type Schema struct {
	Name        string  `json:"name"`
	Version     int     `json:"version"`
	Description string  `json:"description"`
	Fields      []Field `json:"fields"`
}

// Field returns the named field.
func (s Schema) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Defaults returns default values for every non-required field that has one.
func (s Schema) Defaults() map[string]any {
	out := make(map[string]any, len(s.Fields))
	for _, f := range s.Fields {
		if f.Required || f.Default == nil {
			continue
		}
		out[f.Name] = f.Default
	}
	return out
}

// JSONSchema renders the schema as a JSON Schema object so hosts that
// validate payloads client-side can consume it directly.
func (s Schema) JSONSchema() map[string]any {
	props := make(map[string]any, len(s.Fields))
	required := make([]string, 0)
	for _, f := range s.Fields {
		p := map[string]any{"description": f.Description}
		switch f.Kind {
		case KindEnum:
			p["type"] = "string"
			p["enum"] = append([]string(nil), f.Options...)
		default:
			p["type"] = string(f.Kind)
		}
		if f.Default != nil {
			p["default"] = f.Default
		}
		if f.Min != nil {
			p["minimum"] = *f.Min
		}
		if f.Max != nil {
			p["maximum"] = *f.Max
		}
		props[f.Name] = p
		if f.Required {
			required = append(required, f.Name)
		}
	}
	sort.Strings(required)
	return map[string]any{
		"title":                s.Name,
		"description":          s.Description,
		"type":                 "object",
		"properties":           props,
		"required":             required,
		"additionalProperties": false,
		"x-schema-version":     s.Version,
	}
}

func bound(v float64) *float64 { return &v }
