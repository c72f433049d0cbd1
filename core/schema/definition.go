// Package schema describes the records that predicates are evaluated against:
// the generic Document row, the Record accessor contract and the optional
// RecordSchema used to validate field predicates before they ever run.
package schema

import (
	"sort"
	"strings"
)

// LogicalOperator for combining conditions.
type LogicalOperator string

const (
	LogicalAnd LogicalOperator = "and" // All conditions must be true
	LogicalOr  LogicalOperator = "or"  // At least one condition must be true
	LogicalNot LogicalOperator = "not" // Negates a single condition or group
	LogicalNor LogicalOperator = "nor" // None of the conditions must be true
	LogicalXor LogicalOperator = "xor" // Exactly one of the conditions must be true
)

// FieldType represents the basic field types a record field can hold.
type FieldType string

const (
	FieldTypeString  FieldType = "string"  // Text data
	FieldTypeNumber  FieldType = "number"  // Numeric data
	FieldTypeInteger FieldType = "integer" // Whole numbers
	FieldTypeBoolean FieldType = "boolean" // True/false values
	FieldTypeArray   FieldType = "array"   // Ordered list of items
	FieldTypeObject  FieldType = "object"  // Nested key-value data
)

// Record is anything a field predicate can read from. Get reports whether the
// field is present; a present field may still hold a nil value.
type Record interface {
	Get(field string) (any, bool)
}

// Document is the generic row type used throughout the module.
type Document map[string]any

// Get resolves a field name, descending into nested documents for dotted
// paths such as "dimensions.width".
func (d Document) Get(field string) (any, bool) {
	if v, ok := d[field]; ok {
		return v, true
	}
	if !strings.Contains(field, ".") {
		return nil, false
	}

	var current any = map[string]any(d)
	for _, part := range strings.Split(field, ".") {
		switch node := current.(type) {
		case map[string]any:
			v, ok := node[part]
			if !ok {
				return nil, false
			}
			current = v
		case Document:
			v, ok := node[part]
			if !ok {
				return nil, false
			}
			current = v
		default:
			return nil, false
		}
	}
	return current, true
}

// Clone returns a shallow copy of the document.
func (d Document) Clone() Document {
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// FieldDefinition declares a single field of a record.
type FieldDefinition struct {
	Name string    `json:"name" yaml:"name"`
	Type FieldType `json:"type" yaml:"type"`
	// Required marks fields every record must carry.
	Required bool `json:"required,omitempty" yaml:"required,omitempty"`
	// Description provides a brief explanation of the field.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// RecordSchema declares the field contract of a record collection.
type RecordSchema struct {
	Name   string                      `json:"name" yaml:"name"`
	Fields map[string]*FieldDefinition `json:"fields" yaml:"fields"`
}

// NewRecordSchema builds a schema from a list of field definitions.
func NewRecordSchema(name string, fields ...FieldDefinition) *RecordSchema {
	s := &RecordSchema{Name: name, Fields: make(map[string]*FieldDefinition, len(fields))}
	for i := range fields {
		f := fields[i]
		s.Fields[f.Name] = &f
	}
	return s
}

// FindField returns the definition for name, or nil. Dotted paths resolve to
// their root field when that field is an object.
func (s *RecordSchema) FindField(name string) *FieldDefinition {
	if s == nil {
		return nil
	}
	if f, ok := s.Fields[name]; ok {
		return f
	}
	root, _, found := strings.Cut(name, ".")
	if !found {
		return nil
	}
	if f, ok := s.Fields[root]; ok && f.Type == FieldTypeObject {
		return f
	}
	return nil
}

// FieldNames returns the declared field names in sorted order.
func (s *RecordSchema) FieldNames() []string {
	names := make([]string, 0, len(s.Fields))
	for name := range s.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Issue describes a single validation problem.
type Issue struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Path    string `json:"path,omitempty"`
}
