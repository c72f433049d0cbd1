package schema

import (
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
)

// ErrInvalidJSON is returned when raw input is not well-formed JSON.
var ErrInvalidJSON = errors.New("invalid JSON")

// JSONRecord is a Record backed by a raw JSON object. Fields are resolved with
// gjson paths, so nested values are addressed as "dimensions.width" and array
// elements as "tags.0".
type JSONRecord struct {
	raw string
}

// NewJSONRecord wraps a single JSON object.
func NewJSONRecord(raw []byte) (JSONRecord, error) {
	if !gjson.ValidBytes(raw) {
		return JSONRecord{}, ErrInvalidJSON
	}
	parsed := gjson.ParseBytes(raw)
	if !parsed.IsObject() {
		return JSONRecord{}, fmt.Errorf("%w: expected an object, got %s", ErrInvalidJSON, parsed.Type)
	}
	return JSONRecord{raw: parsed.Raw}, nil
}

// ParseJSONRecords splits a JSON array of objects into records, preserving order.
func ParseJSONRecords(data []byte) ([]JSONRecord, error) {
	if !gjson.ValidBytes(data) {
		return nil, ErrInvalidJSON
	}
	parsed := gjson.ParseBytes(data)
	if !parsed.IsArray() {
		return nil, fmt.Errorf("%w: expected an array of objects", ErrInvalidJSON)
	}

	elements := parsed.Array()
	records := make([]JSONRecord, 0, len(elements))
	for i, element := range elements {
		if !element.IsObject() {
			return nil, fmt.Errorf("%w: element %d is %s, not an object", ErrInvalidJSON, i, element.Type)
		}
		records = append(records, JSONRecord{raw: element.Raw})
	}
	return records, nil
}

// Get resolves a gjson path. Numbers come back as float64, objects as
// map[string]any and arrays as []any.
func (r JSONRecord) Get(field string) (any, bool) {
	result := gjson.Get(r.raw, field)
	if !result.Exists() {
		return nil, false
	}
	return result.Value(), true
}

// Raw returns the underlying JSON text.
func (r JSONRecord) Raw() string {
	return r.raw
}

// Document decodes the record into a Document.
func (r JSONRecord) Document() Document {
	m, ok := gjson.Parse(r.raw).Value().(map[string]any)
	if !ok {
		return Document{}
	}
	return Document(m)
}

// MarshalJSON emits the original JSON unchanged.
func (r JSONRecord) MarshalJSON() ([]byte, error) {
	if r.raw == "" {
		return []byte("null"), nil
	}
	return []byte(r.raw), nil
}
