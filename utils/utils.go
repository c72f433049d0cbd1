// Package utils converts between typed structs and generic documents.
package utils

import (
	"fmt"
	"reflect"

	jsoniter "github.com/json-iterator/go"

	"github.com/asaidimu/go-criteria/core/schema"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// StructToMap converts a struct into a schema.Document by round-tripping it
// through JSON, so `json` tags decide the field names and `omitempty` is
// honoured. Nested structs become nested documents and numbers become float64,
// the same shape a decoded JSON input has.
//
// The input must be a struct or a non-nil pointer to a struct.
func StructToMap[T any](record T) (schema.Document, error) {
	val := reflect.ValueOf(record)
	if !val.IsValid() {
		return nil, fmt.Errorf("input record cannot be nil")
	}
	if val.Kind() == reflect.Ptr {
		if val.IsNil() {
			return nil, fmt.Errorf("input record cannot be a nil pointer to a struct")
		}
		val = val.Elem()
	}
	if val.Kind() != reflect.Struct {
		return nil, fmt.Errorf("input record must be a struct or a pointer to a struct, got %s", val.Kind())
	}

	raw, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("StructToMap: failed to marshal input record to JSON: %w", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("StructToMap: failed to unmarshal JSON to document: %w", err)
	}
	return schema.Document(doc), nil
}

// MapToStruct is the inverse of StructToMap.
func MapToStruct[T any](input map[string]any) (T, error) {
	var zero T
	if input == nil {
		return zero, fmt.Errorf("MapToStruct: input map cannot be nil")
	}
	typ := reflect.TypeOf(zero)
	if typ != nil && typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}
	if typ == nil || typ.Kind() != reflect.Struct {
		return zero, fmt.Errorf("MapToStruct: generic type T must be a struct type (or pointer to struct)")
	}

	raw, err := json.Marshal(input)
	if err != nil {
		return zero, fmt.Errorf("MapToStruct: failed to marshal input map to JSON: %w", err)
	}
	var result T
	if err := json.Unmarshal(raw, &result); err != nil {
		return zero, fmt.Errorf("MapToStruct: failed to unmarshal JSON to target struct: %w", err)
	}
	return result, nil
}
