package schema

import (
	"fmt"
	"reflect"
	"sort"
)

// Issue codes reported by the validator.
const (
	IssueRequiredFieldMissing = "REQUIRED_FIELD_MISSING"
	IssueTypeMismatch         = "TYPE_MISMATCH"
	IssueUnexpectedField      = "UNEXPECTED_FIELD"
)

// Validator checks documents against a RecordSchema. It is safe to reuse for
// many documents.
type Validator struct {
	schema *RecordSchema
}

// NewValidator creates a new Validator instance for a given schema.
func NewValidator(schema *RecordSchema) *Validator {
	return &Validator{schema: schema}
}

// Validate checks a document against the schema. The `loose` parameter ignores
// missing required fields and undeclared extra fields.
func (v *Validator) Validate(doc Document, loose bool) (bool, []Issue) {
	issues := make([]Issue, 0)

	for _, name := range v.schema.FieldNames() {
		def := v.schema.Fields[name]
		value, exists := doc[name]
		if !exists {
			if def.Required && !loose {
				issues = append(issues, Issue{
					Code:    IssueRequiredFieldMissing,
					Message: fmt.Sprintf("Required field '%s' is missing", name),
					Path:    name,
				})
			}
			continue
		}
		if !v.ValueMatches(value, def.Type) {
			issues = append(issues, Issue{
				Code:    IssueTypeMismatch,
				Message: fmt.Sprintf("Expected %s, got %T", def.Type, value),
				Path:    name,
			})
		}
	}

	if !loose {
		extra := make([]string, 0)
		for key := range doc {
			if _, ok := v.schema.Fields[key]; !ok {
				extra = append(extra, key)
			}
		}
		sort.Strings(extra)
		for _, key := range extra {
			issues = append(issues, Issue{
				Code:    IssueUnexpectedField,
				Message: fmt.Sprintf("Unexpected field '%s' not defined in schema", key),
				Path:    key,
			})
		}
	}

	return len(issues) == 0, issues
}

// ValueMatches reports whether value can be stored in a field of the given type.
// nil matches every type.
func (v *Validator) ValueMatches(value any, expected FieldType) bool {
	return ValueMatches(value, expected)
}

// ValueMatches reports whether value can be stored in a field of the given type.
func ValueMatches(value any, expected FieldType) bool {
	if value == nil {
		return true
	}
	switch expected {
	case FieldTypeString:
		_, ok := value.(string)
		return ok
	case FieldTypeNumber:
		return isNumericType(value)
	case FieldTypeInteger:
		if isIntegerType(value) {
			return true
		}
		// JSON decoders hand back whole numbers as float64.
		if f, ok := value.(float64); ok {
			return f == float64(int64(f))
		}
		return false
	case FieldTypeBoolean:
		_, ok := value.(bool)
		return ok
	case FieldTypeArray:
		return isArrayType(value)
	case FieldTypeObject:
		return isObjectType(value)
	}
	return false
}

// isNumericType checks if a value is a numeric type.
func isNumericType(value any) bool {
	switch value.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return true
	}
	return false
}

// isIntegerType checks if a value is an integer type.
func isIntegerType(value any) bool {
	switch value.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	}
	return false
}

func isArrayType(value any) bool {
	rv := reflect.ValueOf(value)
	return rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array
}

func isObjectType(value any) bool {
	switch value.(type) {
	case map[string]any, Document:
		return true
	}
	return false
}
