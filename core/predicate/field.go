package predicate

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/asaidimu/go-criteria/core/schema"
)

// Operator names a field comparison.
type Operator string

// Supported comparison operators.
const (
	OpEq          Operator = "eq"
	OpNeq         Operator = "neq"
	OpLt          Operator = "lt"
	OpLte         Operator = "lte"
	OpGt          Operator = "gt"
	OpGte         Operator = "gte"
	OpIn          Operator = "in"
	OpNin         Operator = "nin"
	OpContains    Operator = "contains"
	OpNotContains Operator = "ncontains"
	OpStartsWith  Operator = "startswith"
	OpEndsWith    Operator = "endswith"
	OpExists      Operator = "exists"
	OpNotExists   Operator = "nexists"
)

var standardOperators = map[Operator]struct{}{
	OpEq: {}, OpNeq: {}, OpLt: {}, OpLte: {}, OpGt: {}, OpGte: {},
	OpIn: {}, OpNin: {}, OpContains: {}, OpNotContains: {},
	OpStartsWith: {}, OpEndsWith: {}, OpExists: {}, OpNotExists: {},
}

// IsStandard reports whether the operator is built in.
func (o Operator) IsStandard() bool {
	_, ok := standardOperators[o]
	return ok
}

// StandardOperators returns the built-in operators.
func StandardOperators() []Operator {
	ops := make([]Operator, 0, len(standardOperators))
	for op := range standardOperators {
		ops = append(ops, op)
	}
	return ops
}

// Comparison tests one field of a record against a fixed operand.
type Comparison[R schema.Record] struct {
	Field    string
	Operator Operator
	Value    any
}

// Where builds a comparison leaf. The operand is checked against the operator
// here, so a malformed leaf never reaches evaluation.
func Where[R schema.Record](field string, op Operator, value any) (Predicate[R], error) {
	if field == "" {
		return nil, fmt.Errorf("%w: field name cannot be empty", ErrInvalidValue)
	}
	if !op.IsStandard() {
		return nil, fmt.Errorf("%w: %s", ErrUnknownOperator, op)
	}

	switch op {
	case OpLt, OpLte, OpGt, OpGte:
		if _, isNum := asNumber(value); !isNum {
			if _, isStr := value.(string); !isStr {
				return nil, fmt.Errorf("%w: %s needs a number or string operand, got %T", ErrInvalidValue, op, value)
			}
		}
	case OpIn, OpNin:
		items, ok := asSlice(value)
		if !ok {
			return nil, fmt.Errorf("%w: %s needs a list operand, got %T", ErrInvalidValue, op, value)
		}
		value = items
	case OpStartsWith, OpEndsWith:
		if _, ok := value.(string); !ok {
			return nil, fmt.Errorf("%w: %s needs a string operand, got %T", ErrInvalidValue, op, value)
		}
	}

	return &Comparison[R]{Field: field, Operator: op, Value: value}, nil
}

// WhereIn is Where with the field contract checked against a schema: the field
// must be declared and the operand must suit its type.
func WhereIn[R schema.Record](s *schema.RecordSchema, field string, op Operator, value any) (Predicate[R], error) {
	def := s.FindField(field)
	if def == nil {
		return nil, fmt.Errorf("%w: %q in %s", ErrUnknownField, field, s.Name)
	}

	nested := def.Name != field
	if !nested {
		if err := checkOperand(def, op, value); err != nil {
			return nil, err
		}
	}
	return Where[R](field, op, value)
}

func checkOperand(def *schema.FieldDefinition, op Operator, value any) error {
	switch op {
	case OpExists, OpNotExists:
		return nil
	case OpIn, OpNin:
		items, ok := asSlice(value)
		if !ok {
			return fmt.Errorf("%w: %s needs a list operand, got %T", ErrInvalidValue, op, value)
		}
		for _, item := range items {
			if !schema.ValueMatches(item, def.Type) {
				return incompatible(def.Name, item, def.Type)
			}
		}
		return nil
	case OpContains, OpNotContains:
		if def.Type == schema.FieldTypeArray {
			return nil
		}
		if def.Type != schema.FieldTypeString {
			return incompatible(def.Name, value, def.Type)
		}
	case OpLt, OpLte, OpGt, OpGte:
		if def.Type == schema.FieldTypeBoolean || def.Type == schema.FieldTypeArray || def.Type == schema.FieldTypeObject {
			return incompatible(def.Name, value, def.Type)
		}
	}
	if def.Type == schema.FieldTypeInteger {
		// an integer field may be compared with any number
		if _, ok := asNumber(value); ok || value == nil {
			return nil
		}
		return incompatible(def.Name, value, def.Type)
	}
	if !schema.ValueMatches(value, def.Type) {
		return incompatible(def.Name, value, def.Type)
	}
	return nil
}

// RequiredFields reports the compared field. exists/nexists still list it:
// they read the field even though its absence is a valid outcome.
func (c *Comparison[R]) RequiredFields() []string {
	return []string{c.Field}
}

func (c *Comparison[R]) String() string {
	switch c.Operator {
	case OpExists, OpNotExists:
		return fmt.Sprintf("%s %s", c.Field, c.Operator)
	}
	return fmt.Sprintf("%s %s %s", c.Field, c.Operator, formatValue(c.Value))
}

// IsSatisfiedBy evaluates the comparison against record.
func (c *Comparison[R]) IsSatisfiedBy(record R) (bool, error) {
	value, ok := record.Get(c.Field)

	switch c.Operator {
	case OpExists:
		return ok && value != nil, nil
	case OpNotExists:
		return !ok || value == nil, nil
	}

	if !ok {
		return false, missingField(c.Field)
	}
	return Compare(c.Field, value, c.Operator, c.Value)
}

// Compare applies op to a field value and an operand. field only labels errors.
func Compare(field string, value any, op Operator, operand any) (bool, error) {
	switch op {
	case OpEq, OpNeq:
		if !sameKind(value, operand) {
			return false, incompatible(field, value, operand)
		}
		return valuesEqual(value, operand) == (op == OpEq), nil
	case OpLt, OpLte, OpGt, OpGte:
		cmp, ok := CompareValues(value, operand)
		if !ok {
			return false, incompatible(field, value, operand)
		}
		switch op {
		case OpLt:
			return cmp < 0, nil
		case OpLte:
			return cmp <= 0, nil
		case OpGt:
			return cmp > 0, nil
		default:
			return cmp >= 0, nil
		}
	case OpIn, OpNin:
		items, ok := asSlice(operand)
		if !ok {
			return false, fmt.Errorf("%w: %s needs a list operand, got %T", ErrInvalidValue, op, operand)
		}
		found := false
		for _, item := range items {
			if !sameKind(value, item) {
				return false, incompatible(field, value, item)
			}
			if !found && valuesEqual(value, item) {
				found = true
			}
		}
		return found == (op == OpIn), nil
	case OpContains, OpNotContains:
		found, err := contains(field, value, operand)
		if err != nil {
			return false, err
		}
		return found == (op == OpContains), nil
	case OpStartsWith, OpEndsWith:
		s, ok := value.(string)
		if !ok {
			return false, incompatible(field, value, operand)
		}
		prefix, ok := operand.(string)
		if !ok {
			return false, incompatible(field, value, operand)
		}
		if op == OpStartsWith {
			return strings.HasPrefix(s, prefix), nil
		}
		return strings.HasSuffix(s, prefix), nil
	case OpExists:
		return value != nil, nil
	case OpNotExists:
		return value == nil, nil
	}
	return false, fmt.Errorf("%w: %s", ErrUnknownOperator, op)
}

func contains(field string, value, operand any) (bool, error) {
	if s, ok := value.(string); ok {
		sub, ok := operand.(string)
		if !ok {
			return false, incompatible(field, value, operand)
		}
		return strings.Contains(s, sub), nil
	}
	if items, ok := asSlice(value); ok {
		for _, item := range items {
			if valuesEqual(item, operand) {
				return true, nil
			}
		}
		return false, nil
	}
	return false, incompatible(field, value, operand)
}

// CompareValues orders two numbers or two strings. The boolean is false when
// the values cannot be ordered against each other.
func CompareValues(a, b any) (int, bool) {
	if x, ok := asNumber(a); ok {
		y, ok := asNumber(b)
		if !ok {
			return 0, false
		}
		switch {
		case x < y:
			return -1, true
		case x > y:
			return 1, true
		}
		return 0, true
	}
	if x, ok := a.(string); ok {
		y, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(x, y), true
	}
	return 0, false
}

// sameKind reports whether a and b can be tested for equality. null is
// comparable with anything; numbers of any Go kind are one kind.
func sameKind(a, b any) bool {
	if a == nil || b == nil {
		return true
	}
	return kindOf(a) == kindOf(b)
}

func kindOf(v any) string {
	if _, ok := asNumber(v); ok {
		return "number"
	}
	switch v.(type) {
	case string:
		return "string"
	case bool:
		return "bool"
	}
	if _, ok := asSlice(v); ok {
		return "list"
	}
	if reflect.ValueOf(v).Kind() == reflect.Map {
		return "object"
	}
	return reflect.TypeOf(v).String()
}

func valuesEqual(a, b any) bool {
	if x, ok := asNumber(a); ok {
		if y, ok := asNumber(b); ok {
			return x == y
		}
		return false
	}
	return reflect.DeepEqual(a, b)
}

// asNumber converts Go numeric kinds to float64. Strings are never numbers here.
func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func asSlice(v any) ([]any, bool) {
	if items, ok := v.([]any); ok {
		return items, true
	}
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return nil, false
	}
	if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8 {
		// []byte is a value, not a list
		return nil, false
	}
	items := make([]any, rv.Len())
	for i := range items {
		items[i] = rv.Index(i).Interface()
	}
	return items, true
}

func formatValue(v any) string {
	switch val := v.(type) {
	case string:
		return fmt.Sprintf("%q", val)
	case []any:
		parts := make([]string, len(val))
		for i, item := range val {
			parts[i] = formatValue(item)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case nil:
		return "null"
	}
	return fmt.Sprintf("%v", v)
}
