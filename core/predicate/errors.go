package predicate

import (
	"errors"
	"fmt"
)

var (
	// ErrNilPredicate is returned when a combinator is built around a missing child.
	ErrNilPredicate = errors.New("predicate cannot be nil")
	// ErrTypeMismatch matches every *TypeMismatchError through errors.Is.
	ErrTypeMismatch = errors.New("type mismatch")
	// ErrUnknownOperator is returned for comparison operators no leaf understands.
	ErrUnknownOperator = errors.New("unknown comparison operator")
	// ErrInvalidValue is returned when an operator is paired with an unusable operand.
	ErrInvalidValue = errors.New("invalid comparison value")
	// ErrUnknownField is returned when a schema-checked predicate names an undeclared field.
	ErrUnknownField = errors.New("field not declared in schema")
)

// Reasons carried by TypeMismatchError.
const (
	ReasonMissingField   = "missing field"
	ReasonIncompatible   = "incompatible types"
	ReasonNotBoolean     = "result is not a boolean"
	ReasonUnsupportedRec = "unsupported record type"
)

// TypeMismatchError reports a record that cannot be tested by a predicate,
// either because a required field is absent or because its value has the
// wrong type. It is never folded into a false result.
type TypeMismatchError struct {
	Field  string
	Reason string
	Value  any
	Want   any
}

func (e *TypeMismatchError) Error() string {
	switch e.Reason {
	case ReasonMissingField:
		return fmt.Sprintf("type mismatch on field %q: %s", e.Field, e.Reason)
	case ReasonIncompatible:
		return fmt.Sprintf("type mismatch on field %q: %s %T and %T", e.Field, e.Reason, e.Value, e.Want)
	default:
		return fmt.Sprintf("type mismatch on field %q: %s (got %T)", e.Field, e.Reason, e.Value)
	}
}

// Is lets errors.Is(err, ErrTypeMismatch) match.
func (e *TypeMismatchError) Is(target error) bool {
	return target == ErrTypeMismatch
}

func missingField(field string) error {
	return &TypeMismatchError{Field: field, Reason: ReasonMissingField}
}

func incompatible(field string, value, want any) error {
	return &TypeMismatchError{Field: field, Reason: ReasonIncompatible, Value: value, Want: want}
}
