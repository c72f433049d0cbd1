// Package predicate implements composable selection criteria (the
// specification pattern). A Predicate is a pure boolean test over one record;
// And, Or and Not build new predicates out of existing ones, so any tree of
// them is itself a Predicate and can be nested to arbitrary depth.
//
// Evaluation never mutates the record and never hides failures: a leaf that
// cannot test a record returns an error, and combinators pass that error up
// unchanged instead of treating it as a non-match.
package predicate

import (
	"fmt"
	"sort"
)

// Predicate is a boolean test over a single record of type T.
type Predicate[T any] interface {
	IsSatisfiedBy(record T) (bool, error)
}

// FieldRequirer is implemented by predicates that read named record fields.
type FieldRequirer interface {
	RequiredFields() []string
}

// Wrapper is implemented by predicates that decorate a single inner predicate
// without changing its meaning, such as Spec.
type Wrapper[T any] interface {
	Unwrap() Predicate[T]
}

// Composite is implemented by combinators so trees can be walked.
type Composite[T any] interface {
	Predicate[T]
	Connective() string
	Children() []Predicate[T]
}

// funcPredicate adapts a plain function.
type funcPredicate[T any] struct {
	name   string
	fields []string
	fn     func(T) (bool, error)
}

func (f *funcPredicate[T]) IsSatisfiedBy(record T) (bool, error) {
	return f.fn(record)
}

func (f *funcPredicate[T]) RequiredFields() []string {
	return f.fields
}

func (f *funcPredicate[T]) String() string {
	return f.name
}

// Func adapts an infallible test, typically a method on a typed struct record.
func Func[T any](name string, fn func(T) bool) Predicate[T] {
	if fn == nil {
		panic(fmt.Sprintf("predicate %q: %v", name, ErrNilPredicate))
	}
	return &funcPredicate[T]{
		name: name,
		fn:   func(r T) (bool, error) { return fn(r), nil },
	}
}

// Check adapts a test that may fail. fields lists the record fields the test
// reads, so callers can validate or project before evaluation.
func Check[T any](name string, fields []string, fn func(T) (bool, error)) Predicate[T] {
	if fn == nil {
		panic(fmt.Sprintf("predicate %q: %v", name, ErrNilPredicate))
	}
	return &funcPredicate[T]{name: name, fields: fields, fn: fn}
}

type constant[T any] bool

func (c constant[T]) IsSatisfiedBy(T) (bool, error) { return bool(c), nil }

func (c constant[T]) String() string {
	if c {
		return "TRUE"
	}
	return "FALSE"
}

// True is satisfied by every record.
func True[T any]() Predicate[T] { return constant[T](true) }

// False is satisfied by no record.
func False[T any]() Predicate[T] { return constant[T](false) }

// RequiredFields returns the sorted, de-duplicated set of fields read anywhere
// in the tree rooted at p.
func RequiredFields[T any](p Predicate[T]) []string {
	set := make(map[string]struct{})
	collectFields(p, set)

	fields := make([]string, 0, len(set))
	for f := range set {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}

func collectFields[T any](p Predicate[T], set map[string]struct{}) {
	if isNil(p) {
		return
	}
	if w, ok := p.(Wrapper[T]); ok {
		collectFields(w.Unwrap(), set)
		return
	}
	if r, ok := p.(FieldRequirer); ok {
		for _, f := range r.RequiredFields() {
			set[f] = struct{}{}
		}
	}
	if c, ok := p.(Composite[T]); ok {
		for _, child := range c.Children() {
			collectFields(child, set)
		}
	}
}
