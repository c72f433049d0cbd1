package predicate

import (
	"fmt"
	"reflect"
)

// Connectives reported by Composite.Connective.
const (
	ConnectiveAnd = "AND"
	ConnectiveOr  = "OR"
	ConnectiveNot = "NOT"
)

type andPredicate[T any] struct {
	children []Predicate[T]
}

// IsSatisfiedBy short-circuits on the first false child.
func (p *andPredicate[T]) IsSatisfiedBy(record T) (bool, error) {
	for _, child := range p.children {
		ok, err := child.IsSatisfiedBy(record)
		if err != nil {
			return false, fmt.Errorf("and: %w", err)
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func (p *andPredicate[T]) Connective() string        { return ConnectiveAnd }
func (p *andPredicate[T]) Children() []Predicate[T] { return p.children }

type orPredicate[T any] struct {
	children []Predicate[T]
}

// IsSatisfiedBy short-circuits on the first true child.
func (p *orPredicate[T]) IsSatisfiedBy(record T) (bool, error) {
	for _, child := range p.children {
		ok, err := child.IsSatisfiedBy(record)
		if err != nil {
			return false, fmt.Errorf("or: %w", err)
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

func (p *orPredicate[T]) Connective() string        { return ConnectiveOr }
func (p *orPredicate[T]) Children() []Predicate[T] { return p.children }

type notPredicate[T any] struct {
	child Predicate[T]
}

func (p *notPredicate[T]) IsSatisfiedBy(record T) (bool, error) {
	ok, err := p.child.IsSatisfiedBy(record)
	if err != nil {
		return false, fmt.Errorf("not: %w", err)
	}
	return !ok, nil
}

func (p *notPredicate[T]) Connective() string        { return ConnectiveNot }
func (p *notPredicate[T]) Children() []Predicate[T] { return []Predicate[T]{p.child} }

// And is satisfied when both left and right are.
func And[T any](left, right Predicate[T]) (Predicate[T], error) {
	if err := checkChildren("and", left, right); err != nil {
		return nil, err
	}
	return &andPredicate[T]{children: []Predicate[T]{left, right}}, nil
}

// Or is satisfied when left or right is.
func Or[T any](left, right Predicate[T]) (Predicate[T], error) {
	if err := checkChildren("or", left, right); err != nil {
		return nil, err
	}
	return &orPredicate[T]{children: []Predicate[T]{left, right}}, nil
}

// Not inverts child.
func Not[T any](child Predicate[T]) (Predicate[T], error) {
	if err := checkChildren("not", child); err != nil {
		return nil, err
	}
	return &notPredicate[T]{child: child}, nil
}

// All is the n-ary form of And. With no children it is satisfied by every record.
func All[T any](children ...Predicate[T]) (Predicate[T], error) {
	if len(children) == 0 {
		return True[T](), nil
	}
	if err := checkChildren("all", children...); err != nil {
		return nil, err
	}
	if len(children) == 1 {
		return children[0], nil
	}
	return &andPredicate[T]{children: append([]Predicate[T](nil), children...)}, nil
}

// Any is the n-ary form of Or. With no children it is satisfied by no record.
func Any[T any](children ...Predicate[T]) (Predicate[T], error) {
	if len(children) == 0 {
		return False[T](), nil
	}
	if err := checkChildren("any", children...); err != nil {
		return nil, err
	}
	if len(children) == 1 {
		return children[0], nil
	}
	return &orPredicate[T]{children: append([]Predicate[T](nil), children...)}, nil
}

// MustAnd is like And but panics on a nil child.
func MustAnd[T any](left, right Predicate[T]) Predicate[T] {
	return must(And(left, right))
}

// MustOr is like Or but panics on a nil child.
func MustOr[T any](left, right Predicate[T]) Predicate[T] {
	return must(Or(left, right))
}

// MustNot is like Not but panics on a nil child.
func MustNot[T any](child Predicate[T]) Predicate[T] {
	return must(Not(child))
}

func must[T any](p Predicate[T], err error) Predicate[T] {
	if err != nil {
		panic(err)
	}
	return p
}

func checkChildren[T any](name string, children ...Predicate[T]) error {
	for i, child := range children {
		if isNil(child) {
			return fmt.Errorf("%s: child %d: %w", name, i, ErrNilPredicate)
		}
	}
	return nil
}

// isNil also catches typed nil pointers stored in the interface.
func isNil(p any) bool {
	if p == nil {
		return true
	}
	v := reflect.ValueOf(p)
	switch v.Kind() {
	case reflect.Ptr, reflect.Func, reflect.Map, reflect.Slice, reflect.Interface:
		return v.IsNil()
	}
	return false
}

// ConnectiveXor is reported by OneOf.
const ConnectiveXor = "XOR"

type oneOfPredicate[T any] struct {
	children []Predicate[T]
}

// IsSatisfiedBy stops as soon as a second child is satisfied.
func (p *oneOfPredicate[T]) IsSatisfiedBy(record T) (bool, error) {
	matched := 0
	for _, child := range p.children {
		ok, err := child.IsSatisfiedBy(record)
		if err != nil {
			return false, fmt.Errorf("xor: %w", err)
		}
		if ok {
			matched++
			if matched > 1 {
				return false, nil
			}
		}
	}
	return matched == 1, nil
}

func (p *oneOfPredicate[T]) Connective() string        { return ConnectiveXor }
func (p *oneOfPredicate[T]) Children() []Predicate[T] { return p.children }

// OneOf is satisfied when exactly one child is. With no children it is
// satisfied by no record.
func OneOf[T any](children ...Predicate[T]) (Predicate[T], error) {
	if len(children) == 0 {
		return False[T](), nil
	}
	if err := checkChildren("oneof", children...); err != nil {
		return nil, err
	}
	return &oneOfPredicate[T]{children: append([]Predicate[T](nil), children...)}, nil
}
