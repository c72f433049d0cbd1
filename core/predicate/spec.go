package predicate

// Spec is a fluent wrapper standing in for the `&`, `|` and `~` operators of
// languages with operator overloading:
//
//	p, err := predicate.Of(inStock).And(cheap).Or(clearance).Not().Build()
//
// Construction errors are carried along the chain and reported by Build, so a
// tree with a nil child is rejected before any record is evaluated.
type Spec[T any] struct {
	p   Predicate[T]
	err error
}

// Of starts a chain from p.
func Of[T any](p Predicate[T]) Spec[T] {
	if isNil(p) {
		return Spec[T]{err: ErrNilPredicate}
	}
	return Spec[T]{p: p}
}

// And combines the chain with q.
func (s Spec[T]) And(q Predicate[T]) Spec[T] {
	return s.combine(q, And[T])
}

// Or combines the chain with q.
func (s Spec[T]) Or(q Predicate[T]) Spec[T] {
	return s.combine(q, Or[T])
}

// Not negates the chain so far.
func (s Spec[T]) Not() Spec[T] {
	if s.err != nil {
		return s
	}
	p, err := Not(s.p)
	return Spec[T]{p: p, err: err}
}

func (s Spec[T]) combine(q Predicate[T], fn func(Predicate[T], Predicate[T]) (Predicate[T], error)) Spec[T] {
	if s.err != nil {
		return s
	}
	if other, ok := q.(Spec[T]); ok {
		if other.err != nil {
			return Spec[T]{err: other.err}
		}
		q = other.p
	}
	p, err := fn(s.p, q)
	return Spec[T]{p: p, err: err}
}

// Build returns the composed predicate or the first construction error.
func (s Spec[T]) Build() (Predicate[T], error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.p, nil
}

// IsSatisfiedBy evaluates the chain. A chain that failed to build reports its
// construction error here as well.
func (s Spec[T]) IsSatisfiedBy(record T) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	return s.p.IsSatisfiedBy(record)
}

// Unwrap returns the composed predicate, or nil if the chain failed to build.
func (s Spec[T]) Unwrap() Predicate[T] {
	return s.p
}
