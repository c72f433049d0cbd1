// Package filter applies a predicate tree to record sequences. Every function
// here is a stable filter: matching records keep their original relative
// order. The tree is re-evaluated for each record with no caching between
// records, and the first evaluation error aborts the whole operation.
package filter

import (
	"fmt"
	"iter"

	"github.com/asaidimu/go-criteria/core/predicate"
)

// ErrNilPredicate is returned when no predicate is supplied.
var ErrNilPredicate = predicate.ErrNilPredicate

// RecordError identifies the record whose evaluation aborted a filter.
type RecordError struct {
	Index int
	Err   error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("record %d: %v", e.Index, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// Slice returns the records satisfying p, in input order.
func Slice[T any](records []T, p predicate.Predicate[T]) ([]T, error) {
	if p == nil {
		return nil, ErrNilPredicate
	}

	result := make([]T, 0, len(records))
	for i, record := range records {
		ok, err := p.IsSatisfiedBy(record)
		if err != nil {
			return nil, &RecordError{Index: i, Err: err}
		}
		if ok {
			result = append(result, record)
		}
	}
	return result, nil
}

// Seq lazily yields the records satisfying p. An evaluation error is yielded
// once, with the zero record, and ends the sequence.
func Seq[T any](records iter.Seq[T], p predicate.Predicate[T]) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T
		if p == nil {
			yield(zero, ErrNilPredicate)
			return
		}

		i := 0
		for record := range records {
			ok, err := p.IsSatisfiedBy(record)
			if err != nil {
				yield(zero, &RecordError{Index: i, Err: err})
				return
			}
			i++
			if ok && !yield(record, nil) {
				return
			}
		}
	}
}

// Partition splits records into those satisfying p and the rest, both stable.
func Partition[T any](records []T, p predicate.Predicate[T]) (matched, rest []T, err error) {
	if p == nil {
		return nil, nil, ErrNilPredicate
	}

	matched = make([]T, 0, len(records))
	rest = make([]T, 0, len(records))
	for i, record := range records {
		ok, err := p.IsSatisfiedBy(record)
		if err != nil {
			return nil, nil, &RecordError{Index: i, Err: err}
		}
		if ok {
			matched = append(matched, record)
		} else {
			rest = append(rest, record)
		}
	}
	return matched, rest, nil
}

// Count returns how many records satisfy p.
func Count[T any](records []T, p predicate.Predicate[T]) (int, error) {
	if p == nil {
		return 0, ErrNilPredicate
	}

	n := 0
	for i, record := range records {
		ok, err := p.IsSatisfiedBy(record)
		if err != nil {
			return 0, &RecordError{Index: i, Err: err}
		}
		if ok {
			n++
		}
	}
	return n, nil
}
