package filter

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/asaidimu/go-criteria/core/predicate"
)

// minChunk keeps tiny inputs from being split across goroutines.
const minChunk = 64

// Parallel evaluates p over contiguous chunks of records concurrently and
// gathers the matches back into input order, so its result equals Slice's.
// The predicate tree is shared read-only by every worker. workers <= 0 uses
// GOMAXPROCS.
//
// When several records fail, the error with the lowest index among the chunks
// that got that far is returned; remaining chunks are cancelled.
func Parallel[T any](ctx context.Context, records []T, p predicate.Predicate[T], workers int) ([]T, error) {
	if p == nil {
		return nil, ErrNilPredicate
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if limit := (len(records) + minChunk - 1) / minChunk; workers > limit {
		workers = limit
	}
	if workers <= 1 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return Slice(records, p)
	}

	matched := make([]bool, len(records))
	failures := make([]*RecordError, workers)
	chunk := (len(records) + workers - 1) / workers

	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		start := w * chunk
		end := min(start+chunk, len(records))
		if start >= end {
			break
		}
		g.Go(func() error {
			for i := start; i < end; i++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				ok, err := p.IsSatisfiedBy(records[i])
				if err != nil {
					failures[w] = &RecordError{Index: i, Err: err}
					return failures[w]
				}
				matched[i] = ok
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		for _, failure := range failures {
			if failure != nil {
				return nil, failure
			}
		}
		return nil, err
	}

	result := make([]T, 0, len(records))
	for i, ok := range matched {
		if ok {
			result = append(result, records[i])
		}
	}
	return result, nil
}
