package filter

import (
	"context"
	"errors"
	"slices"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asaidimu/go-criteria/core/predicate"
)

var errOdd = errors.New("odd record")

func even() predicate.Predicate[int] {
	return predicate.Func("even", func(n int) bool { return n%2 == 0 })
}

// failAt errors on every record equal to bad.
func failAt(bad ...int) predicate.Predicate[int] {
	return predicate.Check("fail", nil, func(n int) (bool, error) {
		if slices.Contains(bad, n) {
			return false, errOdd
		}
		return true, nil
	})
}

func sequence(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func TestSlice(t *testing.T) {
	t.Run("keeps matches in input order", func(t *testing.T) {
		got, err := Slice([]int{5, 2, 8, 3, 4}, even())
		require.NoError(t, err)
		assert.Equal(t, []int{2, 8, 4}, got)
	})

	t.Run("is idempotent", func(t *testing.T) {
		once, err := Slice(sequence(20), even())
		require.NoError(t, err)
		twice, err := Slice(once, even())
		require.NoError(t, err)
		assert.Equal(t, once, twice)
	})

	t.Run("empty input gives empty output", func(t *testing.T) {
		got, err := Slice(nil, even())
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("first error aborts with its index", func(t *testing.T) {
		got, err := Slice([]int{0, 1, 2, 3}, failAt(2, 3))
		assert.Nil(t, got)

		var recErr *RecordError
		require.True(t, errors.As(err, &recErr))
		assert.Equal(t, 2, recErr.Index)
		assert.ErrorIs(t, err, errOdd)
		assert.EqualError(t, err, "record 2: odd record")
	})

	t.Run("nil predicate", func(t *testing.T) {
		_, err := Slice[int]([]int{1}, nil)
		assert.ErrorIs(t, err, ErrNilPredicate)
	})
}

func TestSeq(t *testing.T) {
	t.Run("yields matches lazily", func(t *testing.T) {
		var evaluated atomic.Int32
		p := predicate.Func("counted even", func(n int) bool {
			evaluated.Add(1)
			return n%2 == 0
		})

		var got []int
		for n, err := range Seq(slices.Values(sequence(100)), p) {
			require.NoError(t, err)
			got = append(got, n)
			if len(got) == 2 {
				break
			}
		}
		assert.Equal(t, []int{0, 2}, got)
		assert.Equal(t, int32(3), evaluated.Load())
	})

	t.Run("stops at the first error", func(t *testing.T) {
		var got []int
		var errs []error
		for n, err := range Seq(slices.Values([]int{0, 1, 2, 3}), failAt(2)) {
			if err != nil {
				errs = append(errs, err)
				continue
			}
			got = append(got, n)
		}
		assert.Equal(t, []int{0, 1}, got)
		require.Len(t, errs, 1)

		var recErr *RecordError
		require.True(t, errors.As(errs[0], &recErr))
		assert.Equal(t, 2, recErr.Index)
	})

	t.Run("nil predicate", func(t *testing.T) {
		for _, err := range Seq[int](slices.Values([]int{1}), nil) {
			assert.ErrorIs(t, err, ErrNilPredicate)
		}
	})
}

func TestPartition(t *testing.T) {
	matched, rest, err := Partition([]int{1, 2, 3, 4, 5}, even())
	require.NoError(t, err)
	assert.Equal(t, []int{2, 4}, matched)
	assert.Equal(t, []int{1, 3, 5}, rest)

	_, _, err = Partition([]int{1, 2}, failAt(1))
	assert.ErrorIs(t, err, errOdd)

	_, _, err = Partition[int](nil, nil)
	assert.ErrorIs(t, err, ErrNilPredicate)
}

func TestCount(t *testing.T) {
	n, err := Count(sequence(10), even())
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	_, err = Count([]int{4, 5}, failAt(5))
	var recErr *RecordError
	require.True(t, errors.As(err, &recErr))
	assert.Equal(t, 1, recErr.Index)
}

func TestParallel(t *testing.T) {
	ctx := context.Background()

	t.Run("matches Slice on large inputs", func(t *testing.T) {
		records := sequence(1000)
		want, err := Slice(records, even())
		require.NoError(t, err)

		for _, workers := range []int{0, 1, 3, 8, 64} {
			got, err := Parallel(ctx, records, even(), workers)
			require.NoError(t, err)
			assert.Equal(t, want, got, "workers=%d", workers)
		}
	})

	t.Run("small inputs run inline", func(t *testing.T) {
		got, err := Parallel(ctx, []int{1, 2, 3}, even(), 8)
		require.NoError(t, err)
		assert.Equal(t, []int{2}, got)
	})

	t.Run("reports the first failure within a chunk", func(t *testing.T) {
		records := sequence(1000)
		_, err := Parallel(ctx, records, failAt(10, 20), 4)

		var recErr *RecordError
		require.True(t, errors.As(err, &recErr))
		assert.Equal(t, 10, recErr.Index)
		assert.ErrorIs(t, err, errOdd)
	})

	t.Run("cancelled context", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		_, err := Parallel(cancelled, sequence(1000), even(), 4)
		assert.ErrorIs(t, err, context.Canceled)

		_, err = Parallel(cancelled, []int{1}, even(), 1)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("nil predicate", func(t *testing.T) {
		_, err := Parallel[int](ctx, []int{1}, nil, 2)
		assert.ErrorIs(t, err, ErrNilPredicate)
	})
}
