package catalog

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/asaidimu/go-criteria/core/predicate"
)

func newTestStore(t *testing.T) *Store[Item] {
	t.Helper()
	store, err := NewStore[Item]("products", zap.NewNop())
	require.NoError(t, err)
	store.Add(
		NewItem("Laptop", 1500, "Electronics", 5),
		NewItem("Phone", 800, "Electronics", 0),
		NewItem("Shirt", 100, "Fashion", 20),
	)
	return store
}

func itemNames(items []Item) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.Name
	}
	return out
}

// recorder collects events delivered to a subscription.
type recorder struct {
	mu     sync.Mutex
	events []QueryEvent
}

func (r *recorder) callback(_ context.Context, event QueryEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recorder) snapshot() []QueryEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]QueryEvent(nil), r.events...)
}

func TestStore_Query(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	tests := []struct {
		name     string
		spec     predicate.Spec[Item]
		expected []string
	}{
		{
			name:     "electronics in stock",
			spec:     predicate.Of(InCategory("Electronics")).And(InStock()),
			expected: []string{"Laptop"},
		},
		{
			name:     "affordable or in stock",
			spec:     predicate.Of(PriceAtMost(1000)).Or(InStock()),
			expected: []string{"Laptop", "Phone", "Shirt"},
		},
		{
			name:     "not electronics",
			spec:     predicate.Of(InCategory("Electronics")).Not(),
			expected: []string{"Shirt"},
		},
		{
			name:     "premium",
			spec:     predicate.Of(PriceAbove(1000)),
			expected: []string{"Laptop"},
		},
		{
			name:     "nothing",
			spec:     predicate.Of(InCategory("Garden")),
			expected: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := tt.spec.Build()
			require.NoError(t, err)

			got, err := store.Query(ctx, p)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, itemNames(got))

			parallel, err := store.QueryParallel(ctx, p, 4)
			require.NoError(t, err)
			assert.Equal(t, got, parallel)
		})
	}
}

func TestStore_QueryErrors(t *testing.T) {
	store := newTestStore(t)

	t.Run("nil predicate", func(t *testing.T) {
		_, err := store.Query(context.Background(), nil)
		assert.ErrorIs(t, err, predicate.ErrNilPredicate)
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := store.Query(ctx, InStock())
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("evaluation error", func(t *testing.T) {
		boom := errors.New("boom")
		p := predicate.Check("boom", nil, func(Item) (bool, error) { return false, boom })
		_, err := store.Query(context.Background(), p)
		assert.ErrorIs(t, err, boom)
	})
}

func TestStore_Remove(t *testing.T) {
	t.Run("removes matches and keeps order", func(t *testing.T) {
		store := newTestStore(t)
		n, err := store.Remove(InCategory("Electronics"))
		require.NoError(t, err)
		assert.Equal(t, 2, n)
		assert.Equal(t, []string{"Shirt"}, itemNames(store.All()))
	})

	t.Run("failed evaluation removes nothing", func(t *testing.T) {
		store := newTestStore(t)
		p := predicate.Check("fails on phone", nil, func(i Item) (bool, error) {
			if i.Name == "Phone" {
				return false, errors.New("cannot decide")
			}
			return true, nil
		})
		n, err := store.Remove(p)
		require.Error(t, err)
		assert.Zero(t, n)
		assert.Equal(t, 3, store.Len())
	})
}

func TestStore_Events(t *testing.T) {
	store := newTestStore(t)
	rec := &recorder{}
	store.Subscribe(QueryStart, "start", rec.callback)
	store.Subscribe(QuerySuccess, "success", rec.callback)
	store.Subscribe(QueryFailed, "failed", rec.callback)

	p, err := predicate.Of(InCategory("Electronics")).And(InStock()).Build()
	require.NoError(t, err)
	_, err = store.Query(context.Background(), p)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return len(rec.snapshot()) == 2 }, time.Second, 10*time.Millisecond)

	var success QueryEvent
	for _, ev := range rec.snapshot() {
		assert.Equal(t, "products", ev.Store)
		assert.Equal(t, "query", ev.Operation)
		assert.Equal(t, `(category eq "Electronics" AND stock gt 0)`, ev.Predicate)
		assert.Equal(t, 3, ev.Scanned)
		if ev.Type == QuerySuccess {
			success = ev
		}
	}
	require.Equal(t, QuerySuccess, success.Type)
	require.NotNil(t, success.Matched)
	assert.Equal(t, 1, *success.Matched)
	assert.NotNil(t, success.Duration)
	assert.Nil(t, success.Error)

	t.Run("failures carry the error", func(t *testing.T) {
		discount := predicate.Check("discount gt 0", []string{"discount"}, func(Item) (bool, error) {
			return false, errors.New("missing field")
		})
		_, err := store.Query(context.Background(), discount)
		require.Error(t, err)

		require.Eventually(t, func() bool {
			for _, ev := range rec.snapshot() {
				if ev.Type == QueryFailed {
					return ev.Error != nil && *ev.Error == "record 0: missing field"
				}
			}
			return false
		}, time.Second, 10*time.Millisecond)
	})
}

func TestStore_RemoveEvents(t *testing.T) {
	store := newTestStore(t)
	rec := &recorder{}
	store.Subscribe(RemoveSuccess, "removed", rec.callback)

	_, err := store.Remove(InStock())
	require.NoError(t, err)

	require.Eventually(t, func() bool { return len(rec.snapshot()) == 1 }, time.Second, 10*time.Millisecond)
	ev := rec.snapshot()[0]
	assert.Equal(t, RemoveSuccess, ev.Type)
	assert.Equal(t, "remove", ev.Operation)
	assert.Equal(t, 2, *ev.Matched)
}

func TestStore_Unsubscribe(t *testing.T) {
	store := newTestStore(t)
	kept := &recorder{}
	dropped := &recorder{}

	store.Subscribe(QuerySuccess, "kept", kept.callback)
	id := store.Subscribe(QuerySuccess, "dropped", dropped.callback)
	require.Len(t, store.Subscriptions(), 2)

	store.Unsubscribe(id)
	store.Unsubscribe("unknown")
	subs := store.Subscriptions()
	require.Len(t, subs, 1)
	assert.Equal(t, "kept", subs[0].Label)
	assert.Equal(t, QuerySuccess, subs[0].Event)

	_, err := store.Query(context.Background(), InStock())
	require.NoError(t, err)

	require.Eventually(t, func() bool { return len(kept.snapshot()) == 1 }, time.Second, 10*time.Millisecond)
	assert.Empty(t, dropped.snapshot())
}

func TestItemDocument(t *testing.T) {
	item := NewItem("Laptop", 1500, "Electronics", 5)
	assert.NotEmpty(t, item.ID)

	doc, err := ItemDocument(item)
	require.NoError(t, err)
	assert.Equal(t, "Laptop", doc["name"])
	assert.Equal(t, item.ID, doc["id"])

	back, err := ItemFromDocument(doc)
	require.NoError(t, err)
	assert.Equal(t, item, back)
}

func TestItemSchema(t *testing.T) {
	sc := ItemSchema()
	assert.Equal(t, []string{"category", "id", "name", "price", "stock"}, sc.FieldNames())
	assert.True(t, sc.FindField("stock").Required)
}
