package catalog

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/asaidimu/go-events"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/asaidimu/go-criteria/core/filter"
	"github.com/asaidimu/go-criteria/core/predicate"
)

// Subscription is a registered event callback.
type Subscription struct {
	ID          string
	Event       QueryEventType
	Label       string
	unsubscribe func()
}

// Store holds records in insertion order. Queries evaluate against a
// snapshot taken under the read lock, so writers never block a running
// evaluation.
type Store[T any] struct {
	name    string
	mu      sync.RWMutex
	records []T
	bus     *events.TypedEventBus[QueryEvent]
	logger  *zap.Logger

	subMu         sync.Mutex
	subscriptions map[string]*Subscription
}

// NewStore creates an empty store. A nil logger disables logging.
func NewStore[T any](name string, logger *zap.Logger) (*Store[T], error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	bus, err := events.NewTypedEventBus[QueryEvent](events.DefaultConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create event bus: %w", err)
	}
	return &Store[T]{
		name:          name,
		bus:           bus,
		logger:        logger.With(zap.String("store", name)),
		subscriptions: make(map[string]*Subscription),
	}, nil
}

// Add appends records.
func (s *Store[T]) Add(records ...T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, records...)
}

// All returns a copy of every record in insertion order.
func (s *Store[T]) All() []T {
	return s.snapshot()
}

// Len returns the number of records.
func (s *Store[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func (s *Store[T]) snapshot() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]T(nil), s.records...)
}

// Query returns the records satisfying p in insertion order.
func (s *Store[T]) Query(ctx context.Context, p predicate.Predicate[T]) ([]T, error) {
	records := s.snapshot()
	return s.withEventEmission("query", queryPhase, p, len(records), func() ([]T, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return filter.Slice(records, p)
	})
}

// QueryParallel is Query evaluated by up to workers goroutines. The result
// order is the same as Query's.
func (s *Store[T]) QueryParallel(ctx context.Context, p predicate.Predicate[T], workers int) ([]T, error) {
	records := s.snapshot()
	return s.withEventEmission("query", queryPhase, p, len(records), func() ([]T, error) {
		return filter.Parallel(ctx, records, p, workers)
	})
}

// Remove deletes every record satisfying p and returns how many were
// removed. Nothing is removed if evaluation fails.
func (s *Store[T]) Remove(p predicate.Predicate[T]) (int, error) {
	// The lock is held only around the partition so event callbacks may
	// call back into the store.
	removed, err := s.withEventEmission("remove", removePhase, p, s.Len(), func() ([]T, error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		matched, rest, err := filter.Partition(s.records, p)
		if err != nil {
			return nil, err
		}
		s.records = rest
		return matched, nil
	})
	if err != nil {
		return 0, err
	}
	return len(removed), nil
}

// Subscribe registers callback for event and returns the subscription id.
func (s *Store[T]) Subscribe(event QueryEventType, label string, callback EventCallback) string {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	id := uuid.New().String()
	s.subscriptions[id] = &Subscription{
		ID:          id,
		Event:       event,
		Label:       label,
		unsubscribe: s.bus.Subscribe(string(event), callback),
	}
	s.logger.Debug("Registered subscription", zap.String("id", id), zap.String("event", string(event)))
	return id
}

// Unsubscribe removes a subscription. Unknown ids are ignored.
func (s *Store[T]) Unsubscribe(id string) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	if sub, ok := s.subscriptions[id]; ok {
		sub.unsubscribe()
		delete(s.subscriptions, id)
	}
}

// Subscriptions lists the active subscriptions.
func (s *Store[T]) Subscriptions() []Subscription {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	out := make([]Subscription, 0, len(s.subscriptions))
	for _, sub := range s.subscriptions {
		out = append(out, *sub)
	}
	return out
}

func (s *Store[T]) emitEvent(event QueryEvent) {
	if s.bus != nil {
		s.bus.Emit(string(event.Type), event)
	}
}

// withEventEmission wraps an operation with start, success and failure events.
func (s *Store[T]) withEventEmission(operation string, ph phase, p predicate.Predicate[T], scanned int, fn func() ([]T, error)) ([]T, error) {
	if p == nil {
		return nil, predicate.ErrNilPredicate
	}
	desc := predicate.Describe(p)
	startTime := time.Now()

	s.emitEvent(createEvent(ph.start, operation, s.name, desc, scanned, nil, nil, time.Time{}))

	result, err := fn()
	if err != nil {
		errStr := err.Error()
		s.emitEvent(createEvent(ph.failed, operation, s.name, desc, scanned, nil, &errStr, startTime))
		s.logger.Debug("Operation failed", zap.String("operation", operation), zap.Error(err))
		return nil, err
	}

	matched := len(result)
	s.emitEvent(createEvent(ph.success, operation, s.name, desc, scanned, &matched, nil, startTime))
	s.logger.Debug("Operation completed",
		zap.String("operation", operation),
		zap.String("predicate", desc),
		zap.Int("scanned", scanned),
		zap.Int("matched", matched),
	)
	return result, nil
}
