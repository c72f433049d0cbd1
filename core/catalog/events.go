package catalog

import (
	"context"
	"time"
)

// QueryEventType names the events a Store emits.
type QueryEventType string

const (
	QueryStart    QueryEventType = "query:start"
	QuerySuccess  QueryEventType = "query:success"
	QueryFailed   QueryEventType = "query:failed"
	RemoveStart   QueryEventType = "remove:start"
	RemoveSuccess QueryEventType = "remove:success"
	RemoveFailed  QueryEventType = "remove:failed"
)

// QueryEvent is emitted around every query and removal.
type QueryEvent struct {
	Type      QueryEventType `json:"type"`
	Timestamp int64          `json:"timestamp"` // Unix milliseconds.
	Operation string         `json:"operation"`
	Store     string         `json:"store"`
	Predicate string         `json:"predicate"`
	Scanned   int            `json:"scanned"`
	Matched   *int           `json:"matched,omitempty"`
	Error     *string        `json:"error,omitempty"`
	Duration  *int64         `json:"duration,omitempty"` // Milliseconds, on success and failure.
}

// EventCallback receives store events.
type EventCallback func(ctx context.Context, event QueryEvent) error

type phase struct {
	start, success, failed QueryEventType
}

var (
	queryPhase  = phase{QueryStart, QuerySuccess, QueryFailed}
	removePhase = phase{RemoveStart, RemoveSuccess, RemoveFailed}
)

func createEvent(eventType QueryEventType, operation, store, pred string, scanned int, matched *int, err *string, startTime time.Time) QueryEvent {
	var duration *int64
	if !startTime.IsZero() {
		d := time.Since(startTime).Milliseconds()
		duration = &d
	}
	return QueryEvent{
		Type:      eventType,
		Timestamp: time.Now().UnixMilli(),
		Operation: operation,
		Store:     store,
		Predicate: pred,
		Scanned:   scanned,
		Matched:   matched,
		Error:     err,
		Duration:  duration,
	}
}
