package eventstore

import (
	"time"

	"github.com/devswarm/devswarm/internal/event"
)

// Filter narrows a Query to a subset of stored events. A zero-value field
// is treated as unconstrained.
type Filter struct {
	AggregateID   string
	AggregateType event.AggregateType
	Type          event.Type
	Since         time.Time
}

func (f Filter) matches(e event.Event) bool {
	if f.AggregateID != "" && e.AggregateID != f.AggregateID {
		return false
	}
	if f.AggregateType != "" && e.AggregateType != f.AggregateType {
		return false
	}
	if f.Type != "" && e.Type != f.Type {
		return false
	}
	if !f.Since.IsZero() && e.Timestamp.Before(f.Since) {
		return false
	}
	return true
}

// Snapshot is a serialized aggregate state captured at a specific version,
// used to shorten replay.
type Snapshot struct {
	AggregateID   string
	AggregateType event.AggregateType
	Version       int64
	State         map[string]any
	Timestamp     time.Time
}

// Reducer folds one event into an accumulated aggregate state.
type Reducer func(state map[string]any, e event.Event) map[string]any

// Store is the abstract event-store contract. [InMemoryStore] is the
// concrete implementation used by tests and the default single-process
// deployment; a NATS JetStream-backed implementation can satisfy the same
// contract for multi-process fan-out.
type Store interface {
	Append(e event.Event) error
	AppendBatch(events []event.Event) error
	GetEvents(aggregateID string, fromVersion int64) ([]event.Event, error)
	Query(filter Filter) ([]event.Event, error)
	GetLatestVersion(aggregateID string) (int64, error)
	SaveSnapshot(s Snapshot) error
	GetSnapshot(aggregateID string) (Snapshot, bool, error)
	RebuildState(aggregateID string, reduce Reducer, initial map[string]any) (map[string]any, error)
}

var _ Store = (*InMemoryStore)(nil)
