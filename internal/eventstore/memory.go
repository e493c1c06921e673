package eventstore

import (
	"sort"
	"sync"

	"github.com/devswarm/devswarm/internal/errors"
	"github.com/devswarm/devswarm/internal/event"
)

// InMemoryStore is a process-local [Store]. Events are retained forever;
// callers relying on unbounded retention in production should back this
// interface with a durable store instead.
type InMemoryStore struct {
	mu          sync.RWMutex
	byAggregate map[string][]event.Event
	snapshots   map[string]Snapshot
}

// NewInMemoryStore creates an empty store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		byAggregate: make(map[string][]event.Event),
		snapshots:   make(map[string]Snapshot),
	}
}

// Append adds a single event, rejecting it if its version does not
// strictly exceed the aggregate's current latest version.
func (s *InMemoryStore) Append(e event.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendLocked(e)
}

func (s *InMemoryStore) appendLocked(e event.Event) error {
	if e.AggregateID == "" {
		return errors.NewStoreError("cannot append event with empty aggregate id", errors.ErrAggregateEmpty)
	}
	existing := s.byAggregate[e.AggregateID]
	if len(existing) > 0 && e.Version <= existing[len(existing)-1].Version {
		return errors.NewStoreError("version must strictly increase", errors.ErrVersionConflict).
			WithAggregateID(e.AggregateID).WithVersion(e.Version)
	}
	s.byAggregate[e.AggregateID] = append(existing, e)
	return nil
}

// AppendBatch appends all events atomically: either every event is
// accepted or none are.
func (s *InMemoryStore) AppendBatch(events []event.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	staged := make(map[string][]event.Event, len(s.byAggregate))
	for id, evs := range s.byAggregate {
		staged[id] = append([]event.Event(nil), evs...)
	}

	for _, e := range events {
		if e.AggregateID == "" {
			return errors.NewStoreError("cannot append event with empty aggregate id", errors.ErrAggregateEmpty)
		}
		existing := staged[e.AggregateID]
		if len(existing) > 0 && e.Version <= existing[len(existing)-1].Version {
			return errors.NewStoreError("version must strictly increase", errors.ErrVersionConflict).
				WithAggregateID(e.AggregateID).WithVersion(e.Version)
		}
		staged[e.AggregateID] = append(existing, e)
	}

	s.byAggregate = staged
	return nil
}

// GetEvents returns events for aggregateID with version strictly greater
// than fromVersion, ordered by version.
func (s *InMemoryStore) GetEvents(aggregateID string, fromVersion int64) ([]event.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.byAggregate[aggregateID]
	out := make([]event.Event, 0, len(all))
	for _, e := range all {
		if e.Version > fromVersion {
			out = append(out, e)
		}
	}
	return out, nil
}

// Query returns every stored event matching filter, across all
// aggregates, ordered by timestamp, with version breaking ties between
// events that share a timestamp.
func (s *InMemoryStore) Query(filter Filter) ([]event.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []event.Event
	for _, evs := range s.byAggregate {
		for _, e := range evs {
			if filter.matches(e) {
				out = append(out, e)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Version < out[j].Version
		}
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out, nil
}

// GetLatestVersion returns the highest version recorded for aggregateID,
// or 0 if the aggregate has no events.
func (s *InMemoryStore) GetLatestVersion(aggregateID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	evs := s.byAggregate[aggregateID]
	if len(evs) == 0 {
		return 0, nil
	}
	return evs[len(evs)-1].Version, nil
}

// SaveSnapshot records snap, superseding any earlier snapshot for the same
// aggregate.
func (s *InMemoryStore) SaveSnapshot(snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[snap.AggregateID] = snap
	return nil
}

// GetSnapshot returns the most recent snapshot for aggregateID, if any.
func (s *InMemoryStore) GetSnapshot(aggregateID string) (Snapshot, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.snapshots[aggregateID]
	return snap, ok, nil
}

// RebuildState reconstructs aggregate state by starting from the latest
// snapshot (if any) and reducing every event strictly newer than the
// snapshot's version; with no snapshot it reduces from initial over the
// full history.
func (s *InMemoryStore) RebuildState(aggregateID string, reduce Reducer, initial map[string]any) (map[string]any, error) {
	snap, ok, err := s.GetSnapshot(aggregateID)
	if err != nil {
		return nil, err
	}

	state := initial
	fromVersion := int64(0)
	if ok {
		state = snap.State
		fromVersion = snap.Version
	}

	events, err := s.GetEvents(aggregateID, fromVersion)
	if err != nil {
		return nil, err
	}
	for _, e := range events {
		state = reduce(state, e)
	}
	return state, nil
}
