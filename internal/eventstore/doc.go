// Package eventstore provides an append-only, per-aggregate-versioned log
// of domain events with query, snapshot, and state-rebuild support.
//
// The store enforces optimistic concurrency: for a given aggregate id,
// appended events must carry strictly increasing versions. This is
// independent of the event [event.Bus]'s own global, bus-wide version
// counter — the bus orders publishes across the whole process, the store
// orders events within one aggregate's history.
package eventstore
