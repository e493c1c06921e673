// Package event provides the in-process event bus that decouples the
// orchestrator, agent registry, mode manager, and cost tracker from the
// subsystems that care about their activity (the real-time fan-out layer,
// the event store, logging).
//
// Components publish [Event] values without knowing who receives them, and
// subscribe without knowing who produces them.
//
// # Main Types
//
//   - [Event]: the single generic envelope every occurrence is wrapped in
//   - [Type]: the closed taxonomy of event kinds (task.*, agent.*, mode.*, cost.*, system.*)
//   - [Bus]: pub-sub dispatcher with specific, wildcard, and once subscriptions
//   - [Handler]: function type for event handlers (func(Event))
//
// # Thread Safety
//
// [Bus] is safe for concurrent use. [Bus.Publish] dispatches to every
// matching handler concurrently but blocks until all of them have
// returned, so a caller observing Publish's return can rely on every
// handler's side effects having already happened. A panicking handler is
// recovered and logged; it never prevents delivery to other handlers.
//
// # Basic Usage
//
//	bus := event.NewBus()
//
//	id, err := bus.Subscribe(event.TypeTaskCompleted, func(e event.Event) {
//	    log.Printf("task %s completed", e.AggregateID)
//	})
//
//	bus.SubscribeAll(func(e event.Event) {
//	    log.Printf("event: %s at %v", e.Type, e.Timestamp)
//	})
//
//	bus.Publish(event.TypeTaskStarted, map[string]any{"agent": "coder"},
//	    event.WithAggregate("task-1", event.AggregateTask))
//
//	bus.Unsubscribe(id)
//
// # Listener Limits
//
// Each event type (and the wildcard subscription) is capped at a
// configurable number of listeners (see [Bus.SetMaxListeners]); exceeding
// the cap returns an error rather than silently growing the subscriber
// list forever.
package event
