package event

import (
	"log"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/devswarm/devswarm/internal/errors"
)

// defaultMaxListeners caps the number of subscriptions per event type (and
// for wildcard subscriptions) to catch runaway subscription leaks.
const defaultMaxListeners = 64

// Handler is a function that handles an event.
type Handler func(Event)

// subscription represents a registered event handler.
type subscription struct {
	id        string
	eventType string
	handler   Handler
	once      bool
}

// Bus is a pub-sub event bus with wildcard subscriptions. Publish fans
// handlers for a single event out across goroutines but blocks until every
// handler has returned, so callers can rely on all side effects of a
// publish having settled once it returns.
type Bus struct {
	mu            sync.RWMutex
	subscriptions map[string][]subscription // eventType -> subscriptions
	nextID        atomic.Uint64
	version       atomic.Int64
	maxListeners  int
}

// NewBus creates a new event bus with the default listener cap.
func NewBus() *Bus {
	return &Bus{
		subscriptions: make(map[string][]subscription),
		maxListeners:  defaultMaxListeners,
	}
}

// SetMaxListeners overrides the per-event-type subscription cap. A value of
// 0 disables the cap.
func (b *Bus) SetMaxListeners(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.maxListeners = n
}

// Subscribe registers a handler for a specific event type. Returns a
// subscription ID that can be used to unsubscribe.
func (b *Bus) Subscribe(eventType Type, handler Handler) (string, error) {
	return b.subscribe(string(eventType), handler, false)
}

// SubscribeAll registers a handler for all event types. The handler will be
// called for every published event. Returns a subscription ID that can be
// used to unsubscribe.
func (b *Bus) SubscribeAll(handler Handler) (string, error) {
	return b.subscribe(wildcard, handler, false)
}

// Once registers a handler that is automatically unsubscribed after its
// first invocation.
func (b *Bus) Once(eventType Type, handler Handler) (string, error) {
	return b.subscribe(string(eventType), handler, true)
}

func (b *Bus) subscribe(eventType string, handler Handler, once bool) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.maxListeners > 0 && len(b.subscriptions[eventType]) >= b.maxListeners {
		return "", errors.ErrMaxListeners
	}

	id := b.generateID()
	sub := subscription{
		id:        id,
		eventType: eventType,
		handler:   handler,
		once:      once,
	}

	b.subscriptions[eventType] = append(b.subscriptions[eventType], sub)
	return id, nil
}

// Unsubscribe removes a subscription by ID. Returns true if the
// subscription was found and removed.
func (b *Bus) Unsubscribe(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.unsubscribeLocked(id)
}

func (b *Bus) unsubscribeLocked(id string) bool {
	for eventType, subs := range b.subscriptions {
		for i, sub := range subs {
			if sub.id == id {
				b.subscriptions[eventType] = append(subs[:i], subs[i+1:]...)
				return true
			}
		}
	}
	return false
}

// Publish builds an Event from the given type, payload, and options, stamps
// it with a bus-wide monotonic version and the current time, and dispatches
// it to every matching handler. Specific-type handlers and wildcard
// handlers run concurrently with one another; Publish blocks until all of
// them have returned, so a caller observing Publish's return knows every
// handler has already run (or panicked and been recovered).
func (b *Bus) Publish(eventType Type, data map[string]any, opts ...PublishOption) Event {
	evt := Event{
		ID:        b.generateID(),
		Type:      eventType,
		Data:      data,
		Version:   b.version.Add(1),
		Timestamp: time.Now(),
	}
	for _, opt := range opts {
		opt(&evt)
	}

	b.mu.Lock()
	specificSubs := make([]subscription, len(b.subscriptions[string(eventType)]))
	copy(specificSubs, b.subscriptions[string(eventType)])

	wildcardSubs := make([]subscription, len(b.subscriptions[wildcard]))
	copy(wildcardSubs, b.subscriptions[wildcard])

	for _, sub := range specificSubs {
		if sub.once {
			b.unsubscribeLocked(sub.id)
		}
	}
	for _, sub := range wildcardSubs {
		if sub.once {
			b.unsubscribeLocked(sub.id)
		}
	}
	b.mu.Unlock()

	var wg sync.WaitGroup
	for _, sub := range specificSubs {
		wg.Go(func() { b.safeCall(sub.handler, evt) })
	}
	for _, sub := range wildcardSubs {
		wg.Go(func() { b.safeCall(sub.handler, evt) })
	}
	wg.Wait()

	return evt
}

// safeCall invokes a handler and recovers from any panics. Panics are
// logged with stack traces to aid debugging while ensuring one misbehaving
// handler cannot block event delivery to other handlers.
func (b *Bus) safeCall(handler Handler, evt Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("ERROR: event handler panicked for event %s: %v\n%s",
				evt.Type, r, debug.Stack())
		}
	}()
	handler(evt)
}

// generateID creates a unique subscription/event ID.
func (b *Bus) generateID() string {
	id := b.nextID.Add(1)
	return string(rune('a'+id%26)) + string(rune('0'+id/26%10)) + string(rune('a'+id/260%26))
}

// Clear removes all subscriptions.
func (b *Bus) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscriptions = make(map[string][]subscription)
}

// SubscriptionCount returns the total number of active subscriptions.
func (b *Bus) SubscriptionCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	count := 0
	for _, subs := range b.subscriptions {
		count += len(subs)
	}
	return count
}
