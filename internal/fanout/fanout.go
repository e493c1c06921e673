// Package fanout implements spec §6's real-time channel: per-subscriber
// buffered delivery of bus events with backpressure-driven drop, sitting
// on top of the process-wide internal/event.Bus.
package fanout

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/devswarm/devswarm/internal/event"
	"github.com/devswarm/devswarm/internal/logging"
)

// DefaultBufferSize is the per-subscriber channel depth used when Hub is
// constructed with a non-positive size.
const DefaultBufferSize = 64

// Filter narrows a subscription to a channel name, per spec §6: an event
// type, `task:<id>`, or the literal `tasks` wildcard. A zero-value Filter
// matches every event.
type Filter struct {
	// Channel is "" (all), "tasks" (all), "task:<id>", or a bare event type
	// string such as "task.completed".
	Channel string
}

func (f Filter) matches(e event.Event) bool {
	switch {
	case f.Channel == "", f.Channel == "tasks":
		return true
	case strings.HasPrefix(f.Channel, "task:"):
		return e.AggregateID == strings.TrimPrefix(f.Channel, "task:")
	default:
		return string(e.Type) == f.Channel
	}
}

type subscriber struct {
	id     string
	ch     chan event.Event
	filter Filter
}

// Hub fans every bus event out to subscriber channels, honoring each
// subscriber's own backpressure threshold independently: a slow
// subscriber never blocks delivery to the others.
type Hub struct {
	mu         sync.Mutex
	subs       map[string]*subscriber
	bufferSize int
	bus        *event.Bus
	busSubID   string
	logger     *logging.Logger
	nextID     atomic.Uint64
}

// NewHub creates a Hub listening to every event published on bus.
// bufferSize is the per-subscriber channel depth (DefaultBufferSize if
// non-positive); logger may be nil.
func NewHub(bus *event.Bus, bufferSize int, logger *logging.Logger) *Hub {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	if logger == nil {
		logger = logging.NopLogger()
	}
	h := &Hub{
		subs:       make(map[string]*subscriber),
		bufferSize: bufferSize,
		bus:        bus,
		logger:     logger,
	}
	id, err := bus.SubscribeAll(h.dispatch)
	if err == nil {
		h.busSubID = id
	}
	return h
}

// Subscribe registers filter and returns a receive-only channel of
// matching events plus an unsubscribe func. The caller must eventually
// call unsubscribe (or drain until the channel closes from an overflow
// drop) to release the subscription.
func (h *Hub) Subscribe(filter Filter) (<-chan event.Event, func()) {
	h.mu.Lock()
	id := h.generateID()
	ch := make(chan event.Event, h.bufferSize)
	h.subs[id] = &subscriber{id: id, ch: ch, filter: filter}
	h.mu.Unlock()

	return ch, func() { h.unsubscribe(id) }
}

func (h *Hub) unsubscribe(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if s, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(s.ch)
	}
}

// dispatch is the bus wildcard handler: it snapshots matching subscribers
// under the lock, then delivers outside it so one slow subscriber's
// full-channel write never blocks the snapshot of the others.
func (h *Hub) dispatch(e event.Event) {
	h.mu.Lock()
	matched := make([]*subscriber, 0, len(h.subs))
	for _, s := range h.subs {
		if s.filter.matches(e) {
			matched = append(matched, s)
		}
	}
	h.mu.Unlock()

	for _, s := range matched {
		select {
		case s.ch <- e:
		default:
			h.dropOverflowing(s)
		}
	}
}

// dropOverflowing removes a subscriber whose buffer is full, per spec
// §6's "slowest subscribers are dropped with a final overflow notice".
// The notice reuses the closed taxonomy's system.error type rather than
// inventing a new event kind.
func (h *Hub) dropOverflowing(s *subscriber) {
	h.mu.Lock()
	if _, ok := h.subs[s.id]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.subs, s.id)
	h.mu.Unlock()

	h.logger.Warn("dropping subscriber: backpressure buffer full", "subscriber_id", s.id)
	notice := event.Event{
		Type: event.TypeSystemError,
		Data: map[string]any{"reason": "overflow", "subscriber_id": s.id},
	}
	select {
	case s.ch <- notice:
	default:
		// Buffer is still full of unread events; evict the oldest one so
		// the overflow notice is guaranteed to be the subscriber's last
		// delivered message rather than silently lost.
		select {
		case <-s.ch:
		default:
		}
		select {
		case s.ch <- notice:
		default:
		}
	}
	close(s.ch)
}

func (h *Hub) generateID() string {
	return fmt.Sprintf("sub-%d", h.nextID.Add(1))
}

// SubscriberCount returns the number of live subscriptions.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close unsubscribes from the bus and closes every live subscriber
// channel, used during process shutdown.
func (h *Hub) Close() {
	if h.busSubID != "" {
		h.bus.Unsubscribe(h.busSubID)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, s := range h.subs {
		close(s.ch)
		delete(h.subs, id)
	}
}
