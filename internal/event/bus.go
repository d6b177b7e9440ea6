package event

import (
	"fmt"
	"log"
	"runtime/debug"
	"sync"
	"sync/atomic"
)

// Handler consumes one published event.
type Handler func(Event)

// entry is one registered handler together with the event kind it
// listens for. Kind "*" matches every kind in Kinds().
type entry struct {
	id      string
	kind    string
	handler Handler
}

// Bus is a synchronous pub-sub bus over the coordinator's event kinds.
//
// Handlers run on the publisher's goroutine. Kind-specific handlers fire
// before wildcard handlers; within each group, registration order is
// preserved. Handlers must not call back into mutating coordinator
// operations; doing so is a contract violation and may deadlock.
type Bus struct {
	mu      sync.RWMutex
	entries []entry
	nextID  atomic.Uint64
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers a handler for one event kind ("*" for all kinds).
// Returns a subscription id usable with Unsubscribe.
func (b *Bus) Subscribe(kind string, handler Handler) string {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := fmt.Sprintf("sub-%d", b.nextID.Add(1))
	b.entries = append(b.entries, entry{id: id, kind: kind, handler: handler})
	return id
}

// SubscribeAll registers a handler for every event kind.
// Returns a subscription id usable with Unsubscribe.
func (b *Bus) SubscribeAll(handler Handler) string {
	return b.Subscribe("*", handler)
}

// Unsubscribe removes a subscription by id.
// Returns true if the subscription was found and removed.
func (b *Bus) Unsubscribe(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, e := range b.entries {
		if e.id == id {
			b.entries = append(b.entries[:i], b.entries[i+1:]...)
			return true
		}
	}
	return false
}

// Publish delivers an event: first to the handlers subscribed to its
// kind, then to wildcard handlers, each group in registration order.
// If a handler panics, the panic is logged, recovered, and publishing
// continues to the remaining handlers.
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	snapshot := make([]entry, len(b.entries))
	copy(snapshot, b.entries)
	b.mu.RUnlock()

	kind := event.EventType()
	for _, e := range snapshot {
		if e.kind == kind {
			b.safeCall(e.handler, event)
		}
	}
	for _, e := range snapshot {
		if e.kind == "*" {
			b.safeCall(e.handler, event)
		}
	}
}

// safeCall invokes a handler and recovers from any panics.
// Panics are logged with stack traces so one misbehaving handler cannot
// block event delivery to other handlers.
func (b *Bus) safeCall(handler Handler, event Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("ERROR: event handler panicked for event %s: %v\n%s",
				event.EventType(), r, debug.Stack())
		}
	}()
	handler(event)
}

// Clear removes all subscriptions.
func (b *Bus) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = nil
}

// SubscriptionCount returns the number of live subscriptions.
func (b *Bus) SubscriptionCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries)
}
