// Package events carries booking change notifications from the external
// push channel into the engine. The transport itself is out of scope; this
// is the in-process fan-out the host feeds decoded events into.
package events

import (
	"sync"
	"time"
)

// Type is the closed set of push-update notifications the engine reacts to.
type Type string

const (
	BookingNew          Type = "booking:new"
	BookingCancelled    Type = "booking:cancelled"
	AvailabilityChanged Type = "availability:changed"
)

// Valid reports whether the type is a known notification.
func (t Type) Valid() bool {
	switch t {
	case BookingNew, BookingCancelled, AvailabilityChanged:
		return true
	}
	return false
}

// Event is one notification. The engine only needs the practitioner it
// concerns; everything else is informational.
type Event struct {
	ID             string    `json:"id"`
	Type           Type      `json:"type"`
	PractitionerID string    `json:"practitioner_id"`
	BookingID      string    `json:"booking_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Handler reacts to an event.
type Handler func(Event)

// Bus is a minimal in-process pub/sub for events.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[Type][]Handler
}

// NewBus constructs an empty bus.
func NewBus() *Bus {
	return &Bus{subscribers: make(map[Type][]Handler)}
}

// Subscribe registers a handler for an event type.
func (b *Bus) Subscribe(t Type, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[t] = append(b.subscribers[t], handler)
}

// Publish notifies subscribers synchronously; the caller decides the
// concurrency model.
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	handlers := append([]Handler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	for _, handler := range handlers {
		handler(event)
	}
}
