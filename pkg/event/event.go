// pkg/event/event.go
package event

import (
	"sync"

	"github.com/opd-ai/go-viscosity/pkg/physics"
)

// Type represents the type of event
type Type string

// World lifecycle events
const (
	BodyCreated    Type = "body_created"
	BodyDestroyed  Type = "body_destroyed"
	ContactCreated Type = "contact_created"
	StepCompleted  Type = "step_completed"
	ArenaGrown     Type = "arena_grown"
)

// Event is the base interface for all events
type Event interface {
	GetType() Type
	GetSource() interface{}
}

// BaseEvent provides common functionality for all events
type BaseEvent struct {
	EventType Type
	Source    interface{}
}

// GetType returns the event type
func (e *BaseEvent) GetType() Type {
	return e.EventType
}

// GetSource returns the event source
func (e *BaseEvent) GetSource() interface{} {
	return e.Source
}

// Handler is a function that handles events
type Handler func(Event)

// Subscription identifies a registered handler so it can be removed later.
type Subscription struct {
	ID     uint64
	Type   Type
	Cancel func()
}

type entry struct {
	id      uint64
	handler Handler
}

// Bus manages event subscriptions and dispatching. It is safe for
// concurrent use; handlers run synchronously on the publishing goroutine.
type Bus struct {
	handlers map[Type][]entry
	nextID   uint64
	mu       sync.RWMutex
}

// NewEventBus creates a new event bus
func NewEventBus() *Bus {
	return &Bus{
		handlers: make(map[Type][]entry),
		nextID:   1,
	}
}

// Subscribe registers a handler for a specific event type
func (b *Bus) Subscribe(eventType Type, handler Handler) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := &Subscription{ID: b.nextID, Type: eventType}
	sub.Cancel = func() { b.Unsubscribe(sub) }
	b.nextID++
	b.handlers[eventType] = append(b.handlers[eventType], entry{id: sub.ID, handler: handler})
	return sub
}

// Unsubscribe removes a previously registered handler. It reports whether
// the subscription was still active.
func (b *Bus) Unsubscribe(sub *Subscription) bool {
	if sub == nil {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	handlers := b.handlers[sub.Type]
	for i, e := range handlers {
		if e.id != sub.ID {
			continue
		}
		// Copy so a Publish iterating the old slice is unaffected.
		next := make([]entry, 0, len(handlers)-1)
		next = append(next, handlers[:i]...)
		next = append(next, handlers[i+1:]...)
		if len(next) == 0 {
			delete(b.handlers, sub.Type)
		} else {
			b.handlers[sub.Type] = next
		}
		return true
	}
	return false
}

// HasSubscribers reports whether any handler listens to eventType. The
// world uses it to skip building events nobody reads.
func (b *Bus) HasSubscribers(eventType Type) bool {
	if b == nil {
		return false
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[eventType]) > 0
}

// Publish sends an event to all subscribed handlers
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	handlers, ok := b.handlers[event.GetType()]
	b.mu.RUnlock()

	if !ok {
		return
	}

	for _, e := range handlers {
		e.handler(event)
	}
}

// Specific event implementations

// BodyEvent reports the creation or destruction of a body. Body holds the
// numeric value of the world's body handle.
type BodyEvent struct {
	BaseEvent
	Body uint64
}

// NewBodyEvent creates a new body event
func NewBodyEvent(eventType Type, source interface{}, body uint64) *BodyEvent {
	return &BodyEvent{
		BaseEvent: BaseEvent{
			EventType: eventType,
			Source:    source,
		},
		Body: body,
	}
}

// ContactEvent is published for every contact the narrow-phase produces.
// The normal points from BodyA toward BodyB.
type ContactEvent struct {
	BaseEvent
	BodyA   uint64
	BodyB   uint64
	Contact physics.Contact
}

// NewContactEvent creates a new contact event
func NewContactEvent(source interface{}, a, b uint64, c physics.Contact) *ContactEvent {
	return &ContactEvent{
		BaseEvent: BaseEvent{
			EventType: ContactCreated,
			Source:    source,
		},
		BodyA:   a,
		BodyB:   b,
		Contact: c,
	}
}

// StepEvent summarizes a completed simulation step.
type StepEvent struct {
	BaseEvent
	Step           uint64
	DT             float32
	Contacts       int
	MaxPenetration float32
}

// NewStepEvent creates a new step event
func NewStepEvent(source interface{}, step uint64, dt float32, contacts int, maxPen float32) *StepEvent {
	return &StepEvent{
		BaseEvent: BaseEvent{
			EventType: StepCompleted,
			Source:    source,
		},
		Step:           step,
		DT:             dt,
		Contacts:       contacts,
		MaxPenetration: maxPen,
	}
}

// ArenaEvent reports that a storage pool doubled its capacity.
type ArenaEvent struct {
	BaseEvent
	Arena       string
	OldCapacity int
	NewCapacity int
}

// NewArenaEvent creates a new arena growth event
func NewArenaEvent(source interface{}, arena string, oldCap, newCap int) *ArenaEvent {
	return &ArenaEvent{
		BaseEvent: BaseEvent{
			EventType: ArenaGrown,
			Source:    source,
		},
		Arena:       arena,
		OldCapacity: oldCap,
		NewCapacity: newCap,
	}
}
