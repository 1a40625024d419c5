// Package events fans session notifications out to subscribers such as the
// websocket hub and the record archive.
package events

import "sync"

// EventType represents the type of event
type EventType string

// Define event types
const (
	EventStateChanged  EventType = "STATE_CHANGED"
	EventSaveRecord    EventType = "SAVE_RECORD"
	EventGameNext      EventType = "GAME_NEXT"
	EventGameEnd       EventType = "GAME_END"
	EventFlipBoard     EventType = "FLIP_BOARD"
	EventPieceBeat     EventType = "PIECE_BEAT"
	EventBeepShort     EventType = "BEEP_SHORT"
	EventBeepUnlimited EventType = "BEEP_UNLIMITED"
	EventStopBeep      EventType = "STOP_BEEP"
	EventError         EventType = "ERROR"
)

// Event represents an event in the system
type Event struct {
	Type    EventType
	Payload interface{}
}

// Handler is a function that processes events
type Handler func(event Event)

// Publisher is the central event publisher. Handlers run synchronously in
// subscription order, so they must not block.
type Publisher struct {
	mu          sync.RWMutex
	subscribers map[EventType][]Handler
	all         []Handler
}

// NewPublisher creates a new event publisher
func NewPublisher() *Publisher {
	return &Publisher{
		subscribers: make(map[EventType][]Handler),
	}
}

// Subscribe registers a handler for a specific event type
func (p *Publisher) Subscribe(eventType EventType, handler Handler) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.subscribers[eventType] = append(p.subscribers[eventType], handler)
}

// SubscribeAll registers a handler for all event types
func (p *Publisher) SubscribeAll(handler Handler) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.all = append(p.all, handler)
}

// Publish delivers an event to its subscribers, then to the catch-all ones
func (p *Publisher) Publish(event Event) {
	p.mu.RLock()
	handlers := append([]Handler(nil), p.subscribers[event.Type]...)
	handlers = append(handlers, p.all...)
	p.mu.RUnlock()

	for _, handler := range handlers {
		handler(event)
	}
}
