package events

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sessionflow/sessionflow/pkg/logger"
)

// Event is one notification delivered on a named channel.
type Event struct {
	ID        string
	Channel   string
	Type      string
	Payload   any
	Timestamp time.Time
}

// Handler is a function that handles events.
type Handler func(event Event)

// Bus provides decoupled named-channel communication between the event
// source and its consumers. Subscriptions return an unsubscribe closure.
type Bus struct {
	mu           sync.RWMutex
	handlers     map[string]map[int]Handler
	connHandlers map[int]func(connected bool)
	nextID       int
	connected    bool
	buffer       chan Event
	done         chan struct{}
	closeOnce    sync.Once
	log          *logger.Logger
}

// NewBus creates a new event bus and starts its delivery goroutine.
func NewBus() *Bus {
	bus := &Bus{
		handlers:     make(map[string]map[int]Handler),
		connHandlers: make(map[int]func(bool)),
		buffer:       make(chan Event, 100),
		done:         make(chan struct{}),
		log:          logger.WithComponent("event_bus"),
	}
	go bus.processEvents()
	return bus
}

// Subscribe registers a handler on a channel and returns its unsubscribe
// function.
func (b *Bus) Subscribe(channel string, handler Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	if b.handlers[channel] == nil {
		b.handlers[channel] = make(map[int]Handler)
	}
	b.handlers[channel][id] = handler
	b.log.Debug("Handler subscribed", "channel", channel, "id", id)

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.handlers[channel], id)
	}
}

// OnConnectionChange registers a connection-state observer and returns its
// unsubscribe function. The observer is called immediately with the
// current state.
func (b *Bus) OnConnectionChange(handler func(connected bool)) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.connHandlers[id] = handler
	connected := b.connected
	b.mu.Unlock()

	handler(connected)

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.connHandlers, id)
	}
}

// SetConnected updates the connection state and notifies observers.
func (b *Bus) SetConnected(connected bool) {
	b.mu.Lock()
	if b.connected == connected {
		b.mu.Unlock()
		return
	}
	b.connected = connected
	observers := make([]func(bool), 0, len(b.connHandlers))
	for _, h := range b.connHandlers {
		observers = append(observers, h)
	}
	b.mu.Unlock()

	for _, h := range observers {
		h(connected)
	}
}

// Publish sends an event to a channel's handlers asynchronously.
func (b *Bus) Publish(channel, eventType string, payload any) {
	event := b.newEvent(channel, eventType, payload)
	select {
	case b.buffer <- event:
	default:
		b.log.Warn("Event buffer full, dropping event", "channel", channel, "type", eventType)
	}
}

// PublishSync delivers an event to a channel's handlers before returning.
// The reconciliation path uses this so that chunk mutations and snapshot
// updates never interleave.
func (b *Bus) PublishSync(channel, eventType string, payload any) {
	b.deliverEvent(b.newEvent(channel, eventType, payload))
}

func (b *Bus) newEvent(channel, eventType string, payload any) Event {
	return Event{
		ID:        uuid.NewString(),
		Channel:   channel,
		Type:      eventType,
		Payload:   payload,
		Timestamp: time.Now(),
	}
}

func (b *Bus) processEvents() {
	for {
		select {
		case event := <-b.buffer:
			b.deliverEvent(event)
		case <-b.done:
			return
		}
	}
}

func (b *Bus) deliverEvent(event Event) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.handlers[event.Channel]))
	for _, h := range b.handlers[event.Channel] {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, handler := range handlers {
		func(h Handler) {
			defer func() {
				if r := recover(); r != nil {
					b.log.Error("Event handler panicked", "channel", event.Channel, "type", event.Type, "error", r)
				}
			}()
			h(event)
		}(handler)
	}
}

// Close shuts down the event bus.
func (b *Bus) Close() {
	b.closeOnce.Do(func() {
		close(b.done)
	})
}
