package controllers

import (
	"sync"

	"github.com/sessionflow/sessionflow/pkg/chatflow"
	"github.com/sessionflow/sessionflow/pkg/config"
	"github.com/sessionflow/sessionflow/pkg/events"
	"github.com/sessionflow/sessionflow/pkg/logger"
	"github.com/sessionflow/sessionflow/pkg/reconcile"
	"github.com/sessionflow/sessionflow/pkg/session"
)

// SessionController owns the durable flattened transcript and the live
// overlay for the currently observed session. It subscribes to the
// session's event channel and applies full snapshot updates; chunk events
// only mutate the overlay, and the reconciler's matching pass runs strictly
// after a snapshot lands.
//
// The logical model is single-threaded, but the bus may deliver from other
// goroutines, so all state is guarded by one mutex.
type SessionController struct {
	mu sync.RWMutex

	bus         *events.Bus
	flattener   *chatflow.Flattener
	reconciler  *reconcile.Reconciler
	unsubscribe func()

	sessionID string
	items     []chatflow.Item
	terminal  bool

	// chatActive tracks an outstanding follow-up chat stage. While set,
	// the channel subscription is kept open past terminal session status
	// so the chat stage's in-flight output is not dropped.
	chatActive bool

	log *logger.Logger
}

// NewSessionController creates a controller bound to an event bus.
func NewSessionController(bus *events.Bus) *SessionController {
	cfg := config.Get().Reconciler
	return &SessionController{
		bus:       bus,
		flattener: chatflow.NewFlattener(),
		reconciler: reconcile.New("",
			reconcile.WithMatchWindow(cfg.MatchWindow),
			reconcile.WithDedupTail(cfg.DedupTail),
		),
		log: logger.WithComponent("session_controller"),
	}
}

// Observe switches the controller to a new session identity, clearing all
// durable and overlay state and re-subscribing to the session's channel.
// Observing the current session is a no-op.
func (c *SessionController) Observe(sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if sessionID == c.sessionID {
		return
	}

	if c.unsubscribe != nil {
		c.unsubscribe()
		c.unsubscribe = nil
	}

	c.sessionID = sessionID
	c.items = nil
	c.terminal = false
	c.chatActive = false
	c.reconciler.Reset(sessionID)

	if c.bus != nil && sessionID != "" {
		c.unsubscribe = c.bus.Subscribe(events.SessionChannel(sessionID), c.handleEvent)
	}
	c.log.Info("Observing session", "session_id", sessionID)
}

// ApplySnapshot replaces the durable view from a full session snapshot,
// then runs the reconciler's matching pass. On a terminal snapshot the
// overlay is cleared and the subscription torn down, unless a follow-up
// chat stage is still outstanding.
func (c *SessionController) ApplySnapshot(s *session.Session) error {
	items, err := c.flattener.Flatten(s)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if s.SessionID != c.sessionID {
		c.log.Warn("Snapshot for unobserved session ignored",
			"snapshot_session", s.SessionID, "observed_session", c.sessionID)
		return nil
	}

	c.items = items
	c.reconciler.MatchConfirmed(items)

	c.terminal = s.IsTerminal()
	if c.terminal && !c.chatActive {
		c.reconciler.Clear()
		if c.unsubscribe != nil {
			c.unsubscribe()
			c.unsubscribe = nil
		}
	}
	return nil
}

// handleEvent dispatches one live event. Unknown event types are ignored.
func (c *SessionController) handleEvent(ev events.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch ev.Type {
	case events.EventToolCallStarted:
		if payload, ok := ev.Payload.(events.ToolCallStarted); ok {
			c.reconciler.HandleToolCallStarted(payload)
		}
	case events.EventStreamChunk:
		if payload, ok := ev.Payload.(events.StreamChunk); ok {
			c.reconciler.HandleStreamChunk(payload)
		}
	case events.EventStageStarted:
		if payload, ok := ev.Payload.(events.StageStatus); ok {
			if payload.ChatID != "" {
				c.chatActive = true
			}
			c.reconciler.HandleChatUserMessage(payload)
		}
	case events.EventStageCompleted, events.EventStageFailed:
		if payload, ok := ev.Payload.(events.StageStatus); ok && payload.ChatID != "" {
			c.chatActive = false
			if c.terminal {
				c.reconciler.Clear()
				if c.unsubscribe != nil {
					c.unsubscribe()
					c.unsubscribe = nil
				}
			}
		}
	}
}

// Items returns a copy of the durable flattened transcript.
func (c *SessionController) Items() []chatflow.Item {
	c.mu.RLock()
	defer c.mu.RUnlock()
	items := make([]chatflow.Item, len(c.items))
	copy(items, c.items)
	return items
}

// Live returns the overlay entries to display in addition to the durable
// transcript.
func (c *SessionController) Live() []reconcile.Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.reconciler.Live(c.items)
}

// Stats returns display counters derived from the durable transcript.
func (c *SessionController) Stats() chatflow.Summary {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return chatflow.Summarize(c.items)
}

// Close tears down the controller's subscription.
func (c *SessionController) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.unsubscribe != nil {
		c.unsubscribe()
		c.unsubscribe = nil
	}
}
