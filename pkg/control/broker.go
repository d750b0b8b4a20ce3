package control

import (
	"io"
	"log/slog"
	"sync"

	"github.com/panelkit/paneld/pkg/model"
	"github.com/panelkit/paneld/pkg/wire"
)

// Broker tracks live sessions and fans state-change events out to the
// subscribed ones. A send failure only affects the failing session.
type Broker struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	logger   *slog.Logger
}

// NewBroker creates an empty broker.
func NewBroker(logger *slog.Logger) *Broker {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Broker{
		sessions: make(map[string]*Session),
		logger:   logger,
	}
}

// Add registers a connected session.
func (b *Broker) Add(session *Session) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sessions[session.ID()] = session
}

// Remove unregisters a session and drops its subscriptions. Safe to
// call for unknown ids.
func (b *Broker) Remove(sessionID string) {
	b.mu.Lock()
	session, ok := b.sessions[sessionID]
	delete(b.sessions, sessionID)
	b.mu.Unlock()
	if ok {
		session.Close()
	}
}

// Get returns a registered session.
func (b *Broker) Get(sessionID string) (*Session, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	session, ok := b.sessions[sessionID]
	return session, ok
}

// SessionCount returns the number of live sessions.
func (b *Broker) SessionCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.sessions)
}

// SubscriptionCount returns the total number of subscriptions across
// all live sessions.
func (b *Broker) SubscriptionCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	total := 0
	for _, session := range b.sessions {
		total += session.TopicCount()
	}
	return total
}

// Publish delivers an event to every session subscribed to its topic.
// The event is encoded once and shared across sessions.
func (b *Broker) Publish(event model.Event) {
	msg, err := wire.NewEvent(event)
	if err != nil {
		b.logger.Error("event encode failed", "type", string(event.Type), "error", err)
		return
	}
	data, err := wire.Encode(msg)
	if err != nil {
		b.logger.Error("event encode failed", "type", string(event.Type), "error", err)
		return
	}

	topic := event.Topic()

	b.mu.RLock()
	targets := make([]*Session, 0, len(b.sessions))
	for _, session := range b.sessions {
		if session.Subscribed(topic) {
			targets = append(targets, session)
		}
	}
	b.mu.RUnlock()

	for _, session := range targets {
		if err := session.Send(data); err != nil {
			b.logger.Debug("event delivery failed",
				"session", session.ID(), "type", string(event.Type), "error", err)
		}
	}
}
