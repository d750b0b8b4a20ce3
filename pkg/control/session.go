package control

import (
	"sync"

	"github.com/panelkit/paneld/pkg/model"
)

// SessionState tracks a client session's lifecycle.
type SessionState int

const (
	// StateConnected means the socket is open but no subscription has
	// been made yet.
	StateConnected SessionState = iota

	// StateActive means the session holds at least one subscription.
	StateActive

	// StateClosed means the session has ended.
	StateClosed
)

// String returns the state name.
func (s SessionState) String() string {
	switch s {
	case StateConnected:
		return "CONNECTED"
	case StateActive:
		return "ACTIVE"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// SendFunc delivers an encoded frame to the session's client.
type SendFunc func(data []byte) error

// Session is the daemon-side state of one connected client.
type Session struct {
	mu     sync.RWMutex
	id     string
	state  SessionState
	topics map[string]struct{}
	send   SendFunc
}

// NewSession creates a session in the connected state.
func NewSession(id string, send SendFunc) *Session {
	return &Session{
		id:     id,
		state:  StateConnected,
		topics: make(map[string]struct{}),
		send:   send,
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// State returns the current lifecycle state.
func (s *Session) State() SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Subscribe adds a topic. Subscribing twice to the same topic is a
// no-op; delivery stays exactly-once per event.
func (s *Session) Subscribe(topic string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		return
	}
	s.topics[topic] = struct{}{}
	s.state = StateActive
}

// Unsubscribe removes a topic. Returns false when the session was not
// subscribed to it.
func (s *Session) Unsubscribe(topic string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.topics[topic]
	delete(s.topics, topic)
	if len(s.topics) == 0 && s.state == StateActive {
		s.state = StateConnected
	}
	return ok
}

// Subscribed reports whether an event on eventTopic should be
// delivered to this session.
func (s *Session) Subscribed(eventTopic string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for topic := range s.topics {
		if model.TopicMatches(topic, eventTopic) {
			return true
		}
	}
	return false
}

// TopicCount returns the number of distinct subscribed topics.
func (s *Session) TopicCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.topics)
}

// Close marks the session closed and drops all subscriptions.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateClosed
	s.topics = make(map[string]struct{})
}

// Send delivers an encoded frame to the client.
func (s *Session) Send(data []byte) error {
	return s.send(data)
}
