package gen

import (
	"sync"

	"github.com/google/uuid"
)

// State is the lifecycle position of one generation session.
type State string

const (
	StatePending   State = "pending"
	StateStreaming State = "streaming"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
	StateCancelled State = "cancelled"
)

// Session is the lifecycle of one relay call. It exists only for the
// duration of the request; nothing is persisted.
type Session struct {
	ID string

	mu     sync.Mutex
	state  State
	events chan StreamEvent
}

func newSession() *Session {
	return &Session{
		ID:     uuid.NewString(),
		state:  StatePending,
		events: make(chan StreamEvent, 8),
	}
}

// Events yields decoded stream events in arrival order. The channel is
// closed once the session reaches a terminal state; no events follow
// cancellation.
func (s *Session) Events() <-chan StreamEvent {
	return s.events
}

// State returns the session's current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// terminal states never transition again
func (s *Session) finish(st State) {
	s.mu.Lock()
	switch s.state {
	case StateCompleted, StateFailed, StateCancelled:
	default:
		s.state = st
	}
	s.mu.Unlock()
}
