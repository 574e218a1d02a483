package session

import "sync"

// Slot is one transport endpoint. It is bound to at most one live Session
// at a time, and its lock serializes everything that touches that Session.
type Slot struct {
	ID string

	mu    sync.Mutex
	conns int
}

func newSlot(id string) *Slot {
	return &Slot{ID: id}
}

func (s *Slot) Lock()   { s.mu.Lock() }
func (s *Slot) Unlock() { s.mu.Unlock() }

// Attach records a new transport connection. Caller holds the lock.
func (s *Slot) Attach() int {
	s.conns++
	return s.conns
}

// Detach records a closed transport connection. Caller holds the lock.
func (s *Slot) Detach() int {
	if s.conns > 0 {
		s.conns--
	}
	return s.conns
}

// Connections returns the open connection count. Caller holds the lock.
func (s *Slot) Connections() int {
	return s.conns
}
