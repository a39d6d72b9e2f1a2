package session

import (
	"context"
	"sync"
)

type memoryStore struct {
	mu       sync.RWMutex
	sessions map[Key]*Session
}

// NewMemoryStore constructs an in-memory Store implementation. Sessions do
// not survive a process restart, which matches the durability contract.
func NewMemoryStore() Store {
	return &memoryStore{sessions: make(map[Key]*Session)}
}

// GetOrCreate returns a copy of the stored session, registering an empty one
// first if the key is unknown.
func (m *memoryStore) GetOrCreate(_ context.Context, key Key) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[key]
	if !ok {
		s = &Session{State: StateNone, Data: make(Data)}
		m.sessions[key] = s
	}
	return cloneSession(s), nil
}

// Save stores a copy of the session under key.
func (m *memoryStore) Save(_ context.Context, key Key, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[key] = cloneSession(s)
	return nil
}

// Delete removes the session for key.
func (m *memoryStore) Delete(_ context.Context, key Key) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, key)
	return nil
}

// Clear removes every session.
func (m *memoryStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions = make(map[Key]*Session)
	return nil
}

func cloneSession(s *Session) *Session {
	clone := &Session{State: s.State, Data: make(Data, len(s.Data))}
	for k, v := range s.Data {
		clone.Data[k] = v
	}
	return clone
}
