package session

import "context"

// Store is the process-wide session registry. At most one session exists per
// key at any time.
type Store interface {
	// GetOrCreate returns the session for key, creating an empty one if
	// absent. It never returns nil.
	GetOrCreate(ctx context.Context, key Key) (*Session, error)
	// Save persists the session for key.
	Save(ctx context.Context, key Key, s *Session) error
	// Delete removes the session for key; no-op if absent.
	Delete(ctx context.Context, key Key) error
	// Clear removes every session.
	Clear(ctx context.Context) error
}
