package session

import (
	"context"

	"github.com/google/uuid"
)

// Service stores sessions
type Service interface {
	// Get loads an existing session. Returns ErrSessionNotFound if missing.
	Get(ctx context.Context, key Key) (*Session, error)

	// Create creates a session. An empty SessionID gets a generated one.
	Create(ctx context.Context, key Key) (*Session, error)

	// Save persists state changes and new messages of the session
	Save(ctx context.Context, s *Session) error

	// Delete removes a session
	Delete(ctx context.Context, key Key) error
}

// NewSessionID returns a random session identifier
func NewSessionID() string {
	return uuid.NewString()
}
