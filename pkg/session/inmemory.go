package session

import (
	"context"
	"sync"
)

// InMemoryService keeps sessions in process memory
type InMemoryService struct {
	sessions map[Key]*Session
	maxSize  int
	mu       sync.RWMutex
}

// Option represents an option for configuring the in-memory service
type Option func(*InMemoryService)

// WithMaxSize sets the maximum number of messages kept per session
func WithMaxSize(size int) Option {
	return func(s *InMemoryService) {
		s.maxSize = size
	}
}

// NewInMemoryService creates a new in-memory session service
func NewInMemoryService(options ...Option) *InMemoryService {
	service := &InMemoryService{
		sessions: make(map[Key]*Session),
		maxSize:  100, // Default max size
	}

	for _, option := range options {
		option(service)
	}

	return service
}

// Get returns the live session for key
func (m *InMemoryService) Get(ctx context.Context, key Key) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[key]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Create creates a session, or returns the existing one for key
func (m *InMemoryService) Create(ctx context.Context, key Key) (*Session, error) {
	if key.SessionID == "" {
		key.SessionID = NewSessionID()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[key]; ok {
		return s, nil
	}
	s := newSession(key)
	m.sessions[key] = s
	return s, nil
}

// Save trims the history; state lives in the session itself
func (m *InMemoryService) Save(ctx context.Context, s *Session) error {
	s.trim(m.maxSize)
	s.unsaved()
	s.state.drain()
	return nil
}

// Delete removes a session
func (m *InMemoryService) Delete(ctx context.Context, key Key) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, key)
	return nil
}

var _ Service = (*InMemoryService)(nil)
