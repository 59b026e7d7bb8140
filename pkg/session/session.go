package session

import (
	"errors"
	"fmt"
	"net/url"
	"sync"

	"github.com/run-bigpig/agent-guard/pkg/interfaces"
)

var (
	// ErrSessionNotFound is returned when a session does not exist
	ErrSessionNotFound = errors.New("session not found")
)

// Key identifies a session
type Key struct {
	AppName   string
	UserID    string
	SessionID string
}

// String joins the escaped components with ":". Escaping keeps distinct keys
// distinct when a component itself contains ":".
func (k Key) String() string {
	return fmt.Sprintf("%s:%s:%s", url.QueryEscape(k.AppName), url.QueryEscape(k.UserID), url.QueryEscape(k.SessionID))
}

// State is a mutex-protected map that remembers which keys changed since the
// last save
type State struct {
	mu      sync.RWMutex
	values  map[string]any
	changed map[string]struct{}
	deleted map[string]struct{}
}

// NewState creates an empty state
func NewState() *State {
	return &State{
		values:  make(map[string]any),
		changed: make(map[string]struct{}),
		deleted: make(map[string]struct{}),
	}
}

// Get returns the value stored under key
func (s *State) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

// Set stores value under key
func (s *State) Set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	s.changed[key] = struct{}{}
	delete(s.deleted, key)
}

// Delete removes key
func (s *State) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	delete(s.changed, key)
	s.deleted[key] = struct{}{}
}

// Snapshot returns a copy of all values
func (s *State) Snapshot() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]any, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// drain returns the keys written and deleted since the last call
func (s *State) drain() (map[string]any, []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set := make(map[string]any, len(s.changed))
	for k := range s.changed {
		set[k] = s.values[k]
	}
	deleted := make([]string, 0, len(s.deleted))
	for k := range s.deleted {
		deleted = append(deleted, k)
	}
	s.changed = make(map[string]struct{})
	s.deleted = make(map[string]struct{})
	return set, deleted
}

// load replaces the values without marking them as changed
func (s *State) load(values map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values = values
}

// Session is a conversation with its state and history
type Session struct {
	key      Key
	state    *State
	mu       sync.RWMutex
	messages []interfaces.Message
	pending  int
}

func newSession(key Key) *Session {
	return &Session{
		key:   key,
		state: NewState(),
	}
}

// ID returns the session identifier
func (s *Session) ID() string { return s.key.SessionID }

// AppName returns the application the session belongs to
func (s *Session) AppName() string { return s.key.AppName }

// UserID returns the owner of the session
func (s *Session) UserID() string { return s.key.UserID }

// Key returns the full session key
func (s *Session) Key() Key { return s.key }

// State returns the session-scoped state
func (s *Session) State() interfaces.State { return s.state }

// Messages returns a copy of the conversation history
func (s *Session) Messages() []interfaces.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]interfaces.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// AppendMessage appends to the conversation history
func (s *Session) AppendMessage(message interfaces.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, message)
	s.pending++
}

// unsaved returns the messages appended since the last save and marks them
// saved
func (s *Session) unsaved() []interfaces.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == 0 {
		return nil
	}
	out := make([]interfaces.Message, s.pending)
	copy(out, s.messages[len(s.messages)-s.pending:])
	s.pending = 0
	return out
}

// trim keeps only the last maxSize messages
func (s *Session) trim(maxSize int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if maxSize > 0 && len(s.messages) > maxSize {
		s.messages = s.messages[len(s.messages)-maxSize:]
		if s.pending > maxSize {
			s.pending = maxSize
		}
	}
}

var _ interfaces.Session = (*Session)(nil)
var _ interfaces.State = (*State)(nil)
