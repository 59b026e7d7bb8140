package interfaces

// State is the key-value store scoped to one session. Implementations must be
// safe for concurrent use.
type State interface {
	// Get returns the value stored under key
	Get(key string) (any, bool)

	// Set stores value under key
	Set(key string, value any)

	// Delete removes key
	Delete(key string)
}

// Session is one conversation between a user and an agent
type Session interface {
	// ID returns the session identifier
	ID() string

	// AppName returns the application the session belongs to
	AppName() string

	// UserID returns the owner of the session
	UserID() string

	// State returns the session-scoped state
	State() State

	// Messages returns the conversation history
	Messages() []Message

	// AppendMessage appends to the conversation history
	AppendMessage(message Message)
}
