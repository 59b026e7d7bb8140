package interfaces

// Message is one entry of a session's conversation history
type Message struct {
	// Role is the role of the message sender ("user" or "model")
	Role string `json:"role"`

	// Content is the text of the message
	Content string `json:"content"`

	// InvocationID ties the message to the turn that produced it
	InvocationID string `json:"invocation_id,omitempty"`
}
