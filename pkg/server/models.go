package server

import (
	"encoding/json"
	"errors"
	"strings"
)

// DefaultUserID is used when a request does not name a user
const DefaultUserID = "user"

// ChatRequest is the body of the chat endpoints
type ChatRequest struct {
	SessionID string `json:"session_id,omitempty"`
	UserID    string `json:"user_id,omitempty"`
	Message   string `json:"message"`
}

// SetDefaults fills the user id
func (r *ChatRequest) SetDefaults() {
	if r.UserID == "" {
		r.UserID = DefaultUserID
	}
}

// Validate checks the request
func (r ChatRequest) Validate() error {
	if strings.TrimSpace(r.Message) == "" {
		return errors.New("message is required")
	}
	return nil
}

// ChatResponse is returned by POST /api/chat
type ChatResponse struct {
	SessionID string `json:"session_id"`
	Response  string `json:"response"`
}

// HealthResponse is returned by GET /api/health
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// Stream event types
const (
	EventProgress = "progress"
	EventResult   = "result"
	EventError    = "error"
)

// StreamEvent is one NDJSON line of POST /api/chat_stream
type StreamEvent struct {
	Type      string `json:"type"`
	Text      string `json:"text"`
	SessionID string `json:"session_id,omitempty"`
}

// Format encodes the event as a single line
func (e StreamEvent) Format() (string, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return "", err
	}
	return string(data) + "\n", nil
}
