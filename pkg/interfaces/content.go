package interfaces

import "strings"

// Roles used in Content
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Content is a role-tagged, multi-part message exchanged between the user,
// the model and plugins
type Content struct {
	Role  string
	Parts []Part
}

// Part is a single piece of a Content. Exactly one field is set.
type Part struct {
	Text         string
	FunctionCall *FunctionCall
}

// FunctionCall is a tool invocation requested by the model
type FunctionCall struct {
	Name string
	Args map[string]any
}

// NewTextContent returns a single-part text Content
func NewTextContent(role, text string) *Content {
	return &Content{
		Role:  role,
		Parts: []Part{{Text: text}},
	}
}

// Text joins the text of every part with newlines. Parts without text
// contribute an empty line.
func (c *Content) Text() string {
	if c == nil || len(c.Parts) == 0 {
		return ""
	}
	texts := make([]string, 0, len(c.Parts))
	for _, part := range c.Parts {
		texts = append(texts, part.Text)
	}
	return strings.Join(texts, "\n")
}
