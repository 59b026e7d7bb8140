package interfaces

import "context"

// InvocationContext describes the turn a runner is currently processing
type InvocationContext struct {
	InvocationID string
	AgentName    string
	Session      Session
}

// CallbackContext is handed to model callbacks
type CallbackContext struct {
	*InvocationContext
}

// ToolContext is handed to tool callbacks
type ToolContext struct {
	*InvocationContext
	FunctionCallID string
}

// Plugin hooks into a runner's invocation lifecycle. Every hook may return a
// nil value to leave processing unchanged; a non-nil value overrides the
// artifact the hook was called for:
//
//   - OnUserMessage: replaces the user message that is recorded and shown.
//   - BeforeRun: ends the turn without calling the model; the content becomes
//     the turn's output.
//   - AfterModel: replaces the model response.
//   - AfterTool: replaces the tool result handed back to the model.
type Plugin interface {
	// Name returns the plugin name
	Name() string

	OnUserMessage(ctx context.Context, inv *InvocationContext, msg *Content) (*Content, error)

	BeforeRun(ctx context.Context, inv *InvocationContext) (*Content, error)

	AfterModel(ctx context.Context, cb *CallbackContext, resp *LLMResponse) (*LLMResponse, error)

	AfterTool(ctx context.Context, tool Tool, args map[string]any, tc *ToolContext, result map[string]any) (map[string]any, error)
}
