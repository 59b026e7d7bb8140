// Package guard screens user prompts, model responses and tool results with
// Model Armor and replaces anything unsafe with a refusal.
package guard

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/run-bigpig/agent-guard/pkg/interfaces"
	"github.com/run-bigpig/agent-guard/pkg/logging"
	"github.com/run-bigpig/agent-guard/pkg/modelarmor"
)

// PluginName is the name the plugin registers under
const PluginName = "ModelArmorPlugin"

// Refusal messages
const (
	UserPromptRemovedMessage    = "FAILED: Unsafe prompt detected."
	ModelResponseRemovedMessage = "FAILED: Unsafe model response detected."
	UnsafeToolOutputMessage     = "Unable to emit tool result due to unsafe outputs."
)

// Classifier returns the findings for a text
type Classifier interface {
	Classify(ctx context.Context, op modelarmor.Operation, text string) modelarmor.Verdict
}

// Plugin runs Model Armor at the four interception points of a turn
type Plugin struct {
	classifier Classifier
	logger     logging.Logger
}

// Option configures a Plugin
type Option func(*Plugin)

// WithLogger sets the logger for the plugin
func WithLogger(logger logging.Logger) Option {
	return func(p *Plugin) {
		p.logger = logger
	}
}

// New creates the plugin
func New(classifier Classifier, options ...Option) *Plugin {
	p := &Plugin{
		classifier: classifier,
		logger:     logging.NewNop(),
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

// Name implements interfaces.Plugin
func (p *Plugin) Name() string {
	return PluginName
}

// OnUserMessage classifies the incoming prompt. An unsafe prompt is recorded
// in the session for BeforeRun and the visible message is replaced; the
// replacement alone does not stop the model.
func (p *Plugin) OnUserMessage(ctx context.Context, inv *interfaces.InvocationContext, msg *interfaces.Content) (*interfaces.Content, error) {
	text := strings.TrimSpace(msg.Text())
	if text == "" {
		return nil, nil
	}

	turn := NewTurnState(inv.Session.State())
	verdict := p.classifier.Classify(ctx, modelarmor.OperationUserPrompt, text)
	if !verdict.Unsafe() {
		turn.MarkSafe()
		return nil, nil
	}

	reason := verdict.String()
	turn.MarkUnsafe(reason)
	p.logger.Warn(ctx, "Unsafe user prompt detected", map[string]interface{}{
		"findings": len(verdict.Findings),
		"reason":   reason,
	})

	return interfaces.NewTextContent(interfaces.RoleUser, refusal(UserPromptRemovedMessage, reason)), nil
}

// BeforeRun ends the turn when OnUserMessage flagged the prompt, and resets
// the flag so the next turn starts clean
func (p *Plugin) BeforeRun(ctx context.Context, inv *interfaces.InvocationContext) (*interfaces.Content, error) {
	reason, unsafe := NewTurnState(inv.Session.State()).Consume()
	if !unsafe {
		return nil, nil
	}

	p.logger.Info(ctx, "Halting turn for unsafe user prompt", nil)
	return interfaces.NewTextContent(interfaces.RoleModel, refusal(UserPromptRemovedMessage, reason)), nil
}

// AfterModel classifies the model output and replaces it entirely when unsafe
func (p *Plugin) AfterModel(ctx context.Context, cb *interfaces.CallbackContext, resp *interfaces.LLMResponse) (*interfaces.LLMResponse, error) {
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return nil, nil
	}

	verdict := p.classifier.Classify(ctx, modelarmor.OperationModelResponse, text)
	if !verdict.Unsafe() {
		return nil, nil
	}

	reason := verdict.String()
	p.logger.Warn(ctx, "Unsafe model response detected", map[string]interface{}{
		"findings": len(verdict.Findings),
		"reason":   reason,
	})

	return &interfaces.LLMResponse{
		Content: interfaces.NewTextContent(interfaces.RoleModel, refusal(ModelResponseRemovedMessage, reason)),
	}, nil
}

// AfterTool classifies the serialized tool result. Tool output is untrusted
// input to the model, so it goes through the prompt filter.
func (p *Plugin) AfterTool(ctx context.Context, tool interfaces.Tool, args map[string]any, tc *interfaces.ToolContext, result map[string]any) (map[string]any, error) {
	verdict := p.classifier.Classify(ctx, modelarmor.OperationUserPrompt, stringify(result))
	if !verdict.Unsafe() {
		return nil, nil
	}

	reason := verdict.String()
	fields := map[string]interface{}{
		"findings": len(verdict.Findings),
		"reason":   reason,
	}
	if tool != nil {
		fields["tool"] = tool.Name()
	}
	p.logger.Warn(ctx, "Unsafe tool output detected", fields)

	return map[string]any{
		"error": fmt.Sprintf("%s. Reason: %s", UnsafeToolOutputMessage, reason),
	}, nil
}

func refusal(message, reason string) string {
	return fmt.Sprintf("%s Reason: %s", message, reason)
}

func stringify(result map[string]any) string {
	b, err := json.Marshal(result)
	if err != nil {
		return fmt.Sprintf("%v", result)
	}
	return string(b)
}

var _ interfaces.Plugin = (*Plugin)(nil)
