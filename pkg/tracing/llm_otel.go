package tracing

import (
	"context"

	"github.com/run-bigpig/agent-guard/pkg/interfaces"
)

// LLMMiddleware wraps an LLM with tracing
type LLMMiddleware struct {
	llm    interfaces.LLM
	tracer interfaces.Tracer
}

// NewLLMMiddleware creates a new LLMMiddleware
func NewLLMMiddleware(llm interfaces.LLM, tracer interfaces.Tracer) *LLMMiddleware {
	return &LLMMiddleware{
		llm:    llm,
		tracer: tracer,
	}
}

// Generate implements interfaces.LLM.Generate
func (m *LLMMiddleware) Generate(ctx context.Context, prompt string, options ...interfaces.GenerateOption) (*interfaces.LLMResponse, error) {
	ctx, span := m.tracer.StartSpan(ctx, "llm.generate")
	defer span.End()

	span.SetAttribute("model", m.llm.Name())
	span.SetAttribute("prompt.length", len(prompt))

	response, err := m.llm.Generate(ctx, prompt, options...)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttribute("response.length", len(response.Text()))
	return response, nil
}

// GenerateWithTools implements interfaces.LLM.GenerateWithTools
func (m *LLMMiddleware) GenerateWithTools(ctx context.Context, prompt string, tools []interfaces.Tool, options ...interfaces.GenerateOption) (*interfaces.LLMResponse, error) {
	ctx, span := m.tracer.StartSpan(ctx, "llm.generate_with_tools")
	defer span.End()

	span.SetAttribute("model", m.llm.Name())
	span.SetAttribute("prompt.length", len(prompt))
	span.SetAttribute("tools.count", len(tools))

	response, err := m.llm.GenerateWithTools(ctx, prompt, tools, options...)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttribute("response.length", len(response.Text()))
	return response, nil
}

// Name implements interfaces.LLM.Name
func (m *LLMMiddleware) Name() string {
	return m.llm.Name()
}

var _ interfaces.LLM = (*LLMMiddleware)(nil)
