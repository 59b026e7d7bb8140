package interfaces

import "context"

// LLM represents a large language model provider
type LLM interface {
	// Generate generates a response based on the provided prompt
	Generate(ctx context.Context, prompt string, options ...GenerateOption) (*LLMResponse, error)

	// GenerateWithTools generates a response and can call tools
	GenerateWithTools(ctx context.Context, prompt string, tools []Tool, options ...GenerateOption) (*LLMResponse, error)

	// Name returns the name of the LLM provider
	Name() string
}

// LLMResponse is what a model produced for one generation call
type LLMResponse struct {
	Content      *Content
	FinishReason string
}

// Text returns the concatenated text parts of the response
func (r *LLMResponse) Text() string {
	if r == nil {
		return ""
	}
	return r.Content.Text()
}

// GenerateOption represents options for text generation
type GenerateOption func(options *GenerateOptions)

// GenerateOptions contains configuration for text generation
type GenerateOptions struct {
	LLMConfig     *LLMConfig // LLM config for the generation
	SystemMessage string     // System message for chat models
}

// WithSystemMessage sets the system message for a generation
func WithSystemMessage(message string) GenerateOption {
	return func(options *GenerateOptions) {
		options.SystemMessage = message
	}
}

// WithLLMConfig sets the sampling configuration for a generation
func WithLLMConfig(config *LLMConfig) GenerateOption {
	return func(options *GenerateOptions) {
		options.LLMConfig = config
	}
}

type LLMConfig struct {
	Temperature   float64  // Temperature for the generation
	TopP          float64  // Top P for the generation
	StopSequences []string // Stop sequences for the generation
}
