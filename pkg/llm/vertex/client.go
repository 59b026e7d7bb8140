package vertex

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/vertexai/genai"
	"github.com/cenkalti/backoff/v4"
	"google.golang.org/api/option"

	"github.com/run-bigpig/agent-guard/pkg/interfaces"
	"github.com/run-bigpig/agent-guard/pkg/logging"
)

// VertexAI model constants
const (
	ModelGemini15Pro   = "gemini-1.5-pro"
	ModelGemini15Flash = "gemini-1.5-flash"
	ModelGemini20Flash = "gemini-2.0-flash"
	ModelGemini25Flash = "gemini-2.5-flash"
)

// DefaultModel is the default Vertex AI model
const DefaultModel = ModelGemini20Flash

// maxToolRounds bounds how many times the model may call tools in one
// generation
const maxToolRounds = 5

// Client represents a Vertex AI client
type Client struct {
	client          *genai.Client
	model           string
	projectID       string
	location        string
	maxRetries      int
	retryDelay      time.Duration
	logger          logging.Logger
	credentialsFile string
}

// ClientOption is a function that configures the Client
type ClientOption func(*Client)

// WithModel sets the model for the client
func WithModel(model string) ClientOption {
	return func(c *Client) {
		c.model = model
	}
}

// WithLocation sets the location for the client
func WithLocation(location string) ClientOption {
	return func(c *Client) {
		c.location = location
	}
}

// WithMaxRetries sets the maximum number of retries
func WithMaxRetries(maxRetries int) ClientOption {
	return func(c *Client) {
		c.maxRetries = maxRetries
	}
}

// WithRetryDelay sets the retry delay
func WithRetryDelay(delay time.Duration) ClientOption {
	return func(c *Client) {
		c.retryDelay = delay
	}
}

// WithLogger sets the logger for the client
func WithLogger(logger logging.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithCredentialsFile sets the path to the service account credentials file
func WithCredentialsFile(credentialsFile string) ClientOption {
	return func(c *Client) {
		c.credentialsFile = credentialsFile
	}
}

func newClient(projectID string, options ...ClientOption) *Client {
	client := &Client{
		model:      DefaultModel,
		projectID:  projectID,
		location:   "us-central1",
		maxRetries: 3,
		retryDelay: time.Second,
		logger:     logging.NewNop(),
	}
	for _, opt := range options {
		opt(client)
	}
	return client
}

// NewClient creates a new Vertex AI client
func NewClient(ctx context.Context, projectID string, options ...ClientOption) (*Client, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID is required")
	}

	client := newClient(projectID, options...)

	var clientOptions []option.ClientOption
	if client.credentialsFile != "" {
		clientOptions = append(clientOptions, option.WithCredentialsFile(client.credentialsFile))
	}

	vertexClient, err := genai.NewClient(ctx, projectID, client.location, clientOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vertex AI client: %w", err)
	}

	client.client = vertexClient
	return client, nil
}

// Name returns the client name
func (c *Client) Name() string {
	return fmt.Sprintf("vertex:%s", c.model)
}

// Generate implements interfaces.LLM.Generate
func (c *Client) Generate(ctx context.Context, prompt string, options ...interfaces.GenerateOption) (*interfaces.LLMResponse, error) {
	return c.GenerateWithTools(ctx, prompt, nil, options...)
}

// GenerateWithTools implements interfaces.LLM.GenerateWithTools. Function
// calls are executed with the given tools and their results sent back until
// the model answers without calling a tool.
func (c *Client) GenerateWithTools(ctx context.Context, prompt string, tools []interfaces.Tool, options ...interfaces.GenerateOption) (*interfaces.LLMResponse, error) {
	params := &interfaces.GenerateOptions{
		LLMConfig: &interfaces.LLMConfig{
			Temperature: 0.7,
		},
	}
	for _, option := range options {
		option(params)
	}

	model := c.client.GenerativeModel(c.model)
	c.configureModel(model, params)
	if len(tools) > 0 {
		model.Tools = c.convertTools(tools)
	}

	session := model.StartChat()
	parts := []genai.Part{genai.Text(prompt)}

	for round := 0; ; round++ {
		response, err := c.sendWithRetry(ctx, &session.History, func() (*genai.GenerateContentResponse, error) {
			return session.SendMessage(ctx, parts...)
		})
		if err != nil {
			return nil, fmt.Errorf("failed to generate content: %w", err)
		}

		if len(response.Candidates) == 0 {
			return nil, fmt.Errorf("no candidates in response")
		}
		candidate := response.Candidates[0]
		if candidate.Content == nil {
			return nil, fmt.Errorf("no content in response")
		}

		calls := candidate.FunctionCalls()
		if len(calls) == 0 || len(tools) == 0 || round >= maxToolRounds {
			return &interfaces.LLMResponse{
				Content:      convertContent(candidate.Content),
				FinishReason: candidate.FinishReason.String(),
			}, nil
		}

		parts, err = c.callTools(ctx, tools, calls)
		if err != nil {
			return nil, err
		}
	}
}

func (c *Client) configureModel(model *genai.GenerativeModel, params *interfaces.GenerateOptions) {
	if params.SystemMessage != "" {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(params.SystemMessage)},
		}
	}
	if params.LLMConfig == nil {
		return
	}
	if params.LLMConfig.Temperature > 0 {
		model.SetTemperature(float32(params.LLMConfig.Temperature))
	}
	if params.LLMConfig.TopP > 0 {
		model.SetTopP(float32(params.LLMConfig.TopP))
	}
	if len(params.LLMConfig.StopSequences) > 0 {
		model.StopSequences = params.LLMConfig.StopSequences
	}
}

// callTools executes the requested function calls and returns the responses
// to send back to the model
func (c *Client) callTools(ctx context.Context, tools []interfaces.Tool, calls []genai.FunctionCall) ([]genai.Part, error) {
	responses := make([]genai.Part, 0, len(calls))
	for _, call := range calls {
		tool := findTool(tools, call.Name)
		if tool == nil {
			return nil, fmt.Errorf("tool not found: %s", call.Name)
		}

		argsJSON, err := json.Marshal(call.Args)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal function arguments: %w", err)
		}

		c.logger.Debug(ctx, "Executing tool", map[string]interface{}{"tool": call.Name})
		output, err := tool.Execute(ctx, string(argsJSON))
		if err != nil {
			return nil, fmt.Errorf("tool execution failed: %w", err)
		}

		responses = append(responses, genai.FunctionResponse{
			Name:     call.Name,
			Response: toolResponse(output),
		})
	}
	return responses, nil
}

func findTool(tools []interfaces.Tool, name string) interfaces.Tool {
	for _, tool := range tools {
		if tool.Name() == name {
			return tool
		}
	}
	return nil
}

// toolResponse uses a JSON object output as the function response and wraps
// anything else as {"result": output}
func toolResponse(output string) map[string]any {
	var obj map[string]any
	if err := json.Unmarshal([]byte(output), &obj); err == nil && obj != nil {
		return obj
	}
	return map[string]any{"result": output}
}

// convertContent converts a Vertex AI content into the runtime's Content
func convertContent(content *genai.Content) *interfaces.Content {
	out := &interfaces.Content{Role: interfaces.RoleModel}
	if content == nil {
		return out
	}
	for _, part := range content.Parts {
		switch p := part.(type) {
		case genai.Text:
			out.Parts = append(out.Parts, interfaces.Part{Text: string(p)})
		case genai.FunctionCall:
			out.Parts = append(out.Parts, interfaces.Part{
				FunctionCall: &interfaces.FunctionCall{Name: p.Name, Args: p.Args},
			})
		}
	}
	return out
}

// convertTools converts tools to Vertex AI format
func (c *Client) convertTools(tools []interfaces.Tool) []*genai.Tool {
	declarations := make([]*genai.FunctionDeclaration, 0, len(tools))

	for _, tool := range tools {
		schema := &genai.Schema{
			Type: genai.TypeObject,
		}

		parameters := tool.Parameters()
		if len(parameters) > 0 {
			schema.Properties = make(map[string]*genai.Schema)

			for name, param := range parameters {
				propSchema := &genai.Schema{
					Description: param.Description,
				}

				switch param.Type {
				case "number":
					propSchema.Type = genai.TypeNumber
				case "integer":
					propSchema.Type = genai.TypeInteger
				case "boolean":
					propSchema.Type = genai.TypeBoolean
				case "array":
					propSchema.Type = genai.TypeArray
				case "object":
					propSchema.Type = genai.TypeObject
				default:
					propSchema.Type = genai.TypeString
				}

				for _, e := range param.Enum {
					propSchema.Enum = append(propSchema.Enum, fmt.Sprintf("%v", e))
				}

				schema.Properties[name] = propSchema

				if param.Required {
					schema.Required = append(schema.Required, name)
				}
			}
		}

		declarations = append(declarations, &genai.FunctionDeclaration{
			Name:        tool.Name(),
			Description: tool.Description(),
			Parameters:  schema,
		})
	}

	return []*genai.Tool{{FunctionDeclarations: declarations}}
}

// sendWithRetry retries send with backoff. A failed send leaves the message
// it tried to send in history, so history is cut back before every attempt
// and after the last failed one.
func (c *Client) sendWithRetry(ctx context.Context, history *[]*genai.Content, send func() (*genai.GenerateContentResponse, error)) (*genai.GenerateContentResponse, error) {
	start := len(*history)
	var response *genai.GenerateContentResponse
	err := c.withRetry(ctx, func() error {
		*history = (*history)[:start]
		var sendErr error
		response, sendErr = send()
		return sendErr
	})
	if err != nil {
		*history = (*history)[:start]
		return nil, err
	}
	return response, nil
}

// withRetry executes the function with exponential backoff retry logic
func (c *Client) withRetry(ctx context.Context, fn func() error) error {
	exponentialBackoff := backoff.NewExponentialBackOff()
	exponentialBackoff.InitialInterval = c.retryDelay
	exponentialBackoff.MaxElapsedTime = time.Duration(c.maxRetries) * c.retryDelay * 2

	return backoff.Retry(fn, backoff.WithContext(exponentialBackoff, ctx))
}

// Close closes the Vertex AI client
func (c *Client) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

var _ interfaces.LLM = (*Client)(nil)
