package vertex

import (
	"context"
	"errors"
	"testing"
	"time"

	"cloud.google.com/go/vertexai/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/run-bigpig/agent-guard/pkg/interfaces"
)

func TestClientConfiguration(t *testing.T) {
	tests := []struct {
		name       string
		options    []ClientOption
		model      string
		location   string
		maxRetries int
		retryDelay time.Duration
	}{
		{
			name:       "default configuration",
			model:      DefaultModel,
			location:   "us-central1",
			maxRetries: 3,
			retryDelay: time.Second,
		},
		{
			name: "custom configuration",
			options: []ClientOption{
				WithModel(ModelGemini15Flash),
				WithLocation("us-west1"),
				WithMaxRetries(5),
				WithRetryDelay(2 * time.Second),
			},
			model:      ModelGemini15Flash,
			location:   "us-west1",
			maxRetries: 5,
			retryDelay: 2 * time.Second,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newClient("test-project", tt.options...)

			assert.Equal(t, tt.model, client.model)
			assert.Equal(t, tt.location, client.location)
			assert.Equal(t, tt.maxRetries, client.maxRetries)
			assert.Equal(t, tt.retryDelay, client.retryDelay)
			assert.NotNil(t, client.logger)
		})
	}
}

func TestNewClientRequiresProject(t *testing.T) {
	_, err := NewClient(context.Background(), "")
	require.Error(t, err)
}

func TestClientName(t *testing.T) {
	tests := []struct {
		model    string
		expected string
	}{
		{ModelGemini15Pro, "vertex:gemini-1.5-pro"},
		{ModelGemini15Flash, "vertex:gemini-1.5-flash"},
		{ModelGemini20Flash, "vertex:gemini-2.0-flash"},
		{ModelGemini25Flash, "vertex:gemini-2.5-flash"},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			client := &Client{model: tt.model}
			assert.Equal(t, tt.expected, client.Name())
		})
	}
}

func TestConvertContent(t *testing.T) {
	content := &genai.Content{
		Role: "model",
		Parts: []genai.Part{
			genai.Text("first"),
			genai.FunctionCall{Name: "lookup", Args: map[string]any{"q": "x"}},
			genai.Text("second"),
		},
	}

	out := convertContent(content)
	require.Len(t, out.Parts, 3)
	assert.Equal(t, interfaces.RoleModel, out.Role)
	assert.Equal(t, "first\n\nsecond", out.Text())
	require.NotNil(t, out.Parts[1].FunctionCall)
	assert.Equal(t, "lookup", out.Parts[1].FunctionCall.Name)

	assert.Empty(t, convertContent(nil).Parts)
}

func TestToolResponse(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   map[string]any
	}{
		{"json object", `{"error":"blocked"}`, map[string]any{"error": "blocked"}},
		{"plain text", "42 degrees", map[string]any{"result": "42 degrees"}},
		{"json array", `[1,2]`, map[string]any{"result": "[1,2]"}},
		{"json null", `null`, map[string]any{"result": "null"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, toolResponse(tt.output))
		})
	}
}

type stubTool struct {
	name   string
	params map[string]interfaces.ParameterSpec
}

func (s stubTool) Name() string        { return s.name }
func (s stubTool) Description() string { return "stub " + s.name }
func (s stubTool) Parameters() map[string]interfaces.ParameterSpec {
	return s.params
}
func (s stubTool) Execute(ctx context.Context, args string) (string, error) { return args, nil }

func TestConvertTools(t *testing.T) {
	client := &Client{}
	tools := []interfaces.Tool{
		stubTool{
			name: "weather",
			params: map[string]interfaces.ParameterSpec{
				"city":  {Type: "string", Description: "City name", Required: true},
				"days":  {Type: "integer"},
				"units": {Type: "string", Enum: []interface{}{"c", "f"}},
			},
		},
		stubTool{name: "now"},
	}

	converted := client.convertTools(tools)
	require.Len(t, converted, 1)
	decls := converted[0].FunctionDeclarations
	require.Len(t, decls, 2)

	weather := decls[0]
	assert.Equal(t, "weather", weather.Name)
	assert.Equal(t, []string{"city"}, weather.Parameters.Required)
	assert.Equal(t, genai.TypeString, weather.Parameters.Properties["city"].Type)
	assert.Equal(t, genai.TypeInteger, weather.Parameters.Properties["days"].Type)
	assert.Equal(t, []string{"c", "f"}, weather.Parameters.Properties["units"].Enum)

	assert.Empty(t, decls[1].Parameters.Properties)
	assert.Equal(t, tools[1], findTool(tools, "now"))
	assert.Nil(t, findTool(tools, "missing"))
}

func TestSendWithRetryDoesNotDuplicateHistory(t *testing.T) {
	client := newClient("test-project", WithMaxRetries(3), WithRetryDelay(10*time.Millisecond))

	history := []*genai.Content{{Role: "user", Parts: []genai.Part{genai.Text("earlier")}}}
	attempts := 0
	send := func() (*genai.GenerateContentResponse, error) {
		attempts++
		history = append(history, &genai.Content{Role: "user", Parts: []genai.Part{genai.Text("user: hello")}})
		if attempts == 1 {
			return nil, errors.New("unavailable")
		}
		history = append(history, &genai.Content{Role: "model", Parts: []genai.Part{genai.Text("hi")}})
		return &genai.GenerateContentResponse{}, nil
	}

	resp, err := client.sendWithRetry(context.Background(), &history, send)
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 2, attempts)
	require.Len(t, history, 3)
	assert.Equal(t, "user", history[1].Role)
	assert.Equal(t, "model", history[2].Role)
}

func TestSendWithRetryRestoresHistoryOnFailure(t *testing.T) {
	client := newClient("test-project", WithMaxRetries(1), WithRetryDelay(time.Millisecond))

	var history []*genai.Content
	sendErr := errors.New("unavailable")
	_, err := client.sendWithRetry(context.Background(), &history, func() (*genai.GenerateContentResponse, error) {
		history = append(history, &genai.Content{Role: "user"})
		return nil, sendErr
	})
	require.ErrorIs(t, err, sendErr)
	assert.Empty(t, history)
}
