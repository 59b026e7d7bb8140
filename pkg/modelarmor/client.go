package modelarmor

import (
	"context"
	"fmt"

	armorapi "cloud.google.com/go/modelarmor/apiv1"
	"cloud.google.com/go/modelarmor/apiv1/modelarmorpb"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/api/option"

	"github.com/run-bigpig/agent-guard/pkg/logging"
)

// Sanitizer is the subset of the Model Armor API the client uses.
// *armorapi.Client from cloud.google.com/go/modelarmor/apiv1 implements it.
type Sanitizer interface {
	SanitizeUserPrompt(ctx context.Context, req *modelarmorpb.SanitizeUserPromptRequest, opts ...gax.CallOption) (*modelarmorpb.SanitizeUserPromptResponse, error)
	SanitizeModelResponse(ctx context.Context, req *modelarmorpb.SanitizeModelResponseRequest, opts ...gax.CallOption) (*modelarmorpb.SanitizeModelResponseResponse, error)
	Close() error
}

// Client classifies text with a Model Armor template
type Client struct {
	sanitizer    Sanitizer
	config       Config
	templatePath string
	logger       logging.Logger
}

// ClientOption is a function that configures the Client
type ClientOption func(*Client)

// WithLogger sets the logger for the client
func WithLogger(logger logging.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithSanitizer replaces the Model Armor API client, mostly for tests
func WithSanitizer(sanitizer Sanitizer) ClientOption {
	return func(c *Client) {
		c.sanitizer = sanitizer
	}
}

// NewClient creates a client for the template described by config. Unless a
// sanitizer is supplied, it dials the regional Model Armor endpoint using
// Application Default Credentials or config.CredentialsFile.
func NewClient(ctx context.Context, config Config, options ...ClientOption) (*Client, error) {
	config = config.withDefaults()
	if config.TemplateID == "" {
		return nil, fmt.Errorf("template id is required")
	}

	client := &Client{
		config:       config,
		templatePath: config.TemplatePath(),
		logger:       logging.NewNop(),
	}
	for _, opt := range options {
		opt(client)
	}

	if client.sanitizer == nil {
		clientOptions := []option.ClientOption{
			option.WithEndpoint(config.RegionalEndpoint()),
		}
		if config.CredentialsFile != "" {
			clientOptions = append(clientOptions, option.WithCredentialsFile(config.CredentialsFile))
		}

		maClient, err := armorapi.NewClient(ctx, clientOptions...)
		if err != nil {
			return nil, fmt.Errorf("failed to create Model Armor client: %w", err)
		}
		client.sanitizer = maClient
	}

	client.logger.Info(ctx, "Initialized Model Armor client", map[string]interface{}{
		"template":       client.templatePath,
		"failure_policy": string(config.FailurePolicy),
	})

	return client, nil
}

// TemplatePath returns the resource name requests are addressed to
func (c *Client) TemplatePath() string {
	return c.templatePath
}

// FailurePolicy returns the policy applied to failed calls
func (c *Client) FailurePolicy() FailurePolicy {
	return c.config.FailurePolicy
}

// Classify sends text to the Model Armor method selected by op and returns
// the findings. It never returns an error: failed calls are logged and
// resolved by the client's FailurePolicy. An unknown op panics.
func (c *Client) Classify(ctx context.Context, op Operation, text string) Verdict {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	c.logger.Debug(ctx, "Sanitizing text", map[string]interface{}{
		"operation":   op.String(),
		"text_length": len(text),
	})

	resp, err := c.sanitize(ctx, op, text)
	if err != nil {
		c.logger.Error(ctx, "Error calling Model Armor", map[string]interface{}{
			"operation":      op.String(),
			"failure_policy": string(c.config.FailurePolicy),
			"error":          err,
		})
		return c.failureVerdict(err)
	}

	return ParseSanitizationResult(resp.GetSanitizationResult())
}

func (c *Client) sanitize(ctx context.Context, op Operation, text string) (sanitizationResponse, error) {
	switch op {
	case OperationUserPrompt:
		return c.sanitizer.SanitizeUserPrompt(ctx, &modelarmorpb.SanitizeUserPromptRequest{
			Name: c.templatePath,
			UserPromptData: &modelarmorpb.DataItem{
				DataItem: &modelarmorpb.DataItem_Text{Text: text},
			},
		})
	case OperationModelResponse:
		return c.sanitizer.SanitizeModelResponse(ctx, &modelarmorpb.SanitizeModelResponseRequest{
			Name: c.templatePath,
			ModelResponseData: &modelarmorpb.DataItem{
				DataItem: &modelarmorpb.DataItem_Text{Text: text},
			},
		})
	default:
		panic(fmt.Sprintf("modelarmor: unsupported operation %s", op))
	}
}

func (c *Client) failureVerdict(err error) Verdict {
	if c.config.FailurePolicy != FailClosed {
		return Verdict{}
	}
	return Verdict{Findings: []Finding{{
		Kind:   FindingClassifierUnavailable,
		Detail: map[string]any{"error": err.Error()},
	}}}
}

// Close closes the underlying API client
func (c *Client) Close() error {
	if c.sanitizer != nil {
		return c.sanitizer.Close()
	}
	return nil
}
