package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/run-bigpig/agent-guard/pkg/interfaces"
	"github.com/run-bigpig/agent-guard/pkg/logging"
	"github.com/run-bigpig/agent-guard/pkg/session"
)

// ErrNoLLM is returned by NewAgent when no model is configured
var ErrNoLLM = errors.New("LLM is required")

// DefaultAppName scopes sessions when no app name is configured
const DefaultAppName = "agent-guard"

// Agent runs conversation turns against a model, routing every turn through
// its plugins
type Agent struct {
	llm          interfaces.LLM
	tools        []interfaces.Tool
	plugins      []interfaces.Plugin
	sessions     session.Service
	tracer       interfaces.Tracer
	logger       logging.Logger
	systemPrompt string
	name         string
	appName      string
	llmConfig    *interfaces.LLMConfig
	locker       *session.Locker
}

// Option represents an option for configuring an agent
type Option func(*Agent)

// WithLLM sets the LLM for the agent
func WithLLM(llm interfaces.LLM) Option {
	return func(a *Agent) {
		a.llm = llm
	}
}

// WithTools sets the tools for the agent
func WithTools(tools ...interfaces.Tool) Option {
	return func(a *Agent) {
		a.tools = tools
	}
}

// WithPlugins sets the plugins invoked on every turn, in order
func WithPlugins(plugins ...interfaces.Plugin) Option {
	return func(a *Agent) {
		a.plugins = plugins
	}
}

// WithSessionService sets where sessions are stored
func WithSessionService(sessions session.Service) Option {
	return func(a *Agent) {
		a.sessions = sessions
	}
}

// WithTracer sets the tracer for the agent
func WithTracer(tracer interfaces.Tracer) Option {
	return func(a *Agent) {
		a.tracer = tracer
	}
}

// WithLogger sets the logger for the agent
func WithLogger(logger logging.Logger) Option {
	return func(a *Agent) {
		a.logger = logger
	}
}

// WithSystemPrompt sets the system prompt for the agent
func WithSystemPrompt(prompt string) Option {
	return func(a *Agent) {
		a.systemPrompt = prompt
	}
}

// WithName sets the name for the agent
func WithName(name string) Option {
	return func(a *Agent) {
		a.name = name
	}
}

// WithAppName sets the application sessions are scoped to
func WithAppName(appName string) Option {
	return func(a *Agent) {
		a.appName = appName
	}
}

// WithLLMConfig sets the sampling configuration used for every generation
func WithLLMConfig(config interfaces.LLMConfig) Option {
	return func(a *Agent) {
		a.llmConfig = &config
	}
}

// NewAgent creates a new agent with the given options
func NewAgent(options ...Option) (*Agent, error) {
	agent := &Agent{
		name:    "assistant",
		appName: DefaultAppName,
		locker:  session.NewLocker(),
	}

	for _, option := range options {
		option(agent)
	}

	if agent.llm == nil {
		return nil, ErrNoLLM
	}
	if agent.sessions == nil {
		agent.sessions = session.NewInMemoryService()
	}
	if agent.logger == nil {
		agent.logger = logging.NewNop()
	}

	return agent, nil
}

// Name returns the agent name
func (a *Agent) Name() string {
	return a.name
}

// Run processes one user turn in the given session and returns the turn's
// final output. Turns of the same session are serialized.
func (a *Agent) Run(ctx context.Context, userID, sessionID string, msg *interfaces.Content) (*interfaces.Content, error) {
	if sessionID == "" {
		sessionID = session.NewSessionID()
	}
	key := session.Key{AppName: a.appName, UserID: userID, SessionID: sessionID}

	unlock := a.locker.Lock(key.String())
	defer unlock()

	invocationID := "e-" + uuid.NewString()
	ctx = logging.WithSessionID(logging.WithInvocationID(ctx, invocationID), sessionID)

	var span interfaces.Span
	if a.tracer != nil {
		ctx, span = a.tracer.StartSpan(ctx, "agent.Run")
		defer span.End()
		span.SetAttribute("agent.name", a.name)
		span.SetAttribute("session.id", sessionID)
		span.SetAttribute("invocation.id", invocationID)
	}

	out, err := a.run(ctx, key, invocationID, msg)
	if err != nil {
		if span != nil {
			span.RecordError(err)
		}
		a.logger.Error(ctx, "Turn failed", map[string]interface{}{"error": err})
		return nil, err
	}
	return out, nil
}

func (a *Agent) run(ctx context.Context, key session.Key, invocationID string, msg *interfaces.Content) (*interfaces.Content, error) {
	sess, err := a.loadSession(ctx, key)
	if err != nil {
		return nil, err
	}

	inv := &interfaces.InvocationContext{
		InvocationID: invocationID,
		AgentName:    a.name,
		Session:      sess,
	}

	for _, plugin := range a.plugins {
		replaced, err := plugin.OnUserMessage(ctx, inv, msg)
		if err != nil {
			return nil, fmt.Errorf("plugin %s on user message: %w", plugin.Name(), err)
		}
		if replaced != nil {
			msg = replaced
			break
		}
	}
	sess.AppendMessage(interfaces.Message{
		Role:         interfaces.RoleUser,
		Content:      msg.Text(),
		InvocationID: invocationID,
	})

	out, err := a.beforeRun(ctx, inv)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out, err = a.callModel(ctx, inv)
		if err != nil {
			return nil, err
		}
	} else {
		a.logger.Info(ctx, "Turn short-circuited before the model", nil)
	}

	sess.AppendMessage(interfaces.Message{
		Role:         interfaces.RoleModel,
		Content:      out.Text(),
		InvocationID: invocationID,
	})
	if err := a.sessions.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return out, nil
}

func (a *Agent) loadSession(ctx context.Context, key session.Key) (*session.Session, error) {
	sess, err := a.sessions.Get(ctx, key)
	if errors.Is(err, session.ErrSessionNotFound) {
		sess, err = a.sessions.Create(ctx, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return sess, nil
}

// beforeRun calls every plugin, since a plugin may reset per-turn state in
// BeforeRun, and returns the first override
func (a *Agent) beforeRun(ctx context.Context, inv *interfaces.InvocationContext) (*interfaces.Content, error) {
	var override *interfaces.Content
	for _, plugin := range a.plugins {
		out, err := plugin.BeforeRun(ctx, inv)
		if err != nil {
			return nil, fmt.Errorf("plugin %s before run: %w", plugin.Name(), err)
		}
		if override == nil {
			override = out
		}
	}
	return override, nil
}

func (a *Agent) callModel(ctx context.Context, inv *interfaces.InvocationContext) (*interfaces.Content, error) {
	prompt := formatHistoryIntoPrompt(inv.Session.Messages())

	generateOptions := []interfaces.GenerateOption{}
	if a.systemPrompt != "" {
		generateOptions = append(generateOptions, interfaces.WithSystemMessage(a.systemPrompt))
	}
	if a.llmConfig != nil {
		generateOptions = append(generateOptions, interfaces.WithLLMConfig(a.llmConfig))
	}

	var (
		resp *interfaces.LLMResponse
		err  error
	)
	if len(a.tools) > 0 {
		resp, err = a.llm.GenerateWithTools(ctx, prompt, a.guardTools(inv), generateOptions...)
	} else {
		resp, err = a.llm.Generate(ctx, prompt, generateOptions...)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to generate response: %w", err)
	}

	cb := &interfaces.CallbackContext{InvocationContext: inv}
	for _, plugin := range a.plugins {
		replaced, err := plugin.AfterModel(ctx, cb, resp)
		if err != nil {
			return nil, fmt.Errorf("plugin %s after model: %w", plugin.Name(), err)
		}
		if replaced != nil {
			resp = replaced
			break
		}
	}

	if resp == nil || resp.Content == nil {
		return interfaces.NewTextContent(interfaces.RoleModel, ""), nil
	}
	return resp.Content, nil
}

// formatHistoryIntoPrompt renders the conversation history as the prompt
func formatHistoryIntoPrompt(history []interfaces.Message) string {
	var prompt strings.Builder
	for _, msg := range history {
		prompt.WriteString(msg.Role)
		prompt.WriteString(": ")
		prompt.WriteString(msg.Content)
		prompt.WriteString("\n")
	}
	return prompt.String()
}

// RunText runs a turn with a plain text message and returns the output text
func (a *Agent) RunText(ctx context.Context, userID, sessionID, text string) (string, error) {
	out, err := a.Run(ctx, userID, sessionID, interfaces.NewTextContent(interfaces.RoleUser, text))
	if err != nil {
		return "", err
	}
	return out.Text(), nil
}
