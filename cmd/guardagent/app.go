package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/run-bigpig/agent-guard/pkg/agent"
	"github.com/run-bigpig/agent-guard/pkg/config"
	"github.com/run-bigpig/agent-guard/pkg/guard"
	"github.com/run-bigpig/agent-guard/pkg/interfaces"
	"github.com/run-bigpig/agent-guard/pkg/llm/vertex"
	"github.com/run-bigpig/agent-guard/pkg/logging"
	"github.com/run-bigpig/agent-guard/pkg/modelarmor"
	"github.com/run-bigpig/agent-guard/pkg/session"
	"github.com/run-bigpig/agent-guard/pkg/tracing"
)

const defaultSystemPrompt = "You are a helpful assistant. Answer concisely."

// app holds everything a command needs and how to release it
type app struct {
	logger     logging.Logger
	tracer     *tracing.OTelTracer
	armor      *modelarmor.Client
	classifier guard.Classifier
	closers    []func(context.Context) error
}

func newApp(ctx context.Context, cfg config.Config) (_ *app, err error) {
	a := &app{logger: newLogger(cfg)}
	defer func() {
		if err != nil {
			_ = a.close(ctx)
		}
	}()

	tracer, err := tracing.NewOTelTracer(ctx, cfg.OTelConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create tracer: %w", err)
	}
	a.tracer = tracer
	a.closers = append(a.closers, tracer.Shutdown)

	armorConfig, err := cfg.ModelArmorClientConfig()
	if err != nil {
		return nil, err
	}
	armor, err := modelarmor.NewClient(ctx, armorConfig, modelarmor.WithLogger(a.logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create Model Armor client: %w", err)
	}
	a.armor = armor
	a.closers = append(a.closers, func(context.Context) error { return armor.Close() })
	a.classifier = tracing.NewClassifierMiddleware(armor, tracer)

	return a, nil
}

// newAgent builds the guarded runner on Vertex AI
func (a *app) newAgent(ctx context.Context, cfg config.Config) (*agent.Agent, error) {
	sessions, err := a.newSessionService(ctx, cfg)
	if err != nil {
		return nil, err
	}

	model, err := vertex.NewClient(ctx, cfg.ProjectID,
		vertex.WithModel(cfg.Vertex.Model),
		vertex.WithLocation(cfg.Location),
		vertex.WithCredentialsFile(cfg.CredentialsFile),
		vertex.WithLogger(a.logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vertex AI client: %w", err)
	}
	a.closers = append(a.closers, func(context.Context) error { return model.Close() })

	plugin := guard.New(a.classifier, guard.WithLogger(a.logger))
	a.logger.Info(ctx, "Guard plugin enabled", map[string]interface{}{
		"plugin":         plugin.Name(),
		"template":       a.armor.TemplatePath(),
		"failure_policy": string(a.armor.FailurePolicy()),
	})

	systemPrompt := cfg.Vertex.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = defaultSystemPrompt
	}

	return agent.NewAgent(
		agent.WithLLM(tracing.NewLLMMiddleware(model, a.tracer)),
		agent.WithPlugins(plugin),
		agent.WithSessionService(sessions),
		agent.WithTracer(a.tracer),
		agent.WithLogger(a.logger),
		agent.WithSystemPrompt(systemPrompt),
		agent.WithName("guarded_agent"),
		agent.WithLLMConfig(interfaces.LLMConfig{Temperature: cfg.Vertex.Temperature}),
	)
}

func (a *app) newSessionService(ctx context.Context, cfg config.Config) (session.Service, error) {
	if cfg.Redis.URL == "" {
		return session.NewInMemoryService(), nil
	}

	sessions, err := session.NewRedisServiceFromConfig(ctx, cfg.RedisSessionConfig(), session.WithTTL(cfg.Redis.TTL))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	a.closers = append(a.closers, func(context.Context) error { return sessions.Close() })
	a.logger.Info(ctx, "Using Redis session store", map[string]interface{}{"address": cfg.Redis.URL})
	return sessions, nil
}

func (a *app) close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
