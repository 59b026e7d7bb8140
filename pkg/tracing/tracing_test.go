package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/run-bigpig/agent-guard/pkg/interfaces"
	"github.com/run-bigpig/agent-guard/pkg/modelarmor"
)

func newRecordingTracer(t *testing.T) (*OTelTracer, *tracetest.SpanRecorder) {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return NewOTelTracerFromProvider(tp, "test"), recorder
}

func attrs(span sdktrace.ReadOnlySpan) map[attribute.Key]attribute.Value {
	out := make(map[attribute.Key]attribute.Value)
	for _, kv := range span.Attributes() {
		out[kv.Key] = kv.Value
	}
	return out
}

type staticClassifier struct {
	verdict modelarmor.Verdict
}

func (s staticClassifier) Classify(ctx context.Context, op modelarmor.Operation, text string) modelarmor.Verdict {
	return s.verdict
}

func TestClassifierMiddlewareRecordsSpan(t *testing.T) {
	tracer, recorder := newRecordingTracer(t)
	inner := staticClassifier{verdict: modelarmor.Verdict{Findings: []modelarmor.Finding{{Kind: "rai"}}}}

	verdict := NewClassifierMiddleware(inner, tracer).Classify(context.Background(), modelarmor.OperationUserPrompt, "hello")
	assert.True(t, verdict.Unsafe())

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "modelarmor.classify", spans[0].Name())

	a := attrs(spans[0])
	assert.Equal(t, "sanitizeUserPrompt", a["modelarmor.operation"].AsString())
	assert.Equal(t, int64(5), a["text.length"].AsInt64())
	assert.Equal(t, int64(1), a["modelarmor.findings"].AsInt64())
	assert.True(t, a["modelarmor.unsafe"].AsBool())
}

type stubLLM struct {
	err error
}

func (s stubLLM) Generate(ctx context.Context, prompt string, options ...interfaces.GenerateOption) (*interfaces.LLMResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &interfaces.LLMResponse{Content: interfaces.NewTextContent(interfaces.RoleModel, "pong")}, nil
}

func (s stubLLM) GenerateWithTools(ctx context.Context, prompt string, tools []interfaces.Tool, options ...interfaces.GenerateOption) (*interfaces.LLMResponse, error) {
	return s.Generate(ctx, prompt, options...)
}

func (s stubLLM) Name() string { return "stub" }

func TestLLMMiddleware(t *testing.T) {
	tracer, recorder := newRecordingTracer(t)

	resp, err := NewLLMMiddleware(stubLLM{}, tracer).Generate(context.Background(), "ping")
	require.NoError(t, err)
	assert.Equal(t, "pong", resp.Text())

	_, err = NewLLMMiddleware(stubLLM{err: errors.New("quota")}, tracer).GenerateWithTools(context.Background(), "ping", nil)
	require.Error(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "llm.generate", spans[0].Name())
	assert.Equal(t, int64(4), attrs(spans[0])["response.length"].AsInt64())
	assert.Equal(t, "llm.generate_with_tools", spans[1].Name())
	assert.Equal(t, codes.Error, spans[1].Status().Code)
}

func TestDisabledTracerIsNoop(t *testing.T) {
	tracer, err := NewOTelTracer(context.Background(), OTelConfig{Enabled: false, ServiceName: "svc"})
	require.NoError(t, err)

	ctx, span := tracer.StartSpan(context.Background(), "x")
	assert.NotNil(t, ctx)
	span.SetAttribute("k", "v")
	span.AddEvent("e", map[string]interface{}{"n": 1})
	span.RecordError(errors.New("ignored"))
	span.End()
	assert.NoError(t, tracer.Shutdown(context.Background()))
}
