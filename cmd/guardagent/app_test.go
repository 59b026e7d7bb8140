package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"github.com/run-bigpig/agent-guard/pkg/config"
)

func TestNewAppShutsDownTracerOnConfigError(t *testing.T) {
	previous := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(previous) })

	cfg := config.Default()
	cfg.ProjectID = "p"
	cfg.Tracing.Endpoint = "localhost:4317"
	cfg.ModelArmor.FailurePolicy = "sometimes"

	a, err := newApp(context.Background(), cfg)
	require.Error(t, err)
	assert.Nil(t, a)

	_, span := otel.Tracer("check").Start(context.Background(), "after-shutdown")
	defer span.End()
	assert.False(t, span.IsRecording())
}
