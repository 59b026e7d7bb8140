package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var lines []map[string]interface{}
	dec := json.NewDecoder(buf)
	for dec.More() {
		var line map[string]interface{}
		require.NoError(t, dec.Decode(&line))
		lines = append(lines, line)
	}
	return lines
}

func TestLoggerAddsContextFields(t *testing.T) {
	var buf bytes.Buffer
	logger := New(WithOutput(&buf), WithConsole(false), WithLevel("debug"))

	ctx := WithInvocationID(context.Background(), "inv-1")
	ctx = WithSessionID(ctx, "sess-1")

	logger.Info(ctx, "turn started", map[string]interface{}{"agent": "helper"})

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "info", lines[0]["level"])
	assert.Equal(t, "turn started", lines[0]["message"])
	assert.Equal(t, "inv-1", lines[0]["invocation_id"])
	assert.Equal(t, "sess-1", lines[0]["session_id"])
	assert.Equal(t, "helper", lines[0]["agent"])
}

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := New(WithOutput(&buf), WithConsole(false), WithLevel("warn"))

	ctx := context.Background()
	logger.Debug(ctx, "debug", nil)
	logger.Info(ctx, "info", nil)
	logger.Warn(ctx, "warn", nil)
	logger.Error(ctx, "error", map[string]interface{}{"error": errors.New("boom")})

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "warn", lines[0]["message"])
	assert.Equal(t, "error", lines[1]["message"])
	assert.Equal(t, "boom", lines[1]["error"])
}

func TestInvalidLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := New(WithOutput(&buf), WithConsole(false), WithLevel("loud"))

	logger.Debug(context.Background(), "hidden", nil)
	logger.Info(context.Background(), "shown", nil)

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "shown", lines[0]["message"])
}

func TestNopLogger(t *testing.T) {
	logger := NewNop()
	assert.NotPanics(t, func() {
		logger.Error(context.Background(), "ignored", map[string]interface{}{"k": "v"})
	})
}
