package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/run-bigpig/agent-guard/pkg/modelarmor"
)

func TestParseKind(t *testing.T) {
	op, err := parseKind("prompt")
	require.NoError(t, err)
	assert.Equal(t, modelarmor.OperationUserPrompt, op)

	op, err = parseKind("RESPONSE")
	require.NoError(t, err)
	assert.Equal(t, modelarmor.OperationModelResponse, op)

	_, err = parseKind("tool")
	assert.Error(t, err)
}

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, cmd := range rootCmd.Commands() {
		names[cmd.Name()] = true
	}
	assert.True(t, names["chat"])
	assert.True(t, names["check"])
	assert.True(t, names["serve"])
}
