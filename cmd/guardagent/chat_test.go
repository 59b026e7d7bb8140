package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingRunner struct {
	sessions []string
	texts    []string
	err      error
}

func (r *recordingRunner) RunText(ctx context.Context, userID, sessionID, text string) (string, error) {
	r.sessions = append(r.sessions, sessionID)
	r.texts = append(r.texts, text)
	if r.err != nil {
		return "", r.err
	}
	return "reply to " + text, nil
}

func TestChatLoopKeepsOneSession(t *testing.T) {
	runner := &recordingRunner{}
	var out bytes.Buffer

	err := chatLoop(context.Background(), runner, "s-1", strings.NewReader("hello\n\n  second  \nexit\nignored\n"), &out)
	require.NoError(t, err)

	assert.Equal(t, []string{"hello", "second"}, runner.texts)
	assert.Equal(t, []string{"s-1", "s-1"}, runner.sessions)
	assert.Contains(t, out.String(), "reply to hello")
	assert.Contains(t, out.String(), "reply to second")
}

func TestChatLoopReportsErrorsAndContinues(t *testing.T) {
	runner := &recordingRunner{err: errors.New("model down")}
	var out bytes.Buffer

	require.NoError(t, chatLoop(context.Background(), runner, "s-1", strings.NewReader("a\nb\n"), &out))
	assert.Len(t, runner.texts, 2)
	assert.Equal(t, 2, strings.Count(out.String(), "error: model down"))
}
