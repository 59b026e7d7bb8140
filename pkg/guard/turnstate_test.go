package guard

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/run-bigpig/agent-guard/pkg/session"
)

func TestTurnStateDefaultsToSafe(t *testing.T) {
	turn := NewTurnState(session.NewState())
	assert.True(t, turn.PromptIsSafe())

	reason, unsafe := turn.Consume()
	assert.False(t, unsafe)
	assert.Empty(t, reason)
}

func TestTurnStateIgnoresForeignValues(t *testing.T) {
	st := session.NewState()
	st.Set(StateKeyPromptSafe, "no")
	assert.True(t, NewTurnState(st).PromptIsSafe())
}

func TestTurnStateConsumeResets(t *testing.T) {
	st := session.NewState()
	turn := NewTurnState(st)

	turn.MarkUnsafe("because")
	assert.False(t, turn.PromptIsSafe())

	reason, unsafe := turn.Consume()
	assert.True(t, unsafe)
	assert.Equal(t, "because", reason)

	assert.True(t, turn.PromptIsSafe())
	_, ok := st.Get(StateKeyUnsafeReason)
	assert.False(t, ok)

	_, unsafe = turn.Consume()
	assert.False(t, unsafe)
}
