package guard

import "github.com/run-bigpig/agent-guard/pkg/interfaces"

// Session state keys written by the plugin
const (
	StateKeyPromptSafe   = "is_user_prompt_safe"
	StateKeyUnsafeReason = "user_prompt_unsafe_reason"
)

const unknownReason = "Unknown"

// TurnState is the verdict on the current user prompt, staged by
// OnUserMessage and consumed by BeforeRun.
//
// Contract: an absent flag reads as safe, and Consume always leaves the state
// safe, so a verdict never outlives the turn it was raised in. Only the
// plugin writes these keys.
type TurnState struct {
	state interfaces.State
}

// NewTurnState wraps a session's state
func NewTurnState(state interfaces.State) TurnState {
	return TurnState{state: state}
}

// PromptIsSafe reports the staged verdict
func (t TurnState) PromptIsSafe() bool {
	v, ok := t.state.Get(StateKeyPromptSafe)
	if !ok {
		return true
	}
	safe, ok := v.(bool)
	if !ok {
		return true
	}
	return safe
}

// MarkUnsafe stages an unsafe verdict with its reason
func (t TurnState) MarkUnsafe(reason string) {
	t.state.Set(StateKeyPromptSafe, false)
	t.state.Set(StateKeyUnsafeReason, reason)
}

// MarkSafe stages a safe verdict
func (t TurnState) MarkSafe() {
	t.state.Set(StateKeyPromptSafe, true)
	t.state.Delete(StateKeyUnsafeReason)
}

// Consume returns the staged reason if the prompt was unsafe and resets the
// state to safe
func (t TurnState) Consume() (reason string, unsafe bool) {
	if t.PromptIsSafe() {
		return "", false
	}

	reason = unknownReason
	if v, ok := t.state.Get(StateKeyUnsafeReason); ok {
		if s, ok := v.(string); ok && s != "" {
			reason = s
		}
	}

	t.MarkSafe()
	return reason, true
}
