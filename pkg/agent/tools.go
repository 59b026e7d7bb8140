package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/run-bigpig/agent-guard/pkg/interfaces"
)

// guardedTool passes every result of the wrapped tool through the plugins'
// AfterTool hooks before it reaches the model
type guardedTool struct {
	interfaces.Tool
	inv     *interfaces.InvocationContext
	plugins []interfaces.Plugin
}

func (a *Agent) guardTools(inv *interfaces.InvocationContext) []interfaces.Tool {
	if len(a.plugins) == 0 {
		return a.tools
	}
	tools := make([]interfaces.Tool, len(a.tools))
	for i, tool := range a.tools {
		tools[i] = &guardedTool{Tool: tool, inv: inv, plugins: a.plugins}
	}
	return tools
}

// Execute runs the tool, then lets the first plugin that overrides the
// result replace it. An override is returned JSON encoded.
func (t *guardedTool) Execute(ctx context.Context, args string) (string, error) {
	output, err := t.Tool.Execute(ctx, args)
	if err != nil {
		return "", err
	}

	tc := &interfaces.ToolContext{
		InvocationContext: t.inv,
		FunctionCallID:    "call-" + uuid.NewString(),
	}
	decodedArgs := decodeArgs(args)
	result := map[string]any{"result": output}

	for _, plugin := range t.plugins {
		override, err := plugin.AfterTool(ctx, t.Tool, decodedArgs, tc, result)
		if err != nil {
			return "", fmt.Errorf("plugin %s after tool: %w", plugin.Name(), err)
		}
		if override != nil {
			encoded, err := json.Marshal(override)
			if err != nil {
				return "", fmt.Errorf("failed to encode tool result: %w", err)
			}
			return string(encoded), nil
		}
	}
	return output, nil
}

func decodeArgs(args string) map[string]any {
	decoded := map[string]any{}
	if args == "" {
		return decoded
	}
	if err := json.Unmarshal([]byte(args), &decoded); err != nil {
		return map[string]any{"raw": args}
	}
	return decoded
}
