package graph

import (
	"context"
	"fmt"

	"github.com/spicegraph/spicegraph/message"
	"github.com/spicegraph/spicegraph/result"
	"github.com/spicegraph/spicegraph/spiceerr"
	"github.com/spicegraph/spicegraph/tool"
)

const (
	// DefaultToolInputKey is the default data key ToolNode reads its
	// parameters from.
	DefaultToolInputKey = "toolInput"

	// DefaultToolResultKey is the default data key ToolNode writes its
	// result to.
	DefaultToolResultKey = "toolResult"
)

// validationErrorer is implemented by tool.SchemaValidator: ToolNode prefers
// its detailed error over the bare bool from Tool.CanExecute when reporting
// why a call was rejected (spec §6: "canExecute(params) → bool for
// pre-validation").
type validationErrorer interface {
	ValidationError(input map[string]interface{}) error
}

// ToolNode wraps a Tool (spec §3/§6). It reads its parameters from
// message.Data()[InputKey] (default "toolInput") and writes the tool's
// output to message.Data()[OutputKey] (default "toolResult").
type ToolNode struct {
	Tool      tool.Tool
	InputKey  string
	OutputKey string
}

// NewToolNode wraps t with the default input/output data keys.
func NewToolNode(t tool.Tool) *ToolNode {
	return &ToolNode{Tool: t, InputKey: DefaultToolInputKey, OutputKey: DefaultToolResultKey}
}

func (n *ToolNode) inputKey() string {
	if n.InputKey != "" {
		return n.InputKey
	}
	return DefaultToolInputKey
}

func (n *ToolNode) outputKey() string {
	if n.OutputKey != "" {
		return n.OutputKey
	}
	return DefaultToolResultKey
}

// Run executes the wrapped tool against message.Data()[InputKey] and
// stores the output under message.Data()[OutputKey].
func (n *ToolNode) Run(ctx context.Context, m message.Message) Result {
	params, _ := m.DataValue(n.inputKey())
	input, _ := params.(map[string]interface{})
	if input == nil {
		input = map[string]interface{}{}
	}

	if !n.Tool.CanExecute(input) {
		if ve, ok := n.Tool.(validationErrorer); ok {
			if err := ve.ValidationError(input); err != nil {
				return result.Err[message.Message](spiceerr.Validation(err.Error()))
			}
		}
		return result.Err[message.Message](spiceerr.Validation(n.Tool.Name() + ": input does not satisfy tool parameters"))
	}

	output, err := n.Tool.Execute(ctx, input)
	if err != nil {
		return result.Err[message.Message](spiceerr.Tool(n.Tool.Name()+" failed", err))
	}
	if output.IsError {
		return result.Err[message.Message](spiceerr.Tool(n.Tool.Name()+" reported an error", fmt.Errorf("%s", output.Error)))
	}

	next := m.WithData(map[string]any{n.outputKey(): output.Content})
	return result.Ok(next)
}
