// Package tool defines the Tool contract a ToolNode invokes (spec §3/§6:
// "execute(params) -> ToolResult; canExecute(params) -> bool for
// pre-validation; toOpenAIFunctionSpec(strict?) -> map exports the
// schema"). Grounded on the teacher's graph/tool/tool.go Name()/Call()
// shape, generalized from an untyped (map, error) return into ToolResult
// and extended with the schema-export surface spec.md names but the
// teacher never needed (it has no function-calling spec export).
package tool

import "context"

// ToolResult carries a tool's structured output back to the calling
// ToolNode. IsError distinguishes a tool-reported failure (bad input,
// upstream rejection) from a Go error returned by Execute itself, matching
// the dual error-reporting channel model of request_user_input / LLM
// function-call results (spec §6's HITL tool-call schemas use the same
// split between a transport-level error and an in-band failure flag).
type ToolResult struct {
	Content map[string]any
	IsError bool
	Error   string
}

// Tool is an executable capability a ToolNode can wrap. Parameters
// describes Tool's expected input as a JSON Schema document so CanExecute
// and ToOpenAIFunctionSpec have something concrete to validate/export.
type Tool interface {
	// Name is the unique identifier used in tool-call records and
	// function-spec exports (lowercase, underscore-separated by
	// convention, e.g. "search_web", "get_weather").
	Name() string

	// Description is a short human/LLM-facing summary of what the tool
	// does, exported verbatim in ToOpenAIFunctionSpec.
	Description() string

	// Parameters is the JSON Schema document describing Execute's
	// expected params shape.
	Parameters() map[string]any

	// Execute runs the tool against params and returns its result.
	// Implementations should check ctx.Err() before expensive work and
	// prefer ToolResult.IsError over a Go error for failures the caller
	// can reasonably hand back to an LLM as structured feedback.
	Execute(ctx context.Context, params map[string]any) (ToolResult, error)

	// CanExecute reports whether params satisfies Parameters, so a
	// ToolNode can reject a malformed call without spending a retry
	// attempt on it.
	CanExecute(params map[string]any) bool

	// ToOpenAIFunctionSpec exports Name/Description/Parameters in the
	// OpenAI function-calling tool format. When strict is true, the
	// exported parameters additionally require additionalProperties:
	// false, matching OpenAI's structured-output strict mode.
	ToOpenAIFunctionSpec(strict bool) map[string]any
}

// OpenAIFunctionSpec builds the map ToOpenAIFunctionSpec implementations
// return, so each Tool doesn't repeat the wire-format bookkeeping.
// Grounded on the "2389-research-mammoth" pack repo's
// OpenAIAdapter.translateTools, which maps a unified tool definition to the
// same {"type":"function","name":...,"parameters":...} shape.
func OpenAIFunctionSpec(name, description string, parameters map[string]any, strict bool) map[string]any {
	spec := map[string]any{
		"type":        "function",
		"name":        name,
		"description": description,
		"parameters":  parameters,
	}
	if strict {
		spec["strict"] = true
		if parameters != nil {
			parameters["additionalProperties"] = false
		}
	}
	return spec
}
