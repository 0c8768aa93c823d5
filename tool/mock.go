package tool

import (
	"context"
	"sync"
)

// MockTool is a test double for Tool: a configurable name/description/
// schema plus a queue of canned ToolResults and full call-history
// tracking, grounded on the teacher's graph/tool/mock.go MockTool,
// generalized to the Execute/CanExecute/ToOpenAIFunctionSpec surface.
type MockTool struct {
	// ToolName, ToolDescription and Schema back the Name/Description/
	// Parameters methods.
	ToolName        string
	ToolDescription string
	Schema          map[string]any

	// Results is the sequence of outputs Execute returns in order; once
	// exhausted, the last result repeats.
	Results []ToolResult

	// Err, if set, is returned by Execute instead of a result.
	Err error

	// AlwaysExecutable makes CanExecute report true unconditionally,
	// useful for tests that don't care about schema validation.
	AlwaysExecutable bool

	mu        sync.Mutex
	calls     []MockToolCall
	callIndex int
}

// MockToolCall records one Execute invocation.
type MockToolCall struct {
	Params map[string]any
}

// Name implements Tool.
func (m *MockTool) Name() string { return m.ToolName }

// Description implements Tool.
func (m *MockTool) Description() string { return m.ToolDescription }

// Parameters implements Tool.
func (m *MockTool) Parameters() map[string]any { return m.Schema }

// CanExecute implements Tool. Without a Schema configured, or with
// AlwaysExecutable set, every call is accepted.
func (m *MockTool) CanExecute(params map[string]any) bool {
	if m.AlwaysExecutable || m.Schema == nil {
		return true
	}
	required, _ := m.Schema["required"].([]string)
	for _, key := range required {
		if _, ok := params[key]; !ok {
			return false
		}
	}
	return true
}

// ToOpenAIFunctionSpec implements Tool.
func (m *MockTool) ToOpenAIFunctionSpec(strict bool) map[string]any {
	return OpenAIFunctionSpec(m.ToolName, m.ToolDescription, m.Schema, strict)
}

// Execute implements Tool: returns the next queued result (or repeats the
// last), recording every call regardless of outcome.
func (m *MockTool) Execute(ctx context.Context, params map[string]any) (ToolResult, error) {
	if ctx.Err() != nil {
		return ToolResult{}, ctx.Err()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, MockToolCall{Params: params})

	if m.Err != nil {
		return ToolResult{}, m.Err
	}
	if len(m.Results) == 0 {
		return ToolResult{}, nil
	}

	idx := m.callIndex
	if idx >= len(m.Results) {
		idx = len(m.Results) - 1
	} else {
		m.callIndex++
	}
	return m.Results[idx], nil
}

// Reset clears call history and rewinds the result sequence.
func (m *MockTool) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
	m.callIndex = 0
}

// CallCount returns how many times Execute has been called.
func (m *MockTool) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// Calls returns a copy of the recorded call history.
func (m *MockTool) Calls() []MockToolCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockToolCall, len(m.calls))
	copy(out, m.calls)
	return out
}
