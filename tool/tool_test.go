package tool

import (
	"context"
	"errors"
	"testing"
)

func TestTool_InterfaceContract(t *testing.T) {
	var _ Tool = (*localTool)(nil)
}

// localTool is a minimal Tool implementation independent of MockTool, to
// keep this file's assertions about the interface shape itself.
type localTool struct {
	name   string
	called bool
	input  map[string]any
	output map[string]any
	err    error
}

func (t *localTool) Name() string                     { return t.name }
func (t *localTool) Description() string              { return "test tool" }
func (t *localTool) Parameters() map[string]any        { return map[string]any{"type": "object"} }
func (t *localTool) CanExecute(map[string]any) bool    { return true }
func (t *localTool) ToOpenAIFunctionSpec(strict bool) map[string]any {
	return OpenAIFunctionSpec(t.name, t.Description(), t.Parameters(), strict)
}

func (t *localTool) Execute(_ context.Context, params map[string]any) (ToolResult, error) {
	t.called = true
	t.input = params
	if t.err != nil {
		return ToolResult{}, t.err
	}
	return ToolResult{Content: t.output}, nil
}

func TestTool_Name(t *testing.T) {
	tests := []struct {
		name     string
		toolName string
	}{
		{"simple name", "calculator"},
		{"descriptive name", "weather_api"},
		{"with hyphens", "http-client"},
		{"with underscores", "data_processor"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lt := &localTool{name: tt.toolName}
			if got := lt.Name(); got != tt.toolName {
				t.Errorf("Name() = %q, want %q", got, tt.toolName)
			}
		})
	}
}

func TestTool_ExecuteSuccess(t *testing.T) {
	lt := &localTool{name: "echo", output: map[string]any{"message": "hello world"}}

	result, err := lt.Execute(context.Background(), map[string]any{"text": "hello world"})
	if err != nil {
		t.Fatalf("Execute() error = %v, want nil", err)
	}
	if result.Content["message"] != "hello world" {
		t.Errorf("Execute() = %v, want 'hello world'", result.Content["message"])
	}
	if !lt.called {
		t.Error("Execute() was not called")
	}
	if lt.input["text"] != "hello world" {
		t.Errorf("tool received input %v, want 'hello world'", lt.input["text"])
	}
}

func TestTool_ExecuteWithNilParams(t *testing.T) {
	lt := &localTool{name: "no-input", output: map[string]any{"status": "done"}}

	result, err := lt.Execute(context.Background(), nil)
	if err != nil {
		t.Fatalf("Execute() error = %v, want nil", err)
	}
	if result.Content["status"] != "done" {
		t.Errorf("Execute() status = %v, want 'done'", result.Content["status"])
	}
}

func TestTool_ExecuteReturnsError(t *testing.T) {
	expectedErr := errors.New("tool execution failed")
	lt := &localTool{name: "failing-tool", err: expectedErr}

	_, err := lt.Execute(context.Background(), map[string]any{"test": "input"})
	if !errors.Is(err, expectedErr) {
		t.Errorf("Execute() error = %v, want %v", err, expectedErr)
	}
}

func TestTool_ToOpenAIFunctionSpecIncludesStrictAdditionalProperties(t *testing.T) {
	lt := &localTool{name: "calculate"}
	spec := lt.ToOpenAIFunctionSpec(true)

	if spec["type"] != "function" || spec["name"] != "calculate" {
		t.Fatalf("unexpected spec shape: %v", spec)
	}
	if spec["strict"] != true {
		t.Fatalf("expected strict=true, got %v", spec["strict"])
	}
	params, _ := spec["parameters"].(map[string]any)
	if params["additionalProperties"] != false {
		t.Fatalf("expected strict mode to set additionalProperties=false, got %v", params)
	}
}

func TestTool_ToOpenAIFunctionSpecNonStrictOmitsFlag(t *testing.T) {
	lt := &localTool{name: "calculate"}
	spec := lt.ToOpenAIFunctionSpec(false)

	if _, ok := spec["strict"]; ok {
		t.Fatalf("expected no strict key for non-strict spec, got %v", spec)
	}
}

func TestTool_ConcurrentExecute(t *testing.T) {
	lt := &localTool{name: "concurrent", output: map[string]any{"status": "success"}}

	const numGoroutines = 10
	errChan := make(chan error, numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func(id int) {
			_, err := lt.Execute(context.Background(), map[string]any{"id": id})
			errChan <- err
		}(i)
	}
	for i := 0; i < numGoroutines; i++ {
		if err := <-errChan; err != nil {
			t.Errorf("concurrent execute %d failed: %v", i, err)
		}
	}
}
