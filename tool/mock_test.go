package tool

import (
	"context"
	"errors"
	"testing"
)

func TestMockTool_Name(t *testing.T) {
	t.Run("returns configured tool name", func(t *testing.T) {
		mock := &MockTool{ToolName: "search_web"}
		if mock.Name() != "search_web" {
			t.Errorf("expected Name() = 'search_web', got %q", mock.Name())
		}
	})

	t.Run("returns empty string when not configured", func(t *testing.T) {
		mock := &MockTool{}
		if mock.Name() != "" {
			t.Errorf("expected Name() = '', got %q", mock.Name())
		}
	})
}

func TestMockTool_SingleResult(t *testing.T) {
	t.Run("returns configured result", func(t *testing.T) {
		mock := &MockTool{
			ToolName: "calculator",
			Results:  []ToolResult{{Content: map[string]any{"result": 42}}},
		}

		result, err := mock.Execute(context.Background(), map[string]any{"operation": "add", "a": 40, "b": 2})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got, ok := result.Content["result"].(int); !ok || got != 42 {
			t.Errorf("expected result = 42, got %v", result.Content["result"])
		}
	})

	t.Run("repeats last result when exhausted", func(t *testing.T) {
		mock := &MockTool{
			ToolName: "echo",
			Results:  []ToolResult{{Content: map[string]any{"echo": "response"}}},
		}

		input := map[string]any{"message": "test"}
		out1, err := mock.Execute(context.Background(), input)
		if err != nil {
			t.Fatalf("first call failed: %v", err)
		}
		out2, err := mock.Execute(context.Background(), input)
		if err != nil {
			t.Fatalf("second call failed: %v", err)
		}
		if out1.Content["echo"] != out2.Content["echo"] {
			t.Errorf("expected same result, got %v and %v", out1.Content["echo"], out2.Content["echo"])
		}
	})

	t.Run("returns zero result when none configured", func(t *testing.T) {
		mock := &MockTool{ToolName: "empty_tool"}
		result, err := mock.Execute(context.Background(), map[string]any{"test": "data"})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(result.Content) != 0 {
			t.Errorf("expected empty content, got %v", result.Content)
		}
	})
}

func TestMockTool_MultipleResults(t *testing.T) {
	mock := &MockTool{
		ToolName: "counter",
		Results: []ToolResult{
			{Content: map[string]any{"count": 1}},
			{Content: map[string]any{"count": 2}},
			{Content: map[string]any{"count": 3}},
		},
	}

	input := map[string]any{}
	for i, want := range []int{1, 2, 3, 3} {
		out, err := mock.Execute(context.Background(), input)
		if err != nil {
			t.Fatalf("call %d failed: %v", i+1, err)
		}
		if out.Content["count"] != want {
			t.Errorf("call %d: expected count = %d, got %v", i+1, want, out.Content["count"])
		}
	}
}

func TestMockTool_ErrorInjection(t *testing.T) {
	t.Run("returns configured error", func(t *testing.T) {
		expectedErr := errors.New("tool execution failed")
		mock := &MockTool{
			ToolName: "failing_tool",
			Err:      expectedErr,
			Results:  []ToolResult{{Content: map[string]any{"should": "not return"}}},
		}

		_, err := mock.Execute(context.Background(), map[string]any{"test": "data"})
		if !errors.Is(err, expectedErr) {
			t.Errorf("expected error %v, got %v", expectedErr, err)
		}
	})

	t.Run("error takes precedence over results", func(t *testing.T) {
		mock := &MockTool{
			ToolName: "error_tool",
			Err:      errors.New("error"),
			Results:  []ToolResult{{Content: map[string]any{"data": "value"}}},
		}

		_, err := mock.Execute(context.Background(), map[string]any{})
		if err == nil {
			t.Fatal("expected error, got nil")
		}
	})
}

func TestMockTool_CallHistory(t *testing.T) {
	t.Run("records all calls", func(t *testing.T) {
		mock := &MockTool{ToolName: "tracker", Results: []ToolResult{{Content: map[string]any{"ok": true}}}}

		input1 := map[string]any{"query": "first"}
		input2 := map[string]any{"query": "second", "limit": 10}

		_, _ = mock.Execute(context.Background(), input1)
		_, _ = mock.Execute(context.Background(), input2)

		calls := mock.Calls()
		if len(calls) != 2 {
			t.Fatalf("expected 2 calls recorded, got %d", len(calls))
		}
		if calls[0].Params["query"] != "first" {
			t.Errorf("call 0: expected query = 'first', got %v", calls[0].Params["query"])
		}
		if calls[1].Params["query"] != "second" || calls[1].Params["limit"] != 10 {
			t.Errorf("call 1: unexpected params %v", calls[1].Params)
		}
	})

	t.Run("records calls even when error configured", func(t *testing.T) {
		mock := &MockTool{ToolName: "error_tracker", Err: errors.New("error")}
		_, _ = mock.Execute(context.Background(), map[string]any{"test": "data"})
		if mock.CallCount() != 1 {
			t.Errorf("expected 1 call recorded, got %d", mock.CallCount())
		}
	})

	t.Run("records nil params", func(t *testing.T) {
		mock := &MockTool{ToolName: "nil_input_tool", Results: []ToolResult{{Content: map[string]any{"time": "now"}}}}
		_, _ = mock.Execute(context.Background(), nil)

		calls := mock.Calls()
		if len(calls) != 1 {
			t.Fatalf("expected 1 call recorded, got %d", len(calls))
		}
		if calls[0].Params != nil {
			t.Errorf("expected nil params, got %v", calls[0].Params)
		}
	})
}

func TestMockTool_Reset(t *testing.T) {
	t.Run("clears call history", func(t *testing.T) {
		mock := &MockTool{ToolName: "resettable", Results: []ToolResult{{Content: map[string]any{"ok": true}}}}
		input := map[string]any{"test": "data"}

		_, _ = mock.Execute(context.Background(), input)
		_, _ = mock.Execute(context.Background(), input)
		if mock.CallCount() != 2 {
			t.Fatalf("expected 2 calls before reset, got %d", mock.CallCount())
		}

		mock.Reset()
		if mock.CallCount() != 0 {
			t.Errorf("expected 0 calls after reset, got %d", mock.CallCount())
		}
	})

	t.Run("resets result index", func(t *testing.T) {
		mock := &MockTool{
			ToolName: "sequence",
			Results: []ToolResult{
				{Content: map[string]any{"value": "first"}},
				{Content: map[string]any{"value": "second"}},
			},
		}
		input := map[string]any{}

		out1, _ := mock.Execute(context.Background(), input)
		if out1.Content["value"] != "first" {
			t.Fatalf("expected 'first', got %v", out1.Content["value"])
		}

		mock.Reset()

		out2, _ := mock.Execute(context.Background(), input)
		if out2.Content["value"] != "first" {
			t.Errorf("expected 'first' after reset, got %v", out2.Content["value"])
		}
	})
}

func TestMockTool_CallCount(t *testing.T) {
	mock := &MockTool{ToolName: "counted", Results: []ToolResult{{Content: map[string]any{"ok": true}}}}

	if mock.CallCount() != 0 {
		t.Errorf("expected 0 calls initially, got %d", mock.CallCount())
	}

	input := map[string]any{"test": "data"}
	_, _ = mock.Execute(context.Background(), input)
	if mock.CallCount() != 1 {
		t.Errorf("expected 1 call, got %d", mock.CallCount())
	}
	_, _ = mock.Execute(context.Background(), input)
	if mock.CallCount() != 2 {
		t.Errorf("expected 2 calls, got %d", mock.CallCount())
	}

	mock.Reset()
	if mock.CallCount() != 0 {
		t.Errorf("expected 0 calls after reset, got %d", mock.CallCount())
	}
}

func TestMockTool_ContextCancellation(t *testing.T) {
	mock := &MockTool{ToolName: "cancellable", Results: []ToolResult{{Content: map[string]any{"should": "not return"}}}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := mock.Execute(ctx, map[string]any{"test": "data"})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled error, got %v", err)
	}
	if mock.CallCount() != 0 {
		t.Errorf("expected 0 calls when context cancelled, got %d", mock.CallCount())
	}
}

func TestMockTool_ComplexResults(t *testing.T) {
	mock := &MockTool{
		ToolName: "complex_tool",
		Results: []ToolResult{{Content: map[string]any{
			"results": []any{
				map[string]any{"id": 1, "name": "item1"},
				map[string]any{"id": 2, "name": "item2"},
			},
			"metadata": map[string]any{"total": 2, "page": 1},
		}}},
	}

	result, err := mock.Execute(context.Background(), map[string]any{"query": "test"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	results, ok := result.Content["results"].([]any)
	if !ok || len(results) != 2 {
		t.Fatalf("expected 2 results, got %v", result.Content["results"])
	}

	metadata, ok := result.Content["metadata"].(map[string]any)
	if !ok || metadata["total"] != 2 {
		t.Errorf("expected metadata.total = 2, got %v", metadata)
	}
}

func TestMockTool_CanExecute(t *testing.T) {
	t.Run("no schema always executable", func(t *testing.T) {
		mock := &MockTool{ToolName: "no_schema"}
		if !mock.CanExecute(map[string]any{}) {
			t.Error("expected CanExecute = true with no schema")
		}
	})

	t.Run("AlwaysExecutable overrides schema", func(t *testing.T) {
		mock := &MockTool{
			ToolName:         "forced",
			Schema:           map[string]any{"required": []string{"missing"}},
			AlwaysExecutable: true,
		}
		if !mock.CanExecute(map[string]any{}) {
			t.Error("expected CanExecute = true with AlwaysExecutable set")
		}
	})

	t.Run("rejects missing required field", func(t *testing.T) {
		mock := &MockTool{
			ToolName: "strict",
			Schema:   map[string]any{"required": []string{"query"}},
		}
		if mock.CanExecute(map[string]any{}) {
			t.Error("expected CanExecute = false when required field missing")
		}
		if !mock.CanExecute(map[string]any{"query": "x"}) {
			t.Error("expected CanExecute = true when required field present")
		}
	})
}

func TestMockTool_Concurrency(t *testing.T) {
	mock := &MockTool{ToolName: "concurrent", Results: []ToolResult{{Content: map[string]any{"ok": true}}}}
	input := map[string]any{"test": "data"}

	const goroutines = 10
	done := make(chan bool, goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			_, _ = mock.Execute(context.Background(), input)
			done <- true
		}()
	}
	for i := 0; i < goroutines; i++ {
		<-done
	}

	if mock.CallCount() != goroutines {
		t.Errorf("expected %d calls, got %d", goroutines, mock.CallCount())
	}
}
