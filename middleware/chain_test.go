package middleware

import (
	"context"
	"testing"

	"github.com/spicegraph/spicegraph/graph"
	"github.com/spicegraph/spicegraph/message"
	"github.com/spicegraph/spicegraph/result"
	"github.com/spicegraph/spicegraph/spiceerr"
)

// taggingTransformer appends tag to data["trail"] on every hook.
type taggingTransformer struct {
	NoOp
	tag string
}

func (t taggingTransformer) BeforeExecution(_ context.Context, _ *graph.Graph, m message.Message) graph.Result {
	return result.Ok(appendTrail(m, t.tag))
}

func (t taggingTransformer) BeforeNode(_ context.Context, _ *graph.Graph, _ string, m message.Message) graph.Result {
	return result.Ok(appendTrail(m, t.tag))
}

func appendTrail(m message.Message, tag string) message.Message {
	trail, _ := m.DataValue("trail")
	s, _ := trail.(string)
	return m.WithData(map[string]any{"trail": s + tag})
}

// failingTransformer always fails BeforeExecution.
type failingTransformer struct {
	NoOp
	continueOnFailure bool
}

func (f failingTransformer) BeforeExecution(_ context.Context, _ *graph.Graph, _ message.Message) graph.Result {
	return result.Err[message.Message](spiceerr.Execution("boom", "", "", nil))
}

func (f failingTransformer) ContinueOnFailure() bool { return f.continueOnFailure }

func TestChainThreadsMessageLeftToRight(t *testing.T) {
	c := NewChain(taggingTransformer{tag: "a"}, taggingTransformer{tag: "b"})
	m := message.New("hi", nil, nil)

	res := c.RunBeforeExecution(context.Background(), nil, m)
	if res.IsErr() {
		t.Fatalf("unexpected error: %v", res)
	}
	out, _ := res.Value()
	trail, _ := out.DataValue("trail")
	if trail != "ab" {
		t.Fatalf("expected trail=ab, got %v", trail)
	}
}

func TestChainAbortsOnFailureWhenContinueOnFailureFalse(t *testing.T) {
	c := NewChain(failingTransformer{continueOnFailure: false}, taggingTransformer{tag: "a"})
	m := message.New("hi", nil, nil)

	res := c.RunBeforeExecution(context.Background(), nil, m)
	if !res.IsErr() {
		t.Fatal("expected chain to abort on transformer failure")
	}
}

func TestChainSwallowsFailureWhenContinueOnFailureTrue(t *testing.T) {
	c := NewChain(failingTransformer{continueOnFailure: true}, taggingTransformer{tag: "a"})
	m := message.New("hi", nil, nil)

	res := c.RunBeforeExecution(context.Background(), nil, m)
	if res.IsErr() {
		t.Fatalf("unexpected error: %v", res)
	}
	out, _ := res.Value()
	trail, _ := out.DataValue("trail")
	if trail != "a" {
		t.Fatalf("expected trail=a (swallowed failure kept last good message), got %v", trail)
	}
}

func TestEmptyChainPassesMessageThroughUnchanged(t *testing.T) {
	c := NewChain()
	m := message.New("hi", map[string]any{"k": "v"}, nil)

	res := c.RunBeforeExecution(context.Background(), nil, m)
	if res.IsErr() {
		t.Fatalf("unexpected error: %v", res)
	}
	out, _ := res.Value()
	if v, _ := out.DataValue("k"); v != "v" {
		t.Fatalf("expected data preserved, got %v", v)
	}
}

func TestRunAfterNodeThreadsNodeOutput(t *testing.T) {
	c := NewChain(NoOp{})
	input := message.New("in", map[string]any{"phase": "input"}, nil)
	output := message.New("out", map[string]any{"phase": "output"}, nil)

	res := c.RunAfterNode(context.Background(), nil, "node-1", input, output)
	if res.IsErr() {
		t.Fatalf("unexpected error: %v", res)
	}
	out, _ := res.Value()
	if v, _ := out.DataValue("phase"); v != "output" {
		t.Fatalf("expected threaded output to start from the node's output, got %v", v)
	}
}
