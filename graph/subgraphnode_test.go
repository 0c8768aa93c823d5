package graph

import (
	"context"
	"testing"

	"github.com/spicegraph/spicegraph/checkpoint"
	"github.com/spicegraph/spicegraph/message"
	"github.com/spicegraph/spicegraph/result"
)

type fakeRunner struct {
	captured message.Message
	result   Result
}

func (f *fakeRunner) Execute(_ context.Context, _ *Graph, m message.Message) Result {
	f.captured = m
	return f.result
}

func mustChildGraph(t *testing.T, id string) *Graph {
	t.Helper()
	b := NewBuilder(id)
	if err := b.AddNode("start", stubNode{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b.EntryPoint("start")
	g, err := b.Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return g
}

func TestSubgraphNodeRejectsAtDepthLimit(t *testing.T) {
	child := mustChildGraph(t, "child")
	n := NewSubgraphNode("sub", child, nil, nil, 2)

	parent := message.New("hi", nil, nil).
		WithCoordinates("parent", "sub", "run-1").
		WithMetadata(map[string]any{"subgraphDepth": 2})

	res := n.RunWithRunner(context.Background(), parent, &fakeRunner{})
	if !res.IsErr() {
		t.Fatal("expected depth limit error")
	}
}

func TestSubgraphNodeResolvesInputMapping(t *testing.T) {
	child := mustChildGraph(t, "child")
	n := NewSubgraphNode("sub", child, map[string]string{"childKey": "{{data.parentValue}}"}, nil, 0)

	parent := message.New("hi", map[string]any{"parentValue": "abc"}, nil).
		WithCoordinates("parent", "sub", "run-1")

	fr := &fakeRunner{result: result.Ok(message.New("done", nil, nil).Transition(message.Running, "start").Transition(message.Completed, "done"))}
	res := n.RunWithRunner(context.Background(), parent, fr)
	if res.IsErr() {
		t.Fatalf("unexpected error: %v", res)
	}

	if v, ok := fr.captured.DataValue("childKey"); !ok || v != "abc" {
		t.Fatalf("expected childKey=abc in child message data, got %v (ok=%v)", v, ok)
	}
	if v, ok := fr.captured.DataValue("parentValue"); !ok || v != "abc" {
		t.Fatalf("expected parent data to still be present, got %v (ok=%v)", v, ok)
	}
	if fr.captured.RunID() != "run-1:subgraph:child" {
		t.Fatalf("unexpected child run id: %s", fr.captured.RunID())
	}
}

func TestSubgraphNodeWaitingBuildsSubgraphStack(t *testing.T) {
	child := mustChildGraph(t, "child")
	n := NewSubgraphNode("sub", child, nil, map[string]string{"childOut": "parentOut"}, 0)

	parent := message.New("hi", nil, nil).
		WithCoordinates("parent", "sub", "run-1")

	childWaiting := message.New("paused", nil, nil).
		WithCoordinates("child", "inner", "run-1:subgraph:child").
		Transition(message.Running, "start").
		Transition(message.Waiting, "paused")

	fr := &fakeRunner{result: result.Ok(childWaiting)}
	res := n.RunWithRunner(context.Background(), parent, fr)
	if res.IsErr() {
		t.Fatalf("unexpected error: %v", res)
	}
	next, _ := res.Value()

	if next.State() != message.Waiting {
		t.Fatalf("expected WAITING, got %s", next.State())
	}
	if next.GraphID() != "parent" || next.RunID() != "run-1" {
		t.Fatalf("expected parent coordinates restored, got graphId=%s runId=%s", next.GraphID(), next.RunID())
	}

	stackVal, ok := next.MetadataValue(subgraphStackKey)
	if !ok {
		t.Fatal("expected subgraph stack in metadata")
	}
	stack, ok := stackVal.([]checkpoint.SubgraphCheckpointContext)
	if !ok || len(stack) != 1 {
		t.Fatalf("unexpected stack: %+v", stackVal)
	}
	if stack[0].ChildGraphID != "child" || stack[0].ParentNodeID != "sub" {
		t.Fatalf("unexpected stack entry: %+v", stack[0])
	}
}

func TestSubgraphNodeCompletedAppliesOutputMapping(t *testing.T) {
	child := mustChildGraph(t, "child")
	n := NewSubgraphNode("sub", child, nil, map[string]string{"childOut": "parentOut"}, 0)

	parent := message.New("hi", map[string]any{"keep": "me"}, nil).
		WithCoordinates("parent", "sub", "run-1")

	childDone := message.New("done", map[string]any{"childOut": "value", "untouched": 1}, nil).
		Transition(message.Running, "start").
		Transition(message.Completed, "done")

	fr := &fakeRunner{result: result.Ok(childDone)}
	res := n.RunWithRunner(context.Background(), parent, fr)
	if res.IsErr() {
		t.Fatalf("unexpected error: %v", res)
	}
	next, _ := res.Value()

	if v, ok := next.DataValue("parentOut"); !ok || v != "value" {
		t.Fatalf("expected mapped parentOut=value, got %v (ok=%v)", v, ok)
	}
	if v, ok := next.DataValue("untouched"); !ok || v != 1 {
		t.Fatalf("expected unmapped child key to propagate, got %v (ok=%v)", v, ok)
	}
	if v, ok := next.DataValue("keep"); !ok || v != "me" {
		t.Fatalf("expected parent data to survive, got %v (ok=%v)", v, ok)
	}
	if v, ok := next.MetadataValue("lastSubgraphId"); !ok || v != "child" {
		t.Fatalf("expected lastSubgraphId=child, got %v (ok=%v)", v, ok)
	}
}
