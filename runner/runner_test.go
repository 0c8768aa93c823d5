package runner

import (
	"context"
	"testing"
	"time"

	"github.com/spicegraph/spicegraph/graph"
	"github.com/spicegraph/spicegraph/message"
	"github.com/spicegraph/spicegraph/middleware"
	"github.com/spicegraph/spicegraph/result"
	"github.com/spicegraph/spicegraph/retry"
	"github.com/spicegraph/spicegraph/spiceerr"
)

// countingNode fails its first `failures` calls then succeeds, to exercise retry.
type countingNode struct {
	failures int
	calls    int
}

func (n *countingNode) Run(_ context.Context, m message.Message) graph.Result {
	n.calls++
	if n.calls <= n.failures {
		return result.Err[message.Message](spiceerr.Network("transient", 503))
	}
	return result.Ok(m.WithData(map[string]any{"calls": n.calls}))
}

type alwaysFailNode struct{}

func (alwaysFailNode) Run(_ context.Context, m message.Message) graph.Result {
	return result.Err[message.Message](spiceerr.Validation("always fails"))
}

func buildLinearGraph(t *testing.T, entry graph.Node, second graph.Node) *graph.Graph {
	t.Helper()
	b := graph.NewBuilder("g1")
	if err := b.AddNode("a", entry); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second != nil {
		if err := b.AddNode("b", second); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		_ = b.Connect("a", "b", nil)
	} else {
		b.AddSink("__end__")
		_ = b.Connect("a", "__end__", nil)
	}
	b.EntryPoint("a")
	g, err := b.Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return g
}

func newRunner() *Runner {
	return New(middleware.NewChain(middleware.NoOp{}), retry.Supervisor{})
}

func TestExecuteCompletesAtDeclaredSink(t *testing.T) {
	g := buildLinearGraph(t, graph.NewOutputNode(nil), nil)
	r := newRunner()

	m := message.New("hi", nil, nil)
	res := r.Execute(context.Background(), g, m)
	if res.IsErr() {
		t.Fatalf("unexpected error: %v", res.Error())
	}
	out, _ := res.Value()
	if out.State() != message.Completed {
		t.Fatalf("expected COMPLETED, got %s", out.State())
	}
}

func TestExecutePausesOnHumanNode(t *testing.T) {
	human := graph.NewHumanNode("a")
	human.Question = "continue?"
	g := buildLinearGraph(t, human, nil)
	r := newRunner()

	m := message.New("hi", nil, nil)
	res := r.Execute(context.Background(), g, m)
	if res.IsErr() {
		t.Fatalf("unexpected error: %v", res.Error())
	}
	out, _ := res.Value()
	if out.State() != message.Waiting {
		t.Fatalf("expected WAITING, got %s", out.State())
	}
	if len(out.ToolCalls()) != 1 {
		t.Fatalf("expected one queued tool call, got %d", len(out.ToolCalls()))
	}
}

func TestExecuteRetriesTransientFailureThenSucceeds(t *testing.T) {
	node := &countingNode{failures: 2}
	r := New(middleware.NewChain(), retry.Supervisor{})

	policy := retry.Policy{MaxAttempts: 3, InitialDelay: 0, BackoffMultiplier: 1, MaxDelay: 0, JitterFactor: 0}
	b := graph.NewBuilder("g2")
	_ = b.AddNode("a", node)
	b.AddSink("__end__")
	_ = b.Connect("a", "__end__", nil)
	b.EntryPoint("a")
	b.Configure(graph.Config{RetryPolicy: policy})
	g2, err := b.Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	m := message.New("hi", nil, nil)
	res := r.Execute(context.Background(), g2, m)
	if res.IsErr() {
		t.Fatalf("unexpected error: %v", res.Error())
	}
	out, _ := res.Value()
	if out.State() != message.Completed {
		t.Fatalf("expected COMPLETED, got %s", out.State())
	}
	if node.calls != 3 {
		t.Fatalf("expected 3 calls (2 failures + 1 success), got %d", node.calls)
	}
}

func TestExecuteFailsWhenRetriesExhausted(t *testing.T) {
	node := &countingNode{failures: 10}
	policy := retry.NoRetry
	b := graph.NewBuilder("g3")
	_ = b.AddNode("a", node)
	b.AddSink("__end__")
	_ = b.Connect("a", "__end__", nil)
	b.EntryPoint("a")
	b.Configure(graph.Config{RetryPolicy: policy})
	g, err := b.Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r := newRunner()

	m := message.New("hi", nil, nil)
	res := r.Execute(context.Background(), g, m)
	if !res.IsErr() {
		t.Fatal("expected execution failure")
	}
}

func TestExecuteSurfacesNonRetryableFailureImmediately(t *testing.T) {
	g := buildLinearGraph(t, alwaysFailNode{}, nil)
	r := newRunner()

	m := message.New("hi", nil, nil)
	res := r.Execute(context.Background(), g, m)
	if !res.IsErr() {
		t.Fatal("expected execution failure")
	}
}

func TestExecuteReturnsRoutingErrorWhenNoEdgeMatchesNonOutputNode(t *testing.T) {
	b := graph.NewBuilder("g4")
	agent := graph.NewAgentNode(fakeAgent{})
	_ = b.AddNode("a", agent)
	b.EntryPoint("a")
	g, err := b.Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r := newRunner()

	m := message.New("hi", nil, nil)
	res := r.Execute(context.Background(), g, m)
	if !res.IsErr() {
		t.Fatal("expected routing error")
	}
}

// fakeMetrics records the calls the Runner's Metrics field receives.
type fakeMetrics struct {
	latencies  []string
	completions []string
}

func (f *fakeMetrics) RecordNodeLatency(nodeID string, _ time.Duration, status string) {
	f.latencies = append(f.latencies, nodeID+":"+status)
}

func (f *fakeMetrics) RecordWorkflowCompletion(finalState string) {
	f.completions = append(f.completions, finalState)
}

func TestExecuteRecordsNodeLatencyAndWorkflowCompletion(t *testing.T) {
	g := buildLinearGraph(t, graph.NewOutputNode(nil), nil)
	fm := &fakeMetrics{}
	r := newRunner()
	r.Metrics = fm

	m := message.New("hi", nil, nil)
	res := r.Execute(context.Background(), g, m)
	if res.IsErr() {
		t.Fatalf("unexpected error: %v", res.Error())
	}
	if len(fm.latencies) != 1 || fm.latencies[0] != "a:success" {
		t.Fatalf("expected one success latency for node a, got %v", fm.latencies)
	}
	if len(fm.completions) != 1 || fm.completions[0] != string(message.Completed) {
		t.Fatalf("expected one COMPLETED workflow completion, got %v", fm.completions)
	}
}

type fakeAgent struct{}

func (fakeAgent) ProcessMessage(_ context.Context, m message.Message) graph.Result {
	return result.Ok(m)
}

// prefixAgent prepends its prefix to the message content, e.g. "A: x".
type prefixAgent struct{ prefix string }

func (a prefixAgent) ProcessMessage(_ context.Context, m message.Message) graph.Result {
	return result.Ok(m.WithContent(a.prefix + ": " + m.Content()))
}

// TestExecuteRoutesThroughDecisionToMatchingAgentHandler exercises a linear
// graph with a decision fork: route -> handler-a/handler-b -> out-a/out-b,
// selecting the branch whose predicate matches m.Data()["type"].
func TestExecuteRoutesThroughDecisionToMatchingAgentHandler(t *testing.T) {
	b := graph.NewBuilder("s1")
	decision, err := graph.NewDecisionNode("route", []graph.Branch{
		{Name: "a", TargetNodeID: "handler-a", Predicate: func(m message.Message) bool {
			v, _ := m.DataValue("type")
			return v == "A"
		}},
		{Name: "b", TargetNodeID: "handler-b", Predicate: func(m message.Message) bool {
			v, _ := m.DataValue("type")
			return v == "B"
		}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_ = b.AddNode("route", decision)
	_ = b.AddNode("handler-a", graph.NewAgentNode(prefixAgent{prefix: "A"}))
	_ = b.AddNode("handler-b", graph.NewAgentNode(prefixAgent{prefix: "B"}))
	_ = b.AddNode("out-a", graph.NewOutputNode(nil))
	_ = b.AddNode("out-b", graph.NewOutputNode(nil))

	_ = b.Connect("route", "handler-a", func(m message.Message) bool {
		v, _ := m.DataValue("_selectedBranch")
		return v == "handler-a"
	})
	_ = b.Connect("route", "handler-b", func(m message.Message) bool {
		v, _ := m.DataValue("_selectedBranch")
		return v == "handler-b"
	})
	_ = b.Connect("handler-a", "out-a", nil)
	_ = b.Connect("handler-b", "out-b", nil)
	b.EntryPoint("route")

	g, err := b.Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r := newRunner()

	m := message.New("x", map[string]any{"type": "A"}, nil)
	res := r.Execute(context.Background(), g, m)
	if res.IsErr() {
		t.Fatalf("unexpected error: %v", res.Error())
	}
	out, _ := res.Value()
	if out.Content() != "A: x" {
		t.Fatalf("expected content %q, got %q", "A: x", out.Content())
	}
	if v, _ := out.DataValue("_selectedBranch"); v != "handler-a" {
		t.Fatalf("expected _selectedBranch %q, got %v", "handler-a", v)
	}
}

func TestExecuteFollowsDecisionOtherwiseBranchToOutput(t *testing.T) {
	b := graph.NewBuilder("g5")
	decision, err := graph.NewDecisionNode("d", []graph.Branch{
		{Name: "default", TargetNodeID: "out", Otherwise: true},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_ = b.AddNode("d", decision)
	_ = b.AddNode("out", graph.NewOutputNode(nil))
	b.EntryPoint("d")
	_ = b.Connect("d", "out", func(m message.Message) bool {
		v, _ := m.DataValue("_selectedBranch")
		return v == "out"
	})
	g, err := b.Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r := newRunner()

	m := message.New("hi", nil, nil)
	res := r.Execute(context.Background(), g, m)
	if res.IsErr() {
		t.Fatalf("unexpected error: %v", res.Error())
	}
	out, _ := res.Value()
	if out.State() != message.Completed {
		t.Fatalf("expected COMPLETED, got %s", out.State())
	}
}
