package resume

import (
	"context"
	"testing"

	"github.com/spicegraph/spicegraph/checkpoint"
	"github.com/spicegraph/spicegraph/checkpoint/memstore"
	"github.com/spicegraph/spicegraph/emit"
	"github.com/spicegraph/spicegraph/graph"
	"github.com/spicegraph/spicegraph/message"
	"github.com/spicegraph/spicegraph/middleware"
	"github.com/spicegraph/spicegraph/retry"
	"github.com/spicegraph/spicegraph/runner"
)

func buildHumanGraph(t *testing.T, bus emit.Bus) *graph.Graph {
	t.Helper()
	b := graph.NewBuilder("approval")
	human := graph.NewHumanNode("approve")
	human.Question = "approve this change?"
	_ = b.AddNode("approve", human)
	_ = b.AddNode("done", graph.NewOutputNode(nil))
	b.EntryPoint("approve")
	_ = b.Connect("approve", "done", nil)
	b.Configure(graph.Config{EventBus: bus})
	g, err := b.Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return g
}

func newResumer(store checkpoint.Store, bus emit.Bus) *Resumer {
	r := runner.New(middleware.NewChain(), retry.Supervisor{})
	return New(store, bus, NewGraphRegistry(), r)
}

func TestExecuteSavesCheckpointOnPause(t *testing.T) {
	store := memstore.New()
	bus := emit.NewBufferedEmitter()
	g := buildHumanGraph(t, bus)
	s := newResumer(store, bus)

	m := message.New("please review", nil, nil).WithCoordinates("approval", "", "run-1")
	out, err := s.Execute(context.Background(), g, m, DefaultOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.State() != message.Waiting {
		t.Fatalf("expected WAITING, got %s", out.State())
	}

	saved, getErr := checkpoint.Latest(context.Background(), store, "run-1")
	if getErr != nil {
		t.Fatalf("expected a saved checkpoint: %v", getErr)
	}
	if saved.CurrentNodeID != "approve" || saved.GraphID != "approval" {
		t.Fatalf("unexpected checkpoint: %+v", saved)
	}
	if saved.PendingToolCall == nil || saved.PendingToolCall.Name != "request_user_input" {
		t.Fatalf("expected a pending request_user_input call, got %+v", saved.PendingToolCall)
	}
}

func TestResumeMergesUserResponseAndCompletes(t *testing.T) {
	store := memstore.New()
	bus := emit.NewBufferedEmitter()
	g := buildHumanGraph(t, bus)
	s := newResumer(store, bus)

	m := message.New("please review", nil, nil).WithCoordinates("approval", "", "run-2")
	paused, err := s.Execute(context.Background(), g, m, DefaultOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if paused.State() != message.Waiting {
		t.Fatalf("expected WAITING, got %s", paused.State())
	}

	userResponse := message.New("", nil, nil).AppendToolCall(message.ToolCall{
		ID:   "resp-1",
		Name: "user_response",
		Arguments: map[string]any{
			"structured_data": map[string]any{"selected_option": "approve"},
		},
	})

	out, err := s.Resume(context.Background(), "run-2", g, userResponse, DefaultOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.State() != message.Completed {
		t.Fatalf("expected COMPLETED, got %s", out.State())
	}
	if v, ok := out.DataValue("selected_option"); !ok || v != "approve" {
		t.Fatalf("expected selected_option=approve merged into data, got %v (ok=%v)", v, ok)
	}

	if _, getErr := checkpoint.Latest(context.Background(), store, "run-2"); getErr != checkpoint.ErrNotFound {
		t.Fatalf("expected checkpoint to be cleaned up after completion, got err=%v", getErr)
	}

	events := bus.GetHistory("run-2")
	var sawResumed, sawCompleted bool
	for _, e := range events {
		if e.Kind == emit.WorkflowResumed {
			sawResumed = true
		}
		if e.Kind == emit.WorkflowCompleted {
			sawCompleted = true
		}
	}
	if !sawResumed || !sawCompleted {
		t.Fatalf("expected WorkflowResumed and WorkflowCompleted events, got %+v", events)
	}
}

func TestResumeRejectsExpiredCheckpoint(t *testing.T) {
	store := memstore.New()
	bus := emit.NewBufferedEmitter()
	g := buildHumanGraph(t, bus)
	s := newResumer(store, bus)

	m := message.New("please review", nil, nil).WithCoordinates("approval", "", "run-3")
	paused, err := s.Execute(context.Background(), g, m, DefaultOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if paused.State() != message.Waiting {
		t.Fatalf("expected WAITING, got %s", paused.State())
	}

	opts := DefaultOptions()
	opts.MaxCheckpointAge = 0
	opts.ValidateExpiration = true
	// Force expiry: with MaxCheckpointAge = 0 the age comparison is
	// skipped entirely, so only the checkpoint's own ExpiresAt can reject
	// it. Re-save with a past ExpiresAt to exercise the IsExpired() arm
	// directly.
	cp, getErr := checkpoint.Latest(context.Background(), store, "run-3")
	if getErr != nil {
		t.Fatalf("unexpected error: %v", getErr)
	}
	cp.ExpiresAt = cp.Timestamp
	if err := store.Save(context.Background(), cp); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	userResponse := message.New("", nil, nil).AppendToolCall(message.ToolCall{
		ID: "resp-1", Name: "user_response",
		Arguments: map[string]any{"text": "approve"},
	})
	_, resumeErr := s.Resume(context.Background(), "run-3", g, userResponse, opts)
	if resumeErr == nil {
		t.Fatal("expected expired-checkpoint validation error")
	}
}
