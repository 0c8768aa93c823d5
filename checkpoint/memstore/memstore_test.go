package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/spicegraph/spicegraph/checkpoint"
)

func TestSaveGetRoundTrip(t *testing.T) {
	s := New()
	ctx := context.Background()
	cp := checkpoint.Checkpoint{ID: "cp1", RunID: "run1", Timestamp: time.Now()}

	if err := s.Save(ctx, cp); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := s.Get(ctx, "cp1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != "cp1" {
		t.Fatalf("expected cp1, got %s", got.ID)
	}
}

func TestGetMissingReturnsErrNotFound(t *testing.T) {
	s := New()
	if _, err := s.Get(context.Background(), "missing"); err != checkpoint.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSaveOverwritesSameID(t *testing.T) {
	s := New()
	ctx := context.Background()
	first := checkpoint.Checkpoint{ID: "cp1", RunID: "run1", CurrentNodeID: "n1"}
	second := checkpoint.Checkpoint{ID: "cp1", RunID: "run1", CurrentNodeID: "n2"}

	_ = s.Save(ctx, first)
	_ = s.Save(ctx, second)

	list, _ := s.ListByRun(ctx, "run1")
	if len(list) != 1 {
		t.Fatalf("expected overwrite in place, got %d entries", len(list))
	}
	if list[0].CurrentNodeID != "n2" {
		t.Fatalf("expected latest save to win, got %s", list[0].CurrentNodeID)
	}
}

func TestDeleteByRunClearsBothIndexes(t *testing.T) {
	s := New()
	ctx := context.Background()
	_ = s.Save(ctx, checkpoint.Checkpoint{ID: "cp1", RunID: "run1"})

	if err := s.DeleteByRun(ctx, "run1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := s.Get(ctx, "cp1"); err != checkpoint.ErrNotFound {
		t.Fatal("expected checkpoint to be gone from the ID index")
	}
	list, _ := s.ListByRun(ctx, "run1")
	if len(list) != 0 {
		t.Fatal("expected run index to be cleared")
	}
}
