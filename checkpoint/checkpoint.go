// Package checkpoint defines the durable snapshot of a paused graph run
// (Checkpoint, SubgraphCheckpointContext) and the Store contract that
// persists them. Grounded on the teacher's graph/checkpoint.go
// (Checkpoint[S] shape, computeIdempotencyKey) and graph/store/store.go
// (Store[S] interface: Save/Get/list/delete shape, ErrNotFound), both
// collapsed to the fixed message.Message the spicegraph data model uses --
// no type parameter is needed since Checkpoint already carries the one
// dynamic state type the module has.
package checkpoint

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/spicegraph/spicegraph/message"
)

// ErrNotFound is returned when a requested checkpoint or run does not exist.
var ErrNotFound = errors.New("checkpoint: not found")

// SubgraphCheckpointContext records one level of paused subgraph nesting,
// so a resumed run can unwind back out through however many SubgraphNodes
// it was paused inside. The outermost context appears first in a
// Checkpoint's SubgraphStack.
type SubgraphCheckpointContext struct {
	ParentNodeID  string
	ParentGraphID string
	ParentRunID   string
	ChildGraphID  string
	ChildNodeID   string
	ChildRunID    string
	OutputMapping map[string]string
	Depth         int
}

// Checkpoint is a durable snapshot of a paused run: the paused Message,
// any pending or returned tool call, the nested subgraph stack (outermost
// first, always present even when empty, per spec), and an expiry.
type Checkpoint struct {
	ID               string
	RunID            string
	GraphID          string
	CurrentNodeID    string
	Message          message.Message
	PendingToolCall  *message.ToolCall
	ResponseToolCall *message.ToolCall
	SubgraphStack    []SubgraphCheckpointContext
	Timestamp        time.Time
	ExpiresAt        time.Time
}

// IsExpired reports whether ExpiresAt has passed. A zero ExpiresAt means
// the checkpoint carries no self-declared expiry; callers still enforce
// options.maxCheckpointAge against Timestamp separately.
func (c Checkpoint) IsExpired() bool {
	return !c.ExpiresAt.IsZero() && time.Now().After(c.ExpiresAt)
}

// Fingerprint derives a stable content hash for this checkpoint,
// following the teacher's computeIdempotencyKey pattern (hash the
// identifying fields, in a fixed order, so the same pause point always
// produces the same key) and its "sha256:" prefix convention.
func (c Checkpoint) Fingerprint() string {
	h := sha256.New()
	h.Write([]byte(c.RunID))
	h.Write([]byte(c.GraphID))
	h.Write([]byte(c.CurrentNodeID))
	h.Write([]byte(c.Message.ID()))
	for _, s := range c.SubgraphStack {
		h.Write([]byte(s.ChildGraphID))
		h.Write([]byte(s.ChildNodeID))
		h.Write([]byte(s.ChildRunID))
	}
	return "sha256:" + hex.EncodeToString(h.Sum(nil))
}

// Store persists and retrieves Checkpoints. Implementations decide the
// backing medium (memory, SQLite, Redis, ...) and must be safe for
// concurrent use, per the shared-resource policy: the Store is shared
// across runs and the Runner caches nothing between calls.
type Store interface {
	Save(ctx context.Context, cp Checkpoint) error
	Get(ctx context.Context, id string) (Checkpoint, error)
	ListByRun(ctx context.Context, runID string) ([]Checkpoint, error)
	DeleteByRun(ctx context.Context, runID string) error
}

// Latest returns the most recently timestamped checkpoint for runID. The
// latest by Timestamp wins when resuming by runID, regardless of save
// order.
func Latest(ctx context.Context, s Store, runID string) (Checkpoint, error) {
	all, err := s.ListByRun(ctx, runID)
	if err != nil {
		return Checkpoint{}, err
	}
	if len(all) == 0 {
		return Checkpoint{}, ErrNotFound
	}
	latest := all[0]
	for _, cp := range all[1:] {
		if cp.Timestamp.After(latest.Timestamp) {
			latest = cp
		}
	}
	return latest, nil
}
