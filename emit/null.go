package emit

import "context"

// NullEmitter discards every event. Use it to disable observability
// without threading a nil Bus through callers that assume a non-nil
// emit.Bus (runner.Runner and resume.Resumer both nil-check instead, but
// callers built before that convention existed still want a real value).
type NullEmitter struct{}

// NewNullEmitter builds a NullEmitter. Safe for concurrent use; zero cost.
func NewNullEmitter() *NullEmitter {
	return &NullEmitter{}
}

// Emit implements Emitter by dropping event.
func (n *NullEmitter) Emit(event Event) {}

// EmitBatch implements Emitter by dropping events.
func (n *NullEmitter) EmitBatch(_ context.Context, _ []Event) error { return nil }

// Flush implements Emitter; there is never anything to flush.
func (n *NullEmitter) Flush(_ context.Context) error { return nil }
