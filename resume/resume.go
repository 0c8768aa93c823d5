// Package resume implements the checkpoint-aware front door to the
// stateless runner.Runner: Resumer.Execute saves a checkpoint whenever a
// run pauses, and Resumer.Resume implements spec §4.6's numbered "Resume
// (adapter entry point)" algorithm -- load the latest checkpoint, validate
// its age, merge the caller's user-response message, and hand off to
// runner.Runner.Resume. No single teacher file matches this shape: the
// teacher's closest analogue, Engine.ResumeFromCheckpoint in engine.go,
// restarts a whole run from a saved step index rather than answering one
// HITL pause, so this package follows the teacher's general
// validate-then-continue structure without reusing its code.
package resume

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/spicegraph/spicegraph/checkpoint"
	"github.com/spicegraph/spicegraph/emit"
	"github.com/spicegraph/spicegraph/graph"
	"github.com/spicegraph/spicegraph/message"
	"github.com/spicegraph/spicegraph/runner"
	"github.com/spicegraph/spicegraph/spiceerr"
)

// GraphRegistry resolves a Graph by id for the resume path. This replaces
// the package-level singleton a naive port would reach for (spec.md's
// REDESIGN FLAGS calls this out explicitly): callers construct one,
// register the graphs they run, and pass it in.
type GraphRegistry struct {
	graphs map[string]*graph.Graph
}

// NewGraphRegistry builds an empty registry.
func NewGraphRegistry() *GraphRegistry {
	return &GraphRegistry{graphs: map[string]*graph.Graph{}}
}

// Register adds g, keyed by g.ID().
func (r *GraphRegistry) Register(g *graph.Graph) {
	r.graphs[g.ID()] = g
}

// Get looks up a previously registered graph by id.
func (r *GraphRegistry) Get(id string) (*graph.Graph, bool) {
	g, ok := r.graphs[id]
	return g, ok
}

// Options controls Resume/Execute's checkpoint and event behavior (spec §6
// "Resume options").
type Options struct {
	PublishEvents        bool
	AutoCleanup          bool
	ValidateExpiration   bool
	MaxCheckpointAge     time.Duration
	UserResponseMetadata map[string]any
}

// DefaultOptions validates expiration against a one-day window and
// publishes events, matching the teacher's conservative example wiring.
func DefaultOptions() Options {
	return Options{
		PublishEvents:      true,
		AutoCleanup:        true,
		ValidateExpiration: true,
		MaxCheckpointAge:   24 * time.Hour,
	}
}

// Resumer wires a checkpoint Store, event Bus, Graph lookup and the
// underlying runner.Runner together into the checkpoint-aware entry points.
type Resumer struct {
	Store    checkpoint.Store
	Bus      emit.Bus
	Registry *GraphRegistry
	Runner   *runner.Runner

	// Sanitize overrides the default event-metadata blacklist (spec §4.9)
	// applied before publish forwards to Bus. Nil means
	// emit.DefaultSanitizeConfig.
	Sanitize *emit.SanitizeConfig
}

// New builds a Resumer.
func New(store checkpoint.Store, bus emit.Bus, registry *GraphRegistry, r *runner.Runner) *Resumer {
	return &Resumer{Store: store, Bus: bus, Registry: registry, Runner: r}
}

// publish emits event on s.Bus if one is configured, sanitizing its Meta
// first the same way runner.Runner.bus does, mirroring the nil-safe
// bus/emit* pattern in runner.go.
func (s *Resumer) publish(event emit.Event) {
	if s.Bus == nil {
		return
	}
	config := s.Sanitize
	if config == nil {
		defaults := emit.DefaultSanitizeConfig()
		config = &defaults
	}
	emit.NewSanitizingBus(s.Bus, *config).Emit(event)
}

// Execute runs g from m via the underlying Runner and, if the run pauses,
// saves a checkpoint so a later Resume call can continue it. This is the
// counterpart to Resume's own step 9 ("on WAITING again, save a fresh
// checkpoint"): whichever call first produces a WAITING message is
// responsible for persisting it.
func (s *Resumer) Execute(ctx context.Context, g *graph.Graph, m message.Message, opts Options) (message.Message, *spiceerr.SpiceError) {
	res := s.Runner.Execute(ctx, g, m)
	if res.IsErr() {
		return message.Message{}, res.Error()
	}
	out, _ := res.Value()

	if out.State() == message.Waiting {
		cp := s.buildCheckpoint(out, opts)
		if err := s.Store.Save(ctx, cp); err != nil {
			return out, spiceerr.Checkpoint("failed to save checkpoint for new pause").WithContext("cause", err.Error())
		}
	}
	return out, nil
}

// Resume implements spec §4.6's numbered algorithm.
func (s *Resumer) Resume(ctx context.Context, runID string, g *graph.Graph, userResponse message.Message, opts Options) (message.Message, *spiceerr.SpiceError) {
	// Step 1: load the latest checkpoint for runID.
	cp, err := checkpoint.Latest(ctx, s.Store, runID)
	if err != nil {
		return message.Message{}, spiceerr.Execution("no checkpoint found for run "+runID, "", "", err)
	}

	// Step 2: validate the checkpoint hasn't expired.
	if opts.ValidateExpiration {
		age := time.Since(cp.Timestamp)
		if cp.IsExpired() || (opts.MaxCheckpointAge > 0 && age > opts.MaxCheckpointAge) {
			return message.Message{}, spiceerr.Validation("checkpoint expired").
				WithContext("checkpointAge", age.String()).
				WithContext("maxCheckpointAge", opts.MaxCheckpointAge.String())
		}
	}

	// Step 3: resolve the Graph, caller-provided or via the registry.
	if g == nil {
		resolved, ok := s.Registry.Get(cp.GraphID)
		if !ok {
			return message.Message{}, spiceerr.Execution("graph not found: "+cp.GraphID, cp.GraphID, "", nil)
		}
		g = resolved
	}

	// Steps 4-5: reconstruct and merge.
	merged := s.mergeUserResponse(cp, userResponse, opts)

	// Step 6: answer the pending tool call, if any.
	if cp.PendingToolCall != nil {
		if opts.PublishEvents {
			s.publish(emit.Event{
				Kind:   emit.ToolCallCompleted,
				RunID:  runID,
				NodeID: cp.CurrentNodeID,
				Msg:    "resume answered pending tool call",
				Meta:   map[string]any{"toolCallId": cp.PendingToolCall.ID},
			})
		}
		if response, ok := extractUserResponseCall(userResponse); ok {
			cp.ResponseToolCall = &response
			if err := s.Store.Save(ctx, cp); err != nil {
				return message.Message{}, spiceerr.Checkpoint("failed to record response tool call").WithContext("cause", err.Error())
			}
		}
	}

	// Step 7: publish WorkflowResumed, then hand off. Runner.Resume calls
	// the transformer chain's beforeExecution itself.
	if opts.PublishEvents {
		s.publish(emit.Event{Kind: emit.WorkflowResumed, RunID: runID, NodeID: cp.CurrentNodeID, Msg: "workflow resumed"})
	}

	res := s.Runner.Resume(ctx, g, merged)
	if res.IsErr() {
		return message.Message{}, res.Error()
	}
	out, _ := res.Value()

	// Step 8: terminal -- publish completion, optionally clean up.
	if out.IsTerminal() {
		if opts.PublishEvents {
			s.publish(emit.Event{
				Kind:  emit.WorkflowCompleted,
				RunID: runID,
				Msg:   "workflow completed",
				Meta:  map[string]any{"finalState": string(out.State())},
			})
		}
		if opts.AutoCleanup {
			if err := s.Store.DeleteByRun(ctx, runID); err != nil {
				return out, spiceerr.Checkpoint("failed to clean up checkpoint after completion").WithContext("cause", err.Error())
			}
		}
		return out, nil
	}

	// Step 9: paused again -- save a fresh checkpoint.
	fresh := s.buildCheckpoint(out, opts)
	if err := s.Store.Save(ctx, fresh); err != nil {
		return out, spiceerr.Checkpoint("failed to save checkpoint for new pause").WithContext("cause", err.Error())
	}
	return out, nil
}

// mergeUserResponse implements spec §4.6 steps 4-5.
func (s *Resumer) mergeUserResponse(cp checkpoint.Checkpoint, userResponse message.Message, opts Options) message.Message {
	base := cp.Message
	meta := base.Metadata()
	meta[message.SubgraphStackMetadataKey] = cp.SubgraphStack
	base = base.ReplaceMetadata(meta)

	responseData := map[string]any{}
	if call, ok := extractUserResponseCall(userResponse); ok {
		if text, ok := call.Arguments["text"]; ok {
			responseData["response_text"] = text
		}
		if structured, ok := call.Arguments["structured_data"]; ok {
			responseData["structured_response"] = structured
			if sd, ok := structured.(map[string]any); ok {
				if sel, ok := sd["selected_option"]; ok {
					responseData["selected_option"] = sel
				}
			}
		}
		responseData["user_response_tool_call"] = call
	}

	mergedData := base.Data()
	for k, v := range userResponse.Data() {
		mergedData[k] = v
	}
	for k, v := range responseData {
		mergedData[k] = v
	}
	merged := base.ReplaceData(mergedData)

	// UserResponseMetadata is caller-supplied context that rides alongside
	// the response (e.g. who answered); the response's own metadata wins
	// on collision, matching how responseData takes precedence over the
	// raw userResponse.data above.
	mergedMeta := merged.Metadata()
	for k, v := range opts.UserResponseMetadata {
		mergedMeta[k] = v
	}
	for k, v := range userResponse.Metadata() {
		mergedMeta[k] = v
	}
	merged = merged.ReplaceMetadata(mergedMeta)
	merged = merged.WithToolCalls(userResponse.ToolCalls())
	return merged
}

// extractUserResponseCall finds the user_response tool call on m, if any.
func extractUserResponseCall(m message.Message) (message.ToolCall, bool) {
	for _, call := range m.ToolCalls() {
		if call.Name == "user_response" {
			return call, true
		}
	}
	return message.ToolCall{}, false
}

// buildCheckpoint snapshots a WAITING message into a durable Checkpoint
// (spec §4.6's lifecycle: "Checkpoint is created on WAITING").
func (s *Resumer) buildCheckpoint(m message.Message, opts Options) checkpoint.Checkpoint {
	var pending *message.ToolCall
	if calls := m.ToolCalls(); len(calls) > 0 {
		last := calls[len(calls)-1]
		pending = &last
	}

	stack, _ := subgraphStackOf(m)

	now := time.Now()
	cp := checkpoint.Checkpoint{
		ID:              uuid.NewString(),
		RunID:           m.RunID(),
		GraphID:         m.GraphID(),
		CurrentNodeID:   m.NodeID(),
		Message:         m,
		PendingToolCall: pending,
		SubgraphStack:   stack,
		Timestamp:       now,
	}
	if opts.MaxCheckpointAge > 0 {
		cp.ExpiresAt = now.Add(opts.MaxCheckpointAge)
	}
	return cp
}

// subgraphStackOf extracts the reserved subgraph-pause stack from a
// message's metadata, if present.
func subgraphStackOf(m message.Message) ([]checkpoint.SubgraphCheckpointContext, bool) {
	v, ok := m.MetadataValue(message.SubgraphStackMetadataKey)
	if !ok {
		return nil, false
	}
	stack, ok := v.([]checkpoint.SubgraphCheckpointContext)
	return stack, ok
}
