// Package message defines Message, the immutable unit of in-flight state
// that moves through a spicegraph workflow.
package message

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ToolCall is a pending tool invocation request carried on a Message.
type ToolCall struct {
	ID        string
	Name      string
	Arguments map[string]any
}

// StateTransition is one entry in a Message's append-only state history.
type StateTransition struct {
	State     State
	Reason    string
	Timestamp time.Time
}

// Message is the central immutable record that flows through a graph
// execution. Every mutator returns a new Message; the receiver is never
// modified. See spec §3 for the full invariant list.
type Message struct {
	id      string
	content string
	from    string
	to      string
	state   State
	history []StateTransition

	data     map[string]any
	metadata map[string]any
	toolCalls []ToolCall

	graphID string
	nodeID  string
	runID   string
}

// New creates a READY message with a freshly generated ID and an initial
// history entry. data and metadata may be nil; they are copied defensively.
func New(content string, data, metadata map[string]any) Message {
	now := time.Now()
	m := Message{
		id:       uuid.NewString(),
		content:  content,
		state:    Ready,
		data:     copyMap(data),
		metadata: copyMap(metadata),
	}
	m.history = []StateTransition{{State: Ready, Reason: "created", Timestamp: now}}
	return m
}

func copyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copyToolCalls(tc []ToolCall) []ToolCall {
	out := make([]ToolCall, len(tc))
	copy(out, tc)
	return out
}

// clone returns a shallow structural copy: new top-level maps/slices, same
// leaf values. This is the basis every With* method builds on so that
// untouched fields remain value-equal to the input (spec §8 property 1).
func (m Message) clone() Message {
	n := m
	n.data = copyMap(m.data)
	n.metadata = copyMap(m.metadata)
	n.toolCalls = copyToolCalls(m.toolCalls)
	n.history = append([]StateTransition(nil), m.history...)
	return n
}

// Accessors. All return copies of internal maps/slices so callers cannot
// mutate a Message through its getters.

func (m Message) ID() string      { return m.id }
func (m Message) Content() string { return m.content }
func (m Message) From() string    { return m.from }
func (m Message) To() string      { return m.to }
func (m Message) State() State    { return m.state }
func (m Message) GraphID() string { return m.graphID }
func (m Message) NodeID() string  { return m.nodeID }
func (m Message) RunID() string   { return m.runID }

func (m Message) Data() map[string]any     { return copyMap(m.data) }
func (m Message) Metadata() map[string]any { return copyMap(m.metadata) }
func (m Message) ToolCalls() []ToolCall     { return copyToolCalls(m.toolCalls) }
func (m Message) History() []StateTransition {
	return append([]StateTransition(nil), m.history...)
}

// DataValue returns data[key] and whether it was present.
func (m Message) DataValue(key string) (any, bool) {
	v, ok := m.data[key]
	return v, ok
}

// MetadataValue returns metadata[key] and whether it was present.
func (m Message) MetadataValue(key string) (any, bool) {
	v, ok := m.metadata[key]
	return v, ok
}

// WithContent returns a copy with content replaced.
func (m Message) WithContent(content string) Message {
	n := m.clone()
	n.content = content
	return n
}

// WithFromTo returns a copy with the actor identifiers replaced.
func (m Message) WithFromTo(from, to string) Message {
	n := m.clone()
	n.from = from
	n.to = to
	return n
}

// WithCoordinates returns a copy with graph-execution coordinates replaced.
func (m Message) WithCoordinates(graphID, nodeID, runID string) Message {
	n := m.clone()
	n.graphID = graphID
	n.nodeID = nodeID
	n.runID = runID
	return n
}

// WithNodeID returns a copy with only nodeID replaced.
func (m Message) WithNodeID(nodeID string) Message {
	n := m.clone()
	n.nodeID = nodeID
	return n
}

// WithData returns a copy whose data is merged with updates (updates take
// precedence on key collision).
func (m Message) WithData(updates map[string]any) Message {
	n := m.clone()
	for k, v := range updates {
		n.data[k] = v
	}
	return n
}

// WithMetadata returns a copy whose metadata is merged with updates
// (updates take precedence on key collision).
func (m Message) WithMetadata(updates map[string]any) Message {
	n := m.clone()
	for k, v := range updates {
		n.metadata[k] = v
	}
	return n
}

// ReplaceData returns a copy whose data map is replaced wholesale.
func (m Message) ReplaceData(data map[string]any) Message {
	n := m.clone()
	n.data = copyMap(data)
	return n
}

// ReplaceMetadata returns a copy whose metadata map is replaced wholesale.
func (m Message) ReplaceMetadata(metadata map[string]any) Message {
	n := m.clone()
	n.metadata = copyMap(metadata)
	return n
}

// WithToolCalls returns a copy with its tool-call queue replaced.
func (m Message) WithToolCalls(calls []ToolCall) Message {
	n := m.clone()
	n.toolCalls = copyToolCalls(calls)
	return n
}

// AppendToolCall returns a copy with one more pending tool call queued.
func (m Message) AppendToolCall(call ToolCall) Message {
	n := m.clone()
	n.toolCalls = append(n.toolCalls, call)
	return n
}

// Transition returns a copy whose state is advanced to next with reason
// recorded in the (append-only) history. It is the caller's responsibility
// to have checked m.State().CanTransitionTo(next); Transition does not
// silently refuse an illegal move because callers (the runner, nodes) are
// expected to validate before calling -- but it never rewinds history, so
// replaying a Transition is always safe to call again with the same
// arguments (idempotent with respect to the resulting state).
func (m Message) Transition(next State, reason string) Message {
	n := m.clone()
	n.state = next
	ts := m.history[len(m.history)-1].Timestamp
	now := time.Now()
	if now.Before(ts) {
		now = ts
	}
	n.history = append(n.history, StateTransition{State: next, Reason: reason, Timestamp: now})
	return n
}

// IsTerminal reports whether the message has reached COMPLETED or FAILED.
func (m Message) IsTerminal() bool {
	return m.state.Terminal()
}

// wireMessage is Message's JSON-serializable shape. Message itself keeps
// its fields unexported so every mutation stays routed through the With*
// copy-on-write methods; MarshalJSON/UnmarshalJSON are the one sanctioned
// way to cross a serialization boundary (checkpoint stores, in particular).
type wireMessage struct {
	ID        string            `json:"id"`
	Content   string            `json:"content"`
	From      string            `json:"from,omitempty"`
	To        string            `json:"to,omitempty"`
	State     State             `json:"state"`
	History   []StateTransition `json:"history"`
	Data      map[string]any    `json:"data,omitempty"`
	Metadata  map[string]any    `json:"metadata,omitempty"`
	ToolCalls []ToolCall        `json:"toolCalls,omitempty"`
	GraphID   string            `json:"graphId,omitempty"`
	NodeID    string            `json:"nodeId,omitempty"`
	RunID     string            `json:"runId,omitempty"`
}

// MarshalJSON implements json.Marshaler. Field ordering is irrelevant on
// the wire, per spec; unknown fields are tolerated on read.
func (m Message) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireMessage{
		ID:        m.id,
		Content:   m.content,
		From:      m.from,
		To:        m.to,
		State:     m.state,
		History:   m.history,
		Data:      m.data,
		Metadata:  m.metadata,
		ToolCalls: m.toolCalls,
		GraphID:   m.graphID,
		NodeID:    m.nodeID,
		RunID:     m.runID,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (m *Message) UnmarshalJSON(b []byte) error {
	var w wireMessage
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*m = Message{
		id:        w.ID,
		content:   w.Content,
		from:      w.From,
		to:        w.To,
		state:     w.State,
		history:   w.History,
		data:      copyMap(w.Data),
		metadata:  copyMap(w.Metadata),
		toolCalls: copyToolCalls(w.ToolCalls),
		graphID:   w.GraphID,
		nodeID:    w.NodeID,
		runID:     w.RunID,
	}
	return nil
}
