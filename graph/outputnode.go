package graph

import (
	"context"

	"github.com/spicegraph/spicegraph/message"
	"github.com/spicegraph/spicegraph/result"
)

// Producer computes an OutputNode's result value from the message it
// receives. Returning nil is valid (not every output node needs a payload).
type Producer func(m message.Message) any

// OutputKey is the default data key an OutputNode's Producer result is
// written under.
const OutputKey = "output"

// OutputNode is a terminal-ish node (spec §3): the runner transitions the
// message to COMPLETED when no outgoing edge matches from an OutputNode,
// per spec §4.1 step 7. Its optional Producer computes a derived value
// stored under OutputKey.
type OutputNode struct {
	Producer Producer
}

// NewOutputNode wraps an optional producer function.
func NewOutputNode(producer Producer) *OutputNode {
	return &OutputNode{Producer: producer}
}

// Run applies Producer (if set) and returns the message unchanged
// otherwise. Completion is the runner's responsibility (spec §4.1 step 7),
// not the node's.
func (n *OutputNode) Run(_ context.Context, m message.Message) Result {
	if n.Producer == nil {
		return result.Ok(m)
	}
	value := n.Producer(m)
	return result.Ok(m.WithData(map[string]any{OutputKey: value}))
}
