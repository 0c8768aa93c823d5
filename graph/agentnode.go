package graph

import (
	"context"

	"github.com/spicegraph/spicegraph/message"
)

// AgentNode wraps an Agent (spec §3/§6: "AgentNode: wraps an Agent (single
// method processMessage)"). Grounded on teacher's Node[S] wrapping a
// user-supplied function in node.go, adapted to delegate to the Agent
// interface instead of holding the callback itself.
type AgentNode struct {
	NodeAgent Agent
}

// NewAgentNode wraps agent as a Node.
func NewAgentNode(agent Agent) *AgentNode {
	return &AgentNode{NodeAgent: agent}
}

// Run delegates to the wrapped Agent's ProcessMessage.
func (n *AgentNode) Run(ctx context.Context, m message.Message) Result {
	return n.NodeAgent.ProcessMessage(ctx, m)
}
