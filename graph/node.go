package graph

import (
	"context"

	"github.com/spicegraph/spicegraph/message"
	"github.com/spicegraph/spicegraph/result"
)

// Result is the SpiceResult specialized to Message, the shape every Node
// produces (spec §3 "SpiceResult").
type Result = result.Result[message.Message]

// Node is the polymorphic executable unit of a graph (spec §3/§6). All six
// variants (Agent, Tool, Decision, Human, Subgraph, Output) implement it.
type Node interface {
	Run(ctx context.Context, m message.Message) Result
}

// Runner is the subset of runner.Runner's surface that SubgraphNode needs
// to recurse into a child graph. It is declared here, not in package
// runner, so graph has no import-cycle back to its own caller; the
// concrete runner.Runner satisfies this interface structurally.
type Runner interface {
	Execute(ctx context.Context, g *Graph, m message.Message) Result
}

// SubgraphRunner is implemented by nodes (only SubgraphNode today) that
// need a Runner to recurse into a child graph, per spec §6: "SubgraphNode
// additionally provides runWithRunner(...) so runners are not shared via
// global state."
type SubgraphRunner interface {
	Node
	RunWithRunner(ctx context.Context, m message.Message, r Runner) Result
}

// Agent is the external collaborator interface nodes wrap (spec §6). An
// LLM provider, a rule engine, or a swarm aggregator all satisfy it.
type Agent interface {
	ProcessMessage(ctx context.Context, m message.Message) Result
}
