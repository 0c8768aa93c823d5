package graph

import (
	"fmt"

	"github.com/spicegraph/spicegraph/checkpoint"
	"github.com/spicegraph/spicegraph/emit"
	"github.com/spicegraph/spicegraph/retry"
)

// Config bundles a Graph's external collaborators: where checkpoints land,
// where lifecycle events are published, and the default retry policy nodes
// run under (spec §3: "Graph: (..., config: { checkpointStore?,
// toolCallEventBus?, retryPolicy? })").
type Config struct {
	CheckpointStore checkpoint.Store
	EventBus        emit.Bus
	RetryPolicy     retry.Policy
}

// Graph is the directed-graph workflow definition: nodes, ordered edges, an
// entry point, and its Config. It is long-lived and read-only after
// construction (spec §3) -- the only way to build one is through Builder,
// which enforces the structural invariants before handing out a *Graph.
type Graph struct {
	id         string
	nodes      map[string]Node
	edges      []Edge
	entryPoint string
	config     Config
}

// ID returns the graph's identifier.
func (g *Graph) ID() string { return g.id }

// EntryPoint returns the node ID execution starts at.
func (g *Graph) EntryPoint() string { return g.entryPoint }

// Config returns the graph's configured collaborators.
func (g *Graph) Config() Config { return g.config }

// Node looks up a node by ID.
func (g *Graph) Node(id string) (Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// EdgesFrom returns the edges declared with the given From, in declared
// order (spec §3: "the first satisfying condition wins").
func (g *Graph) EdgesFrom(from string) []Edge {
	var out []Edge
	for _, e := range g.edges {
		if e.From == from {
			out = append(out, e)
		}
	}
	return out
}

// HasNode reports whether id names a registered node.
func (g *Graph) HasNode(id string) bool {
	_, ok := g.nodes[id]
	return ok
}

// Builder constructs a Graph, validating spec §3's invariants before
// Build returns: entryPoint ∈ nodes; every edge's From/To ∈ nodes ∪ virtual
// sinks. The at-most-one "otherwise" branch rule for a DecisionNode is
// enforced earlier, by NewDecisionNode (see decisionnode.go), not by AddNode.
//
// Grounded on the teacher's Engine[S] node/edge maps and mutex-guarded
// construction (engine.go Add/StartAt/Connect), split out here as a
// separate builder so the resulting Graph can be handed out as an
// immutable value instead of staying mutable for its whole lifetime.
type Builder struct {
	id         string
	nodes      map[string]Node
	edges      []Edge
	entryPoint string
	config     Config
	sinks      map[string]bool
}

// NewBuilder starts a Builder for a graph identified by id.
func NewBuilder(id string) *Builder {
	return &Builder{
		id:    id,
		nodes: make(map[string]Node),
		sinks: make(map[string]bool),
	}
}

// AddNode registers a node under nodeID. Returns an error if nodeID is
// empty, node is nil, or a node is already registered under that ID.
func (b *Builder) AddNode(nodeID string, node Node) error {
	if nodeID == "" {
		return fmt.Errorf("graph: node ID cannot be empty")
	}
	if node == nil {
		return fmt.Errorf("graph: node %q cannot be nil", nodeID)
	}
	if _, exists := b.nodes[nodeID]; exists {
		return fmt.Errorf("graph: duplicate node ID %q", nodeID)
	}
	b.nodes[nodeID] = node
	return nil
}

// AddSink declares a virtual sink: a valid edge destination that is not a
// registered node (spec §3: "every edge.to ∈ nodes ∪ {virtual sinks}").
func (b *Builder) AddSink(sinkID string) {
	b.sinks[sinkID] = true
}

// Connect adds an edge. condition may be nil (always matches). Edges
// sharing the same From are tried in the order Connect was called.
func (b *Builder) Connect(from, to string, condition Predicate) error {
	if from == "" || to == "" {
		return fmt.Errorf("graph: edge From/To cannot be empty")
	}
	b.edges = append(b.edges, Edge{From: from, To: to, Condition: condition})
	return nil
}

// EntryPoint sets the node execution starts at.
func (b *Builder) EntryPoint(nodeID string) {
	b.entryPoint = nodeID
}

// Configure sets the graph's checkpoint store, event bus, and retry policy.
func (b *Builder) Configure(config Config) {
	b.config = config
}

// Build validates the accumulated nodes/edges/entryPoint and returns an
// immutable Graph, or an error naming the first invariant violated.
func (b *Builder) Build() (*Graph, error) {
	if b.entryPoint == "" {
		return nil, fmt.Errorf("graph %q: entry point not set", b.id)
	}
	if _, ok := b.nodes[b.entryPoint]; !ok {
		return nil, fmt.Errorf("graph %q: entry point %q is not a registered node", b.id, b.entryPoint)
	}

	for _, e := range b.edges {
		if _, ok := b.nodes[e.From]; !ok && !b.sinks[e.From] {
			return nil, fmt.Errorf("graph %q: edge references unknown From node %q", b.id, e.From)
		}
		if _, ok := b.nodes[e.To]; !ok && !b.sinks[e.To] {
			return nil, fmt.Errorf("graph %q: edge references unknown To node %q (not a node or declared sink)", b.id, e.To)
		}
	}

	return &Graph{
		id:         b.id,
		nodes:      b.nodes,
		edges:      append([]Edge(nil), b.edges...),
		entryPoint: b.entryPoint,
		config:     b.config,
	}, nil
}
