package graph

import (
	"time"

	"context"

	"github.com/spicegraph/spicegraph/checkpoint"
	"github.com/spicegraph/spicegraph/message"
	"github.com/spicegraph/spicegraph/result"
	"github.com/spicegraph/spicegraph/spiceerr"
	"github.com/spicegraph/spicegraph/template"
)

// subgraphStackKey is the reserved metadata key a WAITING message carries
// its subgraph pause stack under (spec §4.2 step 5, §3 invariant iv).
const subgraphStackKey = message.SubgraphStackMetadataKey

// SubgraphNode holds a child Graph and the input/output key mappings and
// depth guard described in spec §3/§4.2. It implements SubgraphRunner
// rather than Node directly so the runner always passes itself in, instead
// of SubgraphNode reaching for a shared global Runner.
type SubgraphNode struct {
	id           string
	Child        *Graph
	InputMapping map[string]string // childKey -> "{{data.x}}" template (resolved against the parent message)
	OutputMapping map[string]string // childKey -> parentKey
	MaxDepth     int
	PreserveKeys []string // metadata keys copied verbatim parent -> child; defaults to message.PreservedSubgraphMetadataKeys when nil

	resolver *template.Resolver
}

// NewSubgraphNode builds a SubgraphNode wrapping child.
func NewSubgraphNode(id string, child *Graph, inputMapping, outputMapping map[string]string, maxDepth int) *SubgraphNode {
	return &SubgraphNode{
		id:            id,
		Child:         child,
		InputMapping:  inputMapping,
		OutputMapping: outputMapping,
		MaxDepth:      maxDepth,
		resolver:      template.NewResolver(),
	}
}

// Run implements Node but does not run the child graph: it always returns
// an ExecutionError directing the caller to RunWithRunner, which is the
// path the runner takes for a SubgraphRunner. Run exists solely to satisfy
// the Node interface for callers that register nodes generically.
func (n *SubgraphNode) Run(ctx context.Context, m message.Message) Result {
	return result.Err[message.Message](spiceerr.Execution(
		"SubgraphNode.Run called directly; use RunWithRunner", n.Child.ID(), n.id, nil))
}

func (n *SubgraphNode) preserveKeys() []string {
	if n.PreserveKeys != nil {
		return n.PreserveKeys
	}
	return message.PreservedSubgraphMetadataKeys
}

// RunWithRunner executes the child graph per spec §4.2.
func (n *SubgraphNode) RunWithRunner(ctx context.Context, m message.Message, r Runner) Result {
	depth := 0
	if v, ok := m.MetadataValue("subgraphDepth"); ok {
		if d, ok := v.(int); ok {
			depth = d
		}
	}
	if n.MaxDepth > 0 && depth >= n.MaxDepth {
		return result.Err[message.Message](spiceerr.Execution("subgraph depth limit exceeded", n.Child.ID(), n.id, nil))
	}

	parentGraphID := m.GraphID()
	parentRunID := m.RunID()
	childRunID := parentRunID + ":subgraph:" + n.Child.ID()

	childData := mergeData(m.Data(), n.resolveInputMapping(m))
	childMetadata := n.buildChildMetadata(m, depth, parentGraphID, parentRunID)

	childMessage := message.New(m.Content(), childData, childMetadata).
		WithCoordinates(n.Child.ID(), "", childRunID)

	startedAt := time.Now()
	childResult := r.Execute(ctx, n.Child, childMessage)
	if childResult.IsErr() {
		return childResult
	}
	child, _ := childResult.Value()

	if child.State() == message.Waiting {
		return result.Ok(n.waitingFromChild(m, child, parentGraphID, parentRunID, childRunID, depth))
	}

	return result.Ok(n.completedFromChild(m, child, startedAt))
}

// resolveInputMapping resolves each inputMapping template against the
// parent message's data/metadata (spec §4.2 step 3).
func (n *SubgraphNode) resolveInputMapping(m message.Message) map[string]any {
	if len(n.InputMapping) == 0 {
		return nil
	}
	return n.resolver.ResolveMapping(n.InputMapping, m.Data(), m.Metadata())
}

// mergeData merges resolved (taking precedence) over parentData.
func mergeData(parentData, resolved map[string]any) map[string]any {
	out := make(map[string]any, len(parentData)+len(resolved))
	for k, v := range parentData {
		out[k] = v
	}
	for k, v := range resolved {
		out[k] = v
	}
	return out
}

func (n *SubgraphNode) buildChildMetadata(m message.Message, depth int, parentGraphID, parentRunID string) map[string]any {
	childMetadata := map[string]any{}
	parentMetadata := m.Metadata()
	for _, key := range n.preserveKeys() {
		if v, ok := parentMetadata[key]; ok {
			childMetadata[key] = v
		}
	}

	path, _ := m.MetadataValue("subgraphPath")
	pathStr, _ := path.(string)
	if pathStr == "" {
		pathStr = n.id
	} else {
		pathStr = pathStr + "/" + n.id
	}

	childMetadata["subgraphDepth"] = depth + 1
	childMetadata["parentGraphId"] = parentGraphID
	childMetadata["parentRunId"] = parentRunID
	childMetadata["subgraphPath"] = pathStr
	childMetadata["subgraphEnteredAt"] = time.Now().Format(time.RFC3339)
	return childMetadata
}

// waitingFromChild implements spec §4.2 step 5.
func (n *SubgraphNode) waitingFromChild(parent, child message.Message, parentGraphID, parentRunID, childRunID string, depth int) message.Message {
	ctx := checkpoint.SubgraphCheckpointContext{
		ParentNodeID:  n.id,
		ParentGraphID: parentGraphID,
		ParentRunID:   parentRunID,
		ChildGraphID:  n.Child.ID(),
		ChildNodeID:   child.NodeID(),
		ChildRunID:    childRunID,
		OutputMapping: n.OutputMapping,
		Depth:         depth,
	}

	var stack []checkpoint.SubgraphCheckpointContext
	if existing, ok := child.MetadataValue(subgraphStackKey); ok {
		if s, ok := existing.([]checkpoint.SubgraphCheckpointContext); ok {
			stack = s
		}
	}
	stack = append([]checkpoint.SubgraphCheckpointContext{ctx}, stack...)

	mergedData := mergeData(parent.Data(), child.Data())

	childMetadata := child.Metadata()
	delete(childMetadata, subgraphStackKey)

	next := parent.WithCoordinates(parentGraphID, parent.NodeID(), parentRunID)
	next = next.ReplaceData(mergedData)
	next = next.WithToolCalls(child.ToolCalls())
	next = next.WithMetadata(childMetadata)
	next = next.WithMetadata(map[string]any{subgraphStackKey: stack})
	next = next.Transition(message.Waiting, "subgraph "+n.Child.ID()+" paused")
	return next
}

// completedFromChild implements spec §4.2 step 6.
func (n *SubgraphNode) completedFromChild(parent, child message.Message, startedAt time.Time) message.Message {
	mapped := make(map[string]any, len(child.Data()))
	childData := child.Data()
	mappedChildKeys := map[string]bool{}
	for childKey, parentKey := range n.OutputMapping {
		if v, ok := childData[childKey]; ok {
			mapped[parentKey] = v
			mappedChildKeys[childKey] = true
		}
	}
	for k, v := range childData {
		if mappedChildKeys[k] {
			continue
		}
		if _, renamed := n.OutputMapping[k]; renamed {
			continue
		}
		mapped[k] = v
	}

	merged := mergeData(parent.Data(), mapped)

	next := parent.WithCoordinates(parent.GraphID(), parent.NodeID(), parent.RunID())
	next = next.ReplaceData(merged)
	next = next.WithMetadata(map[string]any{
		"lastSubgraphDuration": time.Since(startedAt).String(),
		"lastSubgraphId":       n.Child.ID(),
		"lastSubgraphState":    string(child.State()),
	})
	return next
}
