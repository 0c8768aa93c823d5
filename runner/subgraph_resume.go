package runner

import (
	"context"

	"github.com/spicegraph/spicegraph/checkpoint"
	"github.com/spicegraph/spicegraph/graph"
	"github.com/spicegraph/spicegraph/message"
	"github.com/spicegraph/spicegraph/result"
	"github.com/spicegraph/spicegraph/spiceerr"
)

// Resume continues execution from a WAITING message (spec §4.1's
// `resume(graph, message)`). When the message's subgraph stack is
// non-empty, the pause happened inside one or more nested subgraphs and
// must be unwound (spec §4.6's "GraphRunner.resume steps") before
// traversal of the outer graph can continue; otherwise Resume behaves
// like Execute starting from message.nodeId.
func (r *Runner) Resume(ctx context.Context, g *graph.Graph, m message.Message) graph.Result {
	if m.IsTerminal() {
		return result.Ok(m)
	}

	beforeExec := r.Transformers.RunBeforeExecution(ctx, g, m)
	if beforeExec.IsErr() {
		return beforeExec
	}
	input := m
	m, _ = beforeExec.Value()

	if m.State() == message.Waiting {
		m = m.Transition(message.Running, "resumed")
	}

	var res graph.Result
	if stack, ok := subgraphStackOf(m); ok && len(stack) > 0 {
		res = r.resumeSubgraph(ctx, g, m, stack)
	} else {
		res = r.resumeFromPausedNode(ctx, g, m.NodeID(), m)
	}
	if res.IsErr() {
		return res
	}
	out, _ := res.Value()
	return r.Transformers.RunAfterExecution(ctx, g, input, out)
}

// resumeFromPausedNode continues traversal from nodeID's outgoing edges
// using m (the already-merged, post-pause message), without re-invoking
// nodeID itself: the paused node already produced its result when it
// suspended, and resuming answers that pause rather than repeating it.
func (r *Runner) resumeFromPausedNode(ctx context.Context, g *graph.Graph, nodeID string, m message.Message) graph.Result {
	node, ok := g.Node(nodeID)
	if !ok {
		return result.Err[message.Message](spiceerr.Execution("node not found: "+nodeID, g.ID(), nodeID, nil))
	}
	outcome, err := r.advance(g, nodeID, node, m)
	if err != nil {
		return result.Err[message.Message](err)
	}
	if outcome.terminal {
		r.emitWorkflowCompleted(g, outcome.message)
		return result.Ok(outcome.message)
	}
	return r.runLoop(ctx, g, outcome.message)
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

// resumeSubgraph pops the outermost SubgraphCheckpointContext off stack,
// resumes the child graph at childNodeId, and on child termination
// applies that context's outputMapping before continuing the outer
// graph's traversal from parentNodeId's outgoing edges (spec §4.6). This
// unwinds arbitrarily deep nests by recursing one level per call.
func (r *Runner) resumeSubgraph(ctx context.Context, g *graph.Graph, m message.Message, stack []checkpoint.SubgraphCheckpointContext) graph.Result {
	outer := stack[0]
	rest := stack[1:]

	parentNode, ok := g.Node(outer.ParentNodeID)
	if !ok {
		return result.Err[message.Message](spiceerr.Execution(
			"subgraph parent node not found: "+outer.ParentNodeID, g.ID(), outer.ParentNodeID, nil))
	}
	sgNode, ok := parentNode.(*graph.SubgraphNode)
	if !ok {
		return result.Err[message.Message](spiceerr.Execution(
			"node is not a subgraph node: "+outer.ParentNodeID, g.ID(), outer.ParentNodeID, nil))
	}

	childMeta := m.Metadata()
	if len(rest) > 0 {
		childMeta[message.SubgraphStackMetadataKey] = rest
	} else {
		delete(childMeta, message.SubgraphStackMetadataKey)
	}
	childMessage := m.WithCoordinates(outer.ChildGraphID, outer.ChildNodeID, outer.ChildRunID).
		ReplaceMetadata(childMeta)
	if childMessage.State() == message.Waiting {
		childMessage = childMessage.Transition(message.Running, "resumed")
	}

	var childResult graph.Result
	if len(rest) > 0 {
		childResult = r.resumeSubgraph(ctx, sgNode.Child, childMessage, rest)
	} else {
		childResult = r.resumeFromPausedNode(ctx, sgNode.Child, outer.ChildNodeID, childMessage)
	}
	if childResult.IsErr() {
		return childResult
	}
	child, _ := childResult.Value()

	if child.State() == message.Waiting {
		return result.Ok(r.rewrapWaiting(m, child, outer, g))
	}

	resumed := r.applySubgraphOutputMapping(m, child, outer.OutputMapping)
	resumed = resumed.WithCoordinates(g.ID(), outer.ParentNodeID, m.RunID())
	resumed = resumed.WithMetadata(map[string]any{
		"lastSubgraphId":    outer.ChildGraphID,
		"lastSubgraphState": string(child.State()),
	})

	outcome, err := r.advance(g, outer.ParentNodeID, parentNode, resumed)
	if err != nil {
		return result.Err[message.Message](err)
	}
	if outcome.terminal {
		r.emitWorkflowCompleted(g, outcome.message)
		return result.Ok(outcome.message)
	}
	return r.runLoop(ctx, g, outcome.message)
}

// applySubgraphOutputMapping renames child.data[childKey] -> parent.data[parentKey]
// for each mapped pair; unmapped child keys propagate as-is; parent data
// keys survive unless overwritten (spec §4.2 step 6).
func (r *Runner) applySubgraphOutputMapping(parent, child message.Message, outputMapping map[string]string) message.Message {
	childData := child.Data()
	mapped := make(map[string]any, len(childData))
	mappedKeys := map[string]bool{}
	for childKey, parentKey := range outputMapping {
		if v, ok := childData[childKey]; ok {
			mapped[parentKey] = v
			mappedKeys[childKey] = true
		}
	}
	for k, v := range childData {
		if mappedKeys[k] {
			continue
		}
		if _, renamed := outputMapping[k]; renamed {
			continue
		}
		mapped[k] = v
	}

	merged := parent.Data()
	for k, v := range mapped {
		merged[k] = v
	}
	return parent.ReplaceData(merged)
}

// rewrapWaiting re-pauses at the outer level when the resumed child itself
// suspends again: outer is pushed back onto the child's own stack (if it
// paused inside a further nested subgraph) so the checkpoint saved after
// this call still has exactly the right number of contexts, outermost
// first.
func (r *Runner) rewrapWaiting(parent, child message.Message, outer checkpoint.SubgraphCheckpointContext, g *graph.Graph) message.Message {
	var stack []checkpoint.SubgraphCheckpointContext
	if existing, ok := subgraphStackOf(child); ok {
		stack = existing
	}
	stack = append([]checkpoint.SubgraphCheckpointContext{outer}, stack...)

	mergedData := parent.Data()
	for k, v := range child.Data() {
		mergedData[k] = v
	}

	childMeta := child.Metadata()
	delete(childMeta, message.SubgraphStackMetadataKey)

	next := parent.WithCoordinates(g.ID(), parent.NodeID(), parent.RunID())
	next = next.ReplaceData(mergedData)
	next = next.WithToolCalls(child.ToolCalls())
	next = next.WithMetadata(childMeta)
	next = next.WithMetadata(map[string]any{message.SubgraphStackMetadataKey: stack})
	next = next.Transition(message.Waiting, "subgraph re-paused on resume")
	return next
}
