// Package runner implements GraphRunner, the traversal engine that
// advances a Message through a Graph one node at a time (spec §4.1).
// Grounded on the teacher's Engine.Run step loop (graph/engine.go): node
// lookup, event emission bracketing each node, edge evaluation in declared
// order, context-cancellation checks. Generalized from the teacher's
// single state-plus-delta loop to wrap each node through a transformer
// chain and a RetrySupervisor, and to stop (rather than error) on a
// WAITING message instead of always running to a terminal state.
package runner

import (
	"context"
	"time"

	"github.com/spicegraph/spicegraph/emit"
	"github.com/spicegraph/spicegraph/graph"
	"github.com/spicegraph/spicegraph/message"
	"github.com/spicegraph/spicegraph/middleware"
	"github.com/spicegraph/spicegraph/result"
	"github.com/spicegraph/spicegraph/retry"
	"github.com/spicegraph/spicegraph/spiceerr"
)

// NodeMetricsRecorder captures per-node latency and workflow-completion
// counts, independent of the retry.MetricsRecorder the Supervisor already
// feeds. A nil NodeMetricsRecorder on Runner disables this recording.
type NodeMetricsRecorder interface {
	RecordNodeLatency(nodeID string, latency time.Duration, status string)
	RecordWorkflowCompletion(finalState string)
}

// Runner drives a Graph's step loop. It holds no per-execution mutable
// state beyond the message being passed forward (spec §3: "GraphRunner
// holds no per-execution mutable state beyond the message being passed
// forward"), so one Runner value is safely reused across concurrent runs.
type Runner struct {
	Transformers middleware.Chain
	Retry        retry.Supervisor
	Metrics      NodeMetricsRecorder

	// Sanitize overrides the default event-metadata blacklist applied to
	// every published Event (spec §4.9). Nil means emit.DefaultSanitizeConfig.
	Sanitize *emit.SanitizeConfig
}

// New builds a Runner from a transformer chain and retry supervisor.
func New(transformers middleware.Chain, supervisor retry.Supervisor) *Runner {
	return &Runner{Transformers: transformers, Retry: supervisor}
}

// Execute runs from graph.EntryPoint() (or, if m already names a node,
// from there) until the message reaches a terminal state or WAITING
// (spec §4.1).
func (r *Runner) Execute(ctx context.Context, g *graph.Graph, m message.Message) graph.Result {
	if m.IsTerminal() {
		return result.Ok(m)
	}

	beforeExec := r.Transformers.RunBeforeExecution(ctx, g, m)
	if beforeExec.IsErr() {
		return beforeExec
	}
	input := m
	m, _ = beforeExec.Value()

	if m.State() == message.Ready {
		m = m.Transition(message.Running, "execution started")
		r.emitWorkflowStarted(g, m)
	}

	res := r.runLoop(ctx, g, m)
	if res.IsErr() {
		return res
	}
	out, _ := res.Value()
	return r.Transformers.RunAfterExecution(ctx, g, input, out)
}

// advanceOutcome is the result of selecting (or failing to select) the
// next node after a node finishes successfully.
type advanceOutcome struct {
	message  message.Message
	terminal bool
}

// runLoop drives node-by-node execution starting at m.NodeID() (defaulting
// to graph.EntryPoint() when empty), until WAITING or terminal (spec §4.1
// steps 2-8).
func (r *Runner) runLoop(ctx context.Context, g *graph.Graph, m message.Message) graph.Result {
	current := m.NodeID()
	if current == "" {
		current = g.EntryPoint()
		m = m.WithNodeID(current)
	}

	for {
		node, ok := g.Node(current)
		if !ok {
			return result.Err[message.Message](spiceerr.Execution("node not found: "+current, g.ID(), current, nil))
		}

		select {
		case <-ctx.Done():
			return result.Err[message.Message](spiceerr.Timeout(ctx.Err().Error()))
		default:
		}

		output, execErr := r.runNode(ctx, g, current, node, m)
		if execErr != nil {
			return result.Err[message.Message](execErr)
		}
		m = output

		if m.State() == message.Waiting {
			r.emitWorkflowPaused(g, m)
			return result.Ok(m)
		}

		outcome, err := r.advance(g, current, node, m)
		if err != nil {
			return result.Err[message.Message](err)
		}
		m = outcome.message
		if outcome.terminal {
			r.emitWorkflowCompleted(g, m)
			return result.Ok(m)
		}
		current = m.NodeID()
	}
}

// runNode wraps one node invocation in the transformer chain's
// beforeNode/afterNode hooks and the RetrySupervisor (spec §4.1 steps
// 4-6), returning the node's result message or the terminating error.
func (r *Runner) runNode(ctx context.Context, g *graph.Graph, nodeID string, node graph.Node, m message.Message) (message.Message, *spiceerr.SpiceError) {
	beforeRes := r.Transformers.RunBeforeNode(ctx, g, nodeID, m)
	if beforeRes.IsErr() {
		return message.Message{}, beforeRes.Error()
	}
	input, _ := beforeRes.Value()

	r.emitNodeStarted(g, nodeID, input)

	startedAt := time.Now()
	policy := g.Config().RetryPolicy
	retryResult := r.Retry.ExecuteWithRetry(nodeID, policy, func(attempt int) (any, *spiceerr.SpiceError) {
		var res graph.Result
		if sg, ok := node.(graph.SubgraphRunner); ok {
			res = sg.RunWithRunner(ctx, input, r)
		} else {
			res = node.Run(ctx, input)
		}
		if res.IsErr() {
			return nil, res.Error()
		}
		v, _ := res.Value()
		return v, nil
	})

	if !retryResult.IsSuccess() {
		failErr := retryResult.Error()
		failedMsg := input.Transition(message.Failed, failErr.Code)
		_ = r.Transformers.RunAfterNode(ctx, g, nodeID, input, failedMsg)
		r.emitNodeFailed(g, nodeID, failErr)
		r.recordNodeLatency(nodeID, time.Since(startedAt), "error")
		return message.Message{}, failErr
	}

	output, _ := retryResult.Value().(message.Message)
	afterRes := r.Transformers.RunAfterNode(ctx, g, nodeID, input, output)
	if afterRes.IsErr() {
		return message.Message{}, afterRes.Error()
	}
	final, _ := afterRes.Value()
	final = final.WithNodeID(nodeID)
	r.emitNodeCompleted(g, nodeID, final)
	r.recordNodeLatency(nodeID, time.Since(startedAt), "success")
	return final, nil
}

func (r *Runner) recordNodeLatency(nodeID string, latency time.Duration, status string) {
	if r.Metrics != nil {
		r.Metrics.RecordNodeLatency(nodeID, latency, status)
	}
}

func (r *Runner) recordWorkflowCompletion(finalState message.State) {
	if r.Metrics != nil {
		r.Metrics.RecordWorkflowCompletion(string(finalState))
	}
}

// advance selects the next node per spec §4.1 step 7: the first edge from
// current whose condition matches wins (declared order is authoritative).
// An edge to a declared sink (a target with no registered node) completes
// the run; no matching edge completes the run only if current is an
// OutputNode, otherwise it is a RoutingError.
func (r *Runner) advance(g *graph.Graph, current string, node graph.Node, m message.Message) (advanceOutcome, *spiceerr.SpiceError) {
	for _, e := range g.EdgesFrom(current) {
		if !e.Matches(m) {
			continue
		}
		if !g.HasNode(e.To) {
			done := m.WithNodeID(e.To).Transition(message.Completed, "reached terminal sink "+e.To)
			return advanceOutcome{message: done, terminal: true}, nil
		}
		return advanceOutcome{message: m.WithNodeID(e.To)}, nil
	}

	if _, isOutput := node.(*graph.OutputNode); isOutput {
		done := m.Transition(message.Completed, "output node reached with no further edges")
		return advanceOutcome{message: done, terminal: true}, nil
	}

	return advanceOutcome{}, spiceerr.Routing("no matching edge from node " + current)
}

// bus returns g's configured event sink, wrapped so Meta never carries a
// sensitive key onto the wire unfiltered (spec §4.9: "the sanitizer filters
// event metadata... before publication"). Sanitize overrides the default
// blacklist; set it to an empty emit.SanitizeConfig{} to disable filtering.
func (r *Runner) bus(g *graph.Graph) emit.Bus {
	raw := g.Config().EventBus
	if raw == nil {
		return nil
	}
	config := r.Sanitize
	if config == nil {
		defaults := emit.DefaultSanitizeConfig()
		config = &defaults
	}
	return emit.NewSanitizingBus(raw, *config)
}

func (r *Runner) emitWorkflowStarted(g *graph.Graph, m message.Message) {
	if b := r.bus(g); b != nil {
		b.Emit(emit.Event{Kind: emit.WorkflowStarted, RunID: m.RunID(), Msg: "workflow started"})
	}
}

func (r *Runner) emitWorkflowPaused(g *graph.Graph, m message.Message) {
	if b := r.bus(g); b != nil {
		b.Emit(emit.Event{Kind: emit.WorkflowPaused, RunID: m.RunID(), NodeID: m.NodeID(), Msg: "workflow paused"})
	}
}

func (r *Runner) emitWorkflowCompleted(g *graph.Graph, m message.Message) {
	r.recordWorkflowCompletion(m.State())
	if b := r.bus(g); b != nil {
		b.Emit(emit.Event{
			Kind:  emit.WorkflowCompleted,
			RunID: m.RunID(),
			Msg:   "workflow completed",
			Meta:  map[string]interface{}{"finalState": string(m.State())},
		})
	}
}

func (r *Runner) emitNodeStarted(g *graph.Graph, nodeID string, m message.Message) {
	if b := r.bus(g); b != nil {
		b.Emit(emit.Event{Kind: emit.NodeStarted, RunID: m.RunID(), NodeID: nodeID, Msg: "node started"})
	}
}

func (r *Runner) emitNodeCompleted(g *graph.Graph, nodeID string, m message.Message) {
	if b := r.bus(g); b != nil {
		b.Emit(emit.Event{Kind: emit.NodeCompleted, RunID: m.RunID(), NodeID: nodeID, Msg: "node completed"})
	}
}

func (r *Runner) emitNodeFailed(g *graph.Graph, nodeID string, err *spiceerr.SpiceError) {
	if b := r.bus(g); b != nil {
		b.Emit(emit.Event{
			Kind:   emit.NodeFailed,
			NodeID: nodeID,
			Msg:    "node failed",
			Meta:   map[string]interface{}{"error": err.Error(), "code": err.Code},
		})
	}
}
