// Package middleware implements the Transformer chain that brackets graph
// and per-node execution (spec §4.7). Grounded on the teacher's
// emitNodeStart/emitNodeEnd bracket-around-Run pattern in engine.go,
// generalized here into a first-class, user-pluggable interface instead of
// the teacher's hardcoded event emission.
package middleware

import (
	"context"

	"github.com/spicegraph/spicegraph/graph"
	"github.com/spicegraph/spicegraph/message"
	"github.com/spicegraph/spicegraph/result"
)

// Transformer hooks into graph and node execution. Every hook returns a
// graph.Result so a transformer can itself fail; ContinueOnFailure decides
// whether that failure aborts the chain (false) or is swallowed in favor of
// the last successful message (true), per spec §4.7.
type Transformer interface {
	BeforeExecution(ctx context.Context, g *graph.Graph, m message.Message) graph.Result
	BeforeNode(ctx context.Context, g *graph.Graph, nodeID string, m message.Message) graph.Result
	AfterNode(ctx context.Context, g *graph.Graph, nodeID string, input, output message.Message) graph.Result
	AfterExecution(ctx context.Context, g *graph.Graph, input, output message.Message) graph.Result

	// ContinueOnFailure reports whether a failure from this transformer's
	// hooks should be swallowed (true) rather than aborting the chain (false).
	ContinueOnFailure() bool
}

// Chain runs a left-to-right sequence of Transformers, where the output of
// transformer i becomes the input to transformer i+1.
type Chain struct {
	Transformers []Transformer
}

// NewChain builds a Chain from the given transformers, in application order.
func NewChain(transformers ...Transformer) Chain {
	return Chain{Transformers: transformers}
}

// RunBeforeExecution applies BeforeExecution across the chain.
func (c Chain) RunBeforeExecution(ctx context.Context, g *graph.Graph, m message.Message) graph.Result {
	return c.run(m, func(t Transformer, cur message.Message) graph.Result {
		return t.BeforeExecution(ctx, g, cur)
	})
}

// RunBeforeNode applies BeforeNode across the chain.
func (c Chain) RunBeforeNode(ctx context.Context, g *graph.Graph, nodeID string, m message.Message) graph.Result {
	return c.run(m, func(t Transformer, cur message.Message) graph.Result {
		return t.BeforeNode(ctx, g, nodeID, cur)
	})
}

// RunAfterNode applies AfterNode across the chain. input is the message
// handed to the node; output is its (already-transformed) result.
func (c Chain) RunAfterNode(ctx context.Context, g *graph.Graph, nodeID string, input, output message.Message) graph.Result {
	return c.run(output, func(t Transformer, cur message.Message) graph.Result {
		return t.AfterNode(ctx, g, nodeID, input, cur)
	})
}

// RunAfterExecution applies AfterExecution across the chain.
func (c Chain) RunAfterExecution(ctx context.Context, g *graph.Graph, input, output message.Message) graph.Result {
	return c.run(output, func(t Transformer, cur message.Message) graph.Result {
		return t.AfterExecution(ctx, g, input, cur)
	})
}

// run threads cur through every transformer's hook function in order.
// A transformer failure with ContinueOnFailure()==false aborts the chain
// immediately; ContinueOnFailure()==true keeps the last successful message
// and continues to the next transformer.
func (c Chain) run(cur message.Message, hook func(Transformer, message.Message) graph.Result) graph.Result {
	for _, t := range c.Transformers {
		res := hook(t, cur)
		if res.IsErr() {
			if t.ContinueOnFailure() {
				continue
			}
			return res
		}
		cur, _ = res.Value()
	}
	return result.Ok(cur)
}
