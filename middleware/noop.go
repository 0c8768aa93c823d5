package middleware

import (
	"context"

	"github.com/spicegraph/spicegraph/graph"
	"github.com/spicegraph/spicegraph/message"
	"github.com/spicegraph/spicegraph/result"
)

// NoOp is a Transformer whose hooks pass the message through unchanged.
// Embed it to implement only the hooks a concrete transformer cares about.
type NoOp struct {
	// ContinueOnError, if true, makes ContinueOnFailure() return true.
	ContinueOnError bool
}

func (NoOp) BeforeExecution(_ context.Context, _ *graph.Graph, m message.Message) graph.Result {
	return result.Ok(m)
}

func (NoOp) BeforeNode(_ context.Context, _ *graph.Graph, _ string, m message.Message) graph.Result {
	return result.Ok(m)
}

func (NoOp) AfterNode(_ context.Context, _ *graph.Graph, _ string, _, output message.Message) graph.Result {
	return result.Ok(output)
}

func (NoOp) AfterExecution(_ context.Context, _ *graph.Graph, _, output message.Message) graph.Result {
	return result.Ok(output)
}

func (n NoOp) ContinueOnFailure() bool { return n.ContinueOnError }
