// Package graph defines the graph data model (nodes, edges, and the
// read-only Graph value built from them) per spec §3-§4. Grounded on the
// teacher's graph/edge.go and graph/node.go, adapted from a generic
// Edge[S]/Predicate[S] to the fixed message.Message type spec.md uses.
package graph

import "github.com/spicegraph/spicegraph/message"

// Predicate evaluates a Message to decide whether an Edge should be
// traversed. The default predicate (nil) always matches.
type Predicate func(m message.Message) bool

// Edge connects two nodes. Edges sharing the same From are ordered; the
// first whose Condition returns true wins (spec §3).
type Edge struct {
	From      string
	To        string
	Condition Predicate
}

// Matches evaluates the edge's condition against m. A nil Condition always
// matches ("always" default per spec §3).
func (e Edge) Matches(m message.Message) bool {
	if e.Condition == nil {
		return true
	}
	return e.Condition(m)
}

// Always is a Predicate that matches every Message. Useful for making the
// "unconditional" default explicit at call sites.
func Always(message.Message) bool { return true }
