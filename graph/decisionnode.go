package graph

import (
	"context"
	"fmt"

	"github.com/spicegraph/spicegraph/message"
	"github.com/spicegraph/spicegraph/result"
	"github.com/spicegraph/spicegraph/spiceerr"
)

// Branch is one candidate routing decision for a DecisionNode. Otherwise,
// the sentinel, always matches; at most one Branch may set it per
// DecisionNode (spec §4.4: "otherwise() is a sentinel always-true
// predicate; at most one is allowed").
type Branch struct {
	Name         string
	TargetNodeID string
	Predicate    Predicate
	Otherwise    bool
}

// DecisionNode writes _selectedBranch into data based on the first
// matching branch predicate; it has no other side effects (spec §3/§4.4).
type DecisionNode struct {
	id       string
	branches []Branch
}

// NewDecisionNode builds a DecisionNode. Returns an error if more than one
// branch sets Otherwise.
func NewDecisionNode(id string, branches []Branch) (*DecisionNode, error) {
	otherwiseSeen := false
	for _, b := range branches {
		if b.Otherwise {
			if otherwiseSeen {
				return nil, fmt.Errorf("graph: decision node %q declares more than one otherwise() branch", id)
			}
			otherwiseSeen = true
		}
	}
	return &DecisionNode{id: id, branches: append([]Branch(nil), branches...)}, nil
}

// Run selects the first branch whose predicate matches m (or whose
// Otherwise flag is set) and records the decision in m.Data, per spec §4.4
// step 2.
func (n *DecisionNode) Run(_ context.Context, m message.Message) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = result.Err[message.Message](spiceerr.Execution(
				fmt.Sprintf("Decision branch evaluation failed: %v", r), "", n.id, nil))
		}
	}()

	for _, b := range n.branches {
		if b.Otherwise || (b.Predicate != nil && b.Predicate(m)) {
			next := m.WithData(map[string]any{
				"_selectedBranch": b.TargetNodeID,
				"_branchName":     b.Name,
				"_decisionNodeId": n.id,
			})
			return result.Ok(next)
		}
	}

	return result.Err[message.Message](spiceerr.Execution("no decision branch matched", "", n.id, nil))
}
