package graph

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/spicegraph/spicegraph/message"
	"github.com/spicegraph/spicegraph/result"
)

// SelectionItem is one option offered by a request_user_selection tool
// call (spec §6).
type SelectionItem struct {
	ID          string
	Label       string
	Description string
	Metadata    map[string]any
}

// HumanNode emits a HITL tool-call and transitions the message to WAITING;
// it never produces COMPLETED directly (spec §3/§4.3).
//
// Exactly one of Selection fields (non-nil Items) or plain-text prompting
// is configured: when Items is non-empty, Run emits request_user_selection;
// otherwise it emits request_user_input using Question/InputType.
type HumanNode struct {
	id string

	// PromptMessage is shown to the user for a selection prompt.
	PromptMessage string
	Items         []SelectionItem
	AllowFreeText bool
	ExpiresAt     *time.Time

	// Question/InputType configure a free-form input prompt, used
	// when Items is empty.
	Question  string
	InputType string
}

// NewHumanNode creates a HumanNode identified by id.
func NewHumanNode(id string) *HumanNode {
	return &HumanNode{id: id}
}

// Run emits the configured HITL tool-call and pauses the message (spec
// §4.3). Every invocation yields a unique tool-call id.
func (n *HumanNode) Run(_ context.Context, m message.Message) Result {
	toolCallID := uuid.NewString()
	now := time.Now()

	var call message.ToolCall
	if len(n.Items) > 0 {
		items := make([]map[string]any, 0, len(n.Items))
		for _, it := range n.Items {
			item := map[string]any{"id": it.ID, "label": it.Label}
			if it.Description != "" {
				item["description"] = it.Description
			}
			if it.Metadata != nil {
				item["metadata"] = it.Metadata
			}
			items = append(items, item)
		}

		meta := map[string]any{
			"node_id":         n.id,
			"allow_free_text": n.AllowFreeText,
		}
		if n.ExpiresAt != nil {
			meta["expires_at"] = n.ExpiresAt.Format(time.RFC3339)
		}

		call = message.ToolCall{
			ID:   toolCallID,
			Name: "request_user_selection",
			Arguments: map[string]any{
				"prompt_message": n.PromptMessage,
				"items":          items,
				"metadata":       meta,
			},
		}
	} else {
		call = message.ToolCall{
			ID:   toolCallID,
			Name: "request_user_input",
			Arguments: map[string]any{
				"question": n.Question,
				"type":     n.InputType,
				"context":  map[string]any{"node_id": n.id},
			},
		}
	}

	next := m.AppendToolCall(call)
	next = next.WithMetadata(map[string]any{
		"paused_node_id": n.id,
		"paused_at":      now.Format(time.RFC3339),
	})
	next = next.WithNodeID(n.id)
	next = next.Transition(message.Waiting, "human-in-the-loop pause")

	return result.Ok(next)
}
