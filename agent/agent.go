// Package agent provides the ChatModel abstraction LLM-backed nodes use,
// plus the bridge that turns any ChatModel into a graph.Agent. Grounded on
// the teacher's graph/model/chat.go, trimmed from a standalone LLM-client
// package into an adapter that speaks message.Message at its boundary.
package agent

import (
	"context"

	"github.com/spicegraph/spicegraph/graph"
	"github.com/spicegraph/spicegraph/message"
	"github.com/spicegraph/spicegraph/result"
	"github.com/spicegraph/spicegraph/spiceerr"
)

// conversationDataKey is the reserved Message.Data key under which
// ChatModelAgent threads conversation history between turns of the same
// run. It is an in-memory []Message, never serialized to a store, so
// checkpoints that cross a process boundary lose mid-conversation history
// by design -- resumed runs start a fresh conversation from Content.
const conversationDataKey = "agent.conversation"

// ChatModel is the interface every LLM provider adapter implements.
// Abstracts over OpenAI, Anthropic, and Google's differing wire formats
// behind one Chat call.
type ChatModel interface {
	Chat(ctx context.Context, messages []Message, tools []ToolSpec) (ChatOut, error)
}

// Message is one turn in an LLM conversation.
type Message struct {
	Role    string
	Content string
}

// Standard role constants, aligned with the conventions major providers use.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ToolSpec describes a tool an LLM may call, in JSON Schema terms.
type ToolSpec struct {
	Name        string
	Description string
	Schema      map[string]interface{}
}

// ChatOut is a ChatModel's response: generated text, requested tool calls,
// or both.
type ChatOut struct {
	Text      string
	ToolCalls []ToolCall
}

// ToolCall is one tool invocation an LLM is requesting.
type ToolCall struct {
	Name  string
	Input map[string]interface{}
}

// ChatModelAgent adapts a ChatModel into a graph.Agent, so any provider
// package in this module can sit behind an AgentNode. SystemPrompt, if
// set, is prepended once per call; Tools, if set, are offered on every
// turn.
type ChatModelAgent struct {
	Model        ChatModel
	SystemPrompt string
	Tools        []ToolSpec
}

// NewChatModelAgent constructs a ChatModelAgent.
func NewChatModelAgent(model ChatModel, systemPrompt string, tools []ToolSpec) *ChatModelAgent {
	return &ChatModelAgent{Model: model, SystemPrompt: systemPrompt, Tools: tools}
}

// ProcessMessage implements graph.Agent. It turns m's content (plus any
// conversation carried in m.Data()[conversationDataKey]) into a ChatModel
// call, then folds the response back onto m: Content becomes the
// generated text, and any requested tool calls are queued via
// AppendToolCall for a downstream ToolNode to execute.
func (a *ChatModelAgent) ProcessMessage(ctx context.Context, m message.Message) graph.Result {
	history := priorConversation(m)
	if a.SystemPrompt != "" && len(history) == 0 {
		history = append(history, Message{Role: RoleSystem, Content: a.SystemPrompt})
	}
	turn := Message{Role: RoleUser, Content: m.Content()}
	history = append(history, turn)

	out, err := a.Model.Chat(ctx, history, a.Tools)
	if err != nil {
		return result.Err[message.Message](spiceerr.Agent("chat model invocation failed", err))
	}

	next := m.WithContent(out.Text)
	for _, tc := range out.ToolCalls {
		next = next.AppendToolCall(message.ToolCall{
			ID:        toolCallID(m, tc),
			Name:      tc.Name,
			Arguments: tc.Input,
		})
	}
	history = append(history, Message{Role: RoleAssistant, Content: out.Text})
	next = next.WithData(map[string]any{conversationDataKey: history})

	return result.Ok(next)
}

func priorConversation(m message.Message) []Message {
	v, ok := m.DataValue(conversationDataKey)
	if !ok {
		return nil
	}
	conv, ok := v.([]Message)
	if !ok {
		return nil
	}
	return append([]Message(nil), conv...)
}

// toolCallID derives a stable per-message, per-tool identifier so the same
// ToolCall replayed during a retry does not get a new ID.
func toolCallID(m message.Message, tc ToolCall) string {
	return m.ID() + ":" + tc.Name
}
