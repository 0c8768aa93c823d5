package agent

import (
	"context"
	"sync"

	"github.com/spicegraph/spicegraph/graph"
	"github.com/spicegraph/spicegraph/message"
	"github.com/spicegraph/spicegraph/result"
	"github.com/spicegraph/spicegraph/spiceerr"
)

// MockChatModel is a test double for ChatModel: configurable responses,
// error injection, and call-history tracking, without any network I/O.
type MockChatModel struct {
	// Responses is returned in order, one per call; the last response
	// repeats once exhausted.
	Responses []ChatOut

	// Err, if set, is returned instead of a response.
	Err error

	// Calls records every invocation for assertions.
	Calls []MockChatCall

	mu        sync.Mutex
	callIndex int
}

// MockChatCall records a single Chat invocation.
type MockChatCall struct {
	Messages []Message
	Tools    []ToolSpec
}

// Chat implements ChatModel.
func (m *MockChatModel) Chat(ctx context.Context, messages []Message, tools []ToolSpec) (ChatOut, error) {
	if ctx.Err() != nil {
		return ChatOut{}, ctx.Err()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, MockChatCall{Messages: messages, Tools: tools})

	if m.Err != nil {
		return ChatOut{}, m.Err
	}
	if len(m.Responses) == 0 {
		return ChatOut{}, nil
	}

	idx := m.callIndex
	if idx >= len(m.Responses) {
		idx = len(m.Responses) - 1
	} else {
		m.callIndex++
	}
	return m.Responses[idx], nil
}

// Reset clears call history, for reuse across test cases.
func (m *MockChatModel) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = nil
	m.callIndex = 0
}

// CallCount reports how many times Chat has been invoked.
func (m *MockChatModel) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// MockAgent is a graph.Agent test double that bypasses ChatModel entirely:
// it applies a caller-supplied function to each Message, or returns a
// fixed error. Useful for AgentNode tests that care about node wiring, not
// LLM semantics.
type MockAgent struct {
	Process func(m message.Message) message.Message
	Err     error

	mu    sync.Mutex
	Calls []message.Message
}

// ProcessMessage implements graph.Agent.
func (a *MockAgent) ProcessMessage(ctx context.Context, m message.Message) graph.Result {
	a.mu.Lock()
	a.Calls = append(a.Calls, m)
	a.mu.Unlock()

	if ctx.Err() != nil {
		return result.Err[message.Message](spiceerr.Wrap(spiceerr.KindTimeout, "TimeoutError", "context canceled", ctx.Err()))
	}
	if a.Err != nil {
		return result.Err[message.Message](spiceerr.Agent("mock agent failure", a.Err))
	}
	if a.Process == nil {
		return result.Ok(m)
	}
	return result.Ok(a.Process(m))
}
