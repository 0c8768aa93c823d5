// Package openaiagent provides a ChatModel adapter for OpenAI's chat completions API.
package openaiagent

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/spicegraph/spicegraph/agent"
	"github.com/spicegraph/spicegraph/spiceerr"
	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// ChatModel implements agent.ChatModel for OpenAI's API.
//
// Provides access to OpenAI models (GPT-4, GPT-3.5, etc.) with:
//   - Automatic retry logic for transient errors
//   - Rate limit handling
//   - Tool/function calling support
//   - Context cancellation
//
// Example usage:
//
//	apiKey := os.Getenv("OPENAI_API_KEY")
//	m := openaiagent.NewChatModel(apiKey, "gpt-4")
//
//	messages := []agent.Message{
//	    {Role: agent.RoleUser, Content: "What is the capital of France?"},
//	}
//
//	out, err := m.Chat(ctx, messages, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(out.Text)
type ChatModel struct {
	apiKey     string
	modelName  string
	client     openaiClient
	maxRetries int
	retryDelay time.Duration
}

// openaiClient defines the interface for OpenAI API operations.
// This allows for easy mocking in tests.
type openaiClient interface {
	createChatCompletion(ctx context.Context, messages []agent.Message, tools []agent.ToolSpec) (agent.ChatOut, error)
}

// NewChatModel creates a new OpenAI ChatModel.
//
// Parameters:
//   - apiKey: OpenAI API key (get from https://platform.openai.com/api-keys)
//   - modelName: Model to use (e.g., "gpt-4", "gpt-3.5-turbo"). Empty string uses default.
//
// Returns a ChatModel configured with:
//   - 3 retry attempts for transient errors
//   - 1 second delay between retries
//   - Linearly increasing delay for rate limits (1s, 2s, 3s)
//
// Example:
//
//	model := openaiagent.NewChatModel(apiKey, "gpt-4")
func NewChatModel(apiKey, modelName string) *ChatModel {
	if modelName == "" {
		modelName = "gpt-4o" // GPT-4o is the latest multimodal model (2025)
	}

	return &ChatModel{
		apiKey:     apiKey,
		modelName:  modelName,
		client:     &defaultClient{apiKey: apiKey, modelName: modelName},
		maxRetries: 3,
		retryDelay: time.Second,
	}
}

// Chat implements the agent.ChatModel interface.
//
// Sends messages to OpenAI's API and returns the response.
// Automatically retries on transient errors (network issues, rate limits).
//
// Returns:
//   - ChatOut with Text and/or ToolCalls
//   - Error for authentication failures, invalid requests, or exceeded retries
func (m *ChatModel) Chat(ctx context.Context, messages []agent.Message, tools []agent.ToolSpec) (agent.ChatOut, error) {
	// Check context cancellation
	if ctx.Err() != nil {
		return agent.ChatOut{}, ctx.Err()
	}

	// Attempt with retries
	var lastErr error
	for attempt := 0; attempt <= m.maxRetries; attempt++ {
		out, err := m.client.createChatCompletion(ctx, messages, tools)
		if err == nil {
			return out, nil
		}

		lastErr = translateOpenAIError(err)

		// Don't retry on non-transient errors
		if !isTransientError(lastErr) {
			return agent.ChatOut{}, lastErr
		}

		// Don't retry if we've exhausted attempts
		if attempt >= m.maxRetries {
			break
		}

		// Wait before retry (delay grows linearly with the attempt for rate limits)
		delay := m.retryDelay
		if isRateLimitError(lastErr) {
			delay = m.retryDelay * time.Duration(attempt+1)
		}

		select {
		case <-time.After(delay):
			// Continue to next attempt
		case <-ctx.Done():
			return agent.ChatOut{}, ctx.Err()
		}
	}

	return agent.ChatOut{}, lastErr
}

// translateOpenAIError maps the SDK's *openaisdk.Error (which carries the
// HTTP status OpenAI responded with) onto spiceerr's kinds, so retry logic
// and callers can match on spiceerr.Kind instead of the SDK's own type.
func translateOpenAIError(err error) error {
	var spiceErr *spiceerr.SpiceError
	if errors.As(err, &spiceErr) {
		return err
	}

	var apiErr *openaisdk.Error
	if !errors.As(err, &apiErr) {
		return spiceerr.Agent("openai chat request failed", err)
	}

	switch apiErr.StatusCode {
	case 401, 403:
		return spiceerr.Authentication("openai rejected the API key").WithContext("cause", apiErr.Error())
	case 429:
		return spiceerr.RateLimit("openai rate limit exceeded", 0).WithContext("cause", apiErr.Error())
	case 500, 502, 503:
		return spiceerr.Network("openai API unavailable", apiErr.StatusCode).WithContext("cause", apiErr.Error())
	default:
		return spiceerr.Agent("openai API error", apiErr)
	}
}

// isTransientError reports whether a translated error should trigger a
// retry: network outages and rate limits are, validation and auth failures
// are not.
func isTransientError(err error) bool {
	var spiceErr *spiceerr.SpiceError
	if !errors.As(err, &spiceErr) {
		return false
	}
	switch spiceErr.Kind {
	case spiceerr.KindNetwork, spiceerr.KindRateLimit, spiceerr.KindTimeout:
		return true
	default:
		return false
	}
}

// isRateLimitError reports whether err is a rate-limit SpiceError, so Chat
// can back off further than a plain network retry.
func isRateLimitError(err error) bool {
	var spiceErr *spiceerr.SpiceError
	return errors.As(err, &spiceErr) && spiceErr.Kind == spiceerr.KindRateLimit
}

// defaultClient wraps the official OpenAI SDK client.
type defaultClient struct {
	apiKey    string
	modelName string
}

func (c *defaultClient) createChatCompletion(ctx context.Context, messages []agent.Message, tools []agent.ToolSpec) (agent.ChatOut, error) {
	// Validate API key
	if c.apiKey == "" {
		return agent.ChatOut{}, errors.New("OpenAI API key is required")
	}

	// Create OpenAI client
	client := openaisdk.NewClient(option.WithAPIKey(c.apiKey))

	// Convert messages to OpenAI format
	openaiMessages := convertMessages(messages)

	// Build request parameters
	params := openaisdk.ChatCompletionNewParams{
		Model:    openaisdk.ChatModel(c.modelName),
		Messages: openaiMessages,
	}

	// Add tools if provided
	if len(tools) > 0 {
		params.Tools = convertTools(tools)
	}

	// Call OpenAI API
	resp, err := client.Chat.Completions.New(ctx, params)
	if err != nil {
		return agent.ChatOut{}, err
	}

	// Convert response to our format
	return convertResponse(resp), nil
}

// convertMessages converts our Message format to OpenAI's format.
func convertMessages(messages []agent.Message) []openaisdk.ChatCompletionMessageParamUnion {
	result := make([]openaisdk.ChatCompletionMessageParamUnion, len(messages))

	for i, msg := range messages {
		switch msg.Role {
		case agent.RoleSystem:
			result[i] = openaisdk.SystemMessage(msg.Content)
		case agent.RoleUser:
			result[i] = openaisdk.UserMessage(msg.Content)
		case agent.RoleAssistant:
			result[i] = openaisdk.AssistantMessage(msg.Content)
		default:
			// Fallback to user message for unknown roles
			result[i] = openaisdk.UserMessage(msg.Content)
		}
	}

	return result
}

// convertTools converts our ToolSpec format to OpenAI's format.
func convertTools(tools []agent.ToolSpec) []openaisdk.ChatCompletionToolParam {
	result := make([]openaisdk.ChatCompletionToolParam, len(tools))

	for i, tool := range tools {
		result[i] = openaisdk.ChatCompletionToolParam{
			Function: shared.FunctionDefinitionParam{
				Name:        tool.Name,
				Description: openaisdk.String(tool.Description),
				Parameters:  shared.FunctionParameters(tool.Schema),
			},
		}
	}

	return result
}

// convertResponse converts OpenAI's response to our ChatOut format.
func convertResponse(resp *openaisdk.ChatCompletion) agent.ChatOut {
	out := agent.ChatOut{}

	if len(resp.Choices) == 0 {
		return out
	}

	// Get the first choice (most common case)
	choice := resp.Choices[0]
	msg := choice.Message

	// Extract text content
	out.Text = msg.Content

	// Extract tool calls if present
	if len(msg.ToolCalls) > 0 {
		out.ToolCalls = make([]agent.ToolCall, len(msg.ToolCalls))
		for i, tc := range msg.ToolCalls {
			out.ToolCalls[i] = agent.ToolCall{
				Name:  tc.Function.Name,
				Input: parseToolInput(tc.Function.Arguments),
			}
		}
	}

	return out
}

// parseToolInput unmarshals the function-call arguments JSON OpenAI returns
// into a map. A malformed payload (the API violating its own contract)
// degrades to a single "_raw" field rather than dropping the call.
func parseToolInput(jsonStr string) map[string]interface{} {
	if jsonStr == "" {
		return nil
	}

	var result map[string]interface{}
	if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
		return map[string]interface{}{"_raw": jsonStr}
	}
	return result
}
