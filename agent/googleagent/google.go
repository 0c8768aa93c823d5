// Package googleagent provides a ChatModel adapter for Google's Gemini API.
package googleagent

import (
	"context"
	"errors"

	"github.com/spicegraph/spicegraph/agent"
	"github.com/spicegraph/spicegraph/spiceerr"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// ChatModel implements agent.ChatModel for Google's Gemini API.
//
// Provides access to Gemini models (gemini-pro, gemini-pro-vision) with:
//   - Safety filter handling
//   - Tool/function calling support
//   - Context cancellation
//   - User-friendly error messages for blocked content
//
// Example usage:
//
//	apiKey := os.Getenv("GOOGLE_API_KEY")
//	m := googleagent.NewChatModel(apiKey, "gemini-1.5-flash")
//
//	messages := []agent.Message{
//	    {Role: agent.RoleUser, Content: "What is the capital of France?"},
//	}
//
//	out, err := m.Chat(ctx, messages, nil)
//	if err != nil {
//	    var spiceErr *spiceerr.SpiceError
//	    if errors.As(err, &spiceErr) && spiceErr.Kind == spiceerr.KindValidation {
//	        log.Printf("content blocked: %s", spiceErr)
//	        return
//	    }
//	    log.Fatal(err)
//	}
//	log.Print(out.Text)
type ChatModel struct {
	apiKey    string
	modelName string
	client    googleClient
}

// googleClient defines the interface for Google Gemini API operations.
// This allows for easy mocking in tests.
type googleClient interface {
	generateContent(ctx context.Context, messages []agent.Message, tools []agent.ToolSpec) (agent.ChatOut, error)
}

// NewChatModel creates a new Google ChatModel.
//
// Parameters:
//   - apiKey: Google API key (get from https://makersuite.google.com/app/apikey)
//   - modelName: Model to use (e.g., "gemini-1.5-flash"). Empty string uses default.
//
// Returns a ChatModel configured for Gemini API.
//
// Example:
//
//	model := googleagent.NewChatModel(apiKey, "gemini-1.5-flash")
func NewChatModel(apiKey, modelName string) *ChatModel {
	if modelName == "" {
		modelName = "gemini-2.5-flash" // Gemini 2.5 Flash (latest stable as of 2025)
	}

	return &ChatModel{
		apiKey:    apiKey,
		modelName: modelName,
		client:    &defaultClient{apiKey: apiKey, modelName: modelName},
	}
}

// Chat implements the agent.ChatModel interface.
//
// Sends messages to Google's Gemini API and returns the response.
// Handles safety filter blocks with descriptive errors.
//
// Returns:
//   - ChatOut with Text and/or ToolCalls
//   - Error for authentication failures, safety blocks, or API errors
func (m *ChatModel) Chat(ctx context.Context, messages []agent.Message, tools []agent.ToolSpec) (agent.ChatOut, error) {
	// Check context cancellation
	if ctx.Err() != nil {
		return agent.ChatOut{}, ctx.Err()
	}

	// Call Google API
	out, err := m.client.generateContent(ctx, messages, tools)
	if err != nil {
		// Handle safety filter errors specially: preserve the category/reason
		// in spiceerr's context instead of collapsing it to a bare message.
		var safetyErr *SafetyFilterError
		if errors.As(err, &safetyErr) {
			return agent.ChatOut{}, handleSafetyFilterError(safetyErr)
		}
		return agent.ChatOut{}, translateGoogleError(err)
	}

	return out, nil
}

// handleSafetyFilterError maps a blocked-content error onto
// spiceerr.KindValidation (the request itself was rejected, not a transient
// failure), keeping the category and reason queryable via WithContext.
//
// Google's safety filters can block content in several categories:
//   - HARM_CATEGORY_HATE_SPEECH
//   - HARM_CATEGORY_SEXUALLY_EXPLICIT
//   - HARM_CATEGORY_DANGEROUS_CONTENT
//   - HARM_CATEGORY_HARASSMENT
func handleSafetyFilterError(err *SafetyFilterError) error {
	return spiceerr.Validation("content blocked by google safety filter").
		WithContext("category", err.Category()).
		WithContext("reason", err.Reason())
}

// translateGoogleError maps the SDK's *googleapi.Error (which carries the
// HTTP status Google responded with) onto spiceerr's kinds, mirroring
// anthropicagent's and openaiagent's translate functions.
func translateGoogleError(err error) error {
	var spiceErr *spiceerr.SpiceError
	if errors.As(err, &spiceErr) {
		return err
	}

	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return spiceerr.Agent("google chat request failed", err)
	}

	switch apiErr.Code {
	case 401, 403:
		return spiceerr.Authentication("google rejected the API key").WithContext("cause", apiErr.Error())
	case 429:
		return spiceerr.RateLimit("google rate limit exceeded", 0).WithContext("cause", apiErr.Error())
	case 500, 502, 503:
		return spiceerr.Network("google API unavailable", apiErr.Code).WithContext("cause", apiErr.Error())
	default:
		return spiceerr.Agent("google API error", apiErr)
	}
}

// defaultClient wraps the official Google Gemini SDK client.
type defaultClient struct {
	apiKey    string
	modelName string
}

func (c *defaultClient) generateContent(ctx context.Context, messages []agent.Message, tools []agent.ToolSpec) (agent.ChatOut, error) {
	// Validate API key
	if c.apiKey == "" {
		return agent.ChatOut{}, errors.New("google API key is required")
	}

	// Create Google Gemini client
	client, err := genai.NewClient(ctx, option.WithAPIKey(c.apiKey))
	if err != nil {
		return agent.ChatOut{}, err
	}
	defer func() {
		if closeErr := client.Close(); closeErr != nil {
			// Log error but don't override return error
			_ = closeErr
		}
	}()

	// Create generative model
	genModel := client.GenerativeModel(c.modelName)

	// Add tools if provided
	if len(tools) > 0 {
		genModel.Tools = convertTools(tools)
	}

	// Convert messages to Google format
	parts := convertMessages(messages)

	// Generate content
	resp, err := genModel.GenerateContent(ctx, parts...)
	if err != nil {
		return agent.ChatOut{}, err
	}

	if safetyErr := detectSafetyBlock(resp); safetyErr != nil {
		return agent.ChatOut{}, safetyErr
	}

	// Convert response to our format
	return convertResponse(resp), nil
}

// detectSafetyBlock inspects the first candidate's finish reason and safety
// ratings, returning a *SafetyFilterError when Gemini blocked the response
// instead of silently returning empty text.
func detectSafetyBlock(resp *genai.GenerateContentResponse) *SafetyFilterError {
	if len(resp.Candidates) == 0 {
		return nil
	}
	candidate := resp.Candidates[0]
	if candidate.FinishReason != genai.FinishReasonSafety {
		return nil
	}

	category := "unknown"
	for _, rating := range candidate.SafetyRatings {
		if rating.Blocked {
			category = rating.Category.String()
			break
		}
	}
	return &SafetyFilterError{reason: candidate.FinishReason.String(), category: category}
}

// convertMessages converts our Message format to Google's format.
func convertMessages(messages []agent.Message) []genai.Part {
	var parts []genai.Part

	for _, msg := range messages {
		// Google Gemini uses a different approach - it combines all content into parts
		// System messages are typically set via SystemInstruction on the model
		// For now, we'll just add all messages as text parts
		if msg.Content != "" {
			parts = append(parts, genai.Text(msg.Content))
		}
	}

	return parts
}

// convertTools converts our ToolSpec format to Google's format.
func convertTools(tools []agent.ToolSpec) []*genai.Tool {
	declarations := make([]*genai.FunctionDeclaration, len(tools))

	for i, tool := range tools {
		// Convert schema map to genai.Schema via convertSchemaToGenai
		declarations[i] = &genai.FunctionDeclaration{
			Name:        tool.Name,
			Description: tool.Description,
			Parameters:  convertSchemaToGenai(tool.Schema),
		}
	}

	return []*genai.Tool{
		{
			FunctionDeclarations: declarations,
		},
	}
}

// convertSchemaToGenai converts a JSON schema map to genai.Schema format.
// This is a simplified version - a full implementation would recursively
// convert the entire schema structure.
func convertSchemaToGenai(schema map[string]interface{}) *genai.Schema {
	if schema == nil {
		return nil
	}

	// Create a basic schema
	// In a full implementation, you'd recursively convert all fields
	result := &genai.Schema{
		Type: genai.TypeObject,
	}

	// Extract properties if present
	if props, ok := schema["properties"].(map[string]interface{}); ok {
		properties := make(map[string]*genai.Schema)
		for key, val := range props {
			if propMap, ok := val.(map[string]interface{}); ok {
				propSchema := &genai.Schema{}
				if typeStr, ok := propMap["type"].(string); ok {
					propSchema.Type = convertTypeString(typeStr)
				}
				if desc, ok := propMap["description"].(string); ok {
					propSchema.Description = desc
				}
				properties[key] = propSchema
			}
		}
		result.Properties = properties
	}

	// Extract required fields if present
	if required, ok := schema["required"].([]string); ok {
		result.Required = required
	} else if required, ok := schema["required"].([]interface{}); ok {
		requiredStrs := make([]string, len(required))
		for i, v := range required {
			if s, ok := v.(string); ok {
				requiredStrs[i] = s
			}
		}
		result.Required = requiredStrs
	}

	return result
}

// convertResponse converts Google's response to our ChatOut format.
func convertResponse(resp *genai.GenerateContentResponse) agent.ChatOut {
	out := agent.ChatOut{}

	if len(resp.Candidates) == 0 {
		return out
	}

	// Get the first candidate (most common case)
	candidate := resp.Candidates[0]
	if candidate.Content == nil {
		return out
	}

	// Extract parts from the response
	for _, part := range candidate.Content.Parts {
		switch p := part.(type) {
		case genai.Text:
			// Append text content
			if out.Text != "" {
				out.Text += "\n"
			}
			out.Text += string(p)

		case genai.FunctionCall:
			// Extract function/tool calls
			out.ToolCalls = append(out.ToolCalls, agent.ToolCall{
				Name:  p.Name,
				Input: convertFunctionArgs(p.Args),
			})
		}
	}

	return out
}

// convertFunctionArgs converts Google's function arguments to our format.
func convertFunctionArgs(args map[string]interface{}) map[string]interface{} {
	if args == nil {
		return nil
	}
	return args
}

// convertTypeString converts a JSON Schema type string to genai.Type constant.
func convertTypeString(typeStr string) genai.Type {
	switch typeStr {
	case "string":
		return genai.TypeString
	case "number":
		return genai.TypeNumber
	case "integer":
		return genai.TypeInteger
	case "boolean":
		return genai.TypeBoolean
	case "array":
		return genai.TypeArray
	case "object":
		return genai.TypeObject
	default:
		return genai.TypeUnspecified
	}
}

// SafetyFilterError represents a Google safety filter block.
//
// Provides information about why content was blocked:
//   - Reason: Why the block occurred (e.g., "SAFETY")
//   - Category: Which safety category was triggered
//
// Use errors.As to check for this error type:
//
//	var safetyErr *googleagent.SafetyFilterError
//	if errors.As(err, &safetyErr) {
//	    log.Printf("Content blocked: %s", safetyErr.Category())
//	}
type SafetyFilterError struct {
	reason   string
	category string
}

// Error implements the error interface.
func (e *SafetyFilterError) Error() string {
	return "content blocked by safety filter: " + e.category
}

// Category returns the safety category that triggered the block.
func (e *SafetyFilterError) Category() string {
	return e.category
}

// Reason returns why the content was blocked.
func (e *SafetyFilterError) Reason() string {
	return e.reason
}
