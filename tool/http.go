package tool

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// HTTPTool executes GET/POST requests against arbitrary URLs, grounded on
// the teacher's graph/tool/http.go, adapted to the Execute/ToolResult
// contract and given a real Parameters/CanExecute pair instead of
// validating ad hoc inside Call.
type HTTPTool struct {
	client *http.Client
}

// NewHTTPTool builds an HTTPTool with a default client (request timeout is
// expected to come from the caller's context).
func NewHTTPTool() *HTTPTool {
	return &HTTPTool{client: &http.Client{}}
}

// Name implements Tool.
func (h *HTTPTool) Name() string { return "http_request" }

// Description implements Tool.
func (h *HTTPTool) Description() string {
	return "Makes an HTTP GET or POST request and returns the status code, headers and body."
}

// Parameters implements Tool.
func (h *HTTPTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"url":     map[string]any{"type": "string", "description": "target URL"},
			"method":  map[string]any{"type": "string", "enum": []string{"GET", "POST"}},
			"headers": map[string]any{"type": "object"},
			"body":    map[string]any{"type": "string"},
		},
		"required": []string{"url"},
	}
}

// CanExecute implements Tool: url must be a non-empty string and method,
// when given, must be GET or POST.
func (h *HTTPTool) CanExecute(params map[string]any) bool {
	urlStr, ok := params["url"].(string)
	if !ok || urlStr == "" {
		return false
	}
	if m, ok := params["method"].(string); ok && m != "" {
		switch strings.ToUpper(m) {
		case "GET", "POST":
		default:
			return false
		}
	}
	return true
}

// ToOpenAIFunctionSpec implements Tool.
func (h *HTTPTool) ToOpenAIFunctionSpec(strict bool) map[string]any {
	return OpenAIFunctionSpec(h.Name(), h.Description(), h.Parameters(), strict)
}

// Execute implements Tool.
func (h *HTTPTool) Execute(ctx context.Context, params map[string]any) (ToolResult, error) {
	urlStr, ok := params["url"].(string)
	if !ok || urlStr == "" {
		return ToolResult{IsError: true, Error: "url parameter required (string)"}, nil
	}

	method := "GET"
	if m, ok := params["method"].(string); ok && m != "" {
		method = strings.ToUpper(m)
	}
	if method != "GET" && method != "POST" {
		return ToolResult{IsError: true, Error: fmt.Sprintf("unsupported HTTP method: %s", method)}, nil
	}

	var body io.Reader
	if bodyStr, ok := params["body"].(string); ok && bodyStr != "" {
		body = bytes.NewBufferString(bodyStr)
	}

	req, err := http.NewRequestWithContext(ctx, method, urlStr, body)
	if err != nil {
		return ToolResult{}, fmt.Errorf("build request: %w", err)
	}
	if headers, ok := params["headers"].(map[string]any); ok {
		for key, value := range headers {
			if valueStr, ok := value.(string); ok {
				req.Header.Set(key, valueStr)
			}
		}
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return ToolResult{}, fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return ToolResult{}, fmt.Errorf("read response body: %w", err)
	}

	respHeaders := make(map[string]any, len(resp.Header))
	for key, values := range resp.Header {
		if len(values) == 1 {
			respHeaders[key] = values[0]
		} else {
			respHeaders[key] = values
		}
	}

	return ToolResult{Content: map[string]any{
		"status_code": resp.StatusCode,
		"headers":     respHeaders,
		"body":        string(respBody),
	}}, nil
}
