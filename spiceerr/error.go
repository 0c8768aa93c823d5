// Package spiceerr defines the SpiceError taxonomy used throughout
// spicegraph instead of ad-hoc error types. It follows the teacher's own
// flat-struct-plus-Unwrap idiom (see graph.NodeError / graph.EngineError in
// the upstream langgraph-go engine), generalized with a Kind enum so one
// type can represent the full classification table in spec §3/§4.5.
package spiceerr

import "fmt"

// Kind tags a SpiceError with its position in the spec §3 taxonomy. The
// RetrySupervisor's classifier switches on Kind (see retry.Classify).
type Kind string

const (
	KindValidation     Kind = "VALIDATION"
	KindAuthentication Kind = "AUTHENTICATION"
	KindNetwork        Kind = "NETWORK"
	KindTimeout        Kind = "TIMEOUT"
	KindRateLimit      Kind = "RATE_LIMIT"
	KindSerialization  Kind = "SERIALIZATION"
	KindConfiguration  Kind = "CONFIGURATION"
	KindTool           Kind = "TOOL"
	KindToolLookup     Kind = "TOOL_LOOKUP"
	KindRouting        Kind = "ROUTING"
	KindAgent          Kind = "AGENT"
	KindExecution      Kind = "EXECUTION"
	KindCheckpoint     Kind = "CHECKPOINT"
	KindRetryable      Kind = "RETRYABLE"
	KindUnknown        Kind = "UNKNOWN"
)

// SpiceError is the single error type used across spicegraph. Every
// component-specific "error type" from spec §3 (ValidationError,
// NetworkError(statusCode?), ...) is represented as a Kind plus
// kind-specific Context entries, rather than as N concrete Go types --
// this mirrors how the teacher's EngineError/NodeError carry a Code string
// plus a free-form cause instead of per-site error types.
type SpiceError struct {
	Kind    Kind
	Code    string
	Message string
	Cause   error
	Context map[string]any
}

// Error implements the error interface.
func (e *SpiceError) Error() string {
	if e == nil {
		return "<nil SpiceError>"
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes Cause for errors.Is / errors.As chains.
func (e *SpiceError) Unwrap() error { return e.Cause }

// WithContext returns a copy of e with the given key added to Context.
// The receiver is never mutated, matching the message package's
// copy-on-write idiom.
func (e *SpiceError) WithContext(key string, value any) *SpiceError {
	n := e.copy()
	n.Context[key] = value
	return n
}

// WithContextMap merges updates into a copy of e's Context.
func (e *SpiceError) WithContextMap(updates map[string]any) *SpiceError {
	n := e.copy()
	for k, v := range updates {
		n.Context[k] = v
	}
	return n
}

func (e *SpiceError) copy() *SpiceError {
	ctx := make(map[string]any, len(e.Context)+1)
	for k, v := range e.Context {
		ctx[k] = v
	}
	return &SpiceError{
		Kind:    e.Kind,
		Code:    e.Code,
		Message: e.Message,
		Cause:   e.Cause,
		Context: ctx,
	}
}

// ContextValue returns Context[key] and whether it was present.
func (e *SpiceError) ContextValue(key string) (any, bool) {
	if e == nil || e.Context == nil {
		return nil, false
	}
	v, ok := e.Context[key]
	return v, ok
}

// New constructs a SpiceError of the given kind. code defaults to the
// string form of kind when empty.
func New(kind Kind, code, message string) *SpiceError {
	if code == "" {
		code = string(kind)
	}
	return &SpiceError{Kind: kind, Code: code, Message: message, Context: map[string]any{}}
}

// Wrap constructs a SpiceError of the given kind wrapping cause.
func Wrap(kind Kind, code, message string, cause error) *SpiceError {
	e := New(kind, code, message)
	e.Cause = cause
	return e
}

// Constructors below mirror the "Every error exposes ..." shapes in spec §3.

func Validation(message string) *SpiceError     { return New(KindValidation, "ValidationError", message) }
func Authentication(message string) *SpiceError { return New(KindAuthentication, "AuthenticationError", message) }
func Serialization(message string) *SpiceError  { return New(KindSerialization, "SerializationError", message) }
func Configuration(message string) *SpiceError  { return New(KindConfiguration, "ConfigurationError", message) }
func ToolLookup(message string) *SpiceError     { return New(KindToolLookup, "ToolLookupError", message) }
func Routing(message string) *SpiceError        { return New(KindRouting, "RoutingError", message) }
func Checkpoint(message string) *SpiceError     { return New(KindCheckpoint, "CheckpointError", message) }
func Unknown(message string) *SpiceError        { return New(KindUnknown, "UnknownError", message) }

// Network constructs a NetworkError, optionally carrying an HTTP status
// code (0 means "no status code", per spec §4.5's classification table).
func Network(message string, statusCode int) *SpiceError {
	e := New(KindNetwork, "NetworkError", message)
	if statusCode != 0 {
		e = e.WithContext("statusCode", statusCode)
	}
	return e
}

// Timeout constructs a TimeoutError.
func Timeout(message string) *SpiceError { return New(KindTimeout, "TimeoutError", message) }

// RateLimit constructs a RateLimitError, optionally carrying a
// server-provided retry-after hint in milliseconds.
func RateLimit(message string, retryAfterMs int64) *SpiceError {
	e := New(KindRateLimit, "RateLimitError", message)
	if retryAfterMs > 0 {
		e = e.WithContext("retryAfterMs", retryAfterMs)
	}
	return e
}

// Tool constructs a ToolError.
func Tool(message string, cause error) *SpiceError {
	return Wrap(KindTool, "ToolError", message, cause)
}

// Agent constructs an AgentError.
func Agent(message string, cause error) *SpiceError {
	return Wrap(KindAgent, "AgentError", message, cause)
}

// Retryable constructs a RetryableError with an optional status code and
// skip-retry hint.
func Retryable(message string, statusCode int, skipRetry bool) *SpiceError {
	e := New(KindRetryable, "RetryableError", message)
	if statusCode != 0 {
		e = e.WithContext("statusCode", statusCode)
	}
	if skipRetry {
		e = e.WithContext("skipRetry", true)
	}
	return e
}

// Execution constructs an ExecutionError carrying graph/node coordinates.
func Execution(message, graphID, nodeID string, cause error) *SpiceError {
	e := Wrap(KindExecution, "ExecutionError", message, cause)
	if graphID != "" {
		e = e.WithContext("graphId", graphID)
	}
	if nodeID != "" {
		e = e.WithContext("nodeId", nodeID)
	}
	return e
}
