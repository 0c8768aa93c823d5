package retry

import "github.com/spicegraph/spicegraph/spiceerr"

// Classify decides whether err should be retried, per spec §4.5's
// classification table. A nil err is never retryable.
func Classify(err *spiceerr.SpiceError) bool {
	if err == nil {
		return false
	}

	switch err.Kind {
	case spiceerr.KindRetryable:
		if skip, _ := err.ContextValue("skipRetry"); skip == true {
			return false
		}
		return true

	case spiceerr.KindNetwork:
		statusCode, ok := err.ContextValue("statusCode")
		if !ok {
			return true
		}
		code, _ := statusCode.(int)
		return code == 408 || code == 429 || (code >= 500 && code < 600)

	case spiceerr.KindTimeout:
		return true

	case spiceerr.KindRateLimit:
		return true

	case spiceerr.KindValidation, spiceerr.KindAuthentication, spiceerr.KindSerialization,
		spiceerr.KindConfiguration, spiceerr.KindToolLookup, spiceerr.KindRouting:
		return false

	case spiceerr.KindAgent, spiceerr.KindTool, spiceerr.KindExecution, spiceerr.KindCheckpoint:
		if retryable, _ := err.ContextValue("retryable"); retryable == true {
			return true
		}
		if statusCode, ok := err.ContextValue("statusCode"); ok {
			code, _ := statusCode.(int)
			return code == 408 || code == 429 || (code >= 500 && code < 600)
		}
		return false

	default: // KindUnknown and anything else
		return false
	}
}

// RetryAfter extracts a server-provided retry-after hint in milliseconds,
// when the error carries one (RateLimitError.retryAfterMs today).
func RetryAfter(err *spiceerr.SpiceError) (int64, bool) {
	if err == nil {
		return 0, false
	}
	v, ok := err.ContextValue("retryAfterMs")
	if !ok {
		return 0, false
	}
	ms, ok := v.(int64)
	return ms, ok
}
