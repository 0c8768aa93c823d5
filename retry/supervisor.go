package retry

import (
	"math/rand"
	"time"

	"github.com/spicegraph/spicegraph/spiceerr"
)

// MetricsRecorder receives retry-attempt telemetry. A nil MetricsRecorder
// passed to Supervisor disables recording; implementations (metrics.Collector)
// must be safe for concurrent use per spec §5's shared-resource policy.
type MetricsRecorder interface {
	IncrementRetries(nodeID, reason string)
	RecordRetrySuccess(nodeID string)
	RecordRetryExhausted(nodeID string)
}

// AttemptRecord is one entry in RetryContext's error history.
type AttemptRecord struct {
	Attempt int
	Error   *spiceerr.SpiceError
	DelayMs int64
}

// Context accumulates state across the attempts of a single ExecuteWithRetry
// call (spec §4.5 step 1).
type Context struct {
	NodeID          string
	TenantID        string
	AttemptNumber   int
	Errors          []AttemptRecord
	TotalRetryDelay time.Duration
	StartedAt       time.Time
}

// outcome tags which arm of RetryResult is populated.
type outcome int

const (
	outcomeSuccess outcome = iota
	outcomeExhausted
	outcomeNotRetryable
)

// Result is the sum type ExecuteWithRetry returns: exactly one of Success,
// Exhausted or NotRetryable is meaningful, selected by the outcome tag.
type Result[T any] struct {
	outcome outcome
	value   T
	ctx     Context
	err     *spiceerr.SpiceError
}

// IsSuccess reports whether the operation eventually succeeded.
func (r Result[T]) IsSuccess() bool { return r.outcome == outcomeSuccess }

// IsExhausted reports whether all retries were used without success.
func (r Result[T]) IsExhausted() bool { return r.outcome == outcomeExhausted }

// IsNotRetryable reports whether the first non-retryable failure ended the loop.
func (r Result[T]) IsNotRetryable() bool { return r.outcome == outcomeNotRetryable }

// Value returns the success value (zero value if not successful).
func (r Result[T]) Value() T { return r.value }

// Context returns the accumulated RetryContext for this call.
func (r Result[T]) Context() Context { return r.ctx }

// Error returns the terminating error for Exhausted/NotRetryable outcomes,
// or nil on success.
func (r Result[T]) Error() *spiceerr.SpiceError { return r.err }

// Op is the unit of work ExecuteWithRetry wraps: it receives the attempt
// number (1-based) and returns a value or a classifiable error.
type Op[T any] func(attempt int) (T, *spiceerr.SpiceError)

// Supervisor wraps node invocations with retry, classification and backoff
// per spec §4.5. The zero value is usable; Metrics may be left nil.
type Supervisor struct {
	Metrics MetricsRecorder
}

// ExecuteWithRetry runs op under policy, retrying classifiable failures
// until success, exhaustion, or a non-retryable error.
func (s Supervisor) ExecuteWithRetry(nodeID string, policy Policy, op Op[any]) Result[any] {
	rc := Context{
		NodeID:        nodeID,
		AttemptNumber: 1,
		StartedAt:     time.Now(),
	}

	for {
		value, err := op(rc.AttemptNumber)
		if err == nil {
			if rc.AttemptNumber > 1 && s.Metrics != nil {
				s.Metrics.RecordRetrySuccess(nodeID)
			}
			return Result[any]{outcome: outcomeSuccess, value: value, ctx: rc}
		}

		if !Classify(err) {
			return Result[any]{outcome: outcomeNotRetryable, ctx: rc, err: err}
		}

		if !policy.HasMoreRetries(rc.AttemptNumber) {
			if s.Metrics != nil {
				s.Metrics.RecordRetryExhausted(nodeID)
			}
			exhausted := err.WithContextMap(map[string]any{
				"retriesExhausted":   true,
				"totalAttempts":      rc.AttemptNumber,
				"totalRetryDelayMs":  rc.TotalRetryDelay.Milliseconds(),
				"elapsedMs":          time.Since(rc.StartedAt).Milliseconds(),
				"lastError":          err.Message,
				"lastErrorCode":      err.Code,
				"errorHistory":       rc.Errors,
			})
			if statusCode, ok := err.ContextValue("statusCode"); ok {
				exhausted = exhausted.WithContext("lastStatusCode", statusCode)
			}
			wrapped := spiceerr.Execution("retries exhausted for node "+nodeID, "", nodeID, err)
			wrapped = wrapped.WithContextMap(exhausted.Context)
			return Result[any]{outcome: outcomeExhausted, ctx: rc, err: wrapped}
		}

		delay := s.computeDelay(rc.AttemptNumber, policy, err)
		if s.Metrics != nil {
			s.Metrics.IncrementRetries(nodeID, err.Code)
		}

		rc.Errors = append(rc.Errors, AttemptRecord{Attempt: rc.AttemptNumber, Error: err, DelayMs: delay.Milliseconds()})
		rc.TotalRetryDelay += delay
		rc.AttemptNumber++

		time.Sleep(delay)
	}
}

// computeDelay implements spec §4.5 step 7: prefer a rate-limit hint when
// present, otherwise exponential backoff with symmetric jitter.
func (s Supervisor) computeDelay(attempt int, policy Policy, err *spiceerr.SpiceError) time.Duration {
	if retryAfterMs, ok := RetryAfter(err); ok {
		d := time.Duration(retryAfterMs) * time.Millisecond
		if policy.MaxDelay > 0 && d > policy.MaxDelay {
			d = policy.MaxDelay
		}
		return d
	}

	base := float64(policy.InitialDelay)
	mult := policy.BackoffMultiplier
	if mult <= 0 {
		mult = 1
	}
	delay := base
	for i := 1; i < attempt; i++ {
		delay *= mult
	}

	if policy.MaxDelay > 0 && delay > float64(policy.MaxDelay) {
		delay = float64(policy.MaxDelay)
	}

	if policy.JitterFactor > 0 {
		spread := delay * policy.JitterFactor
		jitter := (rand.Float64()*2 - 1) * spread // #nosec G404 -- retry backoff jitter, not security
		delay += jitter
		if delay < 0 {
			delay = 0
		}
	}

	return time.Duration(delay)
}
