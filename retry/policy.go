// Package retry implements the RetrySupervisor: classification of node
// failures, backoff computation, and the attempt loop described in
// spec §4.5. Grounded on the teacher's graph/policy.go RetryPolicy and
// computeBackoff, generalized from a single boolean Retryable predicate to
// the Kind-based classification table spec.md specifies.
package retry

import "time"

// Policy configures the retry loop for a single node.
type Policy struct {
	// MaxAttempts is the total number of attempts including the initial
	// one. MaxAttempts=1 disables retries; MaxAttempts=3 means one
	// initial attempt plus two retries.
	MaxAttempts int

	// InitialDelay is the base delay used for the first retry.
	InitialDelay time.Duration

	// BackoffMultiplier scales InitialDelay on each subsequent retry:
	// delay(attempt) = InitialDelay * BackoffMultiplier^(attempt-1).
	BackoffMultiplier float64

	// MaxDelay caps the computed delay before jitter is applied.
	MaxDelay time.Duration

	// JitterFactor applies symmetric jitter in
	// [-JitterFactor*delay, +JitterFactor*delay], clamped to non-negative.
	JitterFactor float64
}

// HasMoreRetries reports whether another attempt remains after attemptNumber.
func (p Policy) HasMoreRetries(attemptNumber int) bool {
	return attemptNumber < p.MaxAttempts
}

// Default, NoRetry, Aggressive, Conservative and RateLimitFriendly are the
// presets named in spec §6.
var (
	Default = Policy{
		MaxAttempts:       3,
		InitialDelay:      200 * time.Millisecond,
		BackoffMultiplier: 2,
		MaxDelay:          10 * time.Second,
		JitterFactor:      0.10,
	}

	NoRetry = Policy{
		MaxAttempts:       1,
		InitialDelay:      0,
		BackoffMultiplier: 1,
		MaxDelay:          0,
		JitterFactor:      0,
	}

	Aggressive = Policy{
		MaxAttempts:       5,
		InitialDelay:      100 * time.Millisecond,
		BackoffMultiplier: 1.5,
		MaxDelay:          5 * time.Second,
		JitterFactor:      0.10,
	}

	Conservative = Policy{
		MaxAttempts:       3,
		InitialDelay:      1 * time.Second,
		BackoffMultiplier: 3,
		MaxDelay:          30 * time.Second,
		JitterFactor:      0.10,
	}

	RateLimitFriendly = Policy{
		MaxAttempts:       5,
		InitialDelay:      1 * time.Second,
		BackoffMultiplier: 2,
		MaxDelay:          60 * time.Second,
		JitterFactor:      0.20,
	}
)
