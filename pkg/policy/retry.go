package policy

import (
	"fmt"
	"time"

	"github.com/zen-systems/structura/pkg/adapter"
)

// RetryPolicy decides retry eligibility per failure classification and
// computes exponential backoff. MaxAttempts counts the first attempt
// plus retries.
type RetryPolicy struct {
	MaxAttempts int
	BackoffBase time.Duration
}

// NewRetryPolicy builds a validated retry policy.
func NewRetryPolicy(maxAttempts int, backoffBase time.Duration) (RetryPolicy, error) {
	p := RetryPolicy{MaxAttempts: maxAttempts, BackoffBase: backoffBase}
	if err := p.Validate(); err != nil {
		return RetryPolicy{}, err
	}
	return p, nil
}

// Validate rejects malformed policies at construction time.
func (p RetryPolicy) Validate() error {
	if p.MaxAttempts < 1 {
		return fmt.Errorf("max attempts must be at least 1, got %d", p.MaxAttempts)
	}
	if p.BackoffBase < 0 {
		return fmt.Errorf("backoff base must be non-negative, got %s", p.BackoffBase)
	}
	return nil
}

// Retryable reports whether a classification is ever worth retrying.
// Auth rejection is terminal; unknown failures are treated as hard.
func Retryable(c adapter.Classification) bool {
	switch c {
	case adapter.ClassConnectTimeout, adapter.ClassReadTimeout, adapter.ClassTimeout, adapter.ClassConnectError:
		return true
	default:
		return false
	}
}

// ShouldRetry reports whether another attempt is allowed after attempt
// (1-based) failed with classification c.
func (p RetryPolicy) ShouldRetry(c adapter.Classification, attempt int) bool {
	return Retryable(c) && attempt < p.MaxAttempts
}

// Backoff returns the delay to sleep before attempt n (1-based):
// BackoffBase * 2^(n-2). Attempt 1 and earlier sleep nothing.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	if attempt <= 1 {
		return 0
	}
	backoff := p.BackoffBase
	for i := 2; i < attempt; i++ {
		backoff *= 2
	}
	return backoff
}
