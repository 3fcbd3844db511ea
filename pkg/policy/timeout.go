package policy

import (
	"fmt"
	"time"
)

// DefaultPerParagraph is the per-paragraph read-timeout increment.
const DefaultPerParagraph = 500 * time.Millisecond

// TimeoutPolicy computes the response-wait timeout as a function of
// workload size, bounded above by Max. The connection-establishment
// timeout is deliberately not part of this policy; it is a fixed
// configuration value applied at the transport layer.
type TimeoutPolicy struct {
	Base         time.Duration
	PerParagraph time.Duration
	Max          time.Duration
}

// NewTimeoutPolicy builds a validated policy with the default
// per-paragraph increment.
func NewTimeoutPolicy(base, max time.Duration) (TimeoutPolicy, error) {
	p := TimeoutPolicy{Base: base, PerParagraph: DefaultPerParagraph, Max: max}
	if err := p.Validate(); err != nil {
		return TimeoutPolicy{}, err
	}
	return p, nil
}

// Validate rejects malformed policies at construction time.
func (p TimeoutPolicy) Validate() error {
	if p.Base <= 0 {
		return fmt.Errorf("base timeout must be positive, got %s", p.Base)
	}
	if p.Max <= 0 {
		return fmt.Errorf("max timeout must be positive, got %s", p.Max)
	}
	if p.Max < p.Base {
		return fmt.Errorf("max timeout %s below base timeout %s", p.Max, p.Base)
	}
	if p.PerParagraph < 0 {
		return fmt.Errorf("per-paragraph increment must be non-negative, got %s", p.PerParagraph)
	}
	return nil
}

// ForParagraphs returns min(Base + n*PerParagraph, Max). Monotonic
// non-decreasing in n and clamped at Max.
func (p TimeoutPolicy) ForParagraphs(n int) time.Duration {
	if n < 0 {
		n = 0
	}
	timeout := p.Base + time.Duration(n)*p.PerParagraph
	if timeout > p.Max {
		return p.Max
	}
	return timeout
}
