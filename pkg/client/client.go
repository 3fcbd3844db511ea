// Package client issues logical classification requests against a
// remote transport, applying the timeout and retry policies and
// classifying every transport failure. A call resolves to either a
// parsed result or a *CallError; no transport error escapes raw.
package client

import (
	"context"
	"fmt"
	"time"

	"github.com/zen-systems/structura/pkg/adapter"
	"github.com/zen-systems/structura/pkg/policy"
	"github.com/zen-systems/structura/pkg/prompt"
	"github.com/zen-systems/structura/pkg/schema"
)

// Attempt records one transport attempt for diagnostics.
type Attempt struct {
	Number         int                    `json:"number"`
	Elapsed        time.Duration          `json:"elapsed"`
	Classification adapter.Classification `json:"classification,omitempty"`
	Err            string                 `json:"error,omitempty"`
}

// CallError is the terminal failure of a logical call: the last
// classification, how many attempts were spent, and the last cause.
type CallError struct {
	Classification adapter.Classification
	Attempts       int
	MaxAttempts    int
	Err            error
}

func (e *CallError) Error() string {
	return fmt.Sprintf("%s (attempt %d/%d): %v", e.Classification, e.Attempts, e.MaxAttempts, e.Err)
}

func (e *CallError) Unwrap() error {
	return e.Err
}

// Client executes classification requests against one adapter/model
// pair. Safe for concurrent use; all fields are read-only after New.
type Client struct {
	adapter  adapter.Adapter
	model    string
	timeouts policy.TimeoutPolicy
	retry    policy.RetryPolicy

	// sleep is swapped in tests to observe backoff without waiting.
	sleep func(ctx context.Context, d time.Duration) error
}

// New builds a client from validated policies.
func New(a adapter.Adapter, model string, timeouts policy.TimeoutPolicy, retry policy.RetryPolicy) (*Client, error) {
	if a == nil {
		return nil, fmt.Errorf("adapter is required")
	}
	if model == "" {
		return nil, fmt.Errorf("model is required")
	}
	if err := timeouts.Validate(); err != nil {
		return nil, fmt.Errorf("timeout policy: %w", err)
	}
	if err := retry.Validate(); err != nil {
		return nil, fmt.Errorf("retry policy: %w", err)
	}
	return &Client{
		adapter:  a,
		model:    model,
		timeouts: timeouts,
		retry:    retry,
		sleep:    sleepWithContext,
	}, nil
}

// Execute performs one logical classification call. The read timeout is
// computed once from the request's paragraph count and reused for every
// attempt. External cancellation is honored at attempt boundaries. The
// returned attempts trace is populated on success and failure alike.
func (c *Client) Execute(ctx context.Context, req *schema.ClassificationRequest) (*schema.ClassificationResult, []Attempt, error) {
	if err := req.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid request: %w", err)
	}

	user, err := prompt.Build(req)
	if err != nil {
		return nil, nil, err
	}
	system := prompt.System(req.Op)
	timeout := c.timeouts.ForParagraphs(len(req.Subset()))

	var trace []Attempt
	var lastErr error
	var lastClass adapter.Classification

	for attempt := 1; attempt <= c.retry.MaxAttempts; attempt++ {
		if attempt > 1 {
			if err := c.sleep(ctx, c.retry.Backoff(attempt)); err != nil {
				return nil, trace, err
			}
		}
		if err := ctx.Err(); err != nil {
			return nil, trace, err
		}

		start := time.Now()
		raw, err := c.adapter.Complete(ctx, c.model, system, user, timeout)
		if err == nil {
			result, parseErr := parseResult(raw, len(req.Paragraphs))
			if parseErr == nil {
				trace = append(trace, Attempt{Number: attempt, Elapsed: time.Since(start)})
				return result, trace, nil
			}
			err = parseErr
		}

		lastErr = err
		lastClass = adapter.Classify(err)
		trace = append(trace, Attempt{
			Number:         attempt,
			Elapsed:        time.Since(start),
			Classification: lastClass,
			Err:            err.Error(),
		})

		if !c.retry.ShouldRetry(lastClass, attempt) {
			return nil, trace, &CallError{
				Classification: lastClass,
				Attempts:       attempt,
				MaxAttempts:    c.retry.MaxAttempts,
				Err:            lastErr,
			}
		}
	}

	return nil, trace, &CallError{
		Classification: lastClass,
		Attempts:       c.retry.MaxAttempts,
		MaxAttempts:    c.retry.MaxAttempts,
		Err:            lastErr,
	}
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	return c.model
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
