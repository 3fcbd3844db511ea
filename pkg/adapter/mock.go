package adapter

import (
	"context"
	"time"
)

// MockAdapter returns scripted responses for local runs and tests.
// Each call consumes the next scripted step; when the script runs out,
// the last step repeats.
type MockAdapter struct {
	Steps    []MockStep
	Calls    int
	Timeouts []time.Duration
	Prompts  []string
}

// MockStep is one scripted attempt outcome.
type MockStep struct {
	Response string
	Err      error
}

// NewMockAdapter creates a mock adapter that always returns response.
func NewMockAdapter(response string) *MockAdapter {
	return &MockAdapter{Steps: []MockStep{{Response: response}}}
}

// NewScriptedAdapter creates a mock adapter that plays back steps in order.
func NewScriptedAdapter(steps ...MockStep) *MockAdapter {
	return &MockAdapter{Steps: steps}
}

// Name returns the adapter identifier.
func (a *MockAdapter) Name() string {
	return "mock"
}

// Models returns the list of supported mock models.
func (a *MockAdapter) Models() []string {
	return []string{"mock-1"}
}

// Complete replays the next scripted step and records call metadata.
func (a *MockAdapter) Complete(_ context.Context, _ string, _ string, user string, timeout time.Duration) (string, error) {
	step := MockStep{}
	if len(a.Steps) > 0 {
		idx := a.Calls
		if idx >= len(a.Steps) {
			idx = len(a.Steps) - 1
		}
		step = a.Steps[idx]
	}
	a.Calls++
	a.Timeouts = append(a.Timeouts, timeout)
	a.Prompts = append(a.Prompts, user)
	if step.Err != nil {
		return "", step.Err
	}
	return step.Response, nil
}
