package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"testing"
	"time"

	"github.com/zen-systems/structura/pkg/adapter"
	"github.com/zen-systems/structura/pkg/policy"
	"github.com/zen-systems/structura/pkg/schema"
)

var (
	readTimeoutErr = fmt.Errorf("request failed: %w", &net.OpError{Op: "read", Net: "tcp", Err: os.ErrDeadlineExceeded})
	connectErr     = fmt.Errorf("request failed: %w", &net.OpError{Op: "dial", Net: "tcp", Err: errRefused{}})
	authErr        = &adapter.Error{Status: 401, Err: fmt.Errorf("invalid API key")}
)

type errRefused struct{}

func (errRefused) Error() string { return "connection refused" }

const okResponse = `{
  "doc_language": "zh",
  "total_paragraphs": 2,
  "paragraphs": [
    {"index": 0, "text_preview": "Intro", "paragraph_type": "title_1", "confidence": 0.95},
    {"index": 1, "text_preview": "Body", "paragraph_type": "body", "confidence": 0.9}
  ]
}`

func testParagraphs(n int) []schema.Paragraph {
	paragraphs := make([]schema.Paragraph, n)
	for i := range paragraphs {
		paragraphs[i] = schema.Paragraph{Index: i, Text: fmt.Sprintf("paragraph %d", i), Label: schema.LabelBody, Confidence: 0.8}
	}
	return paragraphs
}

func newTestClient(t *testing.T, a adapter.Adapter, maxAttempts int) (*Client, *[]time.Duration) {
	t.Helper()
	timeouts, err := policy.NewTimeoutPolicy(60*time.Second, 120*time.Second)
	if err != nil {
		t.Fatalf("timeout policy: %v", err)
	}
	retry, err := policy.NewRetryPolicy(maxAttempts, time.Second)
	if err != nil {
		t.Fatalf("retry policy: %v", err)
	}
	c, err := New(a, "mock-1", timeouts, retry)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	var sleeps []time.Duration
	c.sleep = func(_ context.Context, d time.Duration) error {
		sleeps = append(sleeps, d)
		return nil
	}
	return c, &sleeps
}

func TestExecuteSuccessFirstAttempt(t *testing.T) {
	mock := adapter.NewMockAdapter(okResponse)
	c, sleeps := newTestClient(t, mock, 3)

	req := &schema.ClassificationRequest{Paragraphs: testParagraphs(2), Op: schema.OpReview}
	result, trace, err := c.Execute(context.Background(), req)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if mock.Calls != 1 {
		t.Fatalf("expected 1 call, got %d", mock.Calls)
	}
	if len(*sleeps) != 0 {
		t.Fatalf("expected no sleeps, got %v", *sleeps)
	}
	if len(result.Tags) != 2 {
		t.Fatalf("expected 2 tags, got %d", len(result.Tags))
	}
	if len(trace) != 1 || trace[0].Number != 1 || trace[0].Err != "" {
		t.Fatalf("unexpected trace: %+v", trace)
	}
}

func TestExecuteRetriesOnReadTimeout(t *testing.T) {
	mock := adapter.NewScriptedAdapter(adapter.MockStep{Err: readTimeoutErr})
	c, sleeps := newTestClient(t, mock, 3)

	req := &schema.ClassificationRequest{Paragraphs: testParagraphs(2), Op: schema.OpReview}
	_, trace, err := c.Execute(context.Background(), req)
	if err == nil {
		t.Fatalf("expected failure")
	}

	if mock.Calls != 3 {
		t.Fatalf("expected exactly 3 attempts, got %d", mock.Calls)
	}
	want := []time.Duration{time.Second, 2 * time.Second}
	if len(*sleeps) != len(want) {
		t.Fatalf("expected sleeps %v, got %v", want, *sleeps)
	}
	for i, d := range want {
		if (*sleeps)[i] != d {
			t.Fatalf("sleep %d: got %s, want %s", i, (*sleeps)[i], d)
		}
	}

	var callErr *CallError
	if !errors.As(err, &callErr) {
		t.Fatalf("expected *CallError, got %T", err)
	}
	if callErr.Classification != adapter.ClassReadTimeout {
		t.Fatalf("classification: got %s, want %s", callErr.Classification, adapter.ClassReadTimeout)
	}
	if callErr.Attempts != 3 || callErr.MaxAttempts != 3 {
		t.Fatalf("attempts: got %d/%d, want 3/3", callErr.Attempts, callErr.MaxAttempts)
	}
	if len(trace) != 3 {
		t.Fatalf("expected 3 trace entries, got %d", len(trace))
	}
	for i, attempt := range trace {
		if attempt.Number != i+1 {
			t.Fatalf("trace[%d]: number %d", i, attempt.Number)
		}
		if attempt.Classification != adapter.ClassReadTimeout {
			t.Fatalf("trace[%d]: classification %s", i, attempt.Classification)
		}
	}
}

func TestExecuteAuthErrorNoRetry(t *testing.T) {
	mock := adapter.NewScriptedAdapter(adapter.MockStep{Err: authErr})
	c, sleeps := newTestClient(t, mock, 3)

	req := &schema.ClassificationRequest{Paragraphs: testParagraphs(1), Op: schema.OpReview}
	_, trace, err := c.Execute(context.Background(), req)
	if err == nil {
		t.Fatalf("expected failure")
	}

	if mock.Calls != 1 {
		t.Fatalf("auth error must not retry: got %d calls", mock.Calls)
	}
	if len(*sleeps) != 0 {
		t.Fatalf("auth error must not sleep: got %v", *sleeps)
	}
	var callErr *CallError
	if !errors.As(err, &callErr) {
		t.Fatalf("expected *CallError, got %T", err)
	}
	if callErr.Classification != adapter.ClassAuthError {
		t.Fatalf("classification: got %s, want %s", callErr.Classification, adapter.ClassAuthError)
	}
	if callErr.Attempts != 1 {
		t.Fatalf("attempts: got %d, want 1", callErr.Attempts)
	}
	if len(trace) != 1 {
		t.Fatalf("expected 1 trace entry, got %d", len(trace))
	}
}

func TestExecuteRecoversOnSecondAttempt(t *testing.T) {
	mock := adapter.NewScriptedAdapter(
		adapter.MockStep{Err: connectErr},
		adapter.MockStep{Response: okResponse},
	)
	c, sleeps := newTestClient(t, mock, 3)

	req := &schema.ClassificationRequest{Paragraphs: testParagraphs(2), Op: schema.OpReview}
	result, trace, err := c.Execute(context.Background(), req)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if mock.Calls != 2 {
		t.Fatalf("expected 2 attempts, got %d", mock.Calls)
	}
	if len(*sleeps) != 1 || (*sleeps)[0] != time.Second {
		t.Fatalf("expected single 1s backoff, got %v", *sleeps)
	}
	if len(result.Tags) != 2 {
		t.Fatalf("expected 2 tags, got %d", len(result.Tags))
	}
	if len(trace) != 2 {
		t.Fatalf("expected 2 trace entries, got %d", len(trace))
	}
	if trace[0].Classification != adapter.ClassConnectError {
		t.Fatalf("trace[0] classification: %s", trace[0].Classification)
	}
	if trace[1].Err != "" {
		t.Fatalf("trace[1] should be the successful attempt: %+v", trace[1])
	}
}

func TestExecuteTimeoutStableAcrossRetries(t *testing.T) {
	mock := adapter.NewScriptedAdapter(
		adapter.MockStep{Err: readTimeoutErr},
		adapter.MockStep{Err: readTimeoutErr},
		adapter.MockStep{Response: okResponse},
	)
	c, _ := newTestClient(t, mock, 3)

	req := &schema.ClassificationRequest{Paragraphs: testParagraphs(2), Op: schema.OpReview}
	if _, _, err := c.Execute(context.Background(), req); err != nil {
		t.Fatalf("execute: %v", err)
	}

	want := 60*time.Second + 2*policy.DefaultPerParagraph
	for i, timeout := range mock.Timeouts {
		if timeout != want {
			t.Fatalf("attempt %d timeout: got %s, want %s", i+1, timeout, want)
		}
	}
}

func TestExecuteSubsetTimeoutUsesSubsetSize(t *testing.T) {
	mock := adapter.NewMockAdapter(okResponse)
	c, _ := newTestClient(t, mock, 3)

	req := &schema.ClassificationRequest{
		Paragraphs: testParagraphs(100),
		Indices:    []int{0, 1},
		Op:         schema.OpReview,
	}
	if _, _, err := c.Execute(context.Background(), req); err != nil {
		t.Fatalf("execute: %v", err)
	}

	want := 60*time.Second + 2*policy.DefaultPerParagraph
	if mock.Timeouts[0] != want {
		t.Fatalf("subset timeout: got %s, want %s", mock.Timeouts[0], want)
	}
}

func TestExecuteHonorsCancellationBetweenAttempts(t *testing.T) {
	mock := adapter.NewScriptedAdapter(adapter.MockStep{Err: readTimeoutErr})
	c, _ := newTestClient(t, mock, 5)

	ctx, cancel := context.WithCancel(context.Background())
	c.sleep = func(ctx context.Context, _ time.Duration) error {
		cancel()
		return ctx.Err()
	}

	req := &schema.ClassificationRequest{Paragraphs: testParagraphs(1), Op: schema.OpReview}
	_, _, err := c.Execute(ctx, req)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if mock.Calls != 1 {
		t.Fatalf("expected no further attempts after cancel, got %d", mock.Calls)
	}
}

func TestExecuteMalformedResponseNotRetried(t *testing.T) {
	mock := adapter.NewMockAdapter("this is not json")
	c, sleeps := newTestClient(t, mock, 3)

	req := &schema.ClassificationRequest{Paragraphs: testParagraphs(1), Op: schema.OpReview}
	_, _, err := c.Execute(context.Background(), req)
	if err == nil {
		t.Fatalf("expected failure")
	}
	if mock.Calls != 1 {
		t.Fatalf("parse failures are terminal: got %d calls", mock.Calls)
	}
	if len(*sleeps) != 0 {
		t.Fatalf("parse failures must not back off: got %v", *sleeps)
	}
	var callErr *CallError
	if !errors.As(err, &callErr) {
		t.Fatalf("expected *CallError, got %T", err)
	}
	if callErr.Classification != adapter.ClassOtherError {
		t.Fatalf("classification: got %s, want %s", callErr.Classification, adapter.ClassOtherError)
	}
}

func TestCallErrorMessage(t *testing.T) {
	err := &CallError{
		Classification: adapter.ClassReadTimeout,
		Attempts:       3,
		MaxAttempts:    3,
		Err:            fmt.Errorf("deadline exceeded"),
	}
	want := "read_timeout (attempt 3/3): deadline exceeded"
	if err.Error() != want {
		t.Fatalf("message: got %q, want %q", err.Error(), want)
	}
}
