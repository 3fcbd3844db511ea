// Package router composes the trigger evaluator, remote classifier
// client and label merger per classification mode. Routing always
// produces a complete label set: remote failures degrade to the
// deterministic labels and surface as warnings, never as errors.
package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/zen-systems/structura/pkg/client"
	"github.com/zen-systems/structura/pkg/merge"
	"github.com/zen-systems/structura/pkg/schema"
	"github.com/zen-systems/structura/pkg/trigger"
)

// Mode selects the classification strategy.
type Mode string

const (
	ModeRule   Mode = "rule"
	ModeRemote Mode = "remote"
	ModeHybrid Mode = "hybrid"
)

// ParseMode normalizes a mode string; unknown values are returned as-is
// so Route can degrade with a warning instead of failing.
func ParseMode(raw string) Mode {
	switch Mode(raw) {
	case ModeRule, ModeRemote, ModeHybrid:
		return Mode(raw)
	default:
		return Mode(raw)
	}
}

// Router is the mode orchestrator. One Route pass per document; no
// shared mutable state beyond the read-only configuration.
type Router struct {
	mode       Mode
	client     *client.Client
	thresholds trigger.Thresholds
	accept     float64
	logger     *slog.Logger
}

// Option configures a Router.
type Option func(*Router)

// WithLogger sets the logger used for fallback warnings and attempt
// diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Router) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New creates a router. The client may be nil only in rule mode.
func New(mode Mode, c *client.Client, thresholds trigger.Thresholds, accept float64, opts ...Option) (*Router, error) {
	if err := thresholds.Validate(); err != nil {
		return nil, fmt.Errorf("trigger thresholds: %w", err)
	}
	if accept < 0 || accept > 1 {
		return nil, fmt.Errorf("acceptance threshold %.3f out of range [0,1]", accept)
	}
	if c == nil && mode != ModeRule {
		return nil, fmt.Errorf("mode %q requires a remote client", mode)
	}
	r := &Router{
		mode:       mode,
		client:     c,
		thresholds: thresholds,
		accept:     accept,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Mode returns the configured mode.
func (r *Router) Mode() Mode {
	return r.mode
}

// Route classifies one document's paragraphs. It always returns a
// complete FinalLabelSet; degraded operation is reported through the
// set's warnings and the log, never through an error.
func (r *Router) Route(ctx context.Context, paragraphs []schema.Paragraph) *schema.FinalLabelSet {
	result := &schema.FinalLabelSet{
		RunID: uuid.NewString(),
		Mode:  string(r.mode),
	}

	switch r.mode {
	case ModeRule:
		result.Labels = ruleLabels(paragraphs)
	case ModeRemote:
		r.routeRemote(ctx, paragraphs, result)
	case ModeHybrid:
		r.routeHybrid(ctx, paragraphs, result)
	default:
		warning := fmt.Sprintf("unknown mode %q, falling back to rule labels", r.mode)
		r.logger.Warn("mode fallback", "mode", r.mode, "paragraphs", len(paragraphs))
		result.Warnings = append(result.Warnings, warning)
		result.Labels = ruleLabels(paragraphs)
	}

	return result
}

// routeRemote issues one review request over all paragraphs. Total
// remote failure falls back to deterministic labels for everything.
func (r *Router) routeRemote(ctx context.Context, paragraphs []schema.Paragraph, result *schema.FinalLabelSet) {
	report := &schema.TriggerReport{
		TotalCount: len(paragraphs),
	}
	result.Trigger = report

	if len(paragraphs) == 0 {
		return
	}

	req := &schema.ClassificationRequest{
		Paragraphs: paragraphs,
		Op:         schema.OpReview,
	}
	report.RemoteCalled = true

	remote, trace, err := r.client.Execute(ctx, req)
	r.logAttempts(trace)
	if err != nil {
		r.fallback(result, paragraphs, len(paragraphs), err)
		return
	}

	result.Labels, result.Suggestions = merge.Remote(paragraphs, remote)
}

// routeHybrid gates the remote call on the trigger conditions and
// restricts it to the triggered subset.
func (r *Router) routeHybrid(ctx context.Context, paragraphs []schema.Paragraph, result *schema.FinalLabelSet) {
	report, triggered := trigger.Evaluate(paragraphs, r.thresholds)
	result.Trigger = &report

	if !report.Triggered {
		result.Labels = ruleLabels(paragraphs)
		return
	}

	known := make(map[int]schema.Label, len(paragraphs))
	for _, p := range paragraphs {
		known[p.Index] = p.Label
	}
	req := &schema.ClassificationRequest{
		Paragraphs: paragraphs,
		Indices:    triggered,
		Context:    known,
		Op:         schema.OpReview,
	}
	report.RemoteCalled = true

	remote, trace, err := r.client.Execute(ctx, req)
	r.logAttempts(trace)
	if err != nil {
		r.fallback(result, paragraphs, len(triggered), err)
		return
	}

	labels, suggestions, lowConfidence := merge.Review(paragraphs, triggered, remote, r.accept)
	result.Labels = labels
	result.Suggestions = suggestions
	if lowConfidence > 0 {
		result.Warnings = append(result.Warnings, merge.LowConfidenceWarning(lowConfidence, r.accept))
	}
}

// fallback restores the deterministic baseline after a failed remote
// call and emits the sole externally visible degradation trace.
func (r *Router) fallback(result *schema.FinalLabelSet, paragraphs []schema.Paragraph, subset int, err error) {
	classification := "unknown"
	var callErr *client.CallError
	if errors.As(err, &callErr) {
		classification = string(callErr.Classification)
	}
	r.logger.Warn("remote classification failed, using rule labels",
		"mode", r.mode,
		"paragraphs", subset,
		"classification", classification,
		"error", err,
	)
	result.Warnings = append(result.Warnings,
		fmt.Sprintf("remote classification failed in %s mode for %d paragraph(s) [%s]: %v", r.mode, subset, classification, err))
	result.Labels = ruleLabels(paragraphs)
}

func (r *Router) logAttempts(trace []client.Attempt) {
	for _, attempt := range trace {
		if attempt.Err == "" {
			r.logger.Debug("remote attempt succeeded", "attempt", attempt.Number, "elapsed", attempt.Elapsed)
			continue
		}
		r.logger.Debug("remote attempt failed",
			"attempt", attempt.Number,
			"elapsed", attempt.Elapsed,
			"classification", attempt.Classification,
			"error", attempt.Err,
		)
	}
}

func ruleLabels(paragraphs []schema.Paragraph) []schema.LabeledParagraph {
	labels := make([]schema.LabeledParagraph, len(paragraphs))
	for i, p := range paragraphs {
		labels[i] = schema.LabeledParagraph{Index: p.Index, Label: p.Label, Source: schema.SourceRule}
	}
	return labels
}
