// Package trigger decides whether a deterministically labeled paragraph
// set warrants remote review. Three independent conditions are
// evaluated as pure functions over the immutable input; their triggered
// index sets are unioned without duplicates.
package trigger

import (
	"fmt"

	"github.com/zen-systems/structura/pkg/schema"
)

// Default thresholds for the ambiguity conditions.
const (
	DefaultHeadingLength = 30
	DefaultShortBody     = 60
	minListRun           = 3

	// highConfidence is the deterministic confidence at which a body
	// label is trusted as prose. Confident short bodies never count
	// toward a potential-list run.
	highConfidence = 0.7
)

// Thresholds configures the trigger conditions.
type Thresholds struct {
	// HeadingLength is the text length above which an h2/h3 label
	// looks like a misclassified body paragraph.
	HeadingLength int
	// ShortBody is the text length at or below which a body paragraph
	// counts toward a potential-list run.
	ShortBody int
}

// DefaultThresholds returns the stock thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{HeadingLength: DefaultHeadingLength, ShortBody: DefaultShortBody}
}

// Validate rejects malformed thresholds at construction time.
func (t Thresholds) Validate() error {
	if t.HeadingLength <= 0 {
		return fmt.Errorf("heading length threshold must be positive, got %d", t.HeadingLength)
	}
	if t.ShortBody <= 0 {
		return fmt.Errorf("short body threshold must be positive, got %d", t.ShortBody)
	}
	return nil
}

// condition is the result of one trigger condition: whether it fired,
// which indices it implicates, and a human-readable reason.
type condition struct {
	fired   bool
	indices []int
	reason  string
}

// Evaluate runs all conditions and aggregates the report plus the
// deduplicated, order-preserved union of triggered indices.
func Evaluate(paragraphs []schema.Paragraph, th Thresholds) (schema.TriggerReport, []int) {
	conditions := []condition{
		unknownLabels(paragraphs),
		ambiguousHeadings(paragraphs, th.HeadingLength),
		potentialLists(paragraphs, th.ShortBody),
	}

	report := schema.TriggerReport{
		TotalCount: len(paragraphs),
		Metrics: map[string]int{
			"unknown_count":           len(conditions[0].indices),
			"ambiguous_heading_count": len(conditions[1].indices),
			"short_body_run_count":    len(conditions[2].indices),
		},
	}

	seen := make(map[int]bool)
	var union []int
	for _, c := range conditions {
		if !c.fired {
			continue
		}
		report.Reasons = append(report.Reasons, c.reason)
		for _, idx := range c.indices {
			if !seen[idx] {
				seen[idx] = true
				union = append(union, idx)
			}
		}
	}

	report.Triggered = len(union) > 0
	report.TriggeredCount = len(union)
	return report, union
}

// unknownLabels fires when any paragraph carries the unknown label.
func unknownLabels(paragraphs []schema.Paragraph) condition {
	var indices []int
	for _, p := range paragraphs {
		if p.Label == schema.LabelUnknown {
			indices = append(indices, p.Index)
		}
	}
	if len(indices) == 0 {
		return condition{}
	}
	return condition{
		fired:   true,
		indices: indices,
		reason:  fmt.Sprintf("%d paragraph(s) with unknown label need remote review", len(indices)),
	}
}

// ambiguousHeadings fires for h2/h3 paragraphs whose text is longer
// than a heading plausibly is.
func ambiguousHeadings(paragraphs []schema.Paragraph, headingLength int) condition {
	var indices []int
	for _, p := range paragraphs {
		if p.Label != schema.LabelH2 && p.Label != schema.LabelH3 {
			continue
		}
		if len([]rune(p.Text)) > headingLength {
			indices = append(indices, p.Index)
		}
	}
	if len(indices) == 0 {
		return condition{}
	}
	return condition{
		fired:   true,
		indices: indices,
		reason:  fmt.Sprintf("%d heading(s) exceed %d characters and may be misclassified body text", len(indices), headingLength),
	}
}

// potentialLists fires for runs of minListRun or more consecutive short
// body paragraphs the rule engine was not confident about, a shape that
// often is an unrecognized list. Confidently labeled prose is exempt.
func potentialLists(paragraphs []schema.Paragraph, shortBody int) condition {
	var indices []int
	var run []int
	flush := func() {
		if len(run) >= minListRun {
			indices = append(indices, run...)
		}
		run = nil
	}
	for _, p := range paragraphs {
		if p.Label == schema.LabelBody && p.Confidence < highConfidence && len([]rune(p.Text)) <= shortBody {
			run = append(run, p.Index)
			continue
		}
		flush()
	}
	flush()
	if len(indices) == 0 {
		return condition{}
	}
	return condition{
		fired:   true,
		indices: indices,
		reason:  fmt.Sprintf("%d consecutive short body paragraph(s) look like an unrecognized list", len(indices)),
	}
}
