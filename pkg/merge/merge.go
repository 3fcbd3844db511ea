// Package merge reconciles deterministic labels with remote
// classification output into one complete label set.
package merge

import (
	"fmt"

	"github.com/zen-systems/structura/pkg/schema"
)

// DefaultAcceptConfidence is the per-paragraph gate on remote-label
// adoption in hybrid mode.
const DefaultAcceptConfidence = 0.7

// Review merges a review-style remote result over the deterministic
// labels. A remote tag wins only when its confidence reaches threshold
// and the paragraph was actually requested; everything else keeps its
// rule label. Suggestions pass through untouched.
func Review(paragraphs []schema.Paragraph, requested []int, result *schema.ClassificationResult, threshold float64) ([]schema.LabeledParagraph, []schema.Suggestion, int) {
	labels := ruleBaseline(paragraphs)
	if result == nil {
		return labels, nil, 0
	}

	inRequest := make(map[int]bool, len(requested))
	for _, idx := range requested {
		inRequest[idx] = true
	}
	// An all-paragraph request has no explicit index subset.
	all := len(requested) == 0

	lowConfidence := 0
	for _, tag := range result.Tags {
		if tag.Index < 0 || tag.Index >= len(labels) {
			continue
		}
		if !all && !inRequest[tag.Index] {
			continue
		}
		if tag.Confidence < threshold {
			lowConfidence++
			continue
		}
		labels[tag.Index] = schema.LabeledParagraph{
			Index:  tag.Index,
			Label:  schema.RoleFor(tag.Type),
			Source: schema.SourceRemote,
		}
	}
	return labels, result.Suggestions, lowConfidence
}

// Remote merges a remote-only result: every returned tag is adopted
// with no threshold gate; paragraphs the model never covered fall back
// to their deterministic labels as a safety net.
func Remote(paragraphs []schema.Paragraph, result *schema.ClassificationResult) ([]schema.LabeledParagraph, []schema.Suggestion) {
	labels := ruleBaseline(paragraphs)
	if result == nil {
		return labels, nil
	}
	for _, tag := range result.Tags {
		if tag.Index < 0 || tag.Index >= len(labels) {
			continue
		}
		labels[tag.Index] = schema.LabeledParagraph{
			Index:  tag.Index,
			Label:  schema.RoleFor(tag.Type),
			Source: schema.SourceRemote,
		}
	}
	return labels, result.Suggestions
}

// LowConfidenceWarning renders the hybrid below-threshold fallback note.
func LowConfidenceWarning(count int, threshold float64) string {
	return fmt.Sprintf("%d paragraph(s) below confidence %.2f kept their rule labels", count, threshold)
}

// ruleBaseline builds the guaranteed fallback: every paragraph labeled
// by its deterministic label, sourced rule, in index order.
func ruleBaseline(paragraphs []schema.Paragraph) []schema.LabeledParagraph {
	labels := make([]schema.LabeledParagraph, len(paragraphs))
	for i, p := range paragraphs {
		labels[i] = schema.LabeledParagraph{Index: p.Index, Label: p.Label, Source: schema.SourceRule}
	}
	return labels
}
