// Package prompt builds the system/user prompt pairs for the remote
// classifier. Output contracts are strict JSON so the client can parse
// responses without heuristics.
package prompt

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/zen-systems/structura/pkg/schema"
)

// previewLimit truncates paragraph text in prompts to bound token usage.
const previewLimit = 200

// StructureSystem instructs the model to tag every paragraph.
const StructureSystem = `You are an expert analyst of document structure.
Your task is to assign a structural tag to every paragraph of a Word document.
You must answer with strict JSON and nothing else: no prose, no markdown fences.
The JSON object must contain: doc_language, total_paragraphs, paragraphs (array).
Each paragraphs entry must contain: index, text_preview, paragraph_type, confidence, reasoning.
paragraph_type must be one of:
  title_1, title_2, title_3, body, list_item, table_caption,
  figure_caption, abstract, keyword, reference, footer, unknown
confidence is a float between 0.0 and 1.0.`

// ReviewSystem instructs the model to review a labeled subset and emit
// corrected tags plus suggestions.
const ReviewSystem = `You are an expert reviewer of document structure.
You are given paragraphs together with labels assigned by a deterministic rule engine.
Re-examine each listed paragraph: confirm or correct its structural tag, and report
concrete problems as suggestions.
You must answer with strict JSON and nothing else: no prose, no markdown fences.
The JSON object must contain: doc_language, total_paragraphs, paragraphs (array), suggestions (array).
Each paragraphs entry must contain: index, text_preview, paragraph_type, confidence, reasoning.
Each suggestions entry must contain: category, severity, confidence, paragraph_index,
evidence, action, rationale, apply_mode.
paragraph_type must be one of:
  title_1, title_2, title_3, body, list_item, table_caption,
  figure_caption, abstract, keyword, reference, footer, unknown
confidence is a float between 0.0 and 1.0.`

type promptItem struct {
	Index       int    `json:"index"`
	TextPreview string `json:"text_preview"`
	RuleLabel   string `json:"rule_label,omitempty"`
}

// System returns the system prompt for an operation kind.
func System(op schema.Op) string {
	if op == schema.OpReview {
		return ReviewSystem
	}
	return StructureSystem
}

// Build renders the user prompt for a classification request. For
// review requests the deterministic context labels ride along per item.
func Build(req *schema.ClassificationRequest) (string, error) {
	subset := req.Subset()
	items := make([]promptItem, 0, len(subset))
	for _, p := range subset {
		item := promptItem{
			Index:       p.Index,
			TextPreview: truncate(p.Text, previewLimit),
		}
		if req.Op == schema.OpReview {
			if label, ok := req.Context[p.Index]; ok {
				item.RuleLabel = string(label)
			} else {
				item.RuleLabel = string(p.Label)
			}
		}
		items = append(items, item)
	}

	payload, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal prompt items: %w", err)
	}

	var sb strings.Builder
	switch req.Op {
	case schema.OpReview:
		fmt.Fprintf(&sb, "Review the following %d paragraphs of a %d-paragraph document.\n", len(items), len(req.Paragraphs))
		sb.WriteString("Each carries the label assigned by the rule engine.\n\n")
	default:
		fmt.Fprintf(&sb, "Analyze the following %d document paragraphs and tag each one.\n\n", len(items))
	}
	sb.WriteString("Paragraphs (JSON):\n")
	sb.Write(payload)
	sb.WriteString("\n\nAnswer with the JSON schema from the system prompt. No extra text.")
	return sb.String(), nil
}

func truncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}
