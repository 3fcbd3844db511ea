// Package rules is the deterministic fallback classifier: fixed
// pattern rules assign a structural label and confidence to raw
// paragraph text, with no remote call involved. It exists so the CLI
// can classify plain-text input; pipelines that already carry labels
// bypass it entirely.
package rules

import (
	"regexp"
	"strings"

	"github.com/zen-systems/structura/pkg/schema"
)

var (
	reChapter    = regexp.MustCompile(`^\s*第[一二三四五六七八九十百千0-9]+章`)
	reSection    = regexp.MustCompile(`^\s*第[一二三四五六七八九十百千0-9]+节`)
	reCNEnum     = regexp.MustCompile(`^\s*[一二三四五六七八九十]+、`)
	reNumDot     = regexp.MustCompile(`^\s*\d+(\.\d+){0,3}\s+`)
	reListBullet = regexp.MustCompile(`^\s*([-*•]|\d+[.)、])\s*\S`)
)

// Confidence levels per rule family. Pattern matches are strong
// evidence; the body default is weak.
const (
	confPattern = 0.9
	confList    = 0.8
	confBody    = 0.6
)

// Classify assigns deterministic labels to raw paragraph texts,
// producing the Paragraph sequence the core consumes.
func Classify(texts []string) []schema.Paragraph {
	paragraphs := make([]schema.Paragraph, len(texts))
	for i, text := range texts {
		label, confidence := classifyOne(text)
		paragraphs[i] = schema.Paragraph{
			Index:      i,
			Text:       text,
			Label:      label,
			Confidence: confidence,
		}
	}
	return paragraphs
}

func classifyOne(text string) (schema.Label, float64) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return schema.LabelBlank, 1.0
	}

	switch {
	case reChapter.MatchString(trimmed):
		return schema.LabelH1, confPattern
	case reSection.MatchString(trimmed):
		return schema.LabelH2, confPattern
	case reNumDot.MatchString(trimmed):
		// 1 / 1.1 / 1.1.1: deeper numbering means a deeper heading.
		head := strings.Fields(trimmed)[0]
		if strings.Count(head, ".") == 0 {
			return schema.LabelH2, confPattern
		}
		return schema.LabelH3, confPattern
	case reCNEnum.MatchString(trimmed):
		return schema.LabelH2, confPattern
	case reListBullet.MatchString(trimmed):
		return schema.LabelListItem, confList
	default:
		return schema.LabelBody, confBody
	}
}
