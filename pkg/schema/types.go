package schema

import (
	"fmt"
	"strings"
)

// Label is a structural role assigned to a paragraph.
type Label string

const (
	LabelH1       Label = "h1"
	LabelH2       Label = "h2"
	LabelH3       Label = "h3"
	LabelBody     Label = "body"
	LabelCaption  Label = "caption"
	LabelListItem Label = "list_item"
	LabelBlank    Label = "blank"
	LabelUnknown  Label = "unknown"
)

// LabelSource records which engine produced a label.
type LabelSource string

const (
	SourceRule   LabelSource = "rule"
	SourceRemote LabelSource = "remote"
)

// Op selects the remote operation kind.
type Op string

const (
	OpStructure Op = "structure"
	OpReview    Op = "review"
)

// ParagraphType is the remote model's paragraph vocabulary.
type ParagraphType string

const (
	TypeTitle1        ParagraphType = "title_1"
	TypeTitle2        ParagraphType = "title_2"
	TypeTitle3        ParagraphType = "title_3"
	TypeBody          ParagraphType = "body"
	TypeListItem      ParagraphType = "list_item"
	TypeTableCaption  ParagraphType = "table_caption"
	TypeFigureCaption ParagraphType = "figure_caption"
	TypeAbstract      ParagraphType = "abstract"
	TypeKeyword       ParagraphType = "keyword"
	TypeReference     ParagraphType = "reference"
	TypeFooter        ParagraphType = "footer"
	TypeUnknown       ParagraphType = "unknown"
)

// typeToLabel maps the remote vocabulary onto internal roles.
var typeToLabel = map[ParagraphType]Label{
	TypeTitle1:        LabelH1,
	TypeTitle2:        LabelH2,
	TypeTitle3:        LabelH3,
	TypeBody:          LabelBody,
	TypeListItem:      LabelListItem,
	TypeTableCaption:  LabelCaption,
	TypeFigureCaption: LabelCaption,
	TypeAbstract:      LabelBody,
	TypeKeyword:       LabelBody,
	TypeReference:     LabelBody,
	TypeFooter:        LabelBody,
	TypeUnknown:       LabelBody,
}

// RoleFor resolves a remote paragraph type to an internal label.
// Unrecognized types resolve to body rather than failing the merge.
func RoleFor(t ParagraphType) Label {
	if label, ok := typeToLabel[t]; ok {
		return label
	}
	return LabelBody
}

// Paragraph is one deterministically labeled input paragraph.
// Produced upstream; treated as immutable by every component here.
type Paragraph struct {
	Index      int     `json:"index"`
	Text       string  `json:"text"`
	Label      Label   `json:"label"`
	Confidence float64 `json:"confidence"`
}

// ClassificationRequest describes one logical remote call.
// Indices restricts the call to a subset of Paragraphs; empty means all.
// Context carries already-known deterministic labels for remote review.
type ClassificationRequest struct {
	Paragraphs []Paragraph   `json:"paragraphs"`
	Indices    []int         `json:"indices,omitempty"`
	Context    map[int]Label `json:"context,omitempty"`
	Op         Op            `json:"op"`
}

// Subset returns the paragraphs covered by the request, in order.
func (r *ClassificationRequest) Subset() []Paragraph {
	if len(r.Indices) == 0 {
		return r.Paragraphs
	}
	wanted := make(map[int]bool, len(r.Indices))
	for _, idx := range r.Indices {
		wanted[idx] = true
	}
	var subset []Paragraph
	for _, p := range r.Paragraphs {
		if wanted[p.Index] {
			subset = append(subset, p)
		}
	}
	return subset
}

// Validate checks the request before it is sent.
func (r *ClassificationRequest) Validate() error {
	if len(r.Paragraphs) == 0 {
		return fmt.Errorf("request has no paragraphs")
	}
	if r.Op != OpStructure && r.Op != OpReview {
		return fmt.Errorf("unknown op %q", r.Op)
	}
	total := len(r.Paragraphs)
	for _, idx := range r.Indices {
		if idx < 0 || idx >= total {
			return fmt.Errorf("index %d out of range [0,%d)", idx, total)
		}
	}
	return nil
}

// ParagraphTag is the remote model's judgment for one paragraph.
type ParagraphTag struct {
	Index       int           `json:"index"`
	TextPreview string        `json:"text_preview"`
	Type        ParagraphType `json:"paragraph_type"`
	Confidence  float64       `json:"confidence"`
	Reasoning   string        `json:"reasoning,omitempty"`
}

// Suggestion is an auxiliary remote finding, carried through unmodified.
type Suggestion struct {
	Category       string  `json:"category"`
	Severity       string  `json:"severity"`
	Confidence     float64 `json:"confidence"`
	ParagraphIndex int     `json:"paragraph_index"`
	Evidence       string  `json:"evidence"`
	Action         string  `json:"action"`
	Rationale      string  `json:"rationale,omitempty"`
	ApplyMode      string  `json:"apply_mode,omitempty"`
}

// ClassificationResult is the parsed remote payload.
type ClassificationResult struct {
	DocLanguage     string         `json:"doc_language,omitempty"`
	TotalParagraphs int            `json:"total_paragraphs"`
	Tags            []ParagraphTag `json:"paragraphs"`
	Suggestions     []Suggestion   `json:"suggestions,omitempty"`
}

// Validate checks a parsed result against the originating document size.
func (res *ClassificationResult) Validate(total int) error {
	for i, tag := range res.Tags {
		if tag.Index < 0 || tag.Index >= total {
			return fmt.Errorf("paragraphs[%d]: index %d out of range [0,%d)", i, tag.Index, total)
		}
		if tag.Confidence < 0 || tag.Confidence > 1 {
			return fmt.Errorf("paragraphs[%d]: confidence %.3f out of range", i, tag.Confidence)
		}
	}
	for i, s := range res.Suggestions {
		if s.ParagraphIndex < 0 || s.ParagraphIndex >= total {
			return fmt.Errorf("suggestions[%d]: paragraph_index %d out of range [0,%d)", i, s.ParagraphIndex, total)
		}
		if s.Confidence < 0 || s.Confidence > 1 {
			return fmt.Errorf("suggestions[%d]: confidence %.3f out of range", i, s.Confidence)
		}
	}
	return nil
}

// TriggerReport records the hybrid gating decision.
type TriggerReport struct {
	Triggered      bool           `json:"triggered"`
	Reasons        []string       `json:"reasons,omitempty"`
	TriggeredCount int            `json:"triggered_count"`
	TotalCount     int            `json:"total_count"`
	RemoteCalled   bool           `json:"remote_called"`
	Metrics        map[string]int `json:"metrics,omitempty"`
}

// LabeledParagraph is one entry of the final label set.
type LabeledParagraph struct {
	Index  int         `json:"index"`
	Label  Label       `json:"label"`
	Source LabelSource `json:"source"`
}

// FinalLabelSet is the core's sole output: one label per paragraph
// index, plus whatever diagnostics the chosen mode produced.
type FinalLabelSet struct {
	RunID       string             `json:"run_id"`
	Mode        string             `json:"mode"`
	Labels      []LabeledParagraph `json:"labels"`
	Suggestions []Suggestion       `json:"suggestions,omitempty"`
	Trigger     *TriggerReport     `json:"trigger,omitempty"`
	Warnings    []string           `json:"warnings,omitempty"`
}

// Validate enforces the total-ordering invariant: every index 0..N-1
// exactly once, no gaps, no duplicates.
func (s *FinalLabelSet) Validate(total int) error {
	if len(s.Labels) != total {
		return fmt.Errorf("label set has %d entries, want %d", len(s.Labels), total)
	}
	for i, lp := range s.Labels {
		if lp.Index != i {
			return fmt.Errorf("labels[%d]: index %d breaks total ordering", i, lp.Index)
		}
		if lp.Source != SourceRule && lp.Source != SourceRemote {
			return fmt.Errorf("labels[%d]: unknown source %q", i, lp.Source)
		}
	}
	return nil
}

// SourceCounts tallies labels per source, for summaries and tests.
func (s *FinalLabelSet) SourceCounts() map[LabelSource]int {
	counts := make(map[LabelSource]int)
	for _, lp := range s.Labels {
		counts[lp.Source]++
	}
	return counts
}

// ParseLabel normalizes an external label string.
func ParseLabel(raw string) Label {
	normalized := Label(strings.ToLower(strings.TrimSpace(raw)))
	switch normalized {
	case LabelH1, LabelH2, LabelH3, LabelBody, LabelCaption, LabelListItem, LabelBlank, LabelUnknown:
		return normalized
	default:
		return LabelUnknown
	}
}
