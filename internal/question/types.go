package question

import (
	"encoding/json"
	"fmt"
	"sort"
)

type QuestionType string

const (
	TypeMCQSingle   QuestionType = "mcq_single"
	TypeMCQMulti    QuestionType = "mcq_multi"
	TypeShortAnswer QuestionType = "short_answer"
	TypeCaseStudy   QuestionType = "case_study"
)

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// ChoiceLabel is one of the four multiple-choice labels A..D.
type ChoiceLabel string

const (
	LabelA ChoiceLabel = "A"
	LabelB ChoiceLabel = "B"
	LabelC ChoiceLabel = "C"
	LabelD ChoiceLabel = "D"
)

func (l ChoiceLabel) Valid() bool {
	switch l {
	case LabelA, LabelB, LabelC, LabelD:
		return true
	default:
		return false
	}
}

// Citation links an item to the source document. Offsets are character
// (code point) positions; QuoteEnd is exclusive.
type Citation struct {
	File       string  `json:"file"`
	Page       *int    `json:"page"`
	QuoteStart *int    `json:"quote_start"`
	QuoteEnd   *int    `json:"quote_end"`
	Quote      *string `json:"quote"`
}

// QuoteText returns the cited quote or "" when absent.
func (c Citation) QuoteText() string {
	if c.Quote == nil {
		return ""
	}
	return *c.Quote
}

type QuestionItem struct {
	Type          QuestionType           `json:"type"`
	Stem          string                 `json:"stem"`
	Options       map[ChoiceLabel]string `json:"options"`
	CorrectOption *CorrectOption         `json:"correct_option"`
	Explanation   string                 `json:"explanation"`
	Citation      Citation               `json:"citation"`
	Difficulty    Difficulty             `json:"difficulty"`
	Topic         *string                `json:"topic"`
	Subtopic      *string                `json:"subtopic"`
}

// ApplyCitationDefaults backfills the citation file and page from the request
// when the model left them out.
func (it *QuestionItem) ApplyCitationDefaults(file string, page *int) {
	if it.Citation.File == "" {
		it.Citation.File = file
	}
	if it.Citation.Page == nil && page != nil {
		p := *page
		it.Citation.Page = &p
	}
}

// CorrectOption holds either a single label ("A") or a list of labels
// (["A","C"]). The JSON shape it was decoded from is preserved on encode.
type CorrectOption struct {
	Labels []ChoiceLabel `validate:"dive,choice_label"`
	Multi  bool
}

func SingleOption(l ChoiceLabel) *CorrectOption {
	return &CorrectOption{Labels: []ChoiceLabel{l}}
}

func MultiOption(ls ...ChoiceLabel) *CorrectOption {
	return &CorrectOption{Labels: append([]ChoiceLabel(nil), ls...), Multi: true}
}

// Single returns the label when the option was given as a single string.
func (c *CorrectOption) Single() (ChoiceLabel, bool) {
	if c == nil || c.Multi || len(c.Labels) != 1 {
		return "", false
	}
	return c.Labels[0], true
}

// Sorted returns the labels in A..D order.
func (c *CorrectOption) Sorted() []ChoiceLabel {
	if c == nil {
		return nil
	}
	out := append([]ChoiceLabel(nil), c.Labels...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (c *CorrectOption) UnmarshalJSON(b []byte) error {
	var single string
	if err := json.Unmarshal(b, &single); err == nil {
		c.Labels = nil
		c.Multi = false
		if single != "" {
			c.Labels = []ChoiceLabel{ChoiceLabel(single)}
		}
		return nil
	}
	var multi []string
	if err := json.Unmarshal(b, &multi); err != nil {
		return fmt.Errorf("correct_option must be a label or a list of labels")
	}
	c.Labels = make([]ChoiceLabel, 0, len(multi))
	for _, s := range multi {
		c.Labels = append(c.Labels, ChoiceLabel(s))
	}
	c.Multi = true
	return nil
}

func (c CorrectOption) MarshalJSON() ([]byte, error) {
	if !c.Multi && len(c.Labels) == 0 {
		return []byte("null"), nil
	}
	if !c.Multi && len(c.Labels) == 1 {
		return json.Marshal(string(c.Labels[0]))
	}
	out := make([]string, 0, len(c.Labels))
	for _, l := range c.Labels {
		out = append(out, string(l))
	}
	return json.Marshal(out)
}
