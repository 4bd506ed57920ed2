package question

import (
	"strings"
	"unicode/utf8"
)

// Reason explains why an item was rejected. The zero value means accepted.
type Reason string

const (
	ReasonNone              Reason = ""
	ReasonMissingQuote      Reason = "missing quote"
	ReasonQuoteNotFound     Reason = "quote not found in source"
	ReasonInvalidOffsets    Reason = "invalid offsets"
	ReasonOffsetMismatch    Reason = "offsets do not match quoted text"
	ReasonNotMultipleChoice Reason = "not a valid multiple-choice item"
)

func (r Reason) String() string { return string(r) }

// CheckGrounding reports whether the item's citation is backed by source.
// Checks short-circuit in order: quote presence, literal containment, offset
// bounds, then offset agreement. Offsets are only considered when both are set.
func CheckGrounding(source string, item QuestionItem) (bool, Reason) {
	quote := item.Citation.QuoteText()
	if quote == "" {
		return false, ReasonMissingQuote
	}
	if !strings.Contains(source, quote) {
		return false, ReasonQuoteNotFound
	}

	start, end := item.Citation.QuoteStart, item.Citation.QuoteEnd
	if start == nil || end == nil {
		return true, ReasonNone
	}
	n := utf8.RuneCountInString(source)
	s, e := *start, *end
	if s < 0 || s >= n || e <= 0 || e > n || s >= e {
		return false, ReasonInvalidOffsets
	}
	if runeSlice(source, s, e) != quote {
		return false, ReasonOffsetMismatch
	}
	return true, ReasonNone
}

// runeSlice returns s[start:end] counted in code points. Bounds must already
// be checked.
func runeSlice(s string, start, end int) string {
	i, from, to := 0, -1, len(s)
	for pos := range s {
		if i == start {
			from = pos
		}
		if i == end {
			to = pos
			break
		}
		i++
	}
	if from < 0 {
		return ""
	}
	return s[from:to]
}

// CheckMultipleChoice enforces the single-answer MCQ shape: type mcq_single,
// at least one option and a single correct label that is one of A..D.
func CheckMultipleChoice(item QuestionItem) (bool, Reason) {
	if item.Type != TypeMCQSingle || len(item.Options) == 0 {
		return false, ReasonNotMultipleChoice
	}
	label, ok := item.CorrectOption.Single()
	if !ok || !label.Valid() {
		return false, ReasonNotMultipleChoice
	}
	return true, ReasonNone
}
