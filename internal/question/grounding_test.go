package question

import "testing"

func intp(v int) *int       { return &v }
func strp(v string) *string { return &v }

func itemWithCitation(c Citation) QuestionItem {
	return QuestionItem{
		Type:       TypeMCQSingle,
		Stem:       "What colour is the sky?",
		Citation:   c,
		Difficulty: DifficultyEasy,
	}
}

func TestCheckGrounding(t *testing.T) {
	const src = "The sky is blue."
	cases := []struct {
		name   string
		source string
		cit    Citation
		ok     bool
		reason Reason
	}{
		{name: "offsets match", source: src, cit: Citation{Quote: strp("sky is blue"), QuoteStart: intp(4), QuoteEnd: intp(15)}, ok: true},
		{name: "quote only", source: src, cit: Citation{Quote: strp("sky is blue")}, ok: true},
		{name: "missing quote", source: src, cit: Citation{}, reason: ReasonMissingQuote},
		{name: "empty quote", source: src, cit: Citation{Quote: strp("")}, reason: ReasonMissingQuote},
		{name: "not found", source: src, cit: Citation{Quote: strp("sky is green")}, reason: ReasonQuoteNotFound},
		{name: "case sensitive", source: src, cit: Citation{Quote: strp("Sky is blue")}, reason: ReasonQuoteNotFound},
		{name: "mismatch", source: src, cit: Citation{Quote: strp("sky is blue"), QuoteStart: intp(4), QuoteEnd: intp(14)}, reason: ReasonOffsetMismatch},
		{name: "negative start", source: src, cit: Citation{Quote: strp("sky"), QuoteStart: intp(-1), QuoteEnd: intp(3)}, reason: ReasonInvalidOffsets},
		{name: "end past source", source: src, cit: Citation{Quote: strp("sky"), QuoteStart: intp(4), QuoteEnd: intp(17)}, reason: ReasonInvalidOffsets},
		{name: "start equals end", source: src, cit: Citation{Quote: strp("sky"), QuoteStart: intp(4), QuoteEnd: intp(4)}, reason: ReasonInvalidOffsets},
		{name: "start past end", source: src, cit: Citation{Quote: strp("sky"), QuoteStart: intp(7), QuoteEnd: intp(4)}, reason: ReasonInvalidOffsets},
		{name: "end at source length", source: src, cit: Citation{Quote: strp("blue."), QuoteStart: intp(11), QuoteEnd: intp(16)}, ok: true},
		{name: "one offset ignored", source: src, cit: Citation{Quote: strp("sky is blue"), QuoteStart: intp(99)}, ok: true},
		{name: "not found wins over bad offsets", source: src, cit: Citation{Quote: strp("nope"), QuoteStart: intp(-5), QuoteEnd: intp(2)}, reason: ReasonQuoteNotFound},
		{name: "code point offsets", source: "Café au lait", cit: Citation{Quote: strp("au"), QuoteStart: intp(5), QuoteEnd: intp(7)}, ok: true},
		{name: "empty source", source: "", cit: Citation{Quote: strp("x")}, reason: ReasonQuoteNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ok, reason := CheckGrounding(tc.source, itemWithCitation(tc.cit))
			if ok != tc.ok || reason != tc.reason {
				t.Fatalf("CheckGrounding=(%v,%q) want (%v,%q)", ok, reason, tc.ok, tc.reason)
			}
		})
	}
}

func TestApplyCitationDefaults(t *testing.T) {
	it := itemWithCitation(Citation{Quote: strp("x")})
	it.ApplyCitationDefaults("doc.pdf", intp(7))
	if it.Citation.File != "doc.pdf" || it.Citation.Page == nil || *it.Citation.Page != 7 {
		t.Fatalf("defaults not applied: %#v", it.Citation)
	}

	it = itemWithCitation(Citation{File: "own.pdf", Page: intp(2)})
	it.ApplyCitationDefaults("doc.pdf", intp(7))
	if it.Citation.File != "own.pdf" || *it.Citation.Page != 2 {
		t.Fatalf("model values overwritten: %#v", it.Citation)
	}

	it = itemWithCitation(Citation{})
	it.ApplyCitationDefaults("doc.pdf", nil)
	if it.Citation.Page != nil {
		t.Fatalf("page should stay nil")
	}
}

func TestCheckMultipleChoice(t *testing.T) {
	opts := map[ChoiceLabel]string{LabelA: "a", LabelB: "b"}
	cases := []struct {
		name string
		item QuestionItem
		ok   bool
	}{
		{name: "valid", item: QuestionItem{Type: TypeMCQSingle, Options: opts, CorrectOption: SingleOption(LabelB)}, ok: true},
		{name: "short answer", item: QuestionItem{Type: TypeShortAnswer, Options: opts, CorrectOption: SingleOption(LabelA)}},
		{name: "multi type", item: QuestionItem{Type: TypeMCQMulti, Options: opts, CorrectOption: SingleOption(LabelA)}},
		{name: "no options", item: QuestionItem{Type: TypeMCQSingle, CorrectOption: SingleOption(LabelA)}},
		{name: "no answer", item: QuestionItem{Type: TypeMCQSingle, Options: opts}},
		{name: "list answer", item: QuestionItem{Type: TypeMCQSingle, Options: opts, CorrectOption: MultiOption(LabelA)}},
		{name: "bad label", item: QuestionItem{Type: TypeMCQSingle, Options: opts, CorrectOption: SingleOption("E")}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ok, reason := CheckMultipleChoice(tc.item)
			if ok != tc.ok {
				t.Fatalf("ok=%v want %v", ok, tc.ok)
			}
			if !ok && reason != ReasonNotMultipleChoice {
				t.Fatalf("reason=%q", reason)
			}
		})
	}
}
