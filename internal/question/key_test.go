package question

import "testing"

func TestCanonicalKey(t *testing.T) {
	opts := map[ChoiceLabel]string{LabelA: "Paris", LabelB: "Rome", LabelC: "Oslo"}
	cases := []struct {
		name string
		item QuestionItem
		want string
	}{
		{name: "stem only", item: QuestionItem{Stem: "Capital of France?"}, want: "Capital of France?"},
		{name: "single answer", item: QuestionItem{Stem: "Capital of France?", Options: opts, CorrectOption: SingleOption(LabelA)}, want: "Capital of France?\nANS:Paris"},
		{name: "answer missing from options", item: QuestionItem{Stem: "Q", Options: opts, CorrectOption: SingleOption(LabelD)}, want: "Q"},
		{name: "options without answer", item: QuestionItem{Stem: "Q", Options: opts}, want: "Q"},
		{name: "multi answer in label order", item: QuestionItem{Stem: "Q", Options: opts, CorrectOption: MultiOption(LabelC, LabelA)}, want: "Q\nANS:Paris | Oslo"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CanonicalKey(tc.item); got != tc.want {
				t.Fatalf("CanonicalKey=%q want %q", got, tc.want)
			}
		})
	}
}

func TestStemPreview(t *testing.T) {
	if got := StemPreview("héllo world", 5); got != "héllo" {
		t.Fatalf("StemPreview=%q", got)
	}
	if got := StemPreview("short", 80); got != "short" {
		t.Fatalf("StemPreview=%q", got)
	}
}
