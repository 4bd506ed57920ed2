package question

import "strings"

const answerMarker = "\nANS:"

// CanonicalKey is the text used for near-duplicate comparison: the stem, plus
// the correct answer text when the item carries options that contain it.
// Multiple answers are joined with " | " in label order.
func CanonicalKey(item QuestionItem) string {
	if len(item.Options) == 0 || item.CorrectOption == nil {
		return item.Stem
	}
	var answers []string
	for _, l := range item.CorrectOption.Sorted() {
		text, ok := item.Options[l]
		if !ok {
			continue
		}
		answers = append(answers, text)
	}
	if len(answers) == 0 {
		return item.Stem
	}
	return item.Stem + answerMarker + strings.Join(answers, " | ")
}

// StemPreview returns at most n characters of the stem for log lines.
func StemPreview(stem string, n int) string {
	if n <= 0 {
		return stem
	}
	i := 0
	for pos := range stem {
		if i == n {
			return stem[:pos]
		}
		i++
	}
	return stem
}
