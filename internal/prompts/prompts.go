package prompts

import (
	"fmt"
	"strconv"
	"strings"
)

const System = `You are an expert assessment writer. You create exam-quality questions STRICTLY from the provided SOURCE.
If a fact is not in SOURCE, do not invent it. Return ONLY valid JSON as specified. No prose.`

const jsonContract = `FORMAT: Return a JSON array of objects. Each object MUST match this shape exactly:
{
  "type": "mcq_single" | "mcq_multi" | "short_answer" | "case_study",
  "stem": string,
  "options": {"A": string, "B": string, "C": string, "D": string} | null,
  "correct_option": "A"|"B"|"C"|"D" | ["A","B",...] | null,
  "explanation": string,
  "citation": {"file": string, "page": number|null, "quote_start": number|null, "quote_end": number|null, "quote": string|null},
  "difficulty": "easy"|"medium"|"hard",
  "topic": string|null,
  "subtopic": string|null
}`

const (
	sourceHeader = "SOURCE (verbatim):\n"
	taskMarker   = "\n\nTASK: Create "
)

var baseRules = []string{
	"Write questions strictly from SOURCE, never outside knowledge.",
	"Cover different Bloom levels across the set.",
	"Every item must include a citation with exact quote substring and correct offsets.",
	"Vary stems; avoid duplicates; concise but precise wording.",
}

const mcqRule = "Prefer mcq_single; use options A..D; one correct answer."

type Input struct {
	Source     string
	N          int
	EnforceMCQ bool
	FewShots   []string
}

// Build renders the user prompt. System carries the matching system
// instruction.
func Build(in Input) string {
	rules := append([]string{"Rules:"}, baseRules...)
	if in.EnforceMCQ {
		rules = append(rules, mcqRule)
	}

	var b strings.Builder
	b.WriteString(sourceHeader)
	b.WriteString(in.Source)
	b.WriteString(taskMarker)
	fmt.Fprintf(&b, "%d high-quality questions.\n", in.N)
	b.WriteString(jsonContract)
	b.WriteString("\n\n")
	b.WriteString(strings.Join(rules, "\n- "))
	if len(in.FewShots) > 0 {
		b.WriteString("\nFEW-SHOT EXEMPLARS (style guide, do not copy facts):\n")
		b.WriteString(strings.Join(in.FewShots, "\n---\n"))
	}
	b.WriteString("\nReturn JSON only.")
	return b.String()
}

// ExtractSource recovers the verbatim source from a prompt made by Build.
func ExtractSource(prompt string) (string, bool) {
	i := strings.Index(prompt, sourceHeader)
	if i < 0 {
		return "", false
	}
	rest := prompt[i+len(sourceHeader):]
	j := strings.LastIndex(rest, taskMarker)
	if j < 0 {
		return "", false
	}
	return rest[:j], true
}

// RequestedCount returns the question count asked for by a prompt made by
// Build, or 0 when it cannot be found.
func RequestedCount(prompt string) int {
	i := strings.LastIndex(prompt, taskMarker)
	if i < 0 {
		return 0
	}
	rest := prompt[i+len(taskMarker):]
	end := strings.IndexByte(rest, ' ')
	if end < 0 {
		return 0
	}
	n, err := strconv.Atoi(rest[:end])
	if err != nil {
		return 0
	}
	return n
}
