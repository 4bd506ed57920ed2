package mock

import (
	"context"
	"encoding/json"
	"hash/fnv"
	"strings"
	"unicode"

	"github.com/yungbote/quizforge/internal/engine"
	"github.com/yungbote/quizforge/internal/prompts"
)

// Engine is an offline stand-in for a model server. Embeddings are hashed
// bag-of-words vectors so texts sharing most tokens land close together.
// Generation answers quiz prompts with items quoted from the prompt's source.
type Engine struct {
	EmbeddingDims int
}

func New() *Engine {
	return &Engine{EmbeddingDims: 256}
}

func (e *Engine) Embed(ctx context.Context, model string, inputs []string) ([][]float32, error) {
	_ = model
	out := make([][]float32, len(inputs))
	for i, s := range inputs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = e.embedOne(s)
	}
	return out, nil
}

func (e *Engine) embedOne(s string) []float32 {
	dims := e.EmbeddingDims
	if dims <= 0 {
		dims = 256
	}
	vec := make([]float32, dims)
	for _, tok := range tokenize(s) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(tok))
		sum := h.Sum32()
		sign := float32(1)
		if sum&1 == 1 {
			sign = -1
		}
		vec[(sum>>1)%uint32(dims)] += sign
	}
	return vec
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

type mockItem struct {
	Type          string            `json:"type"`
	Stem          string            `json:"stem"`
	Options       map[string]string `json:"options"`
	CorrectOption string            `json:"correct_option"`
	Explanation   string            `json:"explanation"`
	Citation      mockCitation      `json:"citation"`
	Difficulty    string            `json:"difficulty"`
}

type mockCitation struct {
	Quote      string `json:"quote"`
	QuoteStart int    `json:"quote_start"`
	QuoteEnd   int    `json:"quote_end"`
}

func (e *Engine) GenerateText(ctx context.Context, model string, messages []engine.Message, opts engine.GenerateOptions) (string, error) {
	_ = model
	_ = opts
	if err := ctx.Err(); err != nil {
		return "", err
	}

	user := engine.LastUserMessage(messages)
	source, ok := prompts.ExtractSource(user)
	if !ok || strings.TrimSpace(source) == "" {
		return "[]", nil
	}
	n := prompts.RequestedCount(user)
	if n <= 0 {
		n = 1
	}

	sentences := splitSentences(source)
	items := make([]mockItem, 0, n)
	for i := 0; i < n && i < len(sentences); i++ {
		sent := sentences[i]
		items = append(items, mockItem{
			Type: "mcq_single",
			Stem: "Which statement appears in the source?",
			Options: map[string]string{
				"A": sent.text,
				"B": "None of the above",
				"C": "The source does not say",
				"D": "All of the above",
			},
			CorrectOption: "A",
			Explanation:   "The statement is quoted directly from the source.",
			Citation: mockCitation{
				Quote:      sent.text,
				QuoteStart: sent.start,
				QuoteEnd:   sent.end,
			},
			Difficulty: "easy",
		})
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

type sentence struct {
	text       string
	start, end int
}

// splitSentences cuts source on ., ! and ? and reports code point offsets of
// each trimmed sentence.
func splitSentences(source string) []sentence {
	runes := []rune(source)
	var out []sentence
	begin := 0
	flush := func(end int) {
		s, e := begin, end
		for s < e && unicode.IsSpace(runes[s]) {
			s++
		}
		for e > s && unicode.IsSpace(runes[e-1]) {
			e--
		}
		if e > s {
			out = append(out, sentence{text: string(runes[s:e]), start: s, end: e})
		}
		begin = end
	}
	for i, r := range runes {
		if r == '.' || r == '!' || r == '?' {
			flush(i + 1)
		}
	}
	flush(len(runes))
	return out
}
