package pipeline

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/yungbote/quizforge/internal/dedupe"
	"github.com/yungbote/quizforge/internal/observability"
	"github.com/yungbote/quizforge/internal/question"
)

const source = "The sky is blue. The grass is green."

const rawBatch = `[
  {"type":"mcq_single","stem":"What colour is the sky?","options":{"A":"blue","B":"green","C":"red","D":"grey"},"correct_option":"A","explanation":"Stated.","citation":{"quote":"sky is blue","quote_start":4,"quote_end":15},"difficulty":"easy"},
  {"type":"mcq_single","stem":"Sky colour?","options":{"A":"green","B":"blue"},"correct_option":"A","explanation":"","citation":{"quote":"sky is green"},"difficulty":"easy"},
  {"type":"mcq_single","stem":"What colour is grass?","options":{"A":"green","B":"blue"},"correct_option":"A","explanation":"","citation":{"quote":"grass is green","quote_start":20,"quote_end":34},"difficulty":"easy"},
  {"type":"short_answer","stem":"Describe the grass.","options":null,"correct_option":null,"explanation":"","citation":{"quote":"grass is green"},"difficulty":"medium"},
  {"type":"mcq_single","stem":"Which colour is the sky?","options":{"A":"blue","B":"red"},"correct_option":"A","explanation":"","citation":{"quote":"sky is blue"},"difficulty":"easy"},
  {"type":"mcq_single","stem":"What colour is the grass?","options":{"A":"green","B":"red"},"correct_option":"A","explanation":"","citation":{"file":"own.pdf","page":9,"quote":"grass is green","quote_start":21,"quote_end":35},"difficulty":"hard"}
]`

// topicEmbedder maps keys onto three orthogonal axes by keyword.
func topicEmbedder(calls *int) dedupe.Embedder {
	return dedupe.EmbedderFunc(func(_ context.Context, inputs []string) ([][]float32, error) {
		*calls++
		out := make([][]float32, len(inputs))
		for i, in := range inputs {
			switch {
			case strings.Contains(in, "sky"):
				out[i] = []float32{1, 0, 0}
			case strings.Contains(in, "grass"):
				out[i] = []float32{0, 1, 0}
			default:
				out[i] = []float32{0, 0, 1}
			}
		}
		return out, nil
	})
}

func newPipeline(t *testing.T, emb dedupe.Embedder) *Pipeline {
	t.Helper()
	eng, err := dedupe.NewEngine(emb, dedupe.Options{})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return New(eng, Options{}, nil, observability.NewMetrics())
}

func intp(v int) *int { return &v }

func TestRun_FiltersAndLogsInOrder(t *testing.T) {
	var calls int
	p := newPipeline(t, topicEmbedder(&calls))

	res, err := p.Run(context.Background(), rawBatch, Request{
		Source:     source,
		File:       "notes.pdf",
		Page:       intp(3),
		EnforceMCQ: true,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	wantRejected := []string{
		"Rejected: quote not found in source | stem=Sky colour?",
		"Rejected: offsets do not match quoted text | stem=What colour is grass?",
		"Rejected: not a valid multiple-choice item | stem=Describe the grass.",
		"Dedup drop: 1 ~ 0 (sim=1.000)",
	}
	if !reflect.DeepEqual(res.Rejected, wantRejected) {
		t.Fatalf("Rejected=\n%s\nwant\n%s", strings.Join(res.Rejected, "\n"), strings.Join(wantRejected, "\n"))
	}
	if len(res.Kept) != 2 {
		t.Fatalf("len(Kept)=%d want 2", len(res.Kept))
	}
	if res.Kept[0].Stem != "What colour is the sky?" || res.Kept[1].Stem != "What colour is the grass?" {
		t.Fatalf("unexpected kept stems: %q, %q", res.Kept[0].Stem, res.Kept[1].Stem)
	}

	// Defaults fill gaps only.
	if c := res.Kept[0].Citation; c.File != "notes.pdf" || c.Page == nil || *c.Page != 3 {
		t.Fatalf("defaults not applied: %+v", c)
	}
	if c := res.Kept[1].Citation; c.File != "own.pdf" || *c.Page != 9 {
		t.Fatalf("model citation overwritten: %+v", c)
	}
	if len(res.Pairs) != 1 || res.Pairs[0].I != 0 || res.Pairs[0].J != 1 {
		t.Fatalf("Pairs=%+v", res.Pairs)
	}
	if calls != 1 {
		t.Fatalf("embedder calls=%d", calls)
	}
}

func TestRun_WithoutMCQEnforcementKeepsShortAnswer(t *testing.T) {
	var calls int
	p := newPipeline(t, topicEmbedder(&calls))
	res, err := p.Run(context.Background(), rawBatch, Request{Source: source})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	// short_answer and the grass MCQ share the "grass" axis, so the later one
	// is a duplicate.
	for _, it := range res.Kept {
		if it.Type == question.TypeShortAnswer {
			return
		}
	}
	t.Fatalf("short answer item should be kept when MCQ is not enforced: %+v", res.Rejected)
}

func TestRun_ParseFailure(t *testing.T) {
	var calls int
	p := newPipeline(t, topicEmbedder(&calls))
	res, err := p.Run(context.Background(), `{"not":"an array"}`, Request{Source: source})
	if res != nil {
		t.Fatalf("expected nil result")
	}
	var pe *question.ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *question.ParseError, got %v", err)
	}
	if calls != 0 {
		t.Fatalf("embedder should not be called")
	}
}

func TestRun_EmptyAndAllRejected(t *testing.T) {
	var calls int
	p := newPipeline(t, topicEmbedder(&calls))

	res, err := p.Run(context.Background(), "[]", Request{Source: source})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Kept == nil || res.Rejected == nil || len(res.Kept) != 0 || len(res.Rejected) != 0 {
		t.Fatalf("expected empty non-nil slices: %+v", res)
	}

	res, err = p.Run(context.Background(), rawBatch, Request{Source: "unrelated text"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Kept) != 0 || len(res.Rejected) != 6 {
		t.Fatalf("kept=%d rejected=%d", len(res.Kept), len(res.Rejected))
	}
	if calls != 0 {
		t.Fatalf("embedder should not be called without survivors")
	}
}

func TestRun_EmbedderFailure(t *testing.T) {
	boom := errors.New("embedding backend down")
	p := newPipeline(t, dedupe.EmbedderFunc(func(context.Context, []string) ([][]float32, error) {
		return nil, boom
	}))
	_, err := p.Run(context.Background(), rawBatch, Request{Source: source, EnforceMCQ: true})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped embedder error, got %v", err)
	}
}

func TestRun_StemPreviewIsBounded(t *testing.T) {
	var calls int
	eng, _ := dedupe.NewEngine(topicEmbedder(&calls), dedupe.Options{})
	p := New(eng, Options{StemPreviewChars: 5}, nil, nil)
	raw := `[{"type":"mcq_single","stem":"Ünïcode stem that is long","explanation":"","citation":{},"difficulty":"easy"}]`
	res, err := p.Run(context.Background(), raw, Request{Source: source})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Rejected) != 1 || res.Rejected[0] != "Rejected: missing quote | stem=Ünïco" {
		t.Fatalf("Rejected=%v", res.Rejected)
	}
}
