package dedupe

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
)

type tableEmbedder struct {
	mu      sync.Mutex
	vectors map[string][]float32
	calls   [][]string
}

func (e *tableEmbedder) Embed(_ context.Context, inputs []string) ([][]float32, error) {
	e.mu.Lock()
	e.calls = append(e.calls, append([]string(nil), inputs...))
	e.mu.Unlock()
	out := make([][]float32, len(inputs))
	for i, in := range inputs {
		v, ok := e.vectors[in]
		if !ok {
			return nil, errors.New("no vector for " + in)
		}
		out[i] = v
	}
	return out, nil
}

func newTableEmbedder() *tableEmbedder {
	return &tableEmbedder{vectors: map[string][]float32{
		"cat sat":  {1, 0, 0},
		"cat sat.": {0.99, 0.14, 0},
		"dog ran":  {0, 0, 1},
		"x":        {0, 1, 0},
		"y":        {0.2, 1, 0},
	}}
}

func newTestEngine(t *testing.T, emb Embedder, opts Options) *Engine {
	t.Helper()
	e, err := NewEngine(emb, opts)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return e
}

func TestDeduplicate_DropsNearDuplicate(t *testing.T) {
	e := newTestEngine(t, newTableEmbedder(), Options{})
	res, err := e.Deduplicate(context.Background(), []string{"cat sat", "cat sat.", "dog ran"})
	if err != nil {
		t.Fatalf("Deduplicate: %v", err)
	}
	if !reflect.DeepEqual(res.Keep, []int{0, 2}) {
		t.Fatalf("Keep=%v want [0 2]", res.Keep)
	}
	if len(res.Pairs) != 1 || res.Pairs[0].I != 0 || res.Pairs[0].J != 1 {
		t.Fatalf("Pairs=%+v", res.Pairs)
	}
	if res.Pairs[0].Sim < 0.98 || res.Pairs[0].Sim > 1.0001 {
		t.Fatalf("Sim=%v", res.Pairs[0].Sim)
	}
}

func TestDeduplicate_EmptyInputSkipsEmbedder(t *testing.T) {
	called := false
	emb := EmbedderFunc(func(context.Context, []string) ([][]float32, error) {
		called = true
		return nil, nil
	})
	e := newTestEngine(t, emb, Options{})
	res, err := e.Deduplicate(context.Background(), nil)
	if err != nil {
		t.Fatalf("Deduplicate: %v", err)
	}
	if called {
		t.Fatalf("embedder should not be called for empty input")
	}
	if len(res.Keep) != 0 || len(res.Pairs) != 0 || res.Keep == nil || res.Pairs == nil {
		t.Fatalf("expected empty non-nil result, got %+v", res)
	}
}

func TestDeduplicate_TooManyKeys(t *testing.T) {
	emb := newTableEmbedder()
	e := newTestEngine(t, emb, Options{MaxKeys: 2})
	if e.MaxKeys() != 2 {
		t.Fatalf("MaxKeys=%d", e.MaxKeys())
	}
	_, err := e.Deduplicate(context.Background(), []string{"cat sat", "x", "dog ran"})
	if !errors.Is(err, ErrTooManyKeys) {
		t.Fatalf("err=%v want ErrTooManyKeys", err)
	}
	if len(emb.calls) != 0 {
		t.Fatalf("embedder called %d times", len(emb.calls))
	}
	if _, err := e.Deduplicate(context.Background(), []string{"cat sat", "x"}); err != nil {
		t.Fatalf("at the limit: %v", err)
	}
	if d := newTestEngine(t, emb, Options{}); d.MaxKeys() != DefaultMaxKeys {
		t.Fatalf("default MaxKeys=%d", d.MaxKeys())
	}
}

func TestDeduplicate_Idempotent(t *testing.T) {
	e := newTestEngine(t, newTableEmbedder(), Options{})
	keys := []string{"cat sat", "x", "cat sat.", "dog ran", "y"}
	first, err := e.Deduplicate(context.Background(), keys)
	if err != nil {
		t.Fatalf("Deduplicate: %v", err)
	}
	kept := make([]string, 0, len(first.Keep))
	for _, i := range first.Keep {
		kept = append(kept, keys[i])
	}
	second, err := e.Deduplicate(context.Background(), kept)
	if err != nil {
		t.Fatalf("Deduplicate: %v", err)
	}
	if len(second.Pairs) != 0 || len(second.Keep) != len(kept) {
		t.Fatalf("second pass changed the batch: %+v", second)
	}
}

func TestDeduplicateWithThreshold(t *testing.T) {
	emb := &tableEmbedder{vectors: map[string][]float32{
		"a":  {1, 0},
		"a2": {1, 0},
		"b":  {1, 1},
		"c":  {0, 1},
	}}
	e := newTestEngine(t, emb, Options{})
	ctx := context.Background()

	res, err := e.DeduplicateWithThreshold(ctx, []string{"a", "a2", "b"}, 1.0)
	if err != nil {
		t.Fatalf("threshold 1.0: %v", err)
	}
	if !reflect.DeepEqual(res.Keep, []int{0, 2}) {
		t.Fatalf("threshold 1.0 Keep=%v want [0 2]", res.Keep)
	}

	res, err = e.DeduplicateWithThreshold(ctx, []string{"a", "b", "c"}, 0.01)
	if err != nil {
		t.Fatalf("threshold 0.01: %v", err)
	}
	// b is dropped by a but still anchors its own pair with c, so c goes too.
	if !reflect.DeepEqual(res.Keep, []int{0}) {
		t.Fatalf("threshold 0.01 Keep=%v want [0]", res.Keep)
	}
	want := []Pair{{I: 0, J: 1}, {I: 1, J: 2}}
	if len(res.Pairs) != len(want) {
		t.Fatalf("Pairs=%+v", res.Pairs)
	}
	for i, p := range res.Pairs {
		if p.I != want[i].I || p.J != want[i].J {
			t.Fatalf("Pairs[%d]=%+v want %+v", i, p, want[i])
		}
	}
}

func TestDeduplicate_LowerIndexWins(t *testing.T) {
	emb := &tableEmbedder{vectors: map[string][]float32{"same": {0, 1, 0}}}
	e := newTestEngine(t, emb, Options{})
	res, err := e.Deduplicate(context.Background(), []string{"same", "same", "same"})
	if err != nil {
		t.Fatalf("Deduplicate: %v", err)
	}
	if !reflect.DeepEqual(res.Keep, []int{0}) {
		t.Fatalf("Keep=%v want [0]", res.Keep)
	}
	if len(res.Pairs) != 3 {
		t.Fatalf("expected pairs (0,1) (0,2) (1,2), got %+v", res.Pairs)
	}
	if res.Pairs[2].I != 1 || res.Pairs[2].J != 2 {
		t.Fatalf("dropped item 1 should anchor (1,2), got %+v", res.Pairs[2])
	}
}

func TestDeduplicate_BatchesPreserveOrder(t *testing.T) {
	emb := newTableEmbedder()
	e := newTestEngine(t, emb, Options{BatchSize: 2, Concurrency: 3})
	keys := []string{"dog ran", "x", "cat sat", "y", "cat sat."}
	res, err := e.Deduplicate(context.Background(), keys)
	if err != nil {
		t.Fatalf("Deduplicate: %v", err)
	}
	if len(emb.calls) != 3 {
		t.Fatalf("expected 3 embed batches, got %d", len(emb.calls))
	}
	// x~y: cos = 1/sqrt(1.04) ≈ 0.98; cat sat ~ cat sat.
	if !reflect.DeepEqual(res.Keep, []int{0, 1, 2}) {
		t.Fatalf("Keep=%v want [0 1 2]", res.Keep)
	}
}

func TestDeduplicate_EmbedderError(t *testing.T) {
	boom := errors.New("boom")
	e := newTestEngine(t, EmbedderFunc(func(context.Context, []string) ([][]float32, error) {
		return nil, boom
	}), Options{})
	_, err := e.Deduplicate(context.Background(), []string{"a"})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped embedder error, got %v", err)
	}
}

func TestDeduplicate_WrongVectorCount(t *testing.T) {
	e := newTestEngine(t, EmbedderFunc(func(context.Context, []string) ([][]float32, error) {
		return [][]float32{{1}}, nil
	}), Options{})
	if _, err := e.Deduplicate(context.Background(), []string{"a", "b"}); err == nil {
		t.Fatalf("expected error for short embedding batch")
	}
}

func TestNewEngine_RequiresEmbedder(t *testing.T) {
	if _, err := NewEngine(nil, Options{}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestKeepIndices(t *testing.T) {
	got := KeepIndices(5, []Pair{{I: 0, J: 3}, {I: 1, J: 3}, {I: 2, J: 4}})
	if !reflect.DeepEqual(got, []int{0, 1, 2}) {
		t.Fatalf("KeepIndices=%v", got)
	}
	if got := KeepIndices(0, nil); len(got) != 0 {
		t.Fatalf("KeepIndices(0)=%v", got)
	}
}

func TestFindPairs_NeighborLimit(t *testing.T) {
	v := []float32{1, 0}
	pairs, err := FindPairs([][]float32{v, v, v}, 0.9, 1)
	if err != nil {
		t.Fatalf("FindPairs: %v", err)
	}
	// Each query sees only its single nearest other vector.
	if len(pairs) != 1 || pairs[0].I != 0 || pairs[0].J != 1 {
		t.Fatalf("pairs=%+v", pairs)
	}
}

func TestFindPairs_DimensionMismatch(t *testing.T) {
	if _, err := FindPairs([][]float32{{1, 0}, {1}}, 0.9, 5); err == nil {
		t.Fatalf("expected dimension error")
	}
}
