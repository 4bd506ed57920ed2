package dedupe

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Embedder turns texts into vectors, one per input, in input order.
type Embedder interface {
	Embed(ctx context.Context, inputs []string) ([][]float32, error)
}

type EmbedderFunc func(ctx context.Context, inputs []string) ([][]float32, error)

func (f EmbedderFunc) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	return f(ctx, inputs)
}

// ErrTooManyKeys is returned before any embedding work when a call carries
// more keys than Options.MaxKeys.
var ErrTooManyKeys = errors.New("dedupe: too many keys")

type Options struct {
	Threshold   float32
	Neighbors   int
	BatchSize   int
	Concurrency int
	MaxKeys     int
}

func (o Options) withDefaults() Options {
	if o.Threshold <= 0 {
		o.Threshold = DefaultThreshold
	}
	if o.Neighbors <= 0 {
		o.Neighbors = DefaultNeighbors
	}
	if o.BatchSize <= 0 {
		o.BatchSize = 32
	}
	if o.Concurrency <= 0 {
		o.Concurrency = 4
	}
	if o.MaxKeys <= 0 {
		o.MaxKeys = DefaultMaxKeys
	}
	return o
}

type Result struct {
	Keep  []int  `json:"keep_indices"`
	Pairs []Pair `json:"duplicate_pairs"`
}

// Engine is safe for concurrent use once built; it holds no per-call state.
type Engine struct {
	embedder Embedder
	opts     Options
}

func NewEngine(embedder Embedder, opts Options) (*Engine, error) {
	if embedder == nil {
		return nil, fmt.Errorf("dedupe: embedder is required")
	}
	return &Engine{embedder: embedder, opts: opts.withDefaults()}, nil
}

func (e *Engine) Threshold() float32 { return e.opts.Threshold }

func (e *Engine) MaxKeys() int { return e.opts.MaxKeys }

func (e *Engine) Deduplicate(ctx context.Context, keys []string) (Result, error) {
	return e.DeduplicateWithThreshold(ctx, keys, e.opts.Threshold)
}

// DeduplicateWithThreshold keeps the first occurrence of every group of keys
// whose cosine similarity is at least threshold.
func (e *Engine) DeduplicateWithThreshold(ctx context.Context, keys []string, threshold float32) (Result, error) {
	if len(keys) == 0 {
		return Result{Keep: []int{}, Pairs: []Pair{}}, nil
	}
	if len(keys) > e.opts.MaxKeys {
		return Result{}, fmt.Errorf("%w: got %d, limit %d", ErrTooManyKeys, len(keys), e.opts.MaxKeys)
	}
	vecs, err := e.embed(ctx, keys)
	if err != nil {
		return Result{}, err
	}
	pairs, err := FindPairs(vecs, threshold, e.opts.Neighbors)
	if err != nil {
		return Result{}, err
	}
	if pairs == nil {
		pairs = []Pair{}
	}
	return Result{Keep: KeepIndices(len(keys), pairs), Pairs: pairs}, nil
}

func (e *Engine) embed(ctx context.Context, keys []string) ([][]float32, error) {
	out := make([][]float32, len(keys))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Concurrency)

	for start := 0; start < len(keys); start += e.opts.BatchSize {
		start := start
		end := start + e.opts.BatchSize
		if end > len(keys) {
			end = len(keys)
		}
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			vecs, err := e.embedder.Embed(gctx, keys[start:end])
			if err != nil {
				return fmt.Errorf("embed batch [%d:%d]: %w", start, end, err)
			}
			if len(vecs) != end-start {
				return fmt.Errorf("embed batch [%d:%d]: got %d vectors", start, end, len(vecs))
			}
			for i, v := range vecs {
				cp := append([]float32(nil), v...)
				Normalize(cp)
				out[start+i] = cp
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("dedupe: %w", err)
	}

	dim := len(out[0])
	for i, v := range out {
		if len(v) != dim || dim == 0 {
			return nil, fmt.Errorf("dedupe: embedding %d has dim %d, want %d", i, len(v), dim)
		}
	}
	return out, nil
}
