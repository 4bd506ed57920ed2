package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/quizforge/internal/dedupe"
	"github.com/yungbote/quizforge/internal/observability"
	"github.com/yungbote/quizforge/internal/platform/ctxutil"
	"github.com/yungbote/quizforge/internal/platform/logger"
	"github.com/yungbote/quizforge/internal/question"
)

// Deduplicator is the part of dedupe.Engine the pipeline needs.
type Deduplicator interface {
	Deduplicate(ctx context.Context, keys []string) (dedupe.Result, error)
}

type Request struct {
	Source     string
	File       string
	Page       *int
	EnforceMCQ bool
}

type Result struct {
	Kept     []question.QuestionItem `json:"kept"`
	Rejected []string                `json:"rejected"`
	Pairs    []dedupe.Pair           `json:"-"`
}

type Options struct {
	StemPreviewChars int
}

type Pipeline struct {
	dedupe  Deduplicator
	opts    Options
	log     *logger.Logger
	metrics *observability.Metrics
	tracer  trace.Tracer
}

func New(d Deduplicator, opts Options, log *logger.Logger, metrics *observability.Metrics) *Pipeline {
	if opts.StemPreviewChars <= 0 {
		opts.StemPreviewChars = 80
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Pipeline{
		dedupe:  d,
		opts:    opts,
		log:     log,
		metrics: metrics,
		tracer:  observability.Tracer(),
	}
}

// Run parses raw model output, drops ungrounded (and, when requested,
// non-MCQ) items, then removes near-duplicates. A parse failure fails the
// whole batch with a *question.ParseError; every other rejection is recorded
// in Result.Rejected in decision order.
func (p *Pipeline) Run(ctx context.Context, raw string, req Request) (*Result, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.run")
	defer span.End()

	items, err := p.parse(ctx, raw)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "unparsable response")
		return nil, err
	}

	res := &Result{Kept: []question.QuestionItem{}, Rejected: []string{}, Pairs: []dedupe.Pair{}}
	candidates := p.validate(ctx, items, req, res)

	if err := p.deduplicate(ctx, candidates, res); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "dedupe failed")
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("quizforge.items.parsed", len(items)),
		attribute.Int("quizforge.items.kept", len(res.Kept)),
		attribute.Int("quizforge.items.rejected", len(res.Rejected)),
	)
	p.metrics.AddItems("kept", len(res.Kept))
	p.log.With(ctxutil.LogFields(ctx)...).Info("pipeline finished",
		"parsed", len(items),
		"kept", len(res.Kept),
		"rejected", len(res.Rejected),
		"duplicates", len(res.Pairs),
	)
	return res, nil
}

func (p *Pipeline) parse(ctx context.Context, raw string) ([]question.QuestionItem, error) {
	_, span := p.tracer.Start(ctx, "pipeline.parse")
	defer span.End()
	start := time.Now()
	defer func() { p.metrics.ObserveStage("parse", time.Since(start)) }()

	items, err := question.ParseItems(raw)
	if err != nil {
		p.metrics.IncParseFailure()
		var pe *question.ParseError
		if errors.As(err, &pe) {
			p.log.With(ctxutil.LogFields(ctx)...).Warn("model response rejected", "item", pe.Index, "error", pe.Cause)
		}
		return nil, err
	}
	span.SetAttributes(attribute.Int("quizforge.items", len(items)))
	return items, nil
}

func (p *Pipeline) validate(ctx context.Context, items []question.QuestionItem, req Request, res *Result) []question.QuestionItem {
	_, span := p.tracer.Start(ctx, "pipeline.validate")
	defer span.End()
	start := time.Now()
	defer func() { p.metrics.ObserveStage("validate", time.Since(start)) }()

	out := make([]question.QuestionItem, 0, len(items))
	for _, it := range items {
		it.ApplyCitationDefaults(req.File, req.Page)

		if ok, reason := question.CheckGrounding(req.Source, it); !ok {
			p.reject(res, reason, it)
			p.metrics.AddItems("ungrounded", 1)
			continue
		}
		if req.EnforceMCQ {
			if ok, reason := question.CheckMultipleChoice(it); !ok {
				p.reject(res, reason, it)
				p.metrics.AddItems("not_mcq", 1)
				continue
			}
		}
		out = append(out, it)
	}
	span.SetAttributes(attribute.Int("quizforge.items.grounded", len(out)))
	return out
}

func (p *Pipeline) reject(res *Result, reason question.Reason, it question.QuestionItem) {
	line := fmt.Sprintf("Rejected: %s | stem=%s", reason, question.StemPreview(it.Stem, p.opts.StemPreviewChars))
	res.Rejected = append(res.Rejected, line)
	p.log.Debug("item rejected", "reason", string(reason))
}

func (p *Pipeline) deduplicate(ctx context.Context, items []question.QuestionItem, res *Result) error {
	if len(items) == 0 {
		return nil
	}
	ctx, span := p.tracer.Start(ctx, "pipeline.dedupe")
	defer span.End()
	start := time.Now()
	defer func() { p.metrics.ObserveStage("dedupe", time.Since(start)) }()

	keys := make([]string, len(items))
	for i, it := range items {
		keys[i] = question.CanonicalKey(it)
	}
	dr, err := p.dedupe.Deduplicate(ctx, keys)
	if err != nil {
		return fmt.Errorf("dedupe: %w", err)
	}

	for _, pair := range dr.Pairs {
		res.Rejected = append(res.Rejected, fmt.Sprintf("Dedup drop: %d ~ %d (sim=%.3f)", pair.J, pair.I, pair.Sim))
	}
	for _, i := range dr.Keep {
		res.Kept = append(res.Kept, items[i])
	}
	res.Pairs = append(res.Pairs, dr.Pairs...)

	dropped := len(items) - len(dr.Keep)
	p.metrics.AddItems("duplicate", dropped)
	p.metrics.AddDedupePairs(len(dr.Pairs))
	span.SetAttributes(attribute.Int("quizforge.dedupe.pairs", len(dr.Pairs)))
	return nil
}
