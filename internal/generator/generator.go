package generator

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/yungbote/quizforge/internal/dedupe"
	"github.com/yungbote/quizforge/internal/engine"
	"github.com/yungbote/quizforge/internal/observability"
	"github.com/yungbote/quizforge/internal/pipeline"
	"github.com/yungbote/quizforge/internal/platform/apierr"
	"github.com/yungbote/quizforge/internal/platform/ctxutil"
	"github.com/yungbote/quizforge/internal/platform/logger"
	"github.com/yungbote/quizforge/internal/prompts"
	"github.com/yungbote/quizforge/internal/question"
)

const (
	DefaultQuestions   = 5
	DefaultTemperature = 0.5
	DefaultTopP        = 0.9
)

type GenerateRequest struct {
	SourceText  string
	File        string
	Page        *int
	NQuestions  int
	EnforceMCQ  bool
	FewShots    []string
	Temperature float64
	TopP        float64
}

type Runner interface {
	Run(ctx context.Context, raw string, req pipeline.Request) (*pipeline.Result, error)
}

type Options struct {
	Model      string
	Upstream   string
	MaxTokens  int
	GuidedJSON bool
}

type Service struct {
	eng      engine.Engine
	pipeline Runner
	opts     Options
	log      *logger.Logger
	metrics  *observability.Metrics
}

// New wires the generator. eng may be nil, in which case Generate reports the
// model as unavailable.
func New(eng engine.Engine, p Runner, opts Options, log *logger.Logger, metrics *observability.Metrics) *Service {
	if opts.Upstream == "" {
		opts.Upstream = opts.Model
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 1200
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Service{eng: eng, pipeline: p, opts: opts, log: log, metrics: metrics}
}

func (s *Service) Model() string { return s.opts.Model }

// Generate prompts the model for items grounded in req.SourceText and runs the
// validation pipeline over its output.
func (s *Service) Generate(ctx context.Context, req GenerateRequest) (*pipeline.Result, error) {
	if s.eng == nil {
		return nil, apierr.New(http.StatusServiceUnavailable, "model_not_loaded", errors.New("model not loaded"))
	}
	if req.NQuestions <= 0 {
		req.NQuestions = DefaultQuestions
	}

	user := prompts.Build(prompts.Input{
		Source:     req.SourceText,
		N:          req.NQuestions,
		EnforceMCQ: req.EnforceMCQ,
		FewShots:   req.FewShots,
	})
	opts := engine.GenerateOptions{
		Temperature: req.Temperature,
		TopP:        req.TopP,
		MaxTokens:   s.opts.MaxTokens,
	}
	if s.opts.GuidedJSON {
		opts.JSONSchema = &engine.JSONSchema{Name: "question_items", Schema: question.ItemsSchema()}
	}

	start := time.Now()
	out, err := s.eng.GenerateText(ctx, s.opts.Upstream, []engine.Message{
		{Role: "system", Content: prompts.System},
		{Role: "user", Content: user},
	}, opts)
	s.metrics.ObserveEngineCall("generate", s.opts.Model, err)
	if err != nil {
		s.log.With(ctxutil.LogFields(ctx)...).Error("generation failed", "model", s.opts.Model, "error", err)
		return nil, apierr.New(http.StatusBadGateway, "engine_error", fmt.Errorf("generation failed: %w", err))
	}
	s.log.Debug("generation finished", "model", s.opts.Model, "duration_ms", time.Since(start).Milliseconds(), "bytes", len(out))

	res, err := s.pipeline.Run(ctx, strings.TrimSpace(out), pipeline.Request{
		Source:     req.SourceText,
		File:       req.File,
		Page:       req.Page,
		EnforceMCQ: req.EnforceMCQ,
	})
	if err != nil {
		return nil, MapPipelineError(err)
	}
	return res, nil
}

// MapPipelineError converts pipeline failures into API errors: unparsable
// model output is a 400, anything else (embedding backend) a 502.
func MapPipelineError(err error) error {
	var pe *question.ParseError
	if errors.As(err, &pe) {
		return apierr.New(http.StatusBadRequest, "invalid_model_output", fmt.Errorf("Invalid JSON from model: %v", pe.Cause))
	}
	if errors.Is(err, dedupe.ErrTooManyKeys) {
		return apierr.New(http.StatusBadRequest, "invalid_request", err)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return apierr.New(http.StatusGatewayTimeout, "timeout", err)
	}
	return apierr.New(http.StatusBadGateway, "engine_error", err)
}
