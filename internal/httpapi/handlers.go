package httpapi

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/quizforge/internal/dedupe"
	"github.com/yungbote/quizforge/internal/generator"
	"github.com/yungbote/quizforge/internal/pipeline"
	"github.com/yungbote/quizforge/internal/platform/logger"
)

type Generator interface {
	Generate(ctx context.Context, req generator.GenerateRequest) (*pipeline.Result, error)
	Model() string
}

type Deduplicator interface {
	DeduplicateWithThreshold(ctx context.Context, keys []string, threshold float32) (dedupe.Result, error)
	Threshold() float32
}

type Handlers struct {
	gen      Generator
	pipeline generator.Runner
	dedupe   Deduplicator
	log      *logger.Logger
}

func NewHandlers(gen Generator, p generator.Runner, d Deduplicator, log *logger.Logger) *Handlers {
	if log == nil {
		log = logger.Nop()
	}
	return &Handlers{gen: gen, pipeline: p, dedupe: d, log: log}
}

type GenerateRequest struct {
	SourceText  string   `json:"source_text" binding:"required,min=50"`
	File        string   `json:"file" binding:"required"`
	Page        *int     `json:"page"`
	NQuestions  *int     `json:"n_questions" binding:"omitempty,min=1,max=20"`
	EnforceMCQ  *bool    `json:"enforce_mcq"`
	FewShots    []string `json:"few_shots"`
	Temperature *float64 `json:"temperature" binding:"omitempty,gte=0,lte=2"`
	TopP        *float64 `json:"top_p" binding:"omitempty,gt=0,lte=1"`
}

type ValidateRequest struct {
	RawOutput  string `json:"raw_output" binding:"required"`
	SourceText string `json:"source_text" binding:"required"`
	File       string `json:"file"`
	Page       *int   `json:"page"`
	EnforceMCQ *bool  `json:"enforce_mcq"`
}

type DedupeRequest struct {
	Keys      []string `json:"keys" binding:"required"`
	Threshold *float64 `json:"threshold" binding:"omitempty,gte=0,lte=1"`
}

type HealthResponse struct {
	OK    bool   `json:"ok"`
	Model string `json:"model"`
}

func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{OK: true, Model: h.gen.Model()})
}

func (h *Handlers) Healthz(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

func (h *Handlers) Generate(c *gin.Context) {
	var in GenerateRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", bindError(err))
		return
	}

	req := generator.GenerateRequest{
		SourceText:  in.SourceText,
		File:        in.File,
		Page:        in.Page,
		NQuestions:  generator.DefaultQuestions,
		EnforceMCQ:  boolOr(in.EnforceMCQ, true),
		FewShots:    in.FewShots,
		Temperature: floatOr(in.Temperature, generator.DefaultTemperature),
		TopP:        floatOr(in.TopP, generator.DefaultTopP),
	}
	if in.NQuestions != nil {
		req.NQuestions = *in.NQuestions
	}

	res, err := h.gen.Generate(c.Request.Context(), req)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handlers) Validate(c *gin.Context) {
	var in ValidateRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", bindError(err))
		return
	}

	res, err := h.pipeline.Run(c.Request.Context(), in.RawOutput, pipeline.Request{
		Source:     in.SourceText,
		File:       in.File,
		Page:       in.Page,
		EnforceMCQ: boolOr(in.EnforceMCQ, true),
	})
	if err != nil {
		respondErr(c, generator.MapPipelineError(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handlers) Dedupe(c *gin.Context) {
	var in DedupeRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", bindError(err))
		return
	}

	threshold := h.dedupe.Threshold()
	if in.Threshold != nil {
		threshold = float32(*in.Threshold)
	}
	res, err := h.dedupe.DeduplicateWithThreshold(c.Request.Context(), in.Keys, threshold)
	if err != nil {
		h.log.Error("dedupe failed", "keys", len(in.Keys), "error", err)
		respondErr(c, generator.MapPipelineError(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

func floatOr(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}
