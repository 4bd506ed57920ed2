package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/yungbote/quizforge/internal/config"
	"github.com/yungbote/quizforge/internal/dedupe"
	"github.com/yungbote/quizforge/internal/generator"
	"github.com/yungbote/quizforge/internal/httpapi"
	"github.com/yungbote/quizforge/internal/observability"
	"github.com/yungbote/quizforge/internal/pipeline"
	"github.com/yungbote/quizforge/internal/platform/logger"
	"github.com/yungbote/quizforge/internal/router"
)

const Version = "0.3.0"

type App struct {
	Log       *logger.Logger
	Config    *config.Config
	Metrics   *observability.Metrics
	Dedupe    *dedupe.Engine
	Pipeline  *pipeline.Pipeline
	Generator *generator.Service

	server       *http.Server
	otelShutdown func(context.Context) error
}

func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log, err := logger.New(cfg.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return NewWithConfig(context.Background(), cfg, log)
}

// NewWithConfig wires every component from an already loaded config.
func NewWithConfig(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	if log == nil {
		log = logger.Nop()
	}
	otelShutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: "quizforge",
		Environment: cfg.Env,
		Version:     Version,
	})
	metrics := observability.NewMetrics()

	r, err := router.New(cfg)
	if err != nil {
		return nil, err
	}

	embedRoute, ok := r.RouteForModel(cfg.Embedder.Model)
	if !ok {
		return nil, fmt.Errorf("embedder model %q not routed", cfg.Embedder.Model)
	}
	dd, err := dedupe.NewEngine(instrumentedEmbedder(embedRoute, metrics), dedupe.Options{
		Threshold:   float32(cfg.Dedupe.Threshold),
		Neighbors:   cfg.Dedupe.Neighbors,
		BatchSize:   cfg.Dedupe.BatchSize,
		Concurrency: cfg.Dedupe.Concurrency,
		MaxKeys:     cfg.Dedupe.MaxKeys,
	})
	if err != nil {
		return nil, fmt.Errorf("init dedupe: %w", err)
	}

	p := pipeline.New(dd, pipeline.Options{StemPreviewChars: cfg.Pipeline.StemPreviewChars}, log, metrics)

	genRoute, ok := r.RouteForModel(cfg.Generator.Model)
	if !ok {
		return nil, fmt.Errorf("generator model %q not routed", cfg.Generator.Model)
	}
	gen := generator.New(genRoute.Engine, p, generator.Options{
		Model:      genRoute.PublicModel,
		Upstream:   genRoute.UpstreamModel,
		MaxTokens:  cfg.Generator.MaxTokens,
		GuidedJSON: cfg.Generator.GuidedJSON,
	}, log, metrics)

	handlers := httpapi.NewHandlers(gen, p, dd, log)
	srv := httpapi.NewServer(cfg, httpapi.NewRouter(cfg, log, metrics, handlers))

	log.Info("quizforge wired",
		"env", cfg.Env,
		"models", r.ListModels(),
		"generator", cfg.Generator.Model,
		"embedder", cfg.Embedder.Model,
		"dedupe_threshold", cfg.Dedupe.Threshold,
	)

	return &App{
		Log:          log,
		Config:       cfg,
		Metrics:      metrics,
		Dedupe:       dd,
		Pipeline:     p,
		Generator:    gen,
		server:       srv,
		otelShutdown: otelShutdown,
	}, nil
}

// Handler exposes the HTTP handler without binding a listener.
func (a *App) Handler() http.Handler {
	return a.server.Handler
}

func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.Log.Info("listening", "addr", a.server.Addr)
		errCh <- a.server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.HTTP.ShutdownTimeout.Duration)
		defer cancel()
		a.Log.Info("shutting down")
		_ = a.server.Shutdown(shutdownCtx)
		a.Close(shutdownCtx)
		return nil
	case err := <-errCh:
		a.Close(context.Background())
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (a *App) Close(ctx context.Context) {
	if a == nil {
		return
	}
	if a.otelShutdown != nil {
		if err := a.otelShutdown(ctx); err != nil {
			a.Log.Warn("otel shutdown failed", "error", err)
		}
	}
	a.Log.Sync()
}
