package observability

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.27.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/quizforge/internal/platform/envutil"
	"github.com/yungbote/quizforge/internal/platform/logger"
)

const tracerName = "github.com/yungbote/quizforge"

type OtelConfig struct {
	ServiceName string
	Environment string
	Version     string
}

var (
	otelOnce     sync.Once
	otelShutdown = func(context.Context) error { return nil }
)

// Tracer returns the process tracer. Spans are no-ops until InitOTel installs
// a provider.
func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// traceSettings is the OTEL_* environment as InitOTel uses it.
type traceSettings struct {
	Enabled  bool
	Ratio    float64
	Endpoint string
	Insecure bool
	Headers  map[string]string
}

func traceSettingsFromEnv() traceSettings {
	ratio := envutil.Float("OTEL_SAMPLER_RATIO", 0.1)
	if ratio < 0 {
		ratio = 0
	} else if ratio > 1 {
		ratio = 1
	}
	return traceSettings{
		Enabled:  envutil.Bool("OTEL_ENABLED", false),
		Ratio:    ratio,
		Endpoint: envutil.String("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		Insecure: envutil.Bool("OTEL_EXPORTER_OTLP_INSECURE", false),
		Headers:  envutil.KeyValues("OTEL_EXPORTER_OTLP_HEADERS"),
	}
}

// InitOTel installs the global tracer provider when OTEL_ENABLED is set. The
// returned func flushes and stops it; it is safe to call when tracing is off.
func InitOTel(ctx context.Context, log *logger.Logger, cfg OtelConfig) func(context.Context) error {
	otelOnce.Do(func() {
		st := traceSettingsFromEnv()
		if !st.Enabled {
			return
		}
		if log == nil {
			log = logger.Nop()
		}
		tp := newTracerProvider(ctx, log, cfg, st)
		otel.SetTracerProvider(tp)
		otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		))
		otelShutdown = tp.Shutdown
		log.Info("tracing enabled", "service", serviceName(cfg), "endpoint", st.Endpoint, "ratio", st.Ratio)
	})
	return otelShutdown
}

func serviceName(cfg OtelConfig) string {
	if name := strings.TrimSpace(cfg.ServiceName); name != "" {
		return name
	}
	return "quizforge"
}

// newTracerProvider never fails: a broken resource or exporter is logged and
// the provider runs without it.
func newTracerProvider(ctx context.Context, log *logger.Logger, cfg OtelConfig, st traceSettings) *sdktrace.TracerProvider {
	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceNameKey.String(serviceName(cfg)),
		semconv.ServiceVersionKey.String(strings.TrimSpace(cfg.Version)),
		attribute.String("deployment.environment", strings.TrimSpace(cfg.Environment)),
	))
	if err != nil {
		log.Warn("trace resource incomplete", "error", err)
	}
	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(st.Ratio))),
		sdktrace.WithResource(res),
	}
	exp, err := newSpanExporter(ctx, st)
	switch {
	case err != nil:
		log.Warn("span exporter unavailable, spans are dropped", "error", err)
	case st.Endpoint == "":
		log.Warn("no OTLP endpoint, spans go to stdout")
	}
	if exp != nil {
		opts = append(opts, sdktrace.WithBatcher(exp, sdktrace.WithBatchTimeout(5*time.Second)))
	}
	return sdktrace.NewTracerProvider(opts...)
}

func newSpanExporter(ctx context.Context, st traceSettings) (sdktrace.SpanExporter, error) {
	if st.Endpoint == "" {
		return stdouttrace.New(stdouttrace.WithPrettyPrint())
	}
	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(st.Endpoint)}
	if st.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	if len(st.Headers) > 0 {
		opts = append(opts, otlptracehttp.WithHeaders(st.Headers))
	}
	return otlptracehttp.New(ctx, opts...)
}
