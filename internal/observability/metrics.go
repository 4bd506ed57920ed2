package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private Prometheus registry so several instances (tests,
// tools) never collide on registration.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpLatency  *prometheus.HistogramVec
	httpInflight prometheus.Gauge

	items         *prometheus.CounterVec
	parseFailures prometheus.Counter
	dedupePairs   prometheus.Counter
	stageLatency  *prometheus.HistogramVec
	engineCalls   *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quizforge_http_requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "quizforge_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 15, 60},
		}, []string{"method", "route"}),
		httpInflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "quizforge_http_inflight_requests",
			Help: "HTTP requests currently being served.",
		}),
		items: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quizforge_pipeline_items_total",
			Help: "Candidate items by outcome (kept, ungrounded, not_mcq, duplicate).",
		}, []string{"outcome"}),
		parseFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "quizforge_pipeline_parse_failures_total",
			Help: "Model responses rejected as unparsable.",
		}),
		dedupePairs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "quizforge_dedupe_pairs_total",
			Help: "Near-duplicate pairs found.",
		}),
		stageLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "quizforge_pipeline_stage_duration_seconds",
			Help:    "Pipeline stage latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"stage"}),
		engineCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quizforge_engine_calls_total",
			Help: "Calls to generative and embedding models by kind, model and result.",
		}, []string{"kind", "model", "result"}),
	}
	m.registry.MustRegister(
		m.httpRequests, m.httpLatency, m.httpInflight,
		m.items, m.parseFailures, m.dedupePairs, m.stageLatency, m.engineCalls,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) InflightInc() {
	if m != nil {
		m.httpInflight.Inc()
	}
}

func (m *Metrics) InflightDec() {
	if m != nil {
		m.httpInflight.Dec()
	}
}

func (m *Metrics) ObserveHTTP(method, route, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, status).Inc()
	m.httpLatency.WithLabelValues(method, route).Observe(d.Seconds())
}

func (m *Metrics) AddItems(outcome string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.items.WithLabelValues(outcome).Add(float64(n))
}

func (m *Metrics) IncParseFailure() {
	if m != nil {
		m.parseFailures.Inc()
	}
}

func (m *Metrics) AddDedupePairs(n int) {
	if m != nil && n > 0 {
		m.dedupePairs.Add(float64(n))
	}
}

func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m != nil {
		m.stageLatency.WithLabelValues(stage).Observe(d.Seconds())
	}
}

func (m *Metrics) ObserveEngineCall(kind, model string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.engineCalls.WithLabelValues(kind, model, result).Inc()
}
