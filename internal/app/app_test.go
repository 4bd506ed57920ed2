package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/quizforge/internal/config"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"LOG_MODE", "QF_HTTP_ADDR", "QF_GENERATOR_MODEL", "QF_EMBEDDER_MODEL", "QF_DEDUPE_THRESHOLD", "QF_CORS_ORIGINS", "OTEL_ENABLED"} {
		t.Setenv(k, "")
	}
}

func TestNewWithConfig_DefaultsServeHealth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	clearEnv(t)

	cfg, err := config.LoadFile("")
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	a, err := NewWithConfig(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("NewWithConfig: %v", err)
	}
	if a.Generator.Model() != "mock-1" {
		t.Fatalf("generator model=%q", a.Generator.Model())
	}
	if got := a.Dedupe.Threshold(); got < 0.919 || got > 0.921 {
		t.Fatalf("threshold=%v", got)
	}

	rr := httptest.NewRecorder()
	a.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"model":"mock-1"`) {
		t.Fatalf("health: %d %s", rr.Code, rr.Body.String())
	}

	rr = httptest.NewRecorder()
	a.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "quizforge_http_inflight_requests") {
		t.Fatalf("metrics: %d", rr.Code)
	}
}

func TestNewWithConfig_EmbedderCallsAreCounted(t *testing.T) {
	gin.SetMode(gin.TestMode)
	clearEnv(t)

	cfg, err := config.LoadFile("")
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	a, err := NewWithConfig(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("NewWithConfig: %v", err)
	}
	res, err := a.Dedupe.Deduplicate(context.Background(), []string{"one two", "one two"})
	if err != nil {
		t.Fatalf("Deduplicate: %v", err)
	}
	if len(res.Keep) != 1 {
		t.Fatalf("keep=%v", res.Keep)
	}

	rr := httptest.NewRecorder()
	a.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rr.Body.String(), `quizforge_engine_calls_total{kind="embed",model="mock-1",result="ok"} 1`) {
		t.Fatalf("embed call not counted:\n%s", rr.Body.String())
	}
}
