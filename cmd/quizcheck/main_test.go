package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const source = "The sky is blue. The grass is green."

const goodRaw = `[{"type":"mcq_single","stem":"What colour is the sky?","options":{"A":"blue","B":"green","C":"red","D":"grey"},"correct_option":"A","explanation":"Stated.","citation":{"quote":"sky is blue","quote_start":4,"quote_end":15},"difficulty":"easy"}]`

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"QF_CONFIG_PATH", "LOG_MODE", "QF_HTTP_ADDR", "QF_GENERATOR_MODEL", "QF_EMBEDDER_MODEL", "QF_DEDUPE_THRESHOLD", "QF_DEDUPE_MAX_KEYS", "QF_CORS_ORIGINS", "OTEL_ENABLED"} {
		t.Setenv(k, "")
	}
}

func writeSource(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "source.txt")
	if err := os.WriteFile(p, []byte(source), 0o600); err != nil {
		t.Fatalf("write source: %v", err)
	}
	return p
}

func TestRun_MissingSource(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := run(context.Background(), nil, strings.NewReader(goodRaw), &stdout, &stderr); code != 1 {
		t.Fatalf("code=%d", code)
	}
	if !strings.Contains(stderr.String(), "-source is required") {
		t.Fatalf("stderr=%q", stderr.String())
	}
}

func TestRun_LocalKeepsGroundedItem(t *testing.T) {
	clearEnv(t)
	var stdout, stderr bytes.Buffer
	args := []string{"-source", writeSource(t), "-file", "notes.pdf", "-page", "3"}
	if code := run(context.Background(), args, strings.NewReader(goodRaw), &stdout, &stderr); code != 0 {
		t.Fatalf("code=%d stderr=%s", code, stderr.String())
	}
	var out struct {
		Kept []struct {
			Citation struct {
				File string `json:"file"`
				Page *int   `json:"page"`
			} `json:"citation"`
		} `json:"kept"`
		Rejected []string `json:"rejected"`
	}
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", stdout.String(), err)
	}
	if len(out.Kept) != 1 || len(out.Rejected) != 0 {
		t.Fatalf("unexpected output: %s", stdout.String())
	}
	if c := out.Kept[0].Citation; c.File != "notes.pdf" || c.Page == nil || *c.Page != 3 {
		t.Fatalf("citation not backfilled: %+v", c)
	}
}

func TestRun_LocalParseFailureReturnsTwo(t *testing.T) {
	clearEnv(t)
	var stdout, stderr bytes.Buffer
	args := []string{"-source", writeSource(t)}
	if code := run(context.Background(), args, strings.NewReader("Here are your questions!"), &stdout, &stderr); code != 2 {
		t.Fatalf("code=%d stderr=%s", code, stderr.String())
	}
	if !strings.Contains(stderr.String(), "unparsable response") {
		t.Fatalf("stderr=%q", stderr.String())
	}
	if stdout.Len() != 0 {
		t.Fatalf("stdout=%q", stdout.String())
	}
}

func TestRun_RemoteInvalidOutputReturnsTwo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/validate" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"Invalid JSON from model: empty response","code":"invalid_model_output"}}`))
	}))
	defer srv.Close()

	var stdout, stderr bytes.Buffer
	args := []string{"-source", writeSource(t), "-server", srv.URL}
	if code := run(context.Background(), args, strings.NewReader("[]"), &stdout, &stderr); code != 2 {
		t.Fatalf("code=%d stderr=%s", code, stderr.String())
	}
}
