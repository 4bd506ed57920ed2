package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

func (d *Duration) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "" || s == "null" {
		d.Duration = 0
		return nil
	}
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		u, err := strconv.Unquote(s)
		if err != nil {
			return err
		}
		return d.parse(u)
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("duration must be a JSON string like \"5s\" or an int nanoseconds: %w", err)
	}
	d.Duration = time.Duration(n)
	return nil
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("duration must be a scalar, line %d", node.Line)
	}
	if node.ShortTag() == "!!int" {
		n, err := strconv.ParseInt(node.Value, 10, 64)
		if err != nil {
			return err
		}
		d.Duration = time.Duration(n)
		return nil
	}
	return d.parse(node.Value)
}

func (d *Duration) parse(s string) error {
	if strings.TrimSpace(s) == "" {
		d.Duration = 0
		return nil
	}
	dd, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return err
	}
	d.Duration = dd
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Duration.String())
}

var defaultCORSOrigins = []string{
	"http://localhost:5173",
	"http://127.0.0.1:5173",
}

func defaultConfig() *Config {
	return &Config{
		Env: "development",
		HTTP: HTTPConfig{
			Addr:              ":8080",
			ReadHeaderTimeout: Duration{Duration: 5 * time.Second},
			IdleTimeout:       Duration{Duration: 2 * time.Minute},
			ShutdownTimeout:   Duration{Duration: 15 * time.Second},
			MaxRequestBytes:   10 << 20,
			CORSOrigins:       append([]string(nil), defaultCORSOrigins...),
		},
		Models: []ModelConfig{
			{ID: "mock-1", Engine: EngineConfig{Type: "mock"}},
		},
		Generator: GeneratorConfig{MaxTokens: 1200},
		Dedupe: DedupeConfig{
			Threshold:   0.92,
			Neighbors:   5,
			BatchSize:   32,
			Concurrency: 4,
			MaxKeys:     200,
		},
		Pipeline: PipelineConfig{StemPreviewChars: 80},
	}
}

// Load builds the config from defaults, an optional file (QF_CONFIG_PATH or
// config/config.{json,yaml,yml} in the working directory) and environment
// overrides.
func Load() (*Config, error) {
	cfgPath := strings.TrimSpace(os.Getenv("QF_CONFIG_PATH"))
	if cfgPath == "" {
		if wd, err := os.Getwd(); err == nil {
			for _, name := range []string{"config.json", "config.yaml", "config.yml"} {
				p := filepath.Join(wd, "config", name)
				if _, err := os.Stat(p); err == nil {
					cfgPath = p
					break
				}
			}
		}
	}
	return LoadFile(cfgPath)
}

// LoadFile is Load with an explicit file path; an empty path means defaults
// plus environment.
func LoadFile(path string) (*Config, error) {
	cfg := defaultConfig()

	if strings.TrimSpace(path) != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := decode(path, b, cfg); err != nil {
			return nil, fmt.Errorf("config %s: %w", path, err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := normalize(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// decode overlays file values on top of the defaults already in cfg.
func decode(path string, b []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(b, cfg)
	default:
		return json.Unmarshal(b, cfg)
	}
}

func applyEnv(cfg *Config) error {
	if v := strings.TrimSpace(os.Getenv("LOG_MODE")); v != "" {
		cfg.Env = v
	}
	if v := strings.TrimSpace(os.Getenv("QF_HTTP_ADDR")); v != "" {
		cfg.HTTP.Addr = v
	}
	if v := strings.TrimSpace(os.Getenv("QF_GENERATOR_MODEL")); v != "" {
		cfg.Generator.Model = v
	}
	if v := strings.TrimSpace(os.Getenv("QF_EMBEDDER_MODEL")); v != "" {
		cfg.Embedder.Model = v
	}
	if v := strings.TrimSpace(os.Getenv("QF_DEDUPE_THRESHOLD")); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("QF_DEDUPE_THRESHOLD: %w", err)
		}
		cfg.Dedupe.Threshold = f
	}
	if v := strings.TrimSpace(os.Getenv("QF_DEDUPE_MAX_KEYS")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("QF_DEDUPE_MAX_KEYS: %w", err)
		}
		cfg.Dedupe.MaxKeys = n
	}
	if v := strings.TrimSpace(os.Getenv("QF_CORS_ORIGINS")); v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		cfg.HTTP.CORSOrigins = origins
	}
	return nil
}

func normalize(cfg *Config) error {
	if cfg.Env == "" {
		cfg.Env = "development"
	}
	if strings.TrimSpace(cfg.HTTP.Addr) == "" {
		cfg.HTTP.Addr = ":8080"
	}
	if cfg.HTTP.MaxRequestBytes <= 0 {
		cfg.HTTP.MaxRequestBytes = 10 << 20
	}
	if cfg.HTTP.ShutdownTimeout.Duration <= 0 {
		cfg.HTTP.ShutdownTimeout = Duration{Duration: 15 * time.Second}
	}

	if len(cfg.Models) == 0 {
		return errors.New("config must define at least one model")
	}
	ids := make(map[string]struct{}, len(cfg.Models))
	for i := range cfg.Models {
		m := &cfg.Models[i]
		m.ID = strings.TrimSpace(m.ID)
		if m.ID == "" {
			return errors.New("model id is required")
		}
		ids[m.ID] = struct{}{}
		if err := normalizeModel(m); err != nil {
			return err
		}
	}

	cfg.Generator.Model = strings.TrimSpace(cfg.Generator.Model)
	if cfg.Generator.Model == "" {
		cfg.Generator.Model = cfg.Models[0].ID
	}
	if _, ok := ids[cfg.Generator.Model]; !ok {
		return fmt.Errorf("generator.model %q is not a configured model", cfg.Generator.Model)
	}
	if cfg.Generator.MaxTokens <= 0 {
		cfg.Generator.MaxTokens = 1200
	}

	cfg.Embedder.Model = strings.TrimSpace(cfg.Embedder.Model)
	if cfg.Embedder.Model == "" {
		cfg.Embedder.Model = cfg.Models[0].ID
	}
	if _, ok := ids[cfg.Embedder.Model]; !ok {
		return fmt.Errorf("embedder.model %q is not a configured model", cfg.Embedder.Model)
	}

	if cfg.Dedupe.Threshold <= 0 || cfg.Dedupe.Threshold > 1 {
		return fmt.Errorf("dedupe.threshold must be in (0, 1], got %v", cfg.Dedupe.Threshold)
	}
	if cfg.Dedupe.Neighbors <= 0 {
		cfg.Dedupe.Neighbors = 5
	}
	if cfg.Dedupe.BatchSize <= 0 {
		cfg.Dedupe.BatchSize = 32
	}
	if cfg.Dedupe.Concurrency <= 0 {
		cfg.Dedupe.Concurrency = 4
	}
	if cfg.Dedupe.MaxKeys <= 0 {
		cfg.Dedupe.MaxKeys = 200
	}
	if cfg.Pipeline.StemPreviewChars <= 0 {
		cfg.Pipeline.StemPreviewChars = 80
	}
	return nil
}

func normalizeModel(m *ModelConfig) error {
	if strings.TrimSpace(m.Engine.Type) == "" {
		return fmt.Errorf("model %q missing engine.type", m.ID)
	}
	if strings.TrimSpace(m.UpstreamModel) == "" {
		m.UpstreamModel = m.ID
	}

	m.Engine.Type = strings.ToLower(strings.TrimSpace(m.Engine.Type))
	m.Engine.BaseURL = strings.TrimRight(strings.TrimSpace(m.Engine.BaseURL), "/")
	m.Engine.ChatCompletionsPath = strings.TrimSpace(m.Engine.ChatCompletionsPath)
	m.Engine.EmbeddingsPath = strings.TrimSpace(m.Engine.EmbeddingsPath)

	switch m.Engine.Type {
	case "mock":
		return nil
	case "openai_http", "oai_http":
		m.Engine.Type = "oai_http"
	default:
		return fmt.Errorf("model %q unsupported engine.type=%q", m.ID, m.Engine.Type)
	}

	if m.Engine.BaseURL == "" {
		return fmt.Errorf("model %q (oai_http) missing engine.base_url", m.ID)
	}
	if m.Engine.ChatCompletionsPath == "" {
		m.Engine.ChatCompletionsPath = "/v1/chat/completions"
	}
	if m.Engine.EmbeddingsPath == "" {
		m.Engine.EmbeddingsPath = "/v1/embeddings"
	}
	if m.Engine.Timeout.Duration <= 0 {
		m.Engine.Timeout = Duration{Duration: 60 * time.Second}
	}

	m.Engine.JSONSchema.Mode = strings.ToLower(strings.TrimSpace(m.Engine.JSONSchema.Mode))
	switch m.Engine.JSONSchema.Mode {
	case "":
		m.Engine.JSONSchema.Mode = "none"
	case "none", "guided_json", "prompt":
	default:
		return fmt.Errorf("model %q invalid engine.json_schema.mode=%q", m.ID, m.Engine.JSONSchema.Mode)
	}
	if m.Engine.JSONSchema.MaxPromptBytes < 0 {
		return fmt.Errorf("model %q invalid engine.json_schema.max_prompt_bytes", m.ID)
	}
	if m.Engine.JSONSchema.MaxPromptBytes == 0 {
		m.Engine.JSONSchema.MaxPromptBytes = 64 << 10
	}
	return nil
}
