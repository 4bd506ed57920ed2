package config

import "time"

// Duration accepts "5s" style strings or integer nanoseconds in JSON and YAML.
type Duration struct {
	Duration time.Duration
}

type HTTPConfig struct {
	Addr              string   `json:"addr" yaml:"addr"`
	ReadHeaderTimeout Duration `json:"read_header_timeout" yaml:"read_header_timeout"`
	IdleTimeout       Duration `json:"idle_timeout" yaml:"idle_timeout"`
	ShutdownTimeout   Duration `json:"shutdown_timeout" yaml:"shutdown_timeout"`
	MaxRequestBytes   int64    `json:"max_request_bytes" yaml:"max_request_bytes"`
	CORSOrigins       []string `json:"cors_origins,omitempty" yaml:"cors_origins,omitempty"`
}

type JSONSchemaConfig struct {
	// Mode controls how a response schema is requested from upstream engines.
	// - "none": schema hints are ignored
	// - "guided_json": send guided decoding fields (vLLM-style servers)
	// - "prompt": append a system instruction carrying the schema text
	Mode string `json:"mode,omitempty" yaml:"mode,omitempty"`

	// MaxPromptBytes caps how much schema JSON is injected in "prompt" mode.
	MaxPromptBytes int `json:"max_prompt_bytes,omitempty" yaml:"max_prompt_bytes,omitempty"`
}

type EngineConfig struct {
	Type string `json:"type" yaml:"type"`

	// BaseURL is the upstream base URL for "oai_http" engines.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`

	// APIKey is sent as `Authorization: Bearer <api_key>` when set.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	ChatCompletionsPath string `json:"chat_completions_path,omitempty" yaml:"chat_completions_path,omitempty"`
	EmbeddingsPath      string `json:"embeddings_path,omitempty" yaml:"embeddings_path,omitempty"`

	Timeout Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`

	JSONSchema JSONSchemaConfig `json:"json_schema,omitempty" yaml:"json_schema,omitempty"`
}

type ModelConfig struct {
	ID string `json:"id" yaml:"id"`

	// UpstreamModel overrides the model name sent to the engine. Defaults to ID.
	UpstreamModel string `json:"upstream_model,omitempty" yaml:"upstream_model,omitempty"`

	Engine EngineConfig `json:"engine" yaml:"engine"`
}

type GeneratorConfig struct {
	Model     string `json:"model" yaml:"model"`
	MaxTokens int    `json:"max_tokens" yaml:"max_tokens"`
	// GuidedJSON sends the question array schema along with the prompt.
	GuidedJSON bool `json:"guided_json,omitempty" yaml:"guided_json,omitempty"`
}

type EmbedderConfig struct {
	Model string `json:"model" yaml:"model"`
}

type DedupeConfig struct {
	Threshold   float64 `json:"threshold" yaml:"threshold"`
	Neighbors   int     `json:"neighbors" yaml:"neighbors"`
	BatchSize   int     `json:"batch_size" yaml:"batch_size"`
	Concurrency int     `json:"concurrency" yaml:"concurrency"`
	// MaxKeys caps the keys accepted by one dedupe call.
	MaxKeys     int     `json:"max_keys" yaml:"max_keys"`
}

type PipelineConfig struct {
	// StemPreviewChars bounds the stem excerpt in rejection log lines.
	StemPreviewChars int `json:"stem_preview_chars" yaml:"stem_preview_chars"`
}

type Config struct {
	Env       string          `json:"env" yaml:"env"`
	HTTP      HTTPConfig      `json:"http" yaml:"http"`
	Models    []ModelConfig   `json:"models" yaml:"models"`
	Generator GeneratorConfig `json:"generator" yaml:"generator"`
	Embedder  EmbedderConfig  `json:"embedder" yaml:"embedder"`
	Dedupe    DedupeConfig    `json:"dedupe" yaml:"dedupe"`
	Pipeline  PipelineConfig  `json:"pipeline" yaml:"pipeline"`
}
