package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/yungbote/quizforge/internal/platform/envutil"
)

type Options struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	MaxRetries int

	HTTPClient *http.Client
}

// Client talks to a running quizforge server.
type Client struct {
	baseURL    string
	apiKey     string
	timeout    time.Duration
	maxRetries int
	httpClient *http.Client
}

func New(opts Options) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("baseURL required")
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	maxRetries := opts.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}

	return &Client{
		baseURL:    baseURL,
		apiKey:     strings.TrimSpace(opts.APIKey),
		timeout:    timeout,
		maxRetries: maxRetries,
		httpClient: hc,
	}, nil
}

func NewFromEnv() (*Client, error) {
	return New(Options{
		BaseURL:    envutil.String("QF_BASE_URL", "http://localhost:8080"),
		APIKey:     envutil.String("QF_API_KEY", ""),
		Timeout:    time.Duration(envutil.Int("QF_TIMEOUT_SECONDS", 120)) * time.Second,
		MaxRetries: envutil.Int("QF_MAX_RETRIES", 2),
	})
}

func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) Health(ctx context.Context) (Health, error) {
	var out Health
	err := c.doJSON(ctx, http.MethodGet, "/health", nil, &out)
	return out, err
}

func (c *Client) Generate(ctx context.Context, req GenerateRequest) (*Result, error) {
	var out Result
	if err := c.doJSON(ctx, http.MethodPost, "/v1/generate", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Validate(ctx context.Context, req ValidateRequest) (*Result, error) {
	var out Result
	if err := c.doJSON(ctx, http.MethodPost, "/v1/validate", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Dedupe asks the server for near-duplicate pairs. A nil threshold uses the
// server default; 0 is sent as is.
func (c *Client) Dedupe(ctx context.Context, keys []string, threshold *float64) (DedupeResult, error) {
	req := dedupeRequest{Keys: keys, Threshold: threshold}
	if req.Keys == nil {
		req.Keys = []string{}
	}
	var out DedupeResult
	err := c.doJSON(ctx, http.MethodPost, "/v1/dedupe", req, &out)
	return out, err
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

func (c *Client) doJSON(ctx context.Context, method string, path string, body any, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var lastErr error
	backoff := 250 * time.Millisecond
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(buf.Bytes()))
		if err != nil {
			return err
		}
		c.setHeaders(req)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
		} else {
			raw, readErr := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
			_ = resp.Body.Close()
			if readErr != nil {
				return readErr
			}
			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				if out == nil {
					return nil
				}
				return json.Unmarshal(raw, out)
			}
			herr := parseHTTPError(resp.StatusCode, raw)
			if !herr.Retryable() {
				return herr
			}
			lastErr = herr
		}

		if attempt < c.maxRetries {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}
	}

	if lastErr == nil {
		lastErr = errors.New("request failed")
	}
	return lastErr
}
