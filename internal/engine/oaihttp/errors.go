package oaihttp

import (
	"encoding/json"
	"fmt"
	"strings"
)

// HTTPError is a non-2xx reply from an OpenAI-compatible server. Message is
// taken from the {"error":{"message":...}} envelope when present.
type HTTPError struct {
	StatusCode int
	Message    string
	Body       string
}

func newHTTPError(status int, raw []byte) *HTTPError {
	herr := &HTTPError{StatusCode: status, Body: strings.TrimSpace(string(raw))}
	var env struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(raw, &env) == nil {
		herr.Message = strings.TrimSpace(env.Error.Message)
	}
	return herr
}

func (e *HTTPError) Error() string {
	if e == nil {
		return "upstream http error"
	}
	if e.Message != "" {
		return fmt.Sprintf("upstream http error: status=%d message=%s", e.StatusCode, e.Message)
	}
	if e.Body == "" {
		return fmt.Sprintf("upstream http error: status=%d", e.StatusCode)
	}
	return fmt.Sprintf("upstream http error: status=%d body=%s", e.StatusCode, e.Body)
}
