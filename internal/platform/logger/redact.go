package logger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/yungbote/quizforge/internal/platform/envutil"
)

// Redactor rewrites log fields before they reach zap. Credentials are
// replaced, client identifiers are hashed, and document-sized text (source
// material, raw model output, prompts) is reduced to a length and digest.
type Redactor struct {
	Salt string
	// MaxTextChars is the longest text field logged verbatim.
	MaxTextChars int
}

func RedactorFromEnv() *Redactor {
	if !envutil.Bool("LOG_REDACTION_ENABLED", true) {
		return nil
	}
	return &Redactor{
		Salt:         envutil.String("LOG_HASH_SALT", ""),
		MaxTextChars: envutil.Int("LOG_MAX_TEXT_CHARS", 200),
	}
}

type fieldRule int

const (
	ruleKeep fieldRule = iota
	ruleSecret
	ruleHash
	ruleText
)

func classify(key string) fieldRule {
	key = strings.ToLower(strings.TrimSpace(key))
	switch {
	case key == "":
		return ruleKeep
	case strings.Contains(key, "authorization"),
		strings.Contains(key, "api_key"),
		strings.Contains(key, "apikey"),
		strings.Contains(key, "token"),
		strings.Contains(key, "secret"),
		strings.Contains(key, "password"):
		return ruleSecret
	case strings.Contains(key, "client_ip"):
		return ruleHash
	case strings.Contains(key, "source"),
		strings.Contains(key, "raw_output"),
		strings.Contains(key, "prompt"),
		strings.Contains(key, "completion"):
		return ruleText
	default:
		return ruleKeep
	}
}

// Fields filters a zap-style key/value list. A nil Redactor returns kv as is.
func (r *Redactor) Fields(kv []interface{}) []interface{} {
	if r == nil || len(kv) == 0 {
		return kv
	}
	out := make([]interface{}, 0, len(kv))
	for i := 0; i < len(kv); i += 2 {
		if i == len(kv)-1 {
			out = append(out, kv[i])
			break
		}
		key := toString(kv[i])
		out = append(out, key, r.value(classify(key), kv[i+1]))
	}
	return out
}

func (r *Redactor) value(rule fieldRule, val interface{}) interface{} {
	switch rule {
	case ruleSecret:
		return "[REDACTED]"
	case ruleHash:
		return "hash:" + r.digest(toString(val))
	case ruleText:
		s, ok := val.(string)
		if !ok || utf8.RuneCountInString(s) <= r.MaxTextChars {
			return val
		}
		return fmt.Sprintf("[%d chars sha:%s]", utf8.RuneCountInString(s), r.digest(s))
	default:
		if s, ok := val.(string); ok && strings.HasPrefix(strings.ToLower(s), "bearer ") {
			return "[REDACTED]"
		}
		return val
	}
}

func (r *Redactor) digest(s string) string {
	h := sha256.New()
	_, _ = h.Write([]byte(r.Salt))
	_, _ = h.Write([]byte(s))
	return hex.EncodeToString(h.Sum(nil))[:12]
}

func toString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}
