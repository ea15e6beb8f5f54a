package logging

import (
	"log/slog"
	"net/http"
	"regexp"
	"strings"
)

// Redacted replaces masked secrets.
const Redacted = "[REDACTED]"

// Redactor masks credentials in log attributes.
type Redactor struct {
	patterns []*redactPattern
}

// redactPattern contains a compiled regex and replacement string.
type redactPattern struct {
	name        string
	regex       *regexp.Regexp
	replacement string
}

// Pattern names.
const (
	PatternBearerToken = "bearer_token"
	PatternAPIKey      = "api_key"
)

// NewRedactor creates a Redactor with the built-in patterns. Bearer tokens
// are matched first so "Bearer sk-..." collapses to a single marker.
func NewRedactor() *Redactor {
	return &Redactor{
		patterns: []*redactPattern{
			{
				name:        PatternBearerToken,
				regex:       regexp.MustCompile(`Bearer\s+[A-Za-z0-9\-._~+/]+=*`),
				replacement: "Bearer " + Redacted,
			},
			{
				name:        PatternAPIKey,
				regex:       regexp.MustCompile(`\bsk-[A-Za-z0-9][A-Za-z0-9\-_]{7,}`),
				replacement: "sk-" + Redacted,
			},
		},
	}
}

// RedactString masks secrets embedded in value.
func (r *Redactor) RedactString(value string) string {
	if value == "" {
		return value
	}

	redacted := value
	for _, pattern := range r.patterns {
		redacted = pattern.regex.ReplaceAllString(redacted, pattern.replacement)
	}

	return redacted
}

// ReplaceAttr is a slog.HandlerOptions.ReplaceAttr hook.
func (r *Redactor) ReplaceAttr(_ []string, a slog.Attr) slog.Attr {
	if isSensitiveKey(a.Key) {
		return slog.String(a.Key, r.redactSensitive(a.Value))
	}

	switch a.Value.Kind() {
	case slog.KindString:
		if s := a.Value.String(); s != "" {
			a.Value = slog.StringValue(r.RedactString(s))
		}
	case slog.KindAny:
		switch v := a.Value.Any().(type) {
		case http.Header:
			a.Value = slog.AnyValue(r.redactHeader(v))
		case error:
			a.Value = slog.StringValue(r.RedactString(v.Error()))
		}
	}
	return a
}

// redactSensitive fully masks the value of a sensitive attribute, keeping
// the auth scheme so logs still show which kind of credential was sent.
func (r *Redactor) redactSensitive(v slog.Value) string {
	if v.Kind() == slog.KindString {
		s := v.String()
		if s == "" {
			return ""
		}
		if strings.HasPrefix(s, "Bearer ") || s == "Bearer" {
			return "Bearer " + Redacted
		}
	}
	return Redacted
}

func (r *Redactor) redactHeader(h http.Header) http.Header {
	out := make(http.Header, len(h))
	for k, values := range h {
		masked := make([]string, len(values))
		for i, v := range values {
			if isSensitiveKey(k) {
				masked[i] = r.redactSensitive(slog.StringValue(v))
			} else {
				masked[i] = r.RedactString(v)
			}
		}
		out[k] = masked
	}
	return out
}

var sensitiveKeys = map[string]struct{}{
	"authorization":       {},
	"proxy-authorization": {},
	"api_key":             {},
	"apikey":              {},
	"x-api-key":           {},
	"token":               {},
	"access_token":        {},
	"secret":              {},
	"password":            {},
	"cookie":              {},
	"set-cookie":          {},
}

// isSensitiveKey reports whether key names a credential. Suffix matching
// catches "upstream_token" but not counters such as "prompt_tokens".
func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	if _, ok := sensitiveKeys[lower]; ok {
		return true
	}
	return strings.HasSuffix(lower, "_token") ||
		strings.HasSuffix(lower, "_secret") ||
		strings.HasSuffix(lower, "_api_key")
}
