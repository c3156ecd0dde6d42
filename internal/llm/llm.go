// Package llm provides a pluggable interface for language-model providers.
//
// Provider output is always untrusted free text; the helpers here locate
// embedded JSON and numeric tokens so parse failures can degrade to
// documented defaults instead of surfacing.
package llm

import (
	"context"
	"strconv"
	"strings"
)

// Client generates text from a prompt.
type Client interface {
	Generate(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error)
	Available() bool
}

// ExtractJSON strips markdown code fences and surrounding prose from a model
// response, returning the first JSON array or object found. Returns "" when
// no JSON-looking payload is present.
func ExtractJSON(response string) string {
	s := strings.TrimSpace(response)

	if strings.HasPrefix(s, "```json") {
		s = strings.TrimPrefix(s, "```json")
	} else if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "[") || strings.HasPrefix(s, "{") {
		return s
	}

	// Models often wrap the payload in prose; take the outermost bracket pair.
	for _, pair := range [][2]string{{"[", "]"}, {"{", "}"}} {
		start := strings.Index(s, pair[0])
		end := strings.LastIndex(s, pair[1])
		if start >= 0 && end > start {
			return s[start : end+1]
		}
	}
	return ""
}

// ExtractScore pulls the first numeric token out of a response, returning
// fallback when none parses.
func ExtractScore(response string, fallback float64) float64 {
	for _, field := range strings.Fields(response) {
		field = strings.Trim(field, "*:()[],")
		if v, err := strconv.ParseFloat(field, 64); err == nil {
			return v
		}
	}
	return fallback
}

// IsRateLimitError reports whether an error message looks like a quota or
// rate-limit rejection.
func IsRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "quota")
}
