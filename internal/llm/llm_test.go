package llm

import (
	"errors"
	"testing"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare array", `[{"a":1}]`, `[{"a":1}]`},
		{"bare object", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n[1,2]\n```", "[1,2]"},
		{"plain fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"prose wrapped", `Here is the result: [{"a":1}] hope it helps`, `[{"a":1}]`},
		{"object in prose", `Result: {"a":1}. Done.`, `{"a":1}`},
		{"no json", "I cannot help with that.", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractJSON(tt.in); got != tt.want {
				t.Errorf("ExtractJSON(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestExtractScore(t *testing.T) {
	tests := []struct {
		in       string
		fallback float64
		want     float64
	}{
		{"0.85", 0.5, 0.85},
		{"0.7 based on the evidence", 0.5, 0.7},
		{"Confidence: 0.42", 0.5, 0.42},
		{"no number here", 0.5, 0.5},
		{"", 0.3, 0.3},
	}

	for _, tt := range tests {
		if got := ExtractScore(tt.in, tt.fallback); got != tt.want {
			t.Errorf("ExtractScore(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestIsRateLimitError(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{errors.New("HTTP 429 Too Many Requests"), true},
		{errors.New("Rate limit exceeded"), true},
		{errors.New("quota exhausted for project"), true},
		{errors.New("connection refused"), false},
		{nil, false},
	}

	for _, tt := range tests {
		if got := IsRateLimitError(tt.err); got != tt.want {
			t.Errorf("IsRateLimitError(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
