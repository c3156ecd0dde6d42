package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/rcliao/discovery-agent/internal/config"
	"github.com/rcliao/discovery-agent/internal/resilience"
)

// Groq is the fast bulk-generation provider, spoken to over the
// OpenAI-compatible chat completions API.
type Groq struct {
	model    string
	endpoint string
	rotator  *resilience.Rotator
	limiter  *resilience.Limiter
	retry    config.RetryConfig
	client   *http.Client
	log      *zap.Logger
}

type groqRequest struct {
	Model       string        `json:"model"`
	Messages    []groqMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
}

type groqMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type groqResponse struct {
	Choices []struct {
		Message groqMessage `json:"message"`
	} `json:"choices"`
}

// NewGroq creates a Groq provider. A nil rotator yields an unavailable
// client.
func NewGroq(cfg config.LLMConfig, retry config.RetryConfig, rotator *resilience.Rotator, log *zap.Logger) *Groq {
	return &Groq{
		model:    cfg.GroqModel,
		endpoint: "https://api.groq.com/openai/v1/chat/completions",
		rotator:  rotator,
		limiter:  resilience.NewLimiter(cfg.RequestsPerMin, cfg.RequestsPerSec),
		retry:    retry,
		client:   &http.Client{Timeout: 60 * time.Second},
		log:      log,
	}
}

// Available reports whether the provider has credentials to work with.
func (g *Groq) Available() bool { return g != nil && g.rotator != nil }

// Generate produces text for the prompt.
func (g *Groq) Generate(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
	if !g.Available() {
		return "", fmt.Errorf("groq: no credentials configured")
	}

	var out string
	err := resilience.Retry(ctx, g.retry, func() error {
		if err := g.limiter.Acquire(ctx); err != nil {
			return err
		}

		key, err := g.rotator.Current()
		if err != nil {
			return err
		}

		text, err := g.complete(ctx, key, prompt, maxTokens, temperature)
		if err != nil {
			if IsRateLimitError(err) {
				g.log.Warn("groq credential rate-limited, rotating", zap.Error(err))
				g.rotator.MarkRateLimited(rateLimitCooldown)
			} else {
				g.rotator.MarkError()
			}
			return err
		}

		out = text
		g.rotator.MarkSuccess()
		return nil
	})
	return out, err
}

func (g *Groq) complete(ctx context.Context, key, prompt string, maxTokens int, temperature float64) (string, error) {
	body, _ := json.Marshal(groqRequest{
		Model:       g.model,
		Messages:    []groqMessage{{Role: "user", Content: prompt}},
		MaxTokens:   maxTokens,
		Temperature: temperature,
	})

	req, err := http.NewRequestWithContext(ctx, "POST", g.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+key)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("groq request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("groq error %d: %s", resp.StatusCode, string(b))
	}

	var result groqResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("groq returned no choices")
	}
	return result.Choices[0].Message.Content, nil
}
