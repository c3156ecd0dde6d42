package llm

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/rcliao/discovery-agent/internal/config"
	"github.com/rcliao/discovery-agent/internal/resilience"
)

// rateLimitCooldown is how long a credential sits out after a quota
// rejection.
const rateLimitCooldown = time.Hour

// Gemini is the high-quality provider used for refinement and gap judgment.
type Gemini struct {
	model   string
	rotator *resilience.Rotator
	limiter *resilience.Limiter
	retry   config.RetryConfig
	log     *zap.Logger

	// client is cached per credential; rotation rebuilds it.
	client    *genai.Client
	clientKey string
}

// NewGemini creates a Gemini provider. A nil rotator yields an unavailable
// client, letting the pipeline run in degraded mode.
func NewGemini(cfg config.LLMConfig, retry config.RetryConfig, rotator *resilience.Rotator, log *zap.Logger) *Gemini {
	return &Gemini{
		model:   cfg.GeminiModel,
		rotator: rotator,
		limiter: resilience.NewLimiter(cfg.RequestsPerMin, cfg.RequestsPerSec),
		retry:   retry,
		log:     log,
	}
}

// Available reports whether the provider has credentials to work with.
func (g *Gemini) Available() bool { return g != nil && g.rotator != nil }

// Generate produces text for the prompt, rotating credentials on quota
// rejections and retrying transient failures with backoff.
func (g *Gemini) Generate(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
	if !g.Available() {
		return "", fmt.Errorf("gemini: no credentials configured")
	}

	var out string
	err := resilience.Retry(ctx, g.retry, func() error {
		if err := g.limiter.Acquire(ctx); err != nil {
			return err
		}

		client, err := g.currentClient(ctx)
		if err != nil {
			return err
		}

		resp, err := client.Models.GenerateContent(ctx, g.model,
			genai.Text(prompt),
			&genai.GenerateContentConfig{
				Temperature:     genai.Ptr(float32(temperature)),
				MaxOutputTokens: int32(maxTokens),
			})
		if err != nil {
			if IsRateLimitError(err) {
				g.log.Warn("gemini credential rate-limited, rotating", zap.Error(err))
				g.rotator.MarkRateLimited(rateLimitCooldown)
			} else {
				g.rotator.MarkError()
			}
			return fmt.Errorf("gemini generate: %w", err)
		}

		out = resp.Text()
		g.rotator.MarkSuccess()
		return nil
	})
	return out, err
}

func (g *Gemini) currentClient(ctx context.Context) (*genai.Client, error) {
	key, err := g.rotator.Current()
	if err != nil {
		return nil, err
	}
	if g.client != nil && g.clientKey == key {
		return g.client, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: key})
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	g.client = client
	g.clientKey = key
	return client, nil
}
