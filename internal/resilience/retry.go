// Package resilience wraps external calls with retry, rate limiting, and
// credential rotation.
package resilience

import (
	"context"
	"math"
	"time"

	"github.com/rcliao/discovery-agent/internal/config"
)

// Retry invokes fn up to cfg.MaxRetries+1 times, sleeping
// InitialDelay * Base^attempt between attempts, capped at MaxDelay. The last
// error is returned after exhaustion. Context cancellation interrupts the
// backoff sleep.
func Retry(ctx context.Context, cfg config.RetryConfig, fn func() error) error {
	base := cfg.Base
	if base <= 1 {
		base = 2
	}

	var last error
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		last = fn()
		if last == nil {
			return nil
		}
		if attempt == cfg.MaxRetries {
			break
		}

		delay := time.Duration(float64(cfg.InitialDelay) * math.Pow(base, float64(attempt)))
		if cfg.MaxDelay > 0 && delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return last
}
