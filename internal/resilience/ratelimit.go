package resilience

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter enforces a sliding one-minute call cap plus an optional per-second
// cap. Acquire blocks only as long as the tighter bound requires.
type Limiter struct {
	mu        sync.Mutex
	perMinute int
	window    []time.Time
	second    *rate.Limiter

	now   func() time.Time
	sleep func(context.Context, time.Duration) error
}

// NewLimiter creates a limiter allowing perMinute calls per minute and, when
// perSecond > 0, perSecond calls per second.
func NewLimiter(perMinute, perSecond int) *Limiter {
	l := &Limiter{
		perMinute: perMinute,
		now:       time.Now,
		sleep:     sleepCtx,
	}
	if perSecond > 0 {
		l.second = rate.NewLimiter(rate.Limit(perSecond), perSecond)
	}
	return l
}

// Acquire blocks until a call is permitted under both caps.
func (l *Limiter) Acquire(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.perMinute > 0 {
		now := l.now()
		l.prune(now)

		if len(l.window) >= l.perMinute {
			wait := time.Minute - now.Sub(l.window[0])
			if wait > 0 {
				if err := l.sleep(ctx, wait); err != nil {
					return err
				}
			}
			l.prune(l.now())
		}
		l.window = append(l.window, l.now())
	}

	if l.second != nil {
		return l.second.Wait(ctx)
	}
	return nil
}

// prune drops window entries older than one minute.
func (l *Limiter) prune(now time.Time) {
	i := 0
	for i < len(l.window) && now.Sub(l.window[i]) >= time.Minute {
		i++
	}
	l.window = l.window[i:]
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
