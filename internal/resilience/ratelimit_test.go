package resilience

import (
	"context"
	"testing"
	"time"
)

// fakeClock drives the limiter without real sleeping.
type fakeClock struct {
	t     time.Time
	slept []time.Duration
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) sleep(_ context.Context, d time.Duration) error {
	c.slept = append(c.slept, d)
	c.t = c.t.Add(d)
	return nil
}

func newTestLimiter(perMinute int) (*Limiter, *fakeClock) {
	clock := &fakeClock{t: time.Unix(1700000000, 0)}
	l := NewLimiter(perMinute, 0)
	l.now = clock.now
	l.sleep = clock.sleep
	return l, clock
}

func TestLimiterUnderCap(t *testing.T) {
	l, clock := newTestLimiter(5)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := l.Acquire(ctx); err != nil {
			t.Fatalf("acquire %d: %v", i, err)
		}
	}
	if len(clock.slept) != 0 {
		t.Errorf("expected no sleeps under cap, got %v", clock.slept)
	}
}

func TestLimiterBlocksAtCap(t *testing.T) {
	l, clock := newTestLimiter(2)
	ctx := context.Background()

	l.Acquire(ctx)
	clock.t = clock.t.Add(10 * time.Second)
	l.Acquire(ctx)

	// Third call must wait until the oldest entry leaves the window:
	// 60s - 10s elapsed = 50s.
	if err := l.Acquire(ctx); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if len(clock.slept) != 1 {
		t.Fatalf("expected one sleep, got %v", clock.slept)
	}
	if clock.slept[0] != 50*time.Second {
		t.Errorf("expected 50s wait, got %v", clock.slept[0])
	}
}

func TestLimiterWindowSlides(t *testing.T) {
	l, clock := newTestLimiter(2)
	ctx := context.Background()

	l.Acquire(ctx)
	l.Acquire(ctx)

	clock.t = clock.t.Add(61 * time.Second)
	if err := l.Acquire(ctx); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if len(clock.slept) != 0 {
		t.Errorf("expected no sleep after window expiry, got %v", clock.slept)
	}
}

func TestLimiterContextCancel(t *testing.T) {
	l := NewLimiter(1, 0)
	ctx, cancel := context.WithCancel(context.Background())

	if err := l.Acquire(ctx); err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	cancel()
	if err := l.Acquire(ctx); err == nil {
		t.Error("expected context error when blocked at cap")
	}
}
