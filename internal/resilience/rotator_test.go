package resilience

import (
	"errors"
	"testing"
	"time"
)

func TestRotatorSkipsRateLimited(t *testing.T) {
	r, err := NewRotator("test", []string{"k1", "k2", "k3"})
	if err != nil {
		t.Fatalf("new rotator: %v", err)
	}

	r.MarkRateLimited(time.Hour)
	r.MarkRateLimited(time.Hour)

	key, err := r.Current()
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	if key != "k3" {
		t.Errorf("expected k3, got %q", key)
	}
}

func TestRotatorExhaustion(t *testing.T) {
	r, _ := NewRotator("test", []string{"k1", "k2", "k3"})
	r.MarkRateLimited(time.Hour)
	r.MarkRateLimited(time.Hour)
	r.MarkRateLimited(time.Hour)

	_, err := r.Current()
	if !errors.Is(err, ErrCredentialsExhausted) {
		t.Errorf("expected ErrCredentialsExhausted, got %v", err)
	}
}

func TestRotatorRateLimitExpiry(t *testing.T) {
	r, _ := NewRotator("test", []string{"k1"})
	now := time.Now()
	r.now = func() time.Time { return now }

	r.MarkRateLimited(time.Minute)
	if _, err := r.Current(); err == nil {
		t.Fatal("expected error while rate-limited")
	}

	now = now.Add(2 * time.Minute)
	key, err := r.Current()
	if err != nil {
		t.Fatalf("current after expiry: %v", err)
	}
	if key != "k1" {
		t.Errorf("expected k1, got %q", key)
	}
}

func TestRotatorDeactivatesAfterErrors(t *testing.T) {
	r, _ := NewRotator("test", []string{"k1", "k2"})

	for i := 0; i < maxConsecutiveErrors; i++ {
		r.MarkError()
	}

	key, err := r.Current()
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	if key != "k2" {
		t.Errorf("expected rotation to k2, got %q", key)
	}

	st := r.Status()
	if st.Active != 1 {
		t.Errorf("expected 1 active credential, got %d", st.Active)
	}
}

func TestRotatorSuccessResetsErrors(t *testing.T) {
	r, _ := NewRotator("test", []string{"k1", "k2"})

	r.MarkError()
	r.MarkError()
	r.MarkSuccess()
	r.MarkError()
	r.MarkError()

	key, err := r.Current()
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	if key != "k1" {
		t.Errorf("expected k1 still active, got %q", key)
	}
}

func TestRotatorRejectsEmptyKeys(t *testing.T) {
	if _, err := NewRotator("test", []string{"", ""}); err == nil {
		t.Error("expected error for empty key list")
	}
}
