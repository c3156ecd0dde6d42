package resilience

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
)

// ErrCredentialsExhausted is returned when every credential is rate-limited
// or deactivated. Callers treat this as fatal for the owning session.
var ErrCredentialsExhausted = errors.New("all credentials rate-limited or inactive")

// maxConsecutiveErrors deactivates a credential after this many failures in a
// row without an intervening success.
const maxConsecutiveErrors = 3

type credential struct {
	key              string
	requests         int
	errorCount       int
	active           bool
	rateLimitedUntil time.Time
	lastUsed         time.Time
}

// Rotator serves API credentials for one service, advancing past rate-limited
// or deactivated entries. Safe for concurrent use.
type Rotator struct {
	mu      sync.Mutex
	service string
	creds   []*credential
	current int

	now func() time.Time
}

// NewRotator creates a rotator for the named service. Empty keys are dropped;
// at least one usable key is required.
func NewRotator(service string, keys []string) (*Rotator, error) {
	r := &Rotator{service: service, now: time.Now}
	for _, k := range keys {
		if k == "" {
			continue
		}
		r.creds = append(r.creds, &credential{key: k, active: true})
	}
	if len(r.creds) == 0 {
		return nil, fmt.Errorf("no credentials provided for %s", service)
	}
	return r, nil
}

// FromEnv builds a rotator from PREFIX_1..PREFIX_3, falling back to a bare
// PREFIX variable.
func FromEnv(service, prefix string) (*Rotator, error) {
	var keys []string
	for i := 1; i <= 3; i++ {
		if k := os.Getenv(fmt.Sprintf("%s_%d", prefix, i)); usableKey(k) {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		if k := os.Getenv(prefix); usableKey(k) {
			keys = append(keys, k)
		}
	}
	return NewRotator(service, keys)
}

func usableKey(k string) bool {
	return strings.TrimSpace(k) != "" && !strings.HasPrefix(k, "your_")
}

// Current returns the active credential, advancing past unusable entries.
// Expired rate limits are cleared in passing. Returns
// ErrCredentialsExhausted when a full cycle finds nothing usable.
func (r *Rotator) Current() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for attempts := 0; attempts < len(r.creds); attempts++ {
		c := r.creds[r.current]

		if !c.rateLimitedUntil.IsZero() && r.now().After(c.rateLimitedUntil) {
			c.rateLimitedUntil = time.Time{}
			c.active = true
		}

		if c.active && c.rateLimitedUntil.IsZero() {
			c.lastUsed = r.now()
			c.requests++
			return c.key, nil
		}

		r.advance()
	}

	return "", fmt.Errorf("%s: %w", r.service, ErrCredentialsExhausted)
}

// MarkRateLimited marks the current credential unusable for d and advances to
// the next one.
func (r *Rotator) MarkRateLimited(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := r.creds[r.current]
	c.rateLimitedUntil = r.now().Add(d)
	c.active = false
	r.advance()
}

// MarkError records a failure for the current credential, deactivating it and
// advancing after maxConsecutiveErrors.
func (r *Rotator) MarkError() {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := r.creds[r.current]
	c.errorCount++
	if c.errorCount >= maxConsecutiveErrors {
		c.active = false
		r.advance()
	}
}

// MarkSuccess resets the current credential's consecutive-error count.
func (r *Rotator) MarkSuccess() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.creds[r.current].errorCount = 0
}

func (r *Rotator) advance() {
	r.current = (r.current + 1) % len(r.creds)
}

// CredentialStatus describes one credential in Status output.
type CredentialStatus struct {
	Index       int  `json:"index"`
	Active      bool `json:"active"`
	Requests    int  `json:"requests"`
	Errors      int  `json:"errors"`
	RateLimited bool `json:"rate_limited"`
}

// RotatorStatus summarizes a rotator's credentials.
type RotatorStatus struct {
	Service     string             `json:"service"`
	Total       int                `json:"total_keys"`
	Active      int                `json:"active_keys"`
	Current     int                `json:"current_index"`
	Credentials []CredentialStatus `json:"keys"`
}

// Status reports the state of every credential.
func (r *Rotator) Status() RotatorStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	st := RotatorStatus{
		Service: r.service,
		Total:   len(r.creds),
		Current: r.current,
	}
	for i, c := range r.creds {
		if c.active {
			st.Active++
		}
		st.Credentials = append(st.Credentials, CredentialStatus{
			Index:       i + 1,
			Active:      c.active,
			Requests:    c.requests,
			Errors:      c.errorCount,
			RateLimited: !c.rateLimitedUntil.IsZero(),
		})
	}
	return st
}
