package auth

import (
	"strings"
	"sync"
	"time"
)

// MessageTooManyAttempts is shown when a username is throttled.
const MessageTooManyAttempts = "Too many sign-in attempts, please wait and try again"

// ThrottleConfig bounds how often one username may attempt to sign in.
type ThrottleConfig struct {
	// AttemptsPerMinute is the sustained refill rate.
	AttemptsPerMinute float64

	// Burst is the number of attempts allowed back to back.
	Burst int
}

// DefaultThrottle allows five quick attempts, then one every twenty seconds.
var DefaultThrottle = ThrottleConfig{AttemptsPerMinute: 3, Burst: 5}

type bucket struct {
	tokens     float64
	lastUpdate time.Time
}

// Throttle is a per-username token bucket.
type Throttle struct {
	mu      sync.Mutex
	cfg     ThrottleConfig
	buckets map[string]*bucket
	now     func() time.Time
}

// NewThrottle creates a Throttle. A zero Burst disables throttling.
func NewThrottle(cfg ThrottleConfig) *Throttle {
	return &Throttle{
		cfg:     cfg,
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
}

// Allow consumes an attempt for username and reports whether it may proceed.
func (t *Throttle) Allow(username string) bool {
	if t == nil || t.cfg.Burst <= 0 {
		return true
	}
	key := strings.ToLower(strings.TrimSpace(username))

	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	b, ok := t.buckets[key]
	if !ok {
		b = &bucket{tokens: float64(t.cfg.Burst), lastUpdate: now}
		t.buckets[key] = b
	}

	b.tokens += now.Sub(b.lastUpdate).Minutes() * t.cfg.AttemptsPerMinute
	if b.tokens > float64(t.cfg.Burst) {
		b.tokens = float64(t.cfg.Burst)
	}
	b.lastUpdate = now

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// Reset forgets the attempts made for username, typically after a success.
func (t *Throttle) Reset(username string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	delete(t.buckets, strings.ToLower(strings.TrimSpace(username)))
	t.mu.Unlock()
}
