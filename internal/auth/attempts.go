package auth

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/taskdesk/taskdesk/internal/shared"
)

// ErrTooManyAttempts is returned when an account exceeds its attempt budget.
var ErrTooManyAttempts = fmt.Errorf("%w: try again later", shared.ErrRateLimited)

// AttemptLimiter is a per-key token bucket for credential checks. It
// complements the per-IP HTTP limit by capping guesses against one account.
type AttemptLimiter struct {
	mu        sync.Mutex
	buckets   map[string]*attemptBucket
	every     time.Duration
	burst     int
	ttl       time.Duration
	lastSweep time.Time
	now       func() time.Time
}

type attemptBucket struct {
	lim  *rate.Limiter
	seen time.Time
}

// NewAttemptLimiter allows burst attempts per key, refilling one every
// interval.
func NewAttemptLimiter(every time.Duration, burst int) *AttemptLimiter {
	return &AttemptLimiter{
		buckets: make(map[string]*attemptBucket),
		every:   every,
		burst:   burst,
		ttl:     every * time.Duration(burst+1),
		now:     time.Now,
	}
}

// Allow spends one attempt for key and reports whether it was available.
func (l *AttemptLimiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	if now.Sub(l.lastSweep) >= l.ttl {
		l.sweep(now)
		l.lastSweep = now
	}
	b, ok := l.buckets[key]
	if !ok {
		b = &attemptBucket{lim: rate.NewLimiter(rate.Every(l.every), l.burst)}
		l.buckets[key] = b
	}
	b.seen = now
	return b.lim.AllowN(now, 1)
}

// Reset forgets key, restoring its full budget. Called after a successful
// check so legitimate users do not carry earlier failures forward.
func (l *AttemptLimiter) Reset(key string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.buckets, key)
}

// sweep drops buckets idle long enough to have refilled completely.
func (l *AttemptLimiter) sweep(now time.Time) {
	for k, b := range l.buckets {
		if now.Sub(b.seen) > l.ttl {
			delete(l.buckets, k)
		}
	}
}
