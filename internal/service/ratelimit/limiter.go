package ratelimit

import (
	"sync"
	"time"
)

type bucket struct {
	tokens float64
	last   time.Time
}

// Limiter is a keyed token bucket. Every key starts with a full bucket of
// burst tokens that refills at rate tokens per second.
type Limiter struct {
	mu      sync.Mutex
	rate    float64
	burst   float64
	idleTTL time.Duration
	now     func() time.Time
	buckets map[string]*bucket
	sweeps  int
}

// New creates a limiter; buckets idle longer than the time to refill are dropped.
func New(rate, burst float64) *Limiter {
	idle := time.Minute
	if rate > 0 {
		idle = time.Duration(burst/rate*float64(time.Second)) + time.Minute
	}
	return &Limiter{
		rate:    rate,
		burst:   burst,
		idleTTL: idle,
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}
}

// Allow returns true if one token can be consumed for key.
func (l *Limiter) Allow(key string) bool {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: l.burst, last: now}
		l.buckets[key] = b
	}
	if elapsed := now.Sub(b.last).Seconds(); elapsed > 0 {
		b.tokens = min(l.burst, b.tokens+elapsed*l.rate)
		b.last = now
	}

	l.sweeps++
	if l.sweeps >= 1024 {
		l.sweeps = 0
		l.evictIdle(now)
	}

	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}

func (l *Limiter) evictIdle(now time.Time) {
	for k, b := range l.buckets {
		if now.Sub(b.last) > l.idleTTL {
			delete(l.buckets, k)
		}
	}
}
