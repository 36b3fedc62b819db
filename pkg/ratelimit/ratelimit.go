// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package ratelimit provides token bucket rate limiting for incoming
// datagrams, globally and per source address.
package ratelimit

import (
	"errors"
	"sync"
	"time"
)

// ErrRateLimitExceeded is returned when a datagram is rejected by a limiter.
var ErrRateLimitExceeded = errors.New("rate limit exceeded")

// TokenBucket is a classic token bucket: capacity tokens, refilled at
// refillRate tokens per second.
type TokenBucket struct {
	mu         sync.Mutex
	capacity   int64
	tokens     int64
	refillRate int64
	lastRefill time.Time
}

// NewTokenBucket creates a full bucket.
func NewTokenBucket(capacity, refillRate int64) *TokenBucket {
	return &TokenBucket{
		capacity:   capacity,
		tokens:     capacity,
		refillRate: refillRate,
		lastRefill: time.Now(),
	}
}

// Allow consumes one token, reporting whether one was available.
func (tb *TokenBucket) Allow() bool {
	return tb.AllowN(1)
}

// AllowN consumes n tokens, reporting whether they were available.
func (tb *TokenBucket) AllowN(n int64) bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill()
	if tb.tokens < n {
		return false
	}
	tb.tokens -= n
	return true
}

func (tb *TokenBucket) refill() {
	now := time.Now()
	added := int64(now.Sub(tb.lastRefill).Seconds() * float64(tb.refillRate))
	if added <= 0 {
		return
	}
	tb.tokens += added
	if tb.tokens > tb.capacity {
		tb.tokens = tb.capacity
	}
	tb.lastRefill = now
}

// Available returns the current token count.
func (tb *TokenBucket) Available() int64 {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.refill()
	return tb.tokens
}

// SourceLimiter keeps an independent token bucket per datagram source
// address, capped at maxSources tracked sources. Sources beyond the cap
// are rejected outright until the map is pruned.
type SourceLimiter struct {
	mu         sync.RWMutex
	buckets    map[string]*TokenBucket
	capacity   int64
	refillRate int64
	maxSources int
}

// NewSourceLimiter creates a per-source limiter.
func NewSourceLimiter(capacity, refillRate int64, maxSources int) *SourceLimiter {
	if maxSources <= 0 {
		maxSources = 10000
	}
	return &SourceLimiter{
		buckets:    make(map[string]*TokenBucket),
		capacity:   capacity,
		refillRate: refillRate,
		maxSources: maxSources,
	}
}

// Allow consumes one token from the bucket of the given source address.
func (l *SourceLimiter) Allow(source string) bool {
	l.mu.RLock()
	tb, ok := l.buckets[source]
	l.mu.RUnlock()

	if !ok {
		l.mu.Lock()
		tb, ok = l.buckets[source]
		if !ok {
			if len(l.buckets) >= l.maxSources {
				l.prune()
			}
			if len(l.buckets) >= l.maxSources {
				l.mu.Unlock()
				return false
			}
			tb = NewTokenBucket(l.capacity, l.refillRate)
			l.buckets[source] = tb
		}
		l.mu.Unlock()
	}

	return tb.Allow()
}

// Remove drops the bucket of a source, typically when its peer expires.
func (l *SourceLimiter) Remove(source string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.buckets, source)
}

// Sources returns the number of tracked sources.
func (l *SourceLimiter) Sources() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.buckets)
}

// prune evicts buckets that are currently full: a full bucket belongs to
// a source that has been quiet long enough to refill completely.
// Caller must hold the write lock.
func (l *SourceLimiter) prune() {
	for source, tb := range l.buckets {
		if tb.Available() >= tb.capacity {
			delete(l.buckets, source)
		}
	}
}
