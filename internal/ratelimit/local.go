package ratelimit

import (
	"context"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"
)

// keyState pairs the window limiter with an optional per-second burst-
// protection limiter for one key.
type keyState struct {
	window *rate.Limiter
	burst  *rate.Limiter // nil when minBurstProtection is disabled
	mu     sync.Mutex
}

// Local is a token-bucket rate limiter keyed per caller, with a bounded
// resident keyspace so an attacker enumerating keys cannot exhaust memory
// (spec section 5: "the local limiter must cap resident keys (LRU eviction
// once a bound is exceeded)").
type Local struct {
	cfg   Config
	cache *lru.Cache[string, *keyState]
	mu    sync.Mutex
}

// NewLocal constructs a Local limiter from cfg.
func NewLocal(cfg Config) *Local {
	maxKeys := cfg.MaxResidentKeys
	if maxKeys <= 0 {
		maxKeys = 10_000
	}
	cache, _ := lru.New[string, *keyState](maxKeys)
	return &Local{cfg: cfg, cache: cache}
}

func (l *Local) stateFor(key string) *keyState {
	l.mu.Lock()
	defer l.mu.Unlock()

	if s, ok := l.cache.Get(key); ok {
		return s
	}

	windowSeconds := float64(l.cfg.WindowMs) / 1000
	if windowSeconds <= 0 {
		windowSeconds = 1
	}
	ratePerSecond := rate.Limit(float64(l.cfg.MaxRequests) / windowSeconds)
	s := &keyState{window: rate.NewLimiter(ratePerSecond, l.cfg.MaxRequests)}
	if l.cfg.MinBurstProtection > 0 {
		s.burst = rate.NewLimiter(rate.Limit(l.cfg.MinBurstProtection), l.cfg.MinBurstProtection)
	}
	l.cache.Add(key, s)
	return s
}

// Check consumes one token for key, serialized per key so concurrent
// callers never exceed maxRequests within a window (spec section 4.5.3:
// "Concurrent bursts are serialized").
func (l *Local) Check(ctx context.Context, key string) (Result, error) {
	s := l.stateFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.burst != nil && !s.burst.Allow() {
		return Result{Allowed: false, RetryAfterMs: retryAfterMs(s.burst)}, nil
	}
	if !s.window.Allow() {
		return Result{Allowed: false, RetryAfterMs: retryAfterMs(s.window)}, nil
	}
	return Result{Allowed: true, Remaining: int(s.window.Tokens()), ResetMs: int64(l.cfg.WindowMs)}, nil
}

// Stats reports key's current counters without consuming a token.
func (l *Local) Stats(ctx context.Context, key string) (Result, error) {
	s := l.stateFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	return Result{Allowed: true, Remaining: int(s.window.Tokens()), ResetMs: int64(l.cfg.WindowMs)}, nil
}

// retryAfterMs estimates the wait until lim next admits a request.
func retryAfterMs(lim *rate.Limiter) int64 {
	reservation := lim.Reserve()
	delay := reservation.Delay()
	reservation.Cancel()
	if delay <= 0 {
		return 1
	}
	return delay.Milliseconds()
}
