// Package ratelimit implements the local and remote rate limiter behind a
// single Limiter interface (spec section 4.5.3). Grounded on the teacher's
// internal/middleware/circuit_breaker.go gobreaker usage idiom, generalized
// from guarding an HTTP handler chain to guarding the remote counter
// backend.
package ratelimit

import (
	"context"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Result is the outcome of one Check call.
type Result struct {
	Allowed      bool
	Remaining    int
	ResetMs      int64
	RetryAfterMs int64 // only set when Allowed is false
}

// Limiter is the contract both the local and remote backends satisfy.
type Limiter interface {
	Check(ctx context.Context, key string) (Result, error)
	Stats(ctx context.Context, key string) (Result, error)
}

// FailMode governs remote-backend-unreachable behavior (spec section
// 4.5.3).
type FailMode string

const (
	FailClosed        FailMode = "closed"
	FailLocalFallback FailMode = "local-fallback"
	FailOpen          FailMode = "open"
)

// Config mirrors the rateLimiter.* configuration block.
type Config struct {
	Mode               string // "local" or "remote"
	FailMode           FailMode
	MaxRequests        int
	WindowMs           int
	MinBurstProtection int // 0 disables the per-second sub-cap
	MaxResidentKeys    int // local limiter's bounded keyspace
}

// DefaultConfig returns the spec's local-mode defaults.
func DefaultConfig() Config {
	return Config{Mode: "local", FailMode: FailLocalFallback, MaxRequests: 60, WindowMs: 60_000, MaxResidentKeys: 10_000}
}

// New builds the configured Limiter. client is ignored (may be nil) when
// cfg.Mode is "local".
func New(cfg Config, client *redis.Client, log *zap.Logger) Limiter {
	if cfg.Mode == "remote" {
		return NewRemote(client, cfg, log)
	}
	return NewLocal(cfg)
}
