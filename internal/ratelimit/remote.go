package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// Remote is a fixed-window counter backed by Redis (INCR, with PEXPIRE set
// on a window's first request),
// circuit-broken so a Redis outage trips the breaker and FailMode governs
// behavior without every request paying Redis's dial timeout (spec
// section 4.5.3).
type Remote struct {
	client   *redis.Client
	cfg      Config
	breaker  *gobreaker.CircuitBreaker
	fallback *Local // used only when FailMode is local-fallback
	log      *zap.Logger
}

// NewRemote constructs a Remote limiter. client must already be configured
// (address, auth) by the caller; this package owns only the rate-limit
// semantics, not connection wiring.
func NewRemote(client *redis.Client, cfg Config, log *zap.Logger) *Remote {
	if log == nil {
		log = zap.NewNop()
	}
	r := &Remote{client: client, cfg: cfg, log: log}
	r.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "ratelimit-redis",
		MaxRequests: 3,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.Requests >= 3 && float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("ratelimit: circuit breaker state change", zap.String("name", name), zap.String("from", from.String()), zap.String("to", to.String()))
		},
	})
	if cfg.FailMode == FailLocalFallback {
		r.fallback = NewLocal(cfg)
	}
	return r
}

// Check increments key's counter in Redis, applying maxRequests/windowMs.
// On a broken circuit or Redis error, FailMode decides: closed (deny,
// retryAfterMs=60000), local-fallback (delegate to an embedded Local
// limiter), or open (allow, logged as a security risk).
func (r *Remote) Check(ctx context.Context, key string) (Result, error) {
	res, err := r.breaker.Execute(func() (interface{}, error) {
		return r.checkRedis(ctx, key)
	})
	if err == nil {
		return res.(Result), nil
	}
	return r.onFailure(ctx, key, err)
}

func (r *Remote) checkRedis(ctx context.Context, key string) (Result, error) {
	redisKey := "ratelimit:" + key
	count, err := r.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return Result{}, err
	}
	window := time.Duration(r.cfg.WindowMs) * time.Millisecond
	if count == 1 {
		if err := r.client.PExpire(ctx, redisKey, window).Err(); err != nil {
			return Result{}, err
		}
	}
	ttl, err := r.client.PTTL(ctx, redisKey).Result()
	if err != nil {
		return Result{}, err
	}
	if count > int64(r.cfg.MaxRequests) {
		return Result{Allowed: false, RetryAfterMs: ttl.Milliseconds()}, nil
	}
	return Result{Allowed: true, Remaining: r.cfg.MaxRequests - int(count), ResetMs: ttl.Milliseconds()}, nil
}

func (r *Remote) onFailure(ctx context.Context, key string, cause error) (Result, error) {
	r.log.Warn("ratelimit: remote backend unavailable", zap.Error(cause), zap.String("failMode", string(r.cfg.FailMode)))
	switch r.cfg.FailMode {
	case FailOpen:
		r.log.Warn("ratelimit: failing open, request allowed without quota enforcement")
		return Result{Allowed: true, Remaining: r.cfg.MaxRequests}, nil
	case FailLocalFallback:
		return r.fallback.Check(ctx, key)
	default: // closed
		return Result{Allowed: false, RetryAfterMs: 60_000}, nil
	}
}

// Stats reports key's counters without incrementing, falling back to the
// same FailMode rules as Check.
func (r *Remote) Stats(ctx context.Context, key string) (Result, error) {
	redisKey := "ratelimit:" + key
	count, err := r.client.Get(ctx, redisKey).Int64()
	if err == redis.Nil {
		return Result{Allowed: true, Remaining: r.cfg.MaxRequests}, nil
	}
	if err != nil {
		if r.cfg.FailMode == FailLocalFallback {
			return r.fallback.Stats(ctx, key)
		}
		return r.onFailure(ctx, key, err)
	}
	ttl, _ := r.client.PTTL(ctx, redisKey).Result()
	return Result{Allowed: count <= int64(r.cfg.MaxRequests), Remaining: r.cfg.MaxRequests - int(count), ResetMs: ttl.Milliseconds()}, nil
}
