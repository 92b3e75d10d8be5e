// Package worker implements the bounded async side-effect queue that
// trigger detection, capture-on-turn-complete, and notification delivery
// submit onto instead of blocking the request path on them (spec section
// 5). Grounded on the teacher's
// internal/infrastructure/concurrency/adaptive_pool.go worker-pool idiom,
// replacing its hand-rolled channel pool with github.com/gammazero/workerpool
// and adding the bounded-queue-plus-overflow-counter behavior the teacher's
// pool never needed (Lambda invocations didn't outlive a single request).
package worker

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gammazero/workerpool"
	"go.uber.org/zap"

	"github.com/agentmemory/memoryd/internal/observability"
)

// Config bounds the queue depth submissions are allowed to build up to
// before Submit starts dropping work instead of blocking the caller.
type Config struct {
	MaxWorkers   int
	MaxQueueSize int // 0 means unbounded (overflow counter never increments)
}

// DefaultConfig mirrors the teacher's local-environment pool sizing.
func DefaultConfig() Config {
	return Config{MaxWorkers: 4, MaxQueueSize: 256}
}

// Pool runs fire-and-forget side-effect tasks off the request path. Tasks
// submitted once the waiting queue reaches MaxQueueSize are dropped and
// counted rather than applying backpressure to the caller (spec: "telemetry
// on drop counts is mandatory").
type Pool struct {
	wp      *workerpool.WorkerPool
	cfg     Config
	metrics *observability.Metrics
	log     *zap.Logger
}

// New constructs a Pool. metrics and log may be nil; nil metrics disables
// gauge updates and nil log defaults to a no-op logger.
func New(cfg Config, metrics *observability.Metrics, log *zap.Logger) *Pool {
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = 4
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Pool{wp: workerpool.New(cfg.MaxWorkers), cfg: cfg, metrics: metrics, log: log}
}

// Submit enqueues task for background execution. It returns false, without
// running task, when the pool's waiting queue is already at MaxQueueSize.
func (p *Pool) Submit(name string, task func()) bool {
	if p.cfg.MaxQueueSize > 0 && p.wp.WaitingQueueSize() >= p.cfg.MaxQueueSize {
		if p.metrics != nil {
			p.metrics.WorkerQueueDropped.Inc()
		}
		p.log.Warn("worker: queue full, dropping task", zap.String("task", name), zap.Int("queueSize", p.wp.WaitingQueueSize()))
		return false
	}
	p.wp.Submit(func() {
		defer func() {
			if r := recover(); r != nil {
				p.log.Error("worker: task panicked", zap.String("task", name), zap.Any("recover", r))
			}
		}()
		task()
	})
	if p.metrics != nil {
		p.metrics.WorkerQueueDepth.Set(float64(p.wp.WaitingQueueSize()))
	}
	return true
}

// SubmitWithRetry runs task through an exponential backoff retry loop on a
// worker goroutine, stopping early if ctx is canceled (spec section 5:
// backoff "wraps calls to the embedding/extraction providers and the
// remote rate-limiter backend ... stopping respecting the caller's
// deadline"). task's error decides whether another attempt is made; a nil
// error stops the loop successfully.
func (p *Pool) SubmitWithRetry(ctx context.Context, name string, task func(ctx context.Context) error) bool {
	return p.Submit(name, func() {
		b := backoff.WithContext(backoff.NewExponentialBackOff(), ctx)
		err := backoff.Retry(func() error { return task(ctx) }, b)
		if err != nil {
			p.log.Warn("worker: retryable task gave up", zap.String("task", name), zap.Error(err))
		}
	})
}

// StopWait blocks until all submitted tasks complete, rejecting new
// submissions in the meantime.
func (p *Pool) StopWait() {
	p.wp.StopWait()
}

// QueueDepth reports the pool's current waiting queue size.
func (p *Pool) QueueDepth() int {
	return p.wp.WaitingQueueSize()
}

// Retry wraps fn in the same exponential-backoff policy as
// SubmitWithRetry, for callers on the synchronous path who still want
// bounded retries (e.g. an embedding lookup blocking a query) without
// going through the worker pool.
func Retry(ctx context.Context, fn func() error) error {
	b := backoff.WithContext(backoff.NewExponentialBackOff(), ctx)
	return backoff.Retry(fn, b)
}

// WithMaxElapsed returns a backoff policy capped at d, for callers that
// want Retry-style bounded retries without waiting indefinitely.
func WithMaxElapsed(d time.Duration) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = d
	return b
}
