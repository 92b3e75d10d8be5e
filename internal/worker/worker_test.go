package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/agentmemory/memoryd/internal/observability"
)

func TestSubmitRunsTaskAsynchronously(t *testing.T) {
	p := New(Config{MaxWorkers: 2, MaxQueueSize: 10}, nil, zap.NewNop())
	defer p.StopWait()

	var ran int32
	var wg sync.WaitGroup
	wg.Add(1)
	ok := p.Submit("t", func() {
		atomic.AddInt32(&ran, 1)
		wg.Done()
	})
	assert.True(t, ok)
	wg.Wait()
	assert.Equal(t, int32(1), atomic.LoadInt32(&ran))
}

func TestSubmitDropsAndCountsWhenQueueFull(t *testing.T) {
	metrics := observability.NewMetrics("test")
	p := New(Config{MaxWorkers: 1, MaxQueueSize: 1}, metrics, zap.NewNop())
	defer p.StopWait()

	block := make(chan struct{})
	// occupy the single worker so subsequent submissions queue.
	p.Submit("blocker", func() { <-block })
	// fill the one-slot waiting queue.
	p.Submit("queued", func() {})

	dropped := p.Submit("overflow", func() {})
	assert.False(t, dropped)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.WorkerQueueDropped))

	close(block)
}

func TestSubmitRecoversFromPanickingTask(t *testing.T) {
	p := New(Config{MaxWorkers: 1, MaxQueueSize: 10}, nil, zap.NewNop())
	defer p.StopWait()

	var wg sync.WaitGroup
	wg.Add(1)
	p.Submit("panicker", func() {
		defer wg.Done()
		panic("boom")
	})
	wg.Wait() // reaching here means the pool's own recover ran without crashing the test
}

func TestSubmitWithRetryStopsOnFirstSuccess(t *testing.T) {
	p := New(Config{MaxWorkers: 1, MaxQueueSize: 10}, nil, zap.NewNop())
	defer p.StopWait()

	var attempts int32
	var wg sync.WaitGroup
	wg.Add(1)
	p.SubmitWithRetry(context.Background(), "retry-ok", func(ctx context.Context) error {
		defer func() {
			if atomic.LoadInt32(&attempts) == 2 {
				wg.Done()
			}
		}()
		n := atomic.AddInt32(&attempts, 1)
		if n < 2 {
			return errors.New("transient")
		}
		return nil
	})
	wg.Wait()
	assert.Equal(t, int32(2), atomic.LoadInt32(&attempts))
}

func TestSubmitWithRetryStopsWhenContextCanceled(t *testing.T) {
	p := New(Config{MaxWorkers: 1, MaxQueueSize: 10}, nil, zap.NewNop())
	defer p.StopWait()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	p.SubmitWithRetry(ctx, "retry-canceled", func(ctx context.Context) error {
		defer close(done)
		return errors.New("always fails")
	})
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("task never ran")
	}
}

func TestRetrySynchronousHelperReturnsFirstSuccess(t *testing.T) {
	var attempts int
	err := Retry(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return errors.New("not yet")
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, attempts)
}
