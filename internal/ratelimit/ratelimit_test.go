package ratelimit

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewSelectsLocalWhenModeIsLocal(t *testing.T) {
	l := New(Config{Mode: "local", MaxRequests: 5, WindowMs: 1000, MaxResidentKeys: 100}, nil, nil)
	_, ok := l.(*Local)
	assert.True(t, ok)
}

func TestNewSelectsRemoteWhenModeIsRemote(t *testing.T) {
	_, client := newMiniredisClient(t)
	l := New(Config{Mode: "remote", MaxRequests: 5, WindowMs: 1000}, client, nil)
	_, ok := l.(*Remote)
	assert.True(t, ok)
}

// TestConcurrentBurstAllowsExactlyMaxRequests is the scenario named directly:
// {maxRequests:5, windowMs:1000, minBurstProtection:5}, 20 concurrent
// check("K") calls, exactly 5 allowed and 15 denied with retryAfterMs > 0.
func TestConcurrentBurstAllowsExactlyMaxRequests(t *testing.T) {
	l := NewLocal(Config{MaxRequests: 5, WindowMs: 1000, MinBurstProtection: 5, MaxResidentKeys: 100})
	ctx := context.Background()

	var mu sync.Mutex
	allowed, denied := 0, 0
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := l.Check(ctx, "K")
			assert.NoError(t, err)
			mu.Lock()
			defer mu.Unlock()
			if res.Allowed {
				allowed++
			} else {
				denied++
				assert.Greater(t, res.RetryAfterMs, int64(0))
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 5, allowed)
	assert.Equal(t, 15, denied)
}
