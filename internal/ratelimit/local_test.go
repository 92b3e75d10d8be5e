package ratelimit

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLocalAllowsUpToMaxRequestsWithinWindow(t *testing.T) {
	l := NewLocal(Config{MaxRequests: 5, WindowMs: 1000, MaxResidentKeys: 100})
	ctx := context.Background()

	allowed := 0
	for i := 0; i < 20; i++ {
		res, err := l.Check(ctx, "K")
		assert.NoError(t, err)
		if res.Allowed {
			allowed++
		}
	}
	assert.Equal(t, 5, allowed)
}

func TestLocalSerializesConcurrentBurstsUnderMaxRequests(t *testing.T) {
	l := NewLocal(Config{MaxRequests: 5, WindowMs: 1000, MaxResidentKeys: 100})
	ctx := context.Background()

	var mu sync.Mutex
	allowed := 0
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, _ := l.Check(ctx, "K")
			if res.Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 5, allowed)
}

func TestLocalMinBurstProtectionCapsPerSecond(t *testing.T) {
	l := NewLocal(Config{MaxRequests: 100, WindowMs: 60_000, MinBurstProtection: 3, MaxResidentKeys: 100})
	ctx := context.Background()

	allowed := 0
	for i := 0; i < 10; i++ {
		res, _ := l.Check(ctx, "K")
		if res.Allowed {
			allowed++
		}
	}
	assert.Equal(t, 3, allowed, "minBurstProtection caps the per-second rate independent of the window cap")
}

func TestLocalTracksIndependentKeysSeparately(t *testing.T) {
	l := NewLocal(Config{MaxRequests: 1, WindowMs: 1000, MaxResidentKeys: 100})
	ctx := context.Background()

	first, _ := l.Check(ctx, "a")
	second, _ := l.Check(ctx, "b")
	assert.True(t, first.Allowed)
	assert.True(t, second.Allowed)
}

func TestLocalEvictsLeastRecentlyUsedKeyWhenBoundExceeded(t *testing.T) {
	l := NewLocal(Config{MaxRequests: 10, WindowMs: 1000, MaxResidentKeys: 2})
	ctx := context.Background()

	l.Check(ctx, "a")
	l.Check(ctx, "b")
	l.Check(ctx, "c") // evicts "a"

	assert.Equal(t, 2, l.cache.Len())
}
