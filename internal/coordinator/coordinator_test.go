package coordinator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCache struct {
	bytesPerEntry int64
	entries       int
}

func (f *fakeCache) SizeBytes() int64 { return int64(f.entries) * f.bytesPerEntry }
func (f *fakeCache) Evict(n int) int {
	if n > f.entries {
		n = f.entries
	}
	f.entries -= n
	return n
}

func newTestCoordinator(t *testing.T, cfg Config) *Coordinator {
	t.Helper()
	c := New(cfg, nil, nil)
	t.Cleanup(c.Stop)
	return c
}

func TestRegisterReplacesPriorRegistrationKeepingOrder(t *testing.T) {
	c := newTestCoordinator(t, DefaultConfig())
	c.Register("a", 5, &fakeCache{})
	c.Register("b", 5, &fakeCache{})
	c.Register("a", 9, &fakeCache{}) // replace: priority changes but insertion order is kept

	c.mu.Lock()
	ordered := c.orderedForEvictionLocked()
	c.mu.Unlock()

	require.Len(t, ordered, 2)
	assert.Equal(t, "b", ordered[0].name, "b has lower priority (5 < 9) so sorts first for eviction")
	assert.Equal(t, 9, c.caches["a"].priority)
	assert.Equal(t, 0, c.caches["a"].order, "re-registration keeps original insertion order")
}

func TestAccountingPassEvictsUnderPressureProportionally(t *testing.T) {
	cfg := Config{CheckIntervalMs: 60_000, TotalLimitMB: 1, PressureThreshold: 0.8, EvictionTarget: 0.5}
	c := newTestCoordinator(t, cfg)

	lowPriority := &fakeCache{bytesPerEntry: 1024, entries: 600}
	highPriority := &fakeCache{bytesPerEntry: 1024, entries: 600}
	c.Register("low", 0, lowPriority)
	c.Register("high", 10, highPriority)

	c.accountingPass()

	assert.Less(t, lowPriority.entries, 600, "lower-priority cache should lose entries")
	assert.LessOrEqual(t, c.TotalBytes(), int64(float64(cfg.TotalLimitMB)*1024*1024*cfg.EvictionTarget)+1024)
}

func TestAccountingPassNoopsBelowPressureThreshold(t *testing.T) {
	cfg := Config{CheckIntervalMs: 60_000, TotalLimitMB: 100, PressureThreshold: 0.8, EvictionTarget: 0.7}
	c := newTestCoordinator(t, cfg)
	small := &fakeCache{bytesPerEntry: 1024, entries: 10}
	c.Register("small", 5, small)

	c.accountingPass()
	assert.Equal(t, 10, small.entries)
}

func TestUnregisterIsIdempotent(t *testing.T) {
	c := newTestCoordinator(t, DefaultConfig())
	c.Register("a", 5, &fakeCache{})
	c.Unregister("a")
	c.Unregister("a") // must not panic
}

func TestUpdateConfigRestartsTimerOnIntervalChange(t *testing.T) {
	c := newTestCoordinator(t, DefaultConfig())
	firstEntry := c.entryID
	c.UpdateConfig(Config{CheckIntervalMs: 5_000, TotalLimitMB: 256, PressureThreshold: 0.8, EvictionTarget: 0.7})
	assert.NotEqual(t, firstEntry, c.entryID)
}
