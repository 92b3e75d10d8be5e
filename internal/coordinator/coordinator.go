// Package coordinator implements the memory coordinator: a registry of
// named, priority-weighted caches with a periodic accounting pass that
// evicts under memory pressure (spec section 4.5.1). Grounded on the
// teacher's internal/di/cache package (InMemoryCache + noop/simple
// wrapper variants), generalized from a single concrete cache into a
// registry of a narrow capability interface.
package coordinator

import (
	"strconv"
	"sync"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/agentmemory/memoryd/internal/observability"
)

// Cache is the narrow capability a coordinator-registered cache exposes.
// The coordinator never holds a cache alive past its owner's lifetime; it
// stores this interface value, not the cache's backing store (spec
// section 9: "never extends their lifetime").
type Cache interface {
	SizeBytes() int64
	Evict(n int) int // evicts up to n entries, returns the number actually evicted
}

// Config mirrors spec section 4.5.1's tunables.
type Config struct {
	CheckIntervalMs   int
	TotalLimitMB      int
	PressureThreshold float64
	EvictionTarget    float64
}

// DefaultConfig returns the spec's stated defaults.
func DefaultConfig() Config {
	return Config{CheckIntervalMs: 60_000, TotalLimitMB: 256, PressureThreshold: 0.8, EvictionTarget: 0.7}
}

type registration struct {
	name     string
	priority int // clamped to [0,10]
	cache    Cache
	order    int // registration sequence, for the equal-priority tie-break
}

// Coordinator owns the cache registry and the cron-driven accounting pass.
type Coordinator struct {
	mu       sync.Mutex
	caches   map[string]*registration
	seq      int
	cfg      Config
	cron     *cron.Cron
	entryID  cron.EntryID
	hasEntry bool
	metrics  *observability.Metrics
	log      *zap.Logger
}

// New constructs a Coordinator and starts its cron-driven accounting loop.
func New(cfg Config, metrics *observability.Metrics, log *zap.Logger) *Coordinator {
	if log == nil {
		log = zap.NewNop()
	}
	c := &Coordinator{
		caches:  make(map[string]*registration),
		cfg:     cfg,
		cron:    cron.New(),
		metrics: metrics,
		log:     log,
	}
	c.cron.Start()
	c.scheduleLocked()
	return c
}

// Register adds or replaces the named cache. Registration with an existing
// name replaces the prior registration but keeps its original insertion
// order for the tie-break (spec section 4.5.1: "Registration with an
// existing name replaces prior registration").
func (c *Coordinator) Register(name string, priority int, cache Cache) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if priority < 0 {
		priority = 0
	}
	if priority > 10 {
		priority = 10
	}

	order := c.seq
	if existing, ok := c.caches[name]; ok {
		order = existing.order
	} else {
		c.seq++
	}
	c.caches[name] = &registration{name: name, priority: priority, cache: cache, order: order}
}

// Registered reports whether name currently has a live registration.
func (c *Coordinator) Registered(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.caches[name]
	return ok
}

// Unregister removes name, idempotently (spec section 4.5.1: "Unregistration
// is idempotent").
func (c *Coordinator) Unregister(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.caches, name)
}

// UpdateConfig atomically replaces the coordinator's tunables. Changing
// CheckIntervalMs restarts the timer (spec section 4.5.1).
func (c *Coordinator) UpdateConfig(cfg Config) {
	c.mu.Lock()
	defer c.mu.Unlock()
	restart := cfg.CheckIntervalMs != c.cfg.CheckIntervalMs
	c.cfg = cfg
	if restart {
		c.scheduleLocked()
	}
}

// scheduleLocked (re)installs the cron entry at the current interval.
// Caller must hold c.mu.
func (c *Coordinator) scheduleLocked() {
	if c.hasEntry {
		c.cron.Remove(c.entryID)
	}
	id, err := c.cron.AddFunc(everySpec(c.cfg.CheckIntervalMs), c.accountingPass)
	if err != nil {
		c.log.Error("coordinator: failed to schedule accounting pass", zap.Error(err))
		c.hasEntry = false
		return
	}
	c.entryID = id
	c.hasEntry = true
}

// Stop halts the cron scheduler.
func (c *Coordinator) Stop() {
	c.cron.Stop()
}

// TotalBytes sums every registered cache's reported size.
func (c *Coordinator) TotalBytes() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totalBytesLocked()
}

func (c *Coordinator) totalBytesLocked() int64 {
	var total int64
	for _, r := range c.caches {
		func() {
			defer func() {
				if rec := recover(); rec != nil {
					c.log.Error("coordinator: cache size panicked", zap.String("cache", r.name), zap.Any("recover", rec))
				}
			}()
			total += r.cache.SizeBytes()
		}()
	}
	return total
}

// accountingPass runs one periodic pass: if total memory exceeds
// totalLimitMB*pressureThreshold, evict proportionally to (limit-priority)+1
// per cache until total <= totalLimitMB*evictionTarget (spec section 4.5.1).
// A registered cache's SizeBytes/Evict panicking would break every other
// cache's accounting, so each call is isolated by recover.
func (c *Coordinator) accountingPass() {
	c.mu.Lock()
	defer c.mu.Unlock()

	limitBytes := int64(c.cfg.TotalLimitMB) * 1024 * 1024
	pressureBytes := float64(limitBytes) * c.cfg.PressureThreshold
	targetBytes := float64(limitBytes) * c.cfg.EvictionTarget

	total := c.totalBytesLocked()
	if float64(total) <= pressureBytes {
		return
	}

	ordered := c.orderedForEvictionLocked()
	for float64(total) > targetBytes {
		evictedAny := false
		for _, r := range ordered {
			weight := (10 - r.priority) + 1
			evicted := c.safeEvict(r, weight)
			if evicted > 0 {
				evictedAny = true
				total = c.totalBytesLocked()
				if c.metrics != nil {
					c.metrics.CoordinatorEvictions.WithLabelValues(r.name).Add(float64(evicted))
				}
			}
			if float64(total) <= targetBytes {
				break
			}
		}
		if !evictedAny {
			break // every cache is empty or erroring; avoid spinning forever
		}
	}

	if c.metrics != nil {
		c.metrics.CoordinatorTotalMB.Set(float64(total) / (1024 * 1024))
	}
}

// orderedForEvictionLocked sorts caches lowest-priority first, insertion
// order breaking ties (spec section 9: "insertion order (first-registered
// evicted first among equals)"). Caller must hold c.mu.
func (c *Coordinator) orderedForEvictionLocked() []*registration {
	out := make([]*registration, 0, len(c.caches))
	for _, r := range c.caches {
		out = append(out, r)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && less(out[j], out[j-1]); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

func less(a, b *registration) bool {
	if a.priority != b.priority {
		return a.priority < b.priority
	}
	return a.order < b.order
}

// safeEvict calls the cache's Evict, catching a panic from a misbehaving
// registered cache so one bad cache never blocks accounting for the rest
// (spec section 4.5.1: "Errors from any registered cache during accounting
// are caught and logged").
func (c *Coordinator) safeEvict(r *registration, n int) (evicted int) {
	defer func() {
		if rec := recover(); rec != nil {
			c.log.Error("coordinator: cache evict panicked", zap.String("cache", r.name), zap.Any("recover", rec))
			evicted = 0
		}
	}()
	return r.cache.Evict(n)
}

func everySpec(intervalMs int) string {
	if intervalMs <= 0 {
		intervalMs = 60_000
	}
	return "@every " + strconv.Itoa(intervalMs) + "ms"
}
