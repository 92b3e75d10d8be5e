package query

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/dgraph-io/ristretto/v2"

	"github.com/agentmemory/memoryd/internal/observability"
)

// CacheTTL is the default result-cache entry lifetime (spec section 4.2
// step 7).
const CacheTTL = 5 * time.Minute

// ResultCache memoizes a normalized Request's Response, registered with the
// memory coordinator under the "query" cache name so it participates in
// priority-weighted eviction alongside the classification cache.
type ResultCache struct {
	cache   *ristretto.Cache[uint64, Response]
	metrics *observability.Metrics
}

// NewResultCache builds a bounded ristretto cache sized for maxItems
// entries.
func NewResultCache(maxItems int64, metrics *observability.Metrics) (*ResultCache, error) {
	c, err := ristretto.NewCache(&ristretto.Config[uint64, Response]{
		NumCounters: maxItems * 10,
		MaxCost:     maxItems,
		BufferItems: 64,
		Metrics:     true,
	})
	if err != nil {
		return nil, fmt.Errorf("new query result cache: %w", err)
	}
	return &ResultCache{cache: c, metrics: metrics}, nil
}

// Get returns the cached Response for req, if present and unexpired.
func (rc *ResultCache) Get(req Request) (Response, bool) {
	resp, ok := rc.cache.Get(fingerprint(req))
	if rc.metrics != nil {
		outcome := "miss"
		if ok {
			outcome = "hit"
		}
		rc.metrics.QueryCache.WithLabelValues(outcome).Inc()
	}
	return resp, ok
}

// Set stores resp for req with the default TTL. Wait forces ristretto's
// internal admission buffer to drain so an immediately-following Get sees
// the write, rather than leaving visibility eventually-consistent.
func (rc *ResultCache) Set(req Request, resp Response) {
	rc.cache.SetWithTTL(fingerprint(req), resp, 1, CacheTTL)
	rc.cache.Wait()
}

// Invalidate drops every cached entry; called after any write to keep the
// result cache from serving stale relevance data (spec section 4.2 step 7:
// "any entry/tag/relation mutation invalidates the whole query cache").
func (rc *ResultCache) Invalidate() {
	rc.cache.Clear()
}

// fingerprint builds a stable hash of a normalized Request's fields that
// affect its result set, so two structurally identical requests share a
// cache slot regardless of field ordering in slices.
func fingerprint(req Request) uint64 {
	var b strings.Builder
	fmt.Fprintf(&b, "action=%s|search=%s|scope=%s:%s:%t|compact=%t|limit=%d|offset=%d|semantic=%t",
		req.Action, req.Search, req.Scope.Type, req.Scope.ID, req.Scope.Inherit, req.Compact, req.Limit, req.Offset, req.SemanticSearch)

	types := make([]string, len(req.Types))
	for i, t := range req.Types {
		types[i] = string(t)
	}
	sort.Strings(types)
	fmt.Fprintf(&b, "|types=%s", strings.Join(types, ","))

	tags := append([]string(nil), req.Filters.Tags...)
	sort.Strings(tags)
	fmt.Fprintf(&b, "|tags=%s|minPriority=%d|includeInactive=%t",
		strings.Join(tags, ","), req.Filters.MinPriority, req.Filters.IncludeInactive)

	fmt.Fprintf(&b, "|fts=%t|fuzzy=%t|regex=%s", req.SearchControls.UseFTS5, req.SearchControls.Fuzzy, req.SearchControls.Regex)

	if req.RelatedTo != nil {
		fmt.Fprintf(&b, "|related=%s:%s:%s:%d", req.RelatedTo.Type, req.RelatedTo.ID, req.RelatedTo.Direction, req.RelatedTo.MaxDepth)
	}

	return xxhash.Sum64String(b.String())
}

// SizeBytes reports the cache's current admitted cost, satisfying
// coordinator.Cache so the result cache can register under the "query"
// name (spec section 4.5.1).
func (rc *ResultCache) SizeBytes() int64 {
	m := rc.cache.Metrics
	if m == nil {
		return 0
	}
	return int64(m.CostAdded()) - int64(m.CostEvicted())
}

// Evict drops every cached entry under memory pressure. ristretto has no
// partial-eviction API, so the coordinator's request for n entries is
// satisfied by clearing the whole cache; the number of entries held just
// before the clear, capped at n, is returned.
func (rc *ResultCache) Evict(n int) int {
	before := rc.SizeBytes()
	rc.cache.Clear()
	if before <= 0 {
		return 0
	}
	if int64(n) < before {
		return n
	}
	return int(before)
}
