package consolidation

import (
	"sort"

	"github.com/cespare/xxhash/v2"

	"github.com/agentmemory/memoryd/internal/repository"
)

// DefaultMinRewardDelta is MIN_REWARD_DELTA (spec section 4.4): the
// minimum reward gap required between two examples in the same state
// bucket before they form a preference pair.
const DefaultMinRewardDelta = 0.1

// Pair is one DPO preference pair (spec: "{prompt, chosen, rejected}").
type Pair struct {
	Prompt   string
	Chosen   string
	Rejected string
}

// DefaultMinPairs is the minimum total pair count ExportDPO requires to
// report success when DPOConfig.MinPairs is left at its zero value.
const DefaultMinPairs = 1

// DPOConfig parameterizes ExportDPO.
type DPOConfig struct {
	MinRewardDelta float64 // default DefaultMinRewardDelta
	MinPairs       int     // default DefaultMinPairs
}

// Result is ExportDPO's outcome, shaped to mirror the spec's literal
// failure envelope ("{success:false, error:\"Insufficient training
// pairs\"}").
type Result struct {
	Success bool
	Pairs   []Pair
	Error   string
}

// ExportDPO buckets decisions by a hash of their state features
// (cespare/xxhash/v2, chosen for stable, low-collision bucket keys over an
// arbitrary JSON feature blob) and, within each bucket, forms a pair for
// every two decisions whose reward differs by at least
// cfg.MinRewardDelta, with the higher-reward example as chosen. Buckets
// contribute independently; pairs across buckets are never formed since a
// bucket represents one state. Returns success=false with no partial data
// when the total pair count is below cfg.MinPairs.
func ExportDPO(decisions []repository.Decision, cfg DPOConfig) Result {
	if cfg.MinRewardDelta <= 0 {
		cfg.MinRewardDelta = DefaultMinRewardDelta
	}
	if cfg.MinPairs <= 0 {
		cfg.MinPairs = DefaultMinPairs
	}

	buckets := make(map[uint64][]repository.Decision)
	for _, d := range decisions {
		key := xxhash.Sum64String(d.StateFeatures)
		buckets[key] = append(buckets[key], d)
	}

	keys := make([]uint64, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	var pairs []Pair
	for _, k := range keys {
		bucket := buckets[k]
		sort.SliceStable(bucket, func(i, j int) bool { return bucket[i].ID < bucket[j].ID })
		for i := 0; i < len(bucket); i++ {
			for j := i + 1; j < len(bucket); j++ {
				a, b := bucket[i], bucket[j]
				delta := a.Reward - b.Reward
				if delta < 0 {
					delta = -delta
				}
				if delta < cfg.MinRewardDelta {
					continue
				}
				chosen, rejected := a, b
				if b.Reward > a.Reward {
					chosen, rejected = b, a
				}
				pairs = append(pairs, Pair{Prompt: chosen.Prompt, Chosen: chosen.Outcome, Rejected: rejected.Outcome})
			}
		}
	}

	if len(pairs) < cfg.MinPairs {
		return Result{Success: false, Error: "Insufficient training pairs"}
	}
	return Result{Success: true, Pairs: pairs}
}
