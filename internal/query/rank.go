package query

import (
	"math"
	"sort"
	"time"

	"github.com/agentmemory/memoryd/internal/repository"
)

// Fusion weights for the merge stage (spec section 4.2 step 5).
const (
	weightKeyword  = 0.45
	weightSemantic = 0.35
	weightPriority = 0.10
	weightFresh    = 0.10
)

// freshnessHalfLife controls how quickly the recency component decays;
// an entry created this long ago scores 0.5 on the freshness axis.
const freshnessHalfLife = 30 * 24 * time.Hour

// Candidate is a merged, scored result row ready for filtering.
type Candidate struct {
	Row         repository.Row
	Keyword     float64
	Semantic    float64
	HasKeyword  bool
	HasSemantic bool
	Score       float64
}

// Merge fuses keyword and semantic hits keyed by entry id, attaches each
// candidate's row, and computes the fused score. now is injected so the
// freshness component is deterministic under test.
func Merge(rows map[string]repository.Row, keyword []KeywordHit, semantic []SemanticHit, now time.Time) []Candidate {
	byID := make(map[string]*Candidate, len(rows))
	get := func(id string) *Candidate {
		c, ok := byID[id]
		if !ok {
			row, known := rows[id]
			if !known {
				return nil
			}
			c = &Candidate{Row: row}
			byID[id] = c
		}
		return c
	}

	for _, h := range keyword {
		if c := get(h.EntryID); c != nil {
			c.Keyword = h.Score
			c.HasKeyword = true
		}
	}
	for _, h := range semantic {
		if c := get(h.EntryID); c != nil {
			c.Semantic = h.Score
			c.HasSemantic = true
		}
	}
	// Rows no channel hit (the pure-filter listing) are candidates too,
	// scoring 0 and ordered by the tie-breaks below.
	for id := range rows {
		get(id)
	}

	out := make([]Candidate, 0, len(byID))
	for _, c := range byID {
		c.Score = fuse(*c, now)
		out = append(out, *c)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		si, sj := out[i].Row.Scope.Type.Specificity(), out[j].Row.Scope.Type.Specificity()
		if si != sj {
			return si > sj
		}
		if !out[i].Row.CreatedAt.Equal(out[j].Row.CreatedAt) {
			return out[i].Row.CreatedAt.After(out[j].Row.CreatedAt)
		}
		return out[i].Row.ID < out[j].Row.ID
	})
	return out
}

// fuse computes a candidate's score. When only one of keyword/semantic ran,
// its own normalized component is the final score unweighted; when both
// ran, the full weighted formula applies (spec section 4.2 step 5).
func fuse(c Candidate, now time.Time) float64 {
	switch {
	case c.HasKeyword && c.HasSemantic:
		return weightKeyword*c.Keyword + weightSemantic*c.Semantic +
			weightPriority*priorityComponent(c.Row.Priority) + weightFresh*freshness(c.Row.CreatedAt, now)
	case c.HasKeyword:
		return c.Keyword
	case c.HasSemantic:
		return c.Semantic
	default:
		return 0
	}
}

func priorityComponent(priority int) float64 {
	return float64(priority) / 100
}

// freshness decays exponentially with age, halving every freshnessHalfLife.
func freshness(createdAt, now time.Time) float64 {
	age := now.Sub(createdAt)
	if age < 0 {
		age = 0
	}
	halfLives := float64(age) / float64(freshnessHalfLife)
	return math.Pow(2, -halfLives)
}
