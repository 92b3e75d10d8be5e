package query

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/agnivade/levenshtein"
	"github.com/dlclark/regexp2"

	"github.com/agentmemory/memoryd/internal/repository"
)

// regexMatchTimeout bounds a single regexp2 match as a runtime backstop
// behind validation.CheckRegexSafety's structural gate.
const regexMatchTimeout = 200 * time.Millisecond

// regexSearch scans active entries of the requested kinds and keeps those
// whose name or title matches the caller's backtracking-engine pattern
// (spec section 4.2's "regex" search control). Normalize already ran the
// pattern through validation.CheckRegexSafety before this is reached.
func regexSearch(ctx context.Context, entries *repository.EntryRepository, req Request) ([]KeywordHit, error) {
	re, err := regexp2.Compile(req.SearchControls.Regex, regexp2.RE2)
	if err != nil {
		return nil, err
	}
	re.MatchTimeout = regexMatchTimeout

	rows, err := entries.List(ctx, repository.ListFilter{Kinds: req.Types})
	if err != nil {
		return nil, err
	}

	var out []KeywordHit
	for _, r := range rows {
		haystack := strings.TrimSpace(r.Name + " " + r.Title)
		if haystack == "" {
			continue
		}
		matched, merr := re.MatchString(haystack)
		if merr != nil || !matched {
			continue
		}
		out = append(out, KeywordHit{EntryID: r.ID, Score: 1})
	}
	return out, nil
}

// KeywordHit is one keyword-channel candidate with its normalized score.
type KeywordHit struct {
	EntryID string
	Score   float64 // normalized to (0,1], higher is more relevant
}

// keywordSearch runs the FTS5 bm25 channel, falling back to a LIKE scan
// when FTS5 is disabled, rejects the query (malformed MATCH syntax), or
// returns zero hits while fuzzy matching is requested (spec section 4.2
// step 3).
func keywordSearch(ctx context.Context, entries *repository.EntryRepository, req Request) ([]KeywordHit, error) {
	kinds := req.Types

	if req.SearchControls.Regex != "" {
		return regexSearch(ctx, entries, req)
	}

	if req.SearchControls.UseFTS5 {
		hits, uerr := entries.SearchFTS(ctx, ftsQuery(req.Search), kinds)
		if uerr == nil && (len(hits) > 0 || !req.SearchControls.Fuzzy) {
			out := make([]KeywordHit, len(hits))
			for i, h := range hits {
				out[i] = KeywordHit{EntryID: h.EntryID, Score: normalizeBM25(h.BM25)}
			}
			return out, nil
		}
	}

	rows, uerr := entries.SearchLike(ctx, req.Search, kinds)
	if uerr != nil {
		return nil, uerr
	}
	if len(rows) > 0 || !req.SearchControls.Fuzzy {
		return likeHits(rows), nil
	}

	return fuzzyFallback(ctx, entries, req)
}

// normalizeBM25 squashes SQLite FTS5's bm25 (unbounded, more negative is
// more relevant) into (0,1] via a logistic curve centered on zero.
func normalizeBM25(bm25 float64) float64 {
	return 1 / (1 + math.Exp(bm25))
}

// likeHits scores every LIKE match uniformly; substring matching carries
// no relevance gradient of its own.
func likeHits(rows []repository.Row) []KeywordHit {
	out := make([]KeywordHit, len(rows))
	for i, r := range rows {
		out[i] = KeywordHit{EntryID: r.ID, Score: 0.5}
	}
	return out
}

// fuzzyFallback scans active entries of the requested kinds and scores them
// by normalized Levenshtein distance against the search term, used only
// when both FTS5 and LIKE return zero hits (spec section 4.2 step 3).
func fuzzyFallback(ctx context.Context, entries *repository.EntryRepository, req Request) ([]KeywordHit, error) {
	rows, uerr := entries.List(ctx, repository.ListFilter{Kinds: req.Types})
	if uerr != nil {
		return nil, uerr
	}
	needle := strings.ToLower(req.Search)
	var out []KeywordHit
	for _, r := range rows {
		haystack := strings.ToLower(r.Name + " " + r.Title)
		if haystack == "" {
			continue
		}
		dist := levenshtein.ComputeDistance(needle, haystack)
		maxLen := len(needle)
		if len(haystack) > maxLen {
			maxLen = len(haystack)
		}
		if maxLen == 0 {
			continue
		}
		similarity := 1 - float64(dist)/float64(maxLen)
		if similarity < 0.5 {
			continue
		}
		out = append(out, KeywordHit{EntryID: r.ID, Score: similarity})
	}
	return out, nil
}

// ftsQuery escapes FTS5 MATCH special characters by quoting the whole
// phrase, so free-text search never needs callers to know FTS5 syntax.
func ftsQuery(search string) string {
	escaped := strings.ReplaceAll(search, `"`, `""`)
	return `"` + escaped + `"`
}
