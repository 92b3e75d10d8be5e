package query

import (
	"container/heap"
	"context"

	"github.com/agentmemory/memoryd/internal/domain/entrytype"
	"github.com/agentmemory/memoryd/internal/embedding"
	"github.com/agentmemory/memoryd/internal/store/vectorindex"
)

// TopKSemantic bounds the in-process cosine scan's result heap (spec
// section 4.2 step 4).
const TopKSemantic = 20

// SemanticHit is one semantic-channel candidate.
type SemanticHit struct {
	EntryID string
	Score   float64 // cosine similarity, [-1, 1], higher is more relevant
}

// semanticSearch embeds req.Search, scans every stored vector for the
// requested kinds, and keeps the top TopKSemantic matches via a bounded
// min-heap rather than sorting the full candidate set (spec section 4.2
// step 4). A dimension mismatch against a stored vector is skipped, not
// fatal to the whole scan.
func semanticSearch(ctx context.Context, embedder embedding.Provider, index *vectorindex.Index, kinds []entrytype.Kind, search string) ([]SemanticHit, error) {
	if !embedder.IsAvailable() {
		return nil, nil
	}
	queryVec, err := embedder.Embed(ctx, search)
	if err != nil {
		return nil, err
	}

	h := &topKHeap{}
	heap.Init(h)
	for _, kind := range kinds {
		entries, listErr := index.All(kind)
		if listErr != nil {
			continue
		}
		for _, e := range entries {
			if len(e.Vector) != len(queryVec) {
				continue
			}
			score := vectorindex.CosineSimilarity(queryVec, e.Vector)
			if h.Len() < TopKSemantic {
				heap.Push(h, SemanticHit{EntryID: e.EntryID, Score: score})
				continue
			}
			if score > (*h)[0].Score {
				heap.Pop(h)
				heap.Push(h, SemanticHit{EntryID: e.EntryID, Score: score})
			}
		}
	}

	out := make([]SemanticHit, h.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(h).(SemanticHit)
	}
	return out, nil
}

// topKHeap is a min-heap on Score, bounded externally to TopKSemantic so
// the weakest retained candidate is always at the root and evictable in
// O(log k).
type topKHeap []SemanticHit

func (h topKHeap) Len() int            { return len(h) }
func (h topKHeap) Less(i, j int) bool  { return h[i].Score < h[j].Score }
func (h topKHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *topKHeap) Push(x any)         { *h = append(*h, x.(SemanticHit)) }
func (h *topKHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
