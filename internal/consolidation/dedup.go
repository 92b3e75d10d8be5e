// Package consolidation implements duplicate/similarity grouping, a
// Leiden-like community detection pass over the embedding-similarity
// graph, and DPO preference-pair export from historical decisions (spec
// section 4.4). Grounded on the teacher's domain/services package:
// similarity_calculator.go's configurable-algorithm idiom generalizes into
// the cosine-threshold grouping here, and graph_analytics_service.go's
// connected-components/BFS traversal generalizes into the community
// detector, both moved from node/edge keyword graphs to entry/embedding
// graphs.
package consolidation

import (
	"sort"

	"github.com/samber/lo"

	"github.com/agentmemory/memoryd/internal/domain/entrytype"
	"github.com/agentmemory/memoryd/internal/domain/scope"
	"github.com/agentmemory/memoryd/internal/repository"
	"github.com/agentmemory/memoryd/internal/store/vectorindex"
)

// DuplicateGroup is one cluster of near-duplicate entries within a single
// scope (spec: "each group exposes (avgSimilarity, minSimilarity,
// maxSimilarity, dominantTypes)").
type DuplicateGroup struct {
	Scope         scope.Scope
	EntryIDs      []string
	AvgSimilarity float64
	MinSimilarity float64
	MaxSimilarity float64
	DominantTypes []entrytype.Kind
}

// GroupDuplicates groups rows by scope, then within each scope clusters
// entries whose pairwise cosine similarity is at least threshold
// (transitively: connected components of the threshold graph, the same
// idiom as GraphAnalyticsService.GetClusters' DFS over edges, generalized
// from keyword-connected nodes to embedding-similarity edges). Rows
// without a stored vector are skipped; singleton clusters (no qualifying
// neighbor) are dropped since they carry no duplication signal.
func GroupDuplicates(rows []repository.Row, vectors map[string][]float32, threshold float64) []DuplicateGroup {
	byScope := lo.GroupBy(rows, func(r repository.Row) scope.Scope { return r.Scope })

	scopeKeys := make([]scope.Scope, 0, len(byScope))
	for s := range byScope {
		scopeKeys = append(scopeKeys, s)
	}
	sort.Slice(scopeKeys, func(i, j int) bool {
		if scopeKeys[i].Type != scopeKeys[j].Type {
			return scopeKeys[i].Type < scopeKeys[j].Type
		}
		return scopeKeys[i].ID < scopeKeys[j].ID
	})

	var out []DuplicateGroup
	for _, s := range scopeKeys {
		out = append(out, clusterScope(s, byScope[s], vectors, threshold)...)
	}
	return out
}

func clusterScope(s scope.Scope, rows []repository.Row, vectors map[string][]float32, threshold float64) []DuplicateGroup {
	byID := make(map[string]repository.Row, len(rows))
	candidates := make([]string, 0, len(rows))
	for _, r := range rows {
		if _, ok := vectors[r.ID]; !ok {
			continue
		}
		byID[r.ID] = r
		candidates = append(candidates, r.ID)
	}
	sort.Strings(candidates)

	adjacency := make(map[string][]string, len(candidates))
	for i := 0; i < len(candidates); i++ {
		for j := i + 1; j < len(candidates); j++ {
			a, b := candidates[i], candidates[j]
			sim := vectorindex.CosineSimilarity(vectors[a], vectors[b])
			if sim >= threshold {
				adjacency[a] = append(adjacency[a], b)
				adjacency[b] = append(adjacency[b], a)
			}
		}
	}

	visited := make(map[string]bool, len(candidates))
	var groups []DuplicateGroup
	for _, id := range candidates {
		if visited[id] || len(adjacency[id]) == 0 {
			continue
		}
		component := bfsComponent(id, adjacency, visited)
		if len(component) < 2 {
			continue
		}
		groups = append(groups, summarizeGroup(s, component, byID, vectors))
	}
	return groups
}

func bfsComponent(start string, adjacency map[string][]string, visited map[string]bool) []string {
	visited[start] = true
	queue := []string{start}
	component := []string{start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range adjacency[cur] {
			if !visited[next] {
				visited[next] = true
				queue = append(queue, next)
				component = append(component, next)
			}
		}
	}
	sort.Strings(component)
	return component
}

func summarizeGroup(s scope.Scope, ids []string, byID map[string]repository.Row, vectors map[string][]float32) DuplicateGroup {
	var sum, min, max float64
	min = 1
	pairCount := 0
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			sim := vectorindex.CosineSimilarity(vectors[ids[i]], vectors[ids[j]])
			sum += sim
			pairCount++
			if sim < min {
				min = sim
			}
			if sim > max {
				max = sim
			}
		}
	}
	avg := 0.0
	if pairCount > 0 {
		avg = sum / float64(pairCount)
	}

	kinds := lo.Map(ids, func(id string, _ int) entrytype.Kind { return byID[id].Kind })
	counts := make(map[entrytype.Kind]int)
	for _, k := range kinds {
		counts[k]++
	}
	topCount := 0
	for _, c := range counts {
		if c > topCount {
			topCount = c
		}
	}
	var dominant []entrytype.Kind
	for _, k := range lo.Uniq(kinds) {
		if counts[k] == topCount {
			dominant = append(dominant, k)
		}
	}
	sort.Slice(dominant, func(i, j int) bool { return dominant[i] < dominant[j] })

	return DuplicateGroup{
		Scope:         s,
		EntryIDs:      ids,
		AvgSimilarity: avg,
		MinSimilarity: min,
		MaxSimilarity: max,
		DominantTypes: dominant,
	}
}
