package consolidation

import (
	"math/rand/v2"
	"sort"
)

// Edge is one weighted similarity edge in the community-detection graph
// (spec: "an optional community-detection pass uses a Leiden-like
// iterative modularity optimizer over the similarity graph").
type Edge struct {
	A, B   string
	Weight float64
}

// CommunityResult reports the detected communities and whether the
// optimizer converged within the iteration budget (spec invariant (a):
// "converge within maxIterations or explicitly report converged=false").
type CommunityResult struct {
	Communities [][]string
	Converged   bool
	Iterations  int
}

// DetectCommunities runs an iterative local-moving modularity optimizer
// (the Leiden algorithm's core move, without the refinement/aggregation
// passes full Leiden adds — sufficient for the entry-count scale this
// system operates at) over nodes/edges, dropping communities smaller than
// minCommunitySize (invariant b) and behaving deterministically for a
// fixed randomSeed (invariant c) by seeding a ChaCha8 source instead of
// the global generator.
func DetectCommunities(nodes []string, edges []Edge, randomSeed uint64, minCommunitySize, maxIterations int) CommunityResult {
	if maxIterations <= 0 {
		maxIterations = 50
	}
	sortedNodes := append([]string(nil), nodes...)
	sort.Strings(sortedNodes)

	adjacency := make(map[string]map[string]float64, len(sortedNodes))
	totalWeight := 0.0
	for _, n := range sortedNodes {
		adjacency[n] = map[string]float64{}
	}
	for _, e := range edges {
		if _, ok := adjacency[e.A]; !ok {
			continue
		}
		if _, ok := adjacency[e.B]; !ok {
			continue
		}
		adjacency[e.A][e.B] += e.Weight
		adjacency[e.B][e.A] += e.Weight
		totalWeight += e.Weight
	}

	degree := make(map[string]float64, len(sortedNodes))
	for n, neighbors := range adjacency {
		for _, w := range neighbors {
			degree[n] += w
		}
	}

	community := make(map[string]string, len(sortedNodes))
	for _, n := range sortedNodes {
		community[n] = n
	}

	rng := rand.New(rand.NewChaCha8(seedBytes(randomSeed)))
	converged := false
	iterations := 0
	for iterations = 0; iterations < maxIterations; iterations++ {
		order := append([]string(nil), sortedNodes...)
		rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

		moved := false
		for _, n := range order {
			best := bestCommunity(n, adjacency, degree, community, totalWeight)
			if best != community[n] {
				community[n] = best
				moved = true
			}
		}
		if !moved {
			converged = true
			iterations++
			break
		}
	}

	groups := make(map[string][]string)
	for _, n := range sortedNodes {
		c := community[n]
		groups[c] = append(groups[c], n)
	}

	var communities [][]string
	for _, members := range groups {
		if len(members) < minCommunitySize {
			continue
		}
		sort.Strings(members)
		communities = append(communities, members)
	}
	sort.Slice(communities, func(i, j int) bool { return communities[i][0] < communities[j][0] })

	return CommunityResult{Communities: communities, Converged: converged, Iterations: iterations}
}

// bestCommunity returns the community id among n's neighbors (plus n's
// current community) that most increases modularity if n joins it,
// breaking ties deterministically by community id.
func bestCommunity(n string, adjacency map[string]map[string]float64, degree map[string]float64, community map[string]string, totalWeight float64) string {
	if totalWeight == 0 {
		return community[n]
	}
	gains := map[string]float64{}
	for neighbor, w := range adjacency[n] {
		c := community[neighbor]
		gains[c] += w
	}

	best := community[n]
	bestGain := gains[best] - degree[n]*communityDegree(community, degree, best, n)/(2*totalWeight)
	candidates := make([]string, 0, len(gains))
	for c := range gains {
		candidates = append(candidates, c)
	}
	sort.Strings(candidates)
	for _, c := range candidates {
		gain := gains[c] - degree[n]*communityDegree(community, degree, c, n)/(2*totalWeight)
		if gain > bestGain {
			bestGain = gain
			best = c
		}
	}
	return best
}

func communityDegree(community map[string]string, degree map[string]float64, c, exclude string) float64 {
	sum := 0.0
	for n, cc := range community {
		if cc == c && n != exclude {
			sum += degree[n]
		}
	}
	return sum
}

func seedBytes(seed uint64) [32]byte {
	var b [32]byte
	for i := 0; i < 4; i++ {
		shift := uint(i * 8)
		v := byte(seed >> shift)
		b[i] = v
		b[i+8] = v
		b[i+16] = v
		b[i+24] = v
	}
	return b
}
