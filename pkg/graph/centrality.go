// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package graph

// Default PageRank parameters.
const (
	DefaultDamping   = 0.85
	DefaultMaxIter   = 100
	DefaultTolerance = 1e-10
)

// PageRank computes PageRank centrality scores.
//
// Iterative formula with the dangling-mass term folded into the teleport
// component:
//
//	PR(v) = (1 - d + d·S_dangling)/N + d·Σ_{u∈pred(v)} PR(u)/outdeg(u)
//
// where S_dangling is the summed PageRank of zero-out-degree nodes. This
// placement differs from the textbook formulation: rank orderings match
// reference behavior (sink > source in a chain) and the values sum to ≈1.0,
// but absolute values do not match the canonical redistribution. Kept as the
// documented variant.
//
// Initialization is uniform 1/N; iteration stops when Σ|ΔPR| < tolerance or
// after maxIterations. Empty graphs return an empty map.
func PageRank(g *DependencyGraph, damping float64, maxIterations int, tolerance float64) map[string]float64 {
	n := g.NodeCount()
	if n == 0 {
		return map[string]float64{}
	}
	nf := float64(n)

	nodes := g.NodeList()
	pr := make(map[string]float64, n)
	for _, node := range nodes {
		pr[node] = 1.0 / nf
	}

	for iter := 0; iter < maxIterations; iter++ {
		var danglingSum float64
		for _, node := range nodes {
			if g.OutDegree(node) == 0 {
				danglingSum += pr[node]
			}
		}

		next := make(map[string]float64, n)
		var diff float64
		for _, v := range nodes {
			var incoming float64
			for _, u := range g.ReverseNeighbors(v) {
				if deg := g.OutDegree(u); deg > 0 {
					incoming += pr[u] / float64(deg)
				}
			}
			score := (1.0-damping+damping*danglingSum)/nf + damping*incoming
			d := score - pr[v]
			if d < 0 {
				d = -d
			}
			diff += d
			next[v] = score
		}

		pr = next
		if diff < tolerance {
			break
		}
	}

	return pr
}

// Betweenness computes betweenness centrality with Brandes' algorithm on the
// unweighted directed graph. No normalization is applied. O(VE).
//
// Reference: Brandes (2001), "A faster algorithm for betweenness
// centrality".
func Betweenness(g *DependencyGraph) map[string]float64 {
	nodes := g.NodeList()
	betweenness := make(map[string]float64, len(nodes))
	for _, n := range nodes {
		betweenness[n] = 0
	}
	if len(nodes) == 0 {
		return betweenness
	}

	for _, s := range nodes {
		stack := make([]string, 0, len(nodes))
		pred := make(map[string][]string, len(nodes))
		sigma := make(map[string]int, len(nodes))
		dist := make(map[string]int, len(nodes))
		delta := make(map[string]float64, len(nodes))
		for _, n := range nodes {
			dist[n] = -1
		}
		sigma[s] = 1
		dist[s] = 0

		queue := []string{s}
		for len(queue) > 0 {
			v := queue[0]
			queue = queue[1:]
			stack = append(stack, v)
			for _, w := range g.ForwardNeighbors(v) {
				if dist[w] < 0 {
					queue = append(queue, w)
					dist[w] = dist[v] + 1
				}
				if dist[w] == dist[v]+1 {
					sigma[w] += sigma[v]
					pred[w] = append(pred[w], v)
				}
			}
		}

		// Back-accumulation in reverse BFS order.
		for i := len(stack) - 1; i >= 0; i-- {
			w := stack[i]
			for _, v := range pred[w] {
				delta[v] += (float64(sigma[v]) / float64(sigma[w])) * (1.0 + delta[w])
			}
			if w != s {
				betweenness[w] += delta[w]
			}
		}
	}

	return betweenness
}
