// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package graph

import "sort"

// CoreLayer classifies a coreness value into an architecture layer.
type CoreLayer string

const (
	LayerCore       CoreLayer = "Core"       // k >= 8
	LayerMid        CoreLayer = "Mid"        // 3 <= k < 8
	LayerPeripheral CoreLayer = "Peripheral" // k < 3
)

// KCoreDecomposition computes the coreness of every node with the
// Batagelj-Zaversnik algorithm over the undirected view of the graph
// (forward ∪ reverse neighbors, deduplicated).
//
// Nodes are removed one at a time in non-decreasing current-degree order;
// the running k is monotone, so coreness values are non-decreasing in
// removal order.
//
// Reference: Batagelj & Zaversnik (2003), "An O(m) Algorithm for Cores
// Decomposition of Networks".
func KCoreDecomposition(g *DependencyGraph) map[string]int {
	coreness := make(map[string]int)
	if g.NodeCount() == 0 {
		return coreness
	}

	neighbors := make(map[string]map[string]struct{}, g.NodeCount())
	degrees := make(map[string]int, g.NodeCount())
	for node := range g.Nodes() {
		nbrs := g.undirectedNeighbors(node)
		neighbors[node] = nbrs
		degrees[node] = len(nbrs)
	}

	// Degree buckets. Within a bucket, pick nodes in sorted order so the
	// decomposition is deterministic.
	buckets := make(map[int]map[string]struct{})
	for node, deg := range degrees {
		if buckets[deg] == nil {
			buckets[deg] = make(map[string]struct{})
		}
		buckets[deg][node] = struct{}{}
	}

	remaining := g.NodeCount()
	k := 0
	for remaining > 0 {
		minDeg := -1
		for deg, bucket := range buckets {
			if len(bucket) == 0 {
				continue
			}
			if minDeg < 0 || deg < minDeg {
				minDeg = deg
			}
		}

		if minDeg > k {
			k = minDeg
		}

		v := popSortedFirst(buckets[minDeg])
		if len(buckets[minDeg]) == 0 {
			delete(buckets, minDeg)
		}
		coreness[v] = k
		remaining--

		for nbr := range neighbors[v] {
			if _, done := coreness[nbr]; done {
				continue
			}
			oldDeg := degrees[nbr]
			newDeg := oldDeg
			if newDeg > 0 {
				newDeg--
			}
			delete(buckets[oldDeg], nbr)
			if len(buckets[oldDeg]) == 0 {
				delete(buckets, oldDeg)
			}
			degrees[nbr] = newDeg
			if buckets[newDeg] == nil {
				buckets[newDeg] = make(map[string]struct{})
			}
			buckets[newDeg][nbr] = struct{}{}
		}
	}

	return coreness
}

// popSortedFirst removes and returns the lexicographically smallest member
// of the set.
func popSortedFirst(set map[string]struct{}) string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	delete(set, keys[0])
	return keys[0]
}

// ClassifyCoreLayer maps a coreness value to its layer.
func ClassifyCoreLayer(coreness int) CoreLayer {
	switch {
	case coreness >= 8:
		return LayerCore
	case coreness >= 3:
		return LayerMid
	default:
		return LayerPeripheral
	}
}
