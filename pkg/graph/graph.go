// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package graph provides the shared directed-graph representation and the
// graph-analysis algorithms computed over the stored dependency edges:
// Tarjan SCC, k-core decomposition, PageRank, Brandes betweenness, edge-type
// entropy, Leiden community detection, CK metrics, and SQALE debt scoring.
//
// A graph is built transiently per analysis request from store query results
// and dropped at the end of the handler; it is single-owner and never
// mutated concurrently.
package graph

import "github.com/kraklabs/parseltongue/pkg/entities"

// Edge is the (from, to, type) triple a graph is built from.
type Edge struct {
	From string
	To   string
	Type entities.EdgeType
}

// DependencyGraph is a directed multigraph over string node ids with labeled
// edges. Forward and reverse adjacency lists give O(1) neighbor access in
// both directions. Duplicate (from, to) edges are preserved in the adjacency
// lists and counted; the edge-type map is last-writer-wins for multi-edges
// (documented limitation).
type DependencyGraph struct {
	forward   map[string][]string
	reverse   map[string][]string
	edgeTypes map[[2]string]entities.EdgeType
	nodes     map[string]struct{}
	edgeCount int
}

// New creates an empty graph.
func New() *DependencyGraph {
	return &DependencyGraph{
		forward:   make(map[string][]string),
		reverse:   make(map[string][]string),
		edgeTypes: make(map[[2]string]entities.EdgeType),
		nodes:     make(map[string]struct{}),
	}
}

// BuildFromEdges constructs a graph from dependency edges in one pass.
// This is the integration point for HTTP handlers after fetching edges from
// the store.
func BuildFromEdges(edges []Edge) *DependencyGraph {
	g := New()
	for _, e := range edges {
		g.AddEdge(e.From, e.To, e.Type)
	}
	return g
}

// AddNode inserts a node. Idempotent.
func (g *DependencyGraph) AddNode(id string) {
	g.nodes[id] = struct{}{}
}

// AddEdge inserts a typed edge, auto-adding both endpoints.
func (g *DependencyGraph) AddEdge(from, to string, edgeType entities.EdgeType) {
	g.nodes[from] = struct{}{}
	g.nodes[to] = struct{}{}
	g.forward[from] = append(g.forward[from], to)
	g.reverse[to] = append(g.reverse[to], from)
	g.edgeTypes[[2]string{from, to}] = edgeType
	g.edgeCount++
}

// ForwardNeighbors returns the nodes this node points at. Empty for unknown
// nodes. The returned slice is owned by the graph; callers must not mutate.
func (g *DependencyGraph) ForwardNeighbors(id string) []string {
	return g.forward[id]
}

// ReverseNeighbors returns the nodes pointing at this node.
func (g *DependencyGraph) ReverseNeighbors(id string) []string {
	return g.reverse[id]
}

// OutDegree returns the number of outgoing edges (0 for unknown nodes).
func (g *DependencyGraph) OutDegree(id string) int {
	return len(g.forward[id])
}

// InDegree returns the number of incoming edges (0 for unknown nodes).
func (g *DependencyGraph) InDegree(id string) int {
	return len(g.reverse[id])
}

// EdgeType returns the type recorded for (from, to), if any. For parallel
// edges the last inserted type wins.
func (g *DependencyGraph) EdgeType(from, to string) (entities.EdgeType, bool) {
	t, ok := g.edgeTypes[[2]string{from, to}]
	return t, ok
}

// Nodes returns the node set. Owned by the graph.
func (g *DependencyGraph) Nodes() map[string]struct{} {
	return g.nodes
}

// NodeList returns the node ids as a slice, in map order.
func (g *DependencyGraph) NodeList() []string {
	out := make([]string, 0, len(g.nodes))
	for n := range g.nodes {
		out = append(out, n)
	}
	return out
}

// NodeCount returns the number of unique nodes.
func (g *DependencyGraph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the total number of edges, counting duplicates.
func (g *DependencyGraph) EdgeCount() int {
	return g.edgeCount
}

// undirectedNeighbors returns the deduplicated union of forward and reverse
// neighbors, the degree notion used by k-core and the Leiden degree proxy.
func (g *DependencyGraph) undirectedNeighbors(id string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, n := range g.forward[id] {
		set[n] = struct{}{}
	}
	for _, n := range g.reverse[id] {
		set[n] = struct{}{}
	}
	return set
}
