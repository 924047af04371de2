// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kraklabs/parseltongue/pkg/entities"
)

func TestEmptyGraph(t *testing.T) {
	g := New()
	assert.Equal(t, 0, g.NodeCount())
	assert.Equal(t, 0, g.EdgeCount())
	assert.Empty(t, g.ForwardNeighbors("NONEXISTENT"))
	assert.Empty(t, g.ReverseNeighbors("NONEXISTENT"))
	assert.Equal(t, 0, g.OutDegree("NONEXISTENT"))
	assert.Equal(t, 0, g.InDegree("NONEXISTENT"))
	_, ok := g.EdgeType("A", "B")
	assert.False(t, ok)
}

func TestAddNodeIdempotent(t *testing.T) {
	g := New()
	g.AddNode("A")
	g.AddNode("B")
	g.AddNode("A")
	assert.Equal(t, 2, g.NodeCount())
}

func TestAddEdgeAutoAddsEndpoints(t *testing.T) {
	g := New()
	g.AddEdge("A", "B", entities.EdgeCalls)

	assert.Equal(t, 2, g.NodeCount())
	assert.Equal(t, 1, g.EdgeCount())
	et, ok := g.EdgeType("A", "B")
	assert.True(t, ok)
	assert.Equal(t, entities.EdgeCalls, et)
}

func TestDuplicateEdgesPreserved(t *testing.T) {
	g := New()
	g.AddEdge("A", "B", entities.EdgeCalls)
	g.AddEdge("A", "B", entities.EdgeUses)

	// Both parallel edges stay in the adjacency list and the count.
	assert.Equal(t, 2, g.EdgeCount())
	assert.Equal(t, []string{"B", "B"}, g.ForwardNeighbors("A"))
	assert.Equal(t, 2, g.OutDegree("A"))

	// Edge-type lookup is last-writer-wins on multi-edges.
	et, _ := g.EdgeType("A", "B")
	assert.Equal(t, entities.EdgeUses, et)
}

func TestDegrees(t *testing.T) {
	g := eightNodeReference()

	assert.Equal(t, 2, g.OutDegree("A"))
	assert.Equal(t, 0, g.InDegree("A"))
	assert.Equal(t, 1, g.OutDegree("D"))
	assert.Equal(t, 3, g.InDegree("D")) // B, C, F
}

func TestBuildFromEdges(t *testing.T) {
	g := BuildFromEdges([]Edge{
		{From: "X", To: "Y", Type: entities.EdgeCalls},
		{From: "Y", To: "Z", Type: entities.EdgeUses},
	})
	assert.Equal(t, 3, g.NodeCount())
	assert.Equal(t, 2, g.EdgeCount())
	et, _ := g.EdgeType("Y", "Z")
	assert.Equal(t, entities.EdgeUses, et)
}

func TestDegreeNeighborInvariant(t *testing.T) {
	// For every node, in-degree plus out-degree bounds the unique-neighbor count.
	g := eightNodeReference()
	g.AddEdge("A", "B", entities.EdgeUses) // introduce a parallel edge

	for node := range g.Nodes() {
		union := g.undirectedNeighbors(node)
		assert.GreaterOrEqual(t, g.InDegree(node)+g.OutDegree(node), len(union), node)
	}
}
