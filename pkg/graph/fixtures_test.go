// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package graph

import "github.com/kraklabs/parseltongue/pkg/entities"

// fiveNodeChain builds A→B→C→D→E.
func fiveNodeChain() *DependencyGraph {
	return BuildFromEdges([]Edge{
		{From: "A", To: "B", Type: entities.EdgeCalls},
		{From: "B", To: "C", Type: entities.EdgeCalls},
		{From: "C", To: "D", Type: entities.EdgeCalls},
		{From: "D", To: "E", Type: entities.EdgeCalls},
	})
}

// eightNodeReference builds the reference graph used across algorithm tests:
// a diamond A→{B,C}→D feeding the 3-cycle D→E→F→D, plus the isolated
// 2-cycle G↔H.
func eightNodeReference() *DependencyGraph {
	return BuildFromEdges([]Edge{
		{From: "A", To: "B", Type: entities.EdgeCalls},
		{From: "A", To: "C", Type: entities.EdgeCalls},
		{From: "B", To: "D", Type: entities.EdgeCalls},
		{From: "C", To: "D", Type: entities.EdgeCalls},
		{From: "D", To: "E", Type: entities.EdgeCalls},
		{From: "E", To: "F", Type: entities.EdgeCalls},
		{From: "F", To: "D", Type: entities.EdgeCalls},
		{From: "G", To: "H", Type: entities.EdgeCalls},
		{From: "H", To: "G", Type: entities.EdgeCalls},
	})
}
