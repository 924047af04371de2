// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"fmt"
	"sort"
)

// BlastRadiusEntry is one affected node with its minimum distance from the
// source.
type BlastRadiusEntry struct {
	Key      string `json:"key"`
	Distance int    `json:"distance"`
}

// CalculateBlastRadius finds all entities reachable from the changed key
// within maxHops, with the minimum distance per node, sorted by distance
// ascending. maxHops == 0 returns empty without touching the store.
//
// Bounded recursive Datalog: the base case seeds direct dependents at
// distance 1, the recursive case follows edges while the distance counter
// stays under the bound, and the head aggregates min distance per node —
// multi-path (diamond) dependencies resolve to their shortest route.
func (c *Client) CalculateBlastRadius(ctx context.Context, changedKey string, maxHops int) ([]BlastRadiusEntry, error) {
	if maxHops == 0 {
		return nil, nil
	}

	script := `
	reachable[to_key, distance] := *DependencyEdges{from_key, to_key},
	                               from_key == $start_key,
	                               distance = 1

	reachable[to_key, new_distance] := reachable[from, dist],
	                                   *DependencyEdges{from_key: from, to_key},
	                                   dist < $max_hops,
	                                   new_distance = dist + 1

	shortest[node, min(dist)] := reachable[node, dist]

	?[node, min_dist] := shortest[node, min_dist]

	:order min_dist
	`
	params := map[string]any{
		"start_key": changedKey,
		"max_hops":  maxHops,
	}

	result, err := c.query(ctx, script, params)
	if err != nil {
		return nil, fmt.Errorf("blast radius of %s: %w", changedKey, err)
	}

	entries := make([]BlastRadiusEntry, 0, len(result.Rows))
	for _, row := range result.Rows {
		if len(row) < 2 {
			continue
		}
		entries = append(entries, BlastRadiusEntry{
			Key:      rowString(row[0]),
			Distance: int(rowInt(row[1])),
		})
	}

	// The :order clause already sorts by distance; re-sorting keeps the
	// contract independent of store behavior and breaks ties by key.
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Distance != entries[j].Distance {
			return entries[i].Distance < entries[j].Distance
		}
		return entries[i].Key < entries[j].Key
	})

	return entries, nil
}

// GetTransitiveClosure returns every entity reachable from the key through
// any number of hops. Unbounded recursion terminates via the store's
// fixed-point semantics, cycles included.
func (c *Client) GetTransitiveClosure(ctx context.Context, key string) ([]string, error) {
	script := `
	reachable[to_key] := *DependencyEdges{from_key, to_key}, from_key == $start_key
	reachable[to_key] := reachable[x], *DependencyEdges{from_key: x, to_key}

	?[node] := reachable[node]
	`
	result, err := c.query(ctx, script, map[string]any{"start_key": key})
	if err != nil {
		return nil, fmt.Errorf("transitive closure of %s: %w", key, err)
	}
	return firstColumnStrings(result.Rows), nil
}
