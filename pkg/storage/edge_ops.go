// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/kraklabs/parseltongue/pkg/entities"
)

// InsertEdge upserts a single dependency edge via a parameterized :put.
// Duplicate composite keys are idempotent.
func (c *Client) InsertEdge(ctx context.Context, edge *entities.DependencyEdge) error {
	if err := edge.Validate(); err != nil {
		return err
	}
	script := `
	?[from_key, to_key, edge_type, source_location] <-
	[[$from_key, $to_key, $edge_type, $source_location]]

	:put DependencyEdges {
		from_key, to_key, edge_type =>
		source_location
	}
	`
	params := map[string]any{
		"from_key":        edge.FromKey,
		"to_key":          edge.ToKey,
		"edge_type":       string(edge.Type),
		"source_location": optStringParam(edge.SourceLocation),
	}
	if _, err := c.run(ctx, script, params); err != nil {
		return fmt.Errorf("insert edge %s->%s: %w", edge.FromKey, edge.ToKey, err)
	}
	return nil
}

// InsertEdgesBatch upserts edges in a single script with inline data.
// An empty batch is a no-op.
func (c *Client) InsertEdgesBatch(ctx context.Context, edges []entities.DependencyEdge) error {
	if len(edges) == 0 {
		return nil
	}

	tuples := make([]string, 0, len(edges))
	for i := range edges {
		if err := edges[i].Validate(); err != nil {
			return err
		}
		tuples = append(tuples, fmt.Sprintf("[%s, %s, %s, %s]",
			quoteString(edges[i].FromKey),
			quoteString(edges[i].ToKey),
			quoteString(string(edges[i].Type)),
			quoteOptString(edges[i].SourceLocation)))
	}

	script := fmt.Sprintf(`
	?[from_key, to_key, edge_type, source_location] <- [%s]

	:put DependencyEdges {
		from_key, to_key, edge_type =>
		source_location
	}
	`, strings.Join(tuples, ", "))

	if _, err := c.run(ctx, script, nil); err != nil {
		return fmt.Errorf("batch insert %d edges: %w", len(edges), err)
	}
	return nil
}

// GetForwardDependencies returns the 1-hop targets of the entity.
func (c *Client) GetForwardDependencies(ctx context.Context, key string) ([]string, error) {
	script := "?[to_key] := *DependencyEdges{from_key, to_key}, from_key == $key"
	result, err := c.query(ctx, script, map[string]any{"key": key})
	if err != nil {
		return nil, fmt.Errorf("forward dependencies of %s: %w", key, err)
	}
	return firstColumnStrings(result.Rows), nil
}

// GetReverseDependencies returns the 1-hop sources pointing at the entity.
func (c *Client) GetReverseDependencies(ctx context.Context, key string) ([]string, error) {
	script := "?[from_key] := *DependencyEdges{from_key, to_key}, to_key == $key"
	result, err := c.query(ctx, script, map[string]any{"key": key})
	if err != nil {
		return nil, fmt.Errorf("reverse dependencies of %s: %w", key, err)
	}
	return firstColumnStrings(result.Rows), nil
}

// GetAllEdges returns the full edge relation.
func (c *Client) GetAllEdges(ctx context.Context) ([]entities.DependencyEdge, error) {
	script := "?[from_key, to_key, edge_type, source_location] := " +
		"*DependencyEdges{from_key, to_key, edge_type, source_location}"
	result, err := c.query(ctx, script, nil)
	if err != nil {
		return nil, fmt.Errorf("get all edges: %w", err)
	}

	edges := make([]entities.DependencyEdge, 0, len(result.Rows))
	for _, row := range result.Rows {
		if len(row) < 4 {
			continue
		}
		edges = append(edges, entities.DependencyEdge{
			FromKey:        rowString(row[0]),
			ToKey:          rowString(row[1]),
			Type:           entities.EdgeType(rowString(row[2])),
			SourceLocation: rowOptString(row[3]),
		})
	}
	return edges, nil
}

// DeleteEdgesByFromKeys removes every edge whose from_key is in keys,
// cascading the edge cleanup for deleted entities. Returns the number of
// edges removed. Empty input is a no-op.
func (c *Client) DeleteEdgesByFromKeys(ctx context.Context, keys []string) (int, error) {
	if len(keys) == 0 {
		return 0, nil
	}

	keySet := make(map[string]bool, len(keys))
	quoted := make([]string, len(keys))
	for i, k := range keys {
		keySet[k] = true
		quoted[i] = quoteString(k)
	}
	inList := strings.Join(quoted, ", ")

	// Count doomed edges first so the caller gets an accurate removal count;
	// :rm itself does not report how many tuples matched.
	countScript := fmt.Sprintf(
		"?[from_key, to_key, edge_type] := *DependencyEdges{from_key, to_key, edge_type}, "+
			"is_in(from_key, [%s])", inList)
	existing, err := c.query(ctx, countScript, nil)
	if err != nil {
		return 0, fmt.Errorf("count edges by from_keys: %w", err)
	}
	if len(existing.Rows) == 0 {
		return 0, nil
	}

	tuples := make([]string, 0, len(existing.Rows))
	for _, row := range existing.Rows {
		if len(row) < 3 {
			continue
		}
		tuples = append(tuples, fmt.Sprintf("[%s, %s, %s]",
			quoteString(rowString(row[0])),
			quoteString(rowString(row[1])),
			quoteString(rowString(row[2]))))
	}

	script := fmt.Sprintf(
		"?[from_key, to_key, edge_type] <- [%s]\n\n:rm DependencyEdges { from_key, to_key, edge_type }\n",
		strings.Join(tuples, ", "))
	if _, err := c.run(ctx, script, nil); err != nil {
		return 0, fmt.Errorf("delete edges by from_keys: %w", err)
	}
	return len(tuples), nil
}

// CountEdges returns the DependencyEdges row count.
func (c *Client) CountEdges(ctx context.Context) (int, error) {
	result, err := c.query(ctx,
		"?[count(from_key)] := *DependencyEdges{from_key}", nil)
	if err != nil {
		return 0, fmt.Errorf("count edges: %w", err)
	}
	if len(result.Rows) == 0 || len(result.Rows[0]) == 0 {
		return 0, nil
	}
	return int(rowInt(result.Rows[0][0])), nil
}

func firstColumnStrings(rows [][]any) []string {
	out := make([]string, 0, len(rows))
	for _, row := range rows {
		if len(row) > 0 {
			if s := rowString(row[0]); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}
