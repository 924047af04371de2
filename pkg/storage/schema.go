// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"fmt"
	"strings"
)

// Relation schemas. Created idempotently at startup; a ":create" against an
// existing relation fails, which CreateSchema treats as already-exists.
const (
	schemaCodeGraph = `
	:create CodeGraph {
		ISGL1_key: String =>
		Current_Code: String?,
		Future_Code: String?,
		interface_signature: String,
		TDD_Classification: String,
		lsp_meta_data: String?,
		current_ind: Bool,
		future_ind: Bool,
		Future_Action: String?,
		file_path: String,
		language: String,
		last_modified: String,
		entity_type: String,
		entity_class: String,
		birth_timestamp: Int?,
		content_hash: String?,
		semantic_path: String?,
		root_subfolder_L1: String,
		root_subfolder_L2: String
	}
	`

	schemaDependencyEdges = `
	:create DependencyEdges {
		from_key: String,
		to_key: String,
		edge_type: String
		=>
		source_location: String?
	}
	`

	schemaFileHashCache = `
	:create FileHashCache {
		file_path: String =>
		content_hash: String,
		last_updated: String
	}
	`

	schemaTestEntitiesExcluded = `
	:create TestEntitiesExcluded {
		entity_name: String,
		folder_path: String,
		filename: String
		=>
		entity_class: String,
		language: String,
		line_start: Int,
		line_end: Int,
		detection_reason: String
	}
	`

	schemaFileWordCoverage = `
	:create FileWordCoverage {
		folder_path: String,
		filename: String
		=>
		language: String,
		source_word_count: Int,
		entity_word_count: Int,
		import_word_count: Int,
		comment_word_count: Int,
		raw_coverage_pct: Float,
		effective_coverage_pct: Float,
		entity_count: Int
	}
	`

	schemaIgnoredFiles = `
	:create IgnoredFiles {
		folder_path: String,
		filename: String
		=>
		extension: String,
		reason: String
	}
	`
)

// CreateSchema creates every relation the system uses. Idempotent: a
// relation that already exists is left untouched.
func (c *Client) CreateSchema(ctx context.Context) error {
	schemas := []struct {
		name   string
		script string
	}{
		{"CodeGraph", schemaCodeGraph},
		{"DependencyEdges", schemaDependencyEdges},
		{"FileHashCache", schemaFileHashCache},
		{"TestEntitiesExcluded", schemaTestEntitiesExcluded},
		{"FileWordCoverage", schemaFileWordCoverage},
		{"IgnoredFiles", schemaIgnoredFiles},
	}
	for _, s := range schemas {
		if err := c.createRelation(ctx, s.name, s.script); err != nil {
			return err
		}
	}
	return nil
}

// EnsureFileHashCacheSchema creates just the FileHashCache relation. The
// reindex core calls this defensively before reading the cache.
func (c *Client) EnsureFileHashCacheSchema(ctx context.Context) error {
	return c.createRelation(ctx, "FileHashCache", schemaFileHashCache)
}

// createRelation runs a :create script and swallows already-exists conflicts.
func (c *Client) createRelation(ctx context.Context, name, script string) error {
	if _, err := c.run(ctx, script, nil); err != nil {
		if isAlreadyExists(err) {
			return nil
		}
		return fmt.Errorf("create %s schema: %w", name, err)
	}
	return nil
}

// isAlreadyExists matches CozoDB's conflict message for an existing stored
// relation.
func isAlreadyExists(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "conflict") || strings.Contains(msg, "already exists")
}

// ListRelations returns the names of the stored relations.
func (c *Client) ListRelations(ctx context.Context) ([]string, error) {
	result, err := c.query(ctx, "::relations", nil)
	if err != nil {
		return nil, fmt.Errorf("list relations: %w", err)
	}
	var names []string
	for _, row := range result.Rows {
		if len(row) > 0 {
			if name := rowString(row[0]); name != "" {
				names = append(names, name)
			}
		}
	}
	return names, nil
}
