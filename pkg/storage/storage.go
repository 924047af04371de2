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

// Package storage is the persistent store façade over CozoDB.
//
// It owns the relation schemas (CodeGraph, DependencyEdges, FileHashCache,
// and the diagnostic relations), the string-escaping rule for inline query
// data, batched upserts, and the recursive Datalog traversals (transitive
// closure, blast radius) used by the analysis endpoints.
//
// The client holds no write mutex: CozoDB locks per relation, and the
// ingest path deliberately commits five batches to five relations
// concurrently.
package storage

import (
	"context"
	"fmt"
	"strings"

	cozo "github.com/kraklabs/parseltongue/pkg/cozodb"
)

// Client is the storage façade. Safe for concurrent use.
type Client struct {
	db     *cozo.CozoDB
	engine string
	path   string
}

// New opens a store from an engine specification:
//
//	"mem"                     in-memory (testing)
//	"rocksdb:path/to/db"      RocksDB persistence (production default)
//	"sqlite:path/to/db.sq3"   SQLite persistence
//
// For RocksDB a tuned options file is written on first open (existing files
// are preserved) to avoid the large-ingest write-stall pathology.
func New(engineSpec string) (*Client, error) {
	engine := engineSpec
	path := ""
	if i := strings.Index(engineSpec, ":"); i >= 0 {
		engine = engineSpec[:i]
		path = engineSpec[i+1:]
	}

	if engine == "rocksdb" && path != "" {
		writeTunedRocksDBOptions(path)
	}

	db, err := cozo.New(engine, path, nil)
	if err != nil {
		return nil, fmt.Errorf("open cozodb (%s): %w", engineSpec, err)
	}

	return &Client{db: &db, engine: engine, path: path}, nil
}

// Engine returns the storage engine name ("mem", "rocksdb", "sqlite").
func (c *Client) Engine() string { return c.engine }

// Path returns the database directory (empty for "mem").
func (c *Client) Path() string { return c.path }

// Close closes the underlying database.
func (c *Client) Close() {
	c.db.Close()
}

// run executes a mutating script after checking for context cancellation.
// CozoDB calls are synchronous; cancellation is only observed between calls.
func (c *Client) run(ctx context.Context, script string, params map[string]any) (cozo.NamedRows, error) {
	if err := ctx.Err(); err != nil {
		return cozo.NamedRows{}, err
	}
	return c.db.Run(script, params)
}

// query executes a read-only script.
func (c *Client) query(ctx context.Context, script string, params map[string]any) (cozo.NamedRows, error) {
	if err := ctx.Err(); err != nil {
		return cozo.NamedRows{}, err
	}
	return c.db.RunReadOnly(script, params)
}

// rowString extracts a string cell, tolerating nulls.
func rowString(v any) string {
	s, _ := v.(string)
	return s
}

// rowOptString extracts an optional string cell.
func rowOptString(v any) *string {
	if s, ok := v.(string); ok {
		return &s
	}
	return nil
}

// rowInt extracts an integer cell. CozoDB numbers arrive through JSON as
// float64; integer-typed columns are safe to truncate.
func rowInt(v any) int64 {
	switch n := v.(type) {
	case float64:
		return int64(n)
	case int64:
		return n
	case int:
		return int64(n)
	}
	return 0
}

// rowFloat extracts a float cell.
func rowFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	case int:
		return float64(n)
	}
	return 0
}

// rowBool extracts a boolean cell.
func rowBool(v any) bool {
	b, _ := v.(bool)
	return b
}
