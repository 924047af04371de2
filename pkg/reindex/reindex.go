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

// Package reindex implements the incremental per-file reindex pipeline:
// content-hash gating against the FileHashCache, a three-way diff of parsed
// entities against the persisted index via the ISGL1 matcher, batched
// deletions with cascading edge cleanup, and idempotent upserts.
package reindex

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/kraklabs/parseltongue/pkg/entities"
	"github.com/kraklabs/parseltongue/pkg/identity"
	"github.com/kraklabs/parseltongue/pkg/ingestion"
	"github.com/kraklabs/parseltongue/pkg/storage"
)

// Typed failures surfaced by Execute. Wrap with file-path context; test
// with errors.Is.
var (
	ErrFileNotFound         = errors.New("file not found")
	ErrNotAFile             = errors.New("path is not a regular file")
	ErrFileRead             = errors.New("failed to read file")
	ErrInvalidUtf8          = errors.New("file is not valid UTF-8")
	ErrDatabaseNotConnected = errors.New("database not connected")
)

// Result reports what one reindex changed.
type Result struct {
	FilePath         string `json:"file_path"`
	EntitiesBefore   int    `json:"entities_before"`
	EntitiesAfter    int    `json:"entities_after"`
	EntitiesAdded    int    `json:"entities_added"`
	EntitiesRemoved  int    `json:"entities_removed"`
	EdgesAdded       int    `json:"edges_added"`
	EdgesRemoved     int    `json:"edges_removed"`
	HashChanged      bool   `json:"hash_changed"`
	ProcessingTimeMs int64  `json:"processing_time_ms"`
}

// Execute reindexes one file.
//
// Fast path: when the file's SHA-256 matches the cached hash, returns
// immediately with HashChanged=false and zero deltas — O(1) beyond the hash
// and one cache lookup.
//
// Slow path: parses the file, matches every parsed entity against the old
// index (content hash first, then position, then new), deletes the
// unmatched old entities edge-first, upserts everything, re-emits the
// file's edges, and finally updates the hash cache. Individual upsert
// failures are logged and do not abort the operation; the counters reflect
// attempted writes.
func Execute(ctx context.Context, filePath string, store *storage.Client, parser ingestion.CodeParser, logger *slog.Logger) (*Result, error) {
	start := time.Now()
	if logger == nil {
		logger = slog.Default()
	}
	if store == nil {
		return nil, ErrDatabaseNotConnected
	}

	info, err := os.Stat(filePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, filePath)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %s", ErrNotAFile, filePath)
	}

	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrFileRead, filePath, err)
	}

	sum := sha256.Sum256(content)
	currentHash := hex.EncodeToString(sum[:])

	if err := store.EnsureFileHashCacheSchema(ctx); err != nil {
		logger.Warn("reindex.hashcache.schema", "err", err)
	}

	cached, err := store.GetCachedFileHash(ctx, filePath)
	if err != nil {
		logger.Warn("reindex.hashcache.read", "path", filePath, "err", err)
	}
	if cached != nil && *cached == currentHash {
		logger.Debug("reindex.hash.unchanged", "path", filePath)
		return &Result{
			FilePath:         filePath,
			HashChanged:      false,
			ProcessingTimeMs: time.Since(start).Milliseconds(),
		}, nil
	}

	if !utf8.Valid(content) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidUtf8, filePath)
	}

	existing, err := store.GetEntitiesByFilePath(ctx, filePath)
	if err != nil {
		return nil, fmt.Errorf("load entities for %s: %w", filePath, err)
	}
	entitiesBefore := len(existing)

	out, parseErr := parser.ParseSource(content, filePath)
	if parseErr != nil {
		// Parse failure degrades to a full delete of the file's entities,
		// edges first so endpoint integrity survives the cascade.
		logger.Warn("reindex.parse.failed", "path", filePath, "err", parseErr)
		keys := make([]string, len(existing))
		for i, e := range existing {
			keys[i] = e.Key
		}
		edgesRemoved, _ := store.DeleteEdgesByFromKeys(ctx, keys)
		entitiesRemoved, _ := store.DeleteEntitiesByKeys(ctx, keys)
		_ = store.SetCachedFileHash(ctx, filePath, currentHash)
		return &Result{
			FilePath:         filePath,
			EntitiesBefore:   entitiesBefore,
			EntitiesRemoved:  entitiesRemoved,
			EdgesRemoved:     edgesRemoved,
			HashChanged:      true,
			ProcessingTimeMs: time.Since(start).Milliseconds(),
		}, nil
	}

	// Old entities missing a content hash cannot participate in matching;
	// their candidates fall through to NewEntity.
	old := make([]identity.OldEntity, 0, len(existing))
	for _, e := range existing {
		if e.ContentHash == nil {
			continue
		}
		old = append(old, identity.OldEntity{
			Key:         e.Key,
			Name:        e.Signature.Name,
			FilePath:    e.FilePath,
			LineRange:   e.Signature.LineRange,
			ContentHash: *e.ContentHash,
		})
	}

	source := string(content)
	matchedKeys := make(map[string]bool)
	newKeys := make(map[string]bool)
	var toUpsert []*entities.CodeEntity

	for i := range out.Entities {
		parsed := &out.Entities[i]
		if isTest, _ := ingestion.ClassifyEntity(parsed); isTest {
			continue // tests never enter the entity relation
		}

		snippet := snippetLines(source, parsed.StartLine, parsed.EndLine)
		candidate := &identity.Candidate{
			Name:        parsed.Name,
			Kind:        parsed.Kind,
			FilePath:    filePath,
			LineRange:   entities.LineRange{Start: uint32(parsed.StartLine), End: uint32(parsed.EndLine)},
			ContentHash: identity.ComputeContentHash(snippet),
			Code:        snippet,
		}

		match := identity.MatchAgainstOldIndex(candidate, old)
		var key string
		switch match.Kind {
		case identity.ContentMatch, identity.PositionMatch:
			key = match.OldKey
			matchedKeys[key] = true
		case identity.NewEntity:
			ts := identity.ComputeBirthTimestamp(filePath, parsed.Name)
			key, err = identity.FormatKey(parsed.Kind, parsed.Name, parsed.Language,
				identity.ExtractSemanticPath(filePath), ts)
			if err != nil {
				logger.Warn("reindex.key.format", "name", parsed.Name, "err", err)
				continue
			}
			newKeys[key] = true
		}

		entity, err := ingestion.ConvertParsedEntity(parsed, snippet, key)
		if err != nil {
			logger.Warn("reindex.entity.convert", "name", parsed.Name, "err", err)
			continue
		}
		toUpsert = append(toUpsert, entity)
	}

	// Unmatched old entities no longer exist in the file: edges first, then
	// the entities, so no window exposes an edge without its source.
	var unmatched []string
	for _, e := range existing {
		if !matchedKeys[e.Key] {
			unmatched = append(unmatched, e.Key)
		}
	}
	edgesRemoved, err := store.DeleteEdgesByFromKeys(ctx, unmatched)
	if err != nil {
		logger.Warn("reindex.edges.delete", "path", filePath, "err", err)
	}
	entitiesRemoved, err := store.DeleteEntitiesByKeys(ctx, unmatched)
	if err != nil {
		logger.Warn("reindex.entities.delete", "path", filePath, "err", err)
	}

	// Placeholders keep the re-emitted edges' endpoints resolvable; their
	// upsert is idempotent and excluded from the counters.
	placeholders, _ := ingestion.ExtractPlaceholdersFromEdges(out.Edges)
	for _, p := range placeholders {
		if err := store.InsertEntity(ctx, p); err != nil {
			logger.Warn("reindex.placeholder.upsert", "key", p.Key, "err", err)
		}
	}

	for _, e := range toUpsert {
		if err := store.InsertEntity(ctx, e); err != nil {
			logger.Warn("reindex.entity.upsert", "key", e.Key, "err", err)
		}
	}

	// Edges from matched entities are intentionally re-emitted; :put
	// overwrites prior state.
	edgesAdded := 0
	if len(out.Edges) > 0 {
		if err := store.InsertEdgesBatch(ctx, out.Edges); err != nil {
			logger.Warn("reindex.edges.insert", "path", filePath, "err", err)
		} else {
			edgesAdded = len(out.Edges)
		}
	}

	if err := store.SetCachedFileHash(ctx, filePath, currentHash); err != nil {
		logger.Warn("reindex.hashcache.write", "path", filePath, "err", err)
	}

	result := &Result{
		FilePath:         filePath,
		EntitiesBefore:   entitiesBefore,
		EntitiesAfter:    entitiesBefore - entitiesRemoved + len(newKeys),
		EntitiesAdded:    len(newKeys),
		EntitiesRemoved:  entitiesRemoved,
		EdgesAdded:       edgesAdded,
		EdgesRemoved:     edgesRemoved,
		HashChanged:      true,
		ProcessingTimeMs: time.Since(start).Milliseconds(),
	}

	logger.Info("reindex.complete",
		"path", filePath,
		"added", result.EntitiesAdded,
		"removed", result.EntitiesRemoved,
		"edges_added", result.EdgesAdded,
		"edges_removed", result.EdgesRemoved,
		"ms", result.ProcessingTimeMs,
	)
	return result, nil
}

// snippetLines returns the 1-based inclusive line slice of the source.
func snippetLines(source string, startLine, endLine int) string {
	lines := strings.Split(source, "\n")
	if startLine < 1 {
		startLine = 1
	}
	if endLine > len(lines) {
		endLine = len(lines)
	}
	if startLine > endLine {
		return ""
	}
	return strings.Join(lines[startLine-1:endLine], "\n")
}
