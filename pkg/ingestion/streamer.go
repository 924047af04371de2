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

// Package ingestion walks a source tree, parses each eligible file with
// tree-sitter, materializes placeholder entities for external targets,
// classifies tests out of the code graph, and writes entities, edges, and
// diagnostics to the store in five concurrent per-relation batches.
package ingestion

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"

	"github.com/kraklabs/parseltongue/pkg/entities"
	"github.com/kraklabs/parseltongue/pkg/identity"
	"github.com/kraklabs/parseltongue/pkg/storage"
)

// Streamer ingests a directory tree into the store.
type Streamer struct {
	config Config
	store  *storage.Client
	logger *slog.Logger
	errLog *ErrorLog

	// OnFileProcessed, when set, is called after each file (progress bars).
	OnFileProcessed func(path string)
}

// StreamResult summarizes an ingestion run.
type StreamResult struct {
	FilesProcessed  int
	FilesFailed     int
	FilesIgnored    int
	EntitiesWritten int
	EdgesWritten    int
	TestsExcluded   int
	Placeholders    int
	Warnings        []string
	Duration        time.Duration
}

// fileBatch accumulates the five per-relation collections produced by the
// per-file pipeline.
type fileBatch struct {
	entities []*entities.CodeEntity
	edges    []entities.DependencyEdge
	excluded []entities.ExcludedTestEntity
	coverage []entities.FileWordCoverage
	ignored  []entities.IgnoredFile
	warnings []string
}

func (b *fileBatch) merge(other *fileBatch) {
	b.entities = append(b.entities, other.entities...)
	b.edges = append(b.edges, other.edges...)
	b.excluded = append(b.excluded, other.excluded...)
	b.coverage = append(b.coverage, other.coverage...)
	b.ignored = append(b.ignored, other.ignored...)
	b.warnings = append(b.warnings, other.warnings...)
}

// NewStreamer creates a streamer writing to store, logging per-file failures
// to errLog (may be nil).
func NewStreamer(config Config, store *storage.Client, errLog *ErrorLog, logger *slog.Logger) *Streamer {
	if logger == nil {
		logger = slog.Default()
	}
	ingMetrics.init()
	return &Streamer{config: config, store: store, logger: logger, errLog: errLog}
}

// StreamDirectory walks root sequentially, parses every eligible file, and
// commits the five relation batches concurrently at the end.
func (s *Streamer) StreamDirectory(ctx context.Context, root string) (*StreamResult, error) {
	return s.streamDirectory(ctx, root, 1)
}

// StreamDirectoryParallel does the same with a parse worker pool. Each
// worker owns its parser: tree-sitter handles are not shareable.
func (s *Streamer) StreamDirectoryParallel(ctx context.Context, root string) (*StreamResult, error) {
	return s.streamDirectory(ctx, root, s.config.ParseWorkers)
}

func (s *Streamer) streamDirectory(ctx context.Context, root string, workers int) (*StreamResult, error) {
	start := time.Now()
	result := &StreamResult{}
	batch := &fileBatch{}

	files, err := s.collectEligibleFiles(root, batch, result)
	if err != nil {
		return nil, err
	}
	sort.Strings(files)

	s.logger.Info("ingest.stream.start", "root", root, "files", len(files), "workers", workers)
	parseStart := time.Now()

	if workers <= 1 || len(files) < 10 {
		parser := NewTreeSitterParser(s.logger)
		for _, path := range files {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			s.processOne(parser, root, path, batch, result)
		}
	} else {
		s.parseParallel(ctx, root, files, workers, batch, result)
	}

	ingMetrics.parseDuration.Observe(time.Since(parseStart).Seconds())

	result.Warnings = batch.warnings
	if err := s.commitBatches(ctx, batch, result); err != nil {
		return nil, err
	}

	result.Duration = time.Since(start)
	ingMetrics.totalDuration.Observe(result.Duration.Seconds())

	s.logger.Info("ingest.stream.complete",
		"files", result.FilesProcessed,
		"failed", result.FilesFailed,
		"ignored", result.FilesIgnored,
		"entities", result.EntitiesWritten,
		"edges", result.EdgesWritten,
		"tests_excluded", result.TestsExcluded,
		"duration_ms", result.Duration.Milliseconds(),
	)
	return result, nil
}

// StreamFile ingests a single file.
func (s *Streamer) StreamFile(ctx context.Context, root, path string) (*StreamResult, error) {
	start := time.Now()
	result := &StreamResult{}
	batch := &fileBatch{}

	parser := NewTreeSitterParser(s.logger)
	s.processOne(parser, root, path, batch, result)

	result.Warnings = batch.warnings
	if err := s.commitBatches(ctx, batch, result); err != nil {
		return nil, err
	}
	result.Duration = time.Since(start)
	return result, nil
}

// collectEligibleFiles walks the tree, applying the eligibility gates and
// recording ignored files.
func (s *Streamer) collectEligibleFiles(root string, batch *fileBatch, result *StreamResult) ([]string, error) {
	var files []string

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if s.errLog != nil {
				s.errLog.Record(ErrWalk, path, walkErr.Error())
			}
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			// Nested .git directories strictly inside the root are never
			// descended into.
			if d.Name() == ".git" && path != root {
				return filepath.SkipDir
			}
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		eligible, reason := s.checkEligibility(rel, path)
		if !eligible {
			result.FilesIgnored++
			ingMetrics.filesIgnored.Inc()
			folder, file := splitFolderFile(rel)
			batch.ignored = append(batch.ignored, entities.IgnoredFile{
				Folder:    folder,
				File:      file,
				Extension: strings.TrimPrefix(filepath.Ext(file), "."),
				Reason:    string(reason),
			})
			if s.errLog != nil {
				s.errLog.Record(reason, rel, "skipped")
			}
			return nil
		}

		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	return files, nil
}

// checkEligibility applies the include/exclude/size gates to one file.
func (s *Streamer) checkEligibility(rel, abs string) (bool, ErrorCategory) {
	for _, glob := range s.config.ExcludeGlobs {
		if ok, _ := doublestar.Match(glob, rel); ok {
			return false, ErrUnsupported
		}
	}

	included := false
	for _, glob := range s.config.IncludeGlobs {
		if ok, _ := doublestar.Match(glob, rel); ok {
			included = true
			break
		}
	}
	if !included {
		return false, ErrUnsupported
	}

	if info, err := os.Stat(abs); err == nil && info.Size() > s.config.MaxFileSizeBytes {
		return false, ErrTooLarge
	}

	return true, ""
}

// processOne runs the per-file pipeline and merges the outcome into batch.
func (s *Streamer) processOne(parser *TreeSitterParser, root, path string, batch *fileBatch, result *StreamResult) {
	fb, err := s.processFile(parser, root, path)
	if err != nil {
		result.FilesFailed++
		ingMetrics.filesFailed.Inc()
		if s.errLog != nil {
			s.errLog.Record(ErrParse, path, err.Error())
		}
		s.logger.Warn("ingest.file.failed", "path", path, "err", err)
	} else {
		batch.merge(fb)
		result.FilesProcessed++
		ingMetrics.filesProcessed.Inc()
	}
	if s.OnFileProcessed != nil {
		s.OnFileProcessed(path)
	}
}

// processFile runs the per-file pipeline: read, parse, placeholder
// expansion, test classification, entity conversion, coverage row.
func (s *Streamer) processFile(parser *TreeSitterParser, root, path string) (*fileBatch, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}

	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = path
	}
	rel = filepath.ToSlash(rel)

	out, err := parser.ParseSource(content, rel)
	if err != nil {
		return nil, err
	}

	batch := &fileBatch{warnings: out.Warnings}

	// Placeholder expansion keeps edge endpoints resolvable (prepended so
	// targets exist before their referencing entities land).
	placeholders, warnings := ExtractPlaceholdersFromEdges(out.Edges)
	batch.warnings = append(batch.warnings, warnings...)
	batch.entities = append(batch.entities, placeholders...)
	ingMetrics.placeholders.Add(float64(len(placeholders)))

	source := string(content)
	language := parser.SupportedLanguage(rel)
	var entityCodes []string

	for i := range out.Entities {
		parsed := &out.Entities[i]

		if isTest, reason := ClassifyEntity(parsed); isTest {
			folder, file := splitFolderFile(rel)
			batch.excluded = append(batch.excluded, entities.ExcludedTestEntity{
				Name:      parsed.Name,
				Folder:    folder,
				File:      file,
				Class:     string(entities.ClassTest),
				Language:  parsed.Language,
				LineStart: parsed.StartLine,
				LineEnd:   parsed.EndLine,
				Reason:    string(reason),
			})
			ingMetrics.testsExcluded.Inc()
			continue
		}

		snippet := extractCodeSnippet(source, parsed.StartLine, parsed.EndLine)
		entity, err := ConvertParsedEntity(parsed, snippet, "")
		if err != nil {
			batch.warnings = append(batch.warnings,
				fmt.Sprintf("convert %s in %s: %v", parsed.Name, rel, err))
			if s.errLog != nil {
				s.errLog.Record(ErrConvert, rel, parsed.Name+": "+err.Error())
			}
			continue
		}
		batch.entities = append(batch.entities, entity)
		entityCodes = append(entityCodes, snippet)
	}

	batch.edges = append(batch.edges, out.Edges...)

	batch.coverage = append(batch.coverage, ComputeFileWordCoverage(
		rel, language, source, entityCodes,
		parser.ImportWordCount(content, rel),
		parser.CommentWordCount(content, rel),
	))

	return batch, nil
}

// ConvertParsedEntity turns a parsed entity into a persisted record. When
// key is empty a fresh ISGL1 v2 key is minted; the reindex core passes a
// matched key to preserve identity.
func ConvertParsedEntity(parsed *ParsedEntity, code, key string) (*entities.CodeEntity, error) {
	lineRange, err := entities.NewLineRange(uint32(parsed.StartLine), uint32(parsed.EndLine))
	if err != nil {
		return nil, err
	}

	if key == "" {
		key, err = identity.FormatKey(parsed.Kind, parsed.Name, parsed.Language,
			identity.ExtractSemanticPath(parsed.FilePath),
			identity.ComputeBirthTimestamp(parsed.FilePath, parsed.Name))
		if err != nil {
			return nil, err
		}
	}

	sig := entities.InterfaceSignature{
		Kind:       parsed.Kind,
		Name:       parsed.Name,
		Visibility: entities.VisibilityPublic,
		FilePath:   parsed.FilePath,
		LineRange:  lineRange,
	}

	entity, err := entities.NewCodeEntity(key, sig, entities.ClassCode)
	if err != nil {
		return nil, err
	}

	entity.Language = parsed.Language
	entity.CurrentCode = &code
	entity.LastModified = time.Now().UTC().Format(time.RFC3339)

	ts := identity.ComputeBirthTimestamp(parsed.FilePath, parsed.Name)
	hash := identity.ComputeContentHash(code)
	semantic := identity.ExtractSemanticPath(parsed.FilePath)
	entity.BirthTimestamp = &ts
	entity.ContentHash = &hash
	entity.SemanticPath = &semantic

	return entity, nil
}

// parseParallel fans the file list over a worker pool, one parser per
// worker, and merges results under a single lock.
func (s *Streamer) parseParallel(ctx context.Context, root string, files []string, workers int, batch *fileBatch, result *StreamResult) {
	jobs := make(chan string, len(files))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			parser := NewTreeSitterParser(s.logger)
			for path := range jobs {
				select {
				case <-ctx.Done():
					return
				default:
				}
				fb, err := s.processFile(parser, root, path)
				mu.Lock()
				if err != nil {
					result.FilesFailed++
					ingMetrics.filesFailed.Inc()
					if s.errLog != nil {
						s.errLog.Record(ErrParse, path, err.Error())
					}
				} else {
					batch.merge(fb)
					result.FilesProcessed++
					ingMetrics.filesProcessed.Inc()
				}
				if s.OnFileProcessed != nil {
					s.OnFileProcessed(path)
				}
				mu.Unlock()
			}
		}()
	}

	for _, f := range files {
		jobs <- f
	}
	close(jobs)
	wg.Wait()
}

// commitBatches issues the five per-relation batch writes concurrently.
// The relations are disjoint, so the store's per-relation write locks let
// them land in parallel; a failed write is logged and does not stop the
// other four from committing.
func (s *Streamer) commitBatches(ctx context.Context, batch *fileBatch, result *StreamResult) error {
	writeStart := time.Now()

	var g errgroup.Group
	var mu sync.Mutex
	var writeErrs []error

	record := func(name string, err error) {
		if err == nil {
			return
		}
		mu.Lock()
		writeErrs = append(writeErrs, fmt.Errorf("%s: %w", name, err))
		mu.Unlock()
		if s.errLog != nil {
			s.errLog.Record(ErrDBInsert, name, err.Error())
		}
		s.logger.Error("ingest.batch.write_failed", "relation", name, "err", err)
	}

	g.Go(func() error { record("CodeGraph", s.store.InsertEntitiesBatch(ctx, batch.entities)); return nil })
	g.Go(func() error { record("DependencyEdges", s.store.InsertEdgesBatch(ctx, batch.edges)); return nil })
	g.Go(func() error { record("TestEntitiesExcluded", s.store.InsertExcludedTestsBatch(ctx, batch.excluded)); return nil })
	g.Go(func() error { record("FileWordCoverage", s.store.InsertWordCoverageBatch(ctx, batch.coverage)); return nil })
	g.Go(func() error { record("IgnoredFiles", s.store.InsertIgnoredFilesBatch(ctx, batch.ignored)); return nil })
	_ = g.Wait()

	ingMetrics.writeDuration.Observe(time.Since(writeStart).Seconds())

	result.EntitiesWritten = len(batch.entities)
	result.EdgesWritten = len(batch.edges)
	result.TestsExcluded = len(batch.excluded)
	for _, e := range batch.entities {
		if e.Signature.LineRange.IsExternal() {
			result.Placeholders++
		}
	}
	ingMetrics.entitiesWritten.Add(float64(len(batch.entities)))
	ingMetrics.edgesWritten.Add(float64(len(batch.edges)))

	if len(writeErrs) == len(batchRelations) {
		// Every relation failed; the store is unusable.
		return fmt.Errorf("all batch writes failed: %v", writeErrs)
	}
	for _, err := range writeErrs {
		result.Warnings = append(result.Warnings, err.Error())
	}
	return nil
}

// batchRelations names the five relations the ingest writes concurrently.
var batchRelations = []string{
	"CodeGraph", "DependencyEdges", "TestEntitiesExcluded",
	"FileWordCoverage", "IgnoredFiles",
}
