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

// InsertExcludedTestsBatch writes the filtered-test diagnostic rows.
// An empty batch is a no-op.
func (c *Client) InsertExcludedTestsBatch(ctx context.Context, rows []entities.ExcludedTestEntity) error {
	if len(rows) == 0 {
		return nil
	}
	tuples := make([]string, 0, len(rows))
	for _, r := range rows {
		tuples = append(tuples, fmt.Sprintf("[%s, %s, %s, %s, %s, %d, %d, %s]",
			quoteString(r.Name), quoteString(r.Folder), quoteString(r.File),
			quoteString(r.Class), quoteString(r.Language),
			r.LineStart, r.LineEnd, quoteString(r.Reason)))
	}
	script := fmt.Sprintf(`
	?[entity_name, folder_path, filename, entity_class, language, line_start, line_end, detection_reason] <- [%s]

	:put TestEntitiesExcluded {
		entity_name, folder_path, filename =>
		entity_class, language, line_start, line_end, detection_reason
	}
	`, strings.Join(tuples, ", "))
	if _, err := c.run(ctx, script, nil); err != nil {
		return fmt.Errorf("batch insert %d excluded tests: %w", len(rows), err)
	}
	return nil
}

// GetExcludedTests returns all filtered-test rows.
func (c *Client) GetExcludedTests(ctx context.Context) ([]entities.ExcludedTestEntity, error) {
	script := "?[entity_name, folder_path, filename, entity_class, language, line_start, line_end, detection_reason] := " +
		"*TestEntitiesExcluded{entity_name, folder_path, filename, entity_class, language, line_start, line_end, detection_reason}"
	result, err := c.query(ctx, script, nil)
	if err != nil {
		return nil, fmt.Errorf("get excluded tests: %w", err)
	}
	rows := make([]entities.ExcludedTestEntity, 0, len(result.Rows))
	for _, row := range result.Rows {
		if len(row) < 8 {
			continue
		}
		rows = append(rows, entities.ExcludedTestEntity{
			Name:      rowString(row[0]),
			Folder:    rowString(row[1]),
			File:      rowString(row[2]),
			Class:     rowString(row[3]),
			Language:  rowString(row[4]),
			LineStart: int(rowInt(row[5])),
			LineEnd:   int(rowInt(row[6])),
			Reason:    rowString(row[7]),
		})
	}
	return rows, nil
}

// InsertWordCoverageBatch writes per-file word coverage rows.
// An empty batch is a no-op.
func (c *Client) InsertWordCoverageBatch(ctx context.Context, rows []entities.FileWordCoverage) error {
	if len(rows) == 0 {
		return nil
	}
	tuples := make([]string, 0, len(rows))
	for _, r := range rows {
		tuples = append(tuples, fmt.Sprintf("[%s, %s, %s, %d, %d, %d, %d, %s, %s, %d]",
			quoteString(r.Folder), quoteString(r.File), quoteString(r.Language),
			r.SourceWordCount, r.EntityWordCount, r.ImportWordCount, r.CommentWords,
			quoteFloat(r.RawCoveragePct), quoteFloat(r.EffectivePct), r.EntityCount))
	}
	script := fmt.Sprintf(`
	?[folder_path, filename, language, source_word_count, entity_word_count, import_word_count, comment_word_count, raw_coverage_pct, effective_coverage_pct, entity_count] <- [%s]

	:put FileWordCoverage {
		folder_path, filename =>
		language, source_word_count, entity_word_count, import_word_count,
		comment_word_count, raw_coverage_pct, effective_coverage_pct, entity_count
	}
	`, strings.Join(tuples, ", "))
	if _, err := c.run(ctx, script, nil); err != nil {
		return fmt.Errorf("batch insert %d coverage rows: %w", len(rows), err)
	}
	return nil
}

// GetWordCoverage returns all coverage rows.
func (c *Client) GetWordCoverage(ctx context.Context) ([]entities.FileWordCoverage, error) {
	script := "?[folder_path, filename, language, source_word_count, entity_word_count, import_word_count, comment_word_count, raw_coverage_pct, effective_coverage_pct, entity_count] := " +
		"*FileWordCoverage{folder_path, filename, language, source_word_count, entity_word_count, import_word_count, comment_word_count, raw_coverage_pct, effective_coverage_pct, entity_count}"
	result, err := c.query(ctx, script, nil)
	if err != nil {
		return nil, fmt.Errorf("get word coverage: %w", err)
	}
	rows := make([]entities.FileWordCoverage, 0, len(result.Rows))
	for _, row := range result.Rows {
		if len(row) < 10 {
			continue
		}
		rows = append(rows, entities.FileWordCoverage{
			Folder:          rowString(row[0]),
			File:            rowString(row[1]),
			Language:        rowString(row[2]),
			SourceWordCount: int(rowInt(row[3])),
			EntityWordCount: int(rowInt(row[4])),
			ImportWordCount: int(rowInt(row[5])),
			CommentWords:    int(rowInt(row[6])),
			RawCoveragePct:  rowFloat(row[7]),
			EffectivePct:    rowFloat(row[8]),
			EntityCount:     int(rowInt(row[9])),
		})
	}
	return rows, nil
}

// InsertIgnoredFilesBatch writes skipped-file diagnostic rows.
// An empty batch is a no-op.
func (c *Client) InsertIgnoredFilesBatch(ctx context.Context, rows []entities.IgnoredFile) error {
	if len(rows) == 0 {
		return nil
	}
	tuples := make([]string, 0, len(rows))
	for _, r := range rows {
		tuples = append(tuples, fmt.Sprintf("[%s, %s, %s, %s]",
			quoteString(r.Folder), quoteString(r.File),
			quoteString(r.Extension), quoteString(r.Reason)))
	}
	script := fmt.Sprintf(`
	?[folder_path, filename, extension, reason] <- [%s]

	:put IgnoredFiles {
		folder_path, filename =>
		extension, reason
	}
	`, strings.Join(tuples, ", "))
	if _, err := c.run(ctx, script, nil); err != nil {
		return fmt.Errorf("batch insert %d ignored files: %w", len(rows), err)
	}
	return nil
}

// GetIgnoredFiles returns all skipped-file rows.
func (c *Client) GetIgnoredFiles(ctx context.Context) ([]entities.IgnoredFile, error) {
	script := "?[folder_path, filename, extension, reason] := " +
		"*IgnoredFiles{folder_path, filename, extension, reason}"
	result, err := c.query(ctx, script, nil)
	if err != nil {
		return nil, fmt.Errorf("get ignored files: %w", err)
	}
	rows := make([]entities.IgnoredFile, 0, len(result.Rows))
	for _, row := range result.Rows {
		if len(row) < 4 {
			continue
		}
		rows = append(rows, entities.IgnoredFile{
			Folder:    rowString(row[0]),
			File:      rowString(row[1]),
			Extension: rowString(row[2]),
			Reason:    rowString(row[3]),
		})
	}
	return rows, nil
}
