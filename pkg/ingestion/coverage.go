// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package ingestion

import (
	"path/filepath"
	"strings"

	"github.com/kraklabs/parseltongue/pkg/entities"
)

// ComputeFileWordCoverage builds the per-file word-coverage diagnostic row.
//
// Raw coverage compares extracted entity words against the whole source;
// effective coverage excludes import and comment words from the denominator,
// measuring how much of the meaningful code the extraction captured.
func ComputeFileWordCoverage(filePath, language, source string, entityCodes []string, importWords, commentWords int) entities.FileWordCoverage {
	sourceWords := len(strings.Fields(source))

	entityWords := 0
	for _, code := range entityCodes {
		entityWords += len(strings.Fields(code))
	}

	rawPct := 0.0
	if sourceWords > 0 {
		rawPct = float64(entityWords) / float64(sourceWords) * 100.0
	}

	effectiveDenom := sourceWords - importWords - commentWords
	effectivePct := 0.0
	if effectiveDenom > 0 {
		effectivePct = float64(entityWords) / float64(effectiveDenom) * 100.0
	}

	folder, file := splitFolderFile(filePath)
	return entities.FileWordCoverage{
		Folder:          folder,
		File:            file,
		Language:        language,
		SourceWordCount: sourceWords,
		EntityWordCount: entityWords,
		ImportWordCount: importWords,
		CommentWords:    commentWords,
		RawCoveragePct:  rawPct,
		EffectivePct:    effectivePct,
		EntityCount:     len(entityCodes),
	}
}

// splitFolderFile splits a path into its directory (slash-normalized, "." for
// bare filenames) and base name.
func splitFolderFile(path string) (folder, file string) {
	folder = filepath.ToSlash(filepath.Dir(path))
	file = filepath.Base(path)
	return folder, file
}

// extractCodeSnippet returns the 1-based inclusive line slice of the source.
// Out-of-range requests are clamped.
func extractCodeSnippet(source string, startLine, endLine int) string {
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
