// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package ingestion

import (
	"path/filepath"
	"strings"
)

// ClassificationReason explains why an entity was classified as a test.
type ClassificationReason string

const (
	ReasonParserMetadata ClassificationReason = "parser metadata is_test"
	ReasonTestFileName   ClassificationReason = "test file naming convention"
	ReasonTestDirectory  ClassificationReason = "tests directory"
	ReasonTestNamePrefix ClassificationReason = "test name prefix"
)

// ClassifyEntity decides Code vs Test for one parsed entity. The ingest-time
// decision is final: TEST entities never enter the entity relation and do
// not round-trip back into the code graph.
func ClassifyEntity(e *ParsedEntity) (isTest bool, reason ClassificationReason) {
	if e.Metadata["is_test"] == "true" {
		return true, ReasonParserMetadata
	}

	if isTestFileName(e.FilePath) {
		return true, ReasonTestFileName
	}

	if isUnderTestDirectory(e.FilePath) {
		return true, ReasonTestDirectory
	}

	name := strings.ToLower(e.Name)
	if strings.HasPrefix(name, "test_") || strings.HasPrefix(name, "test") && e.Language == "python" {
		return true, ReasonTestNamePrefix
	}

	return false, ""
}

// isTestFileName matches per-language test file conventions.
func isTestFileName(path string) bool {
	base := strings.ToLower(filepath.Base(path))
	switch {
	case strings.HasSuffix(base, "_test.go"),
		strings.HasSuffix(base, "_test.rs"),
		strings.HasSuffix(base, "_test.py"),
		strings.HasPrefix(base, "test_") && strings.HasSuffix(base, ".py"),
		strings.HasSuffix(base, ".test.js"),
		strings.HasSuffix(base, ".spec.js"),
		strings.HasSuffix(base, ".test.ts"),
		strings.HasSuffix(base, ".spec.ts"):
		return true
	}
	return false
}

// isUnderTestDirectory reports whether any path component is a tests folder.
func isUnderTestDirectory(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		switch strings.ToLower(part) {
		case "test", "tests", "__tests__", "testdata":
			return true
		}
	}
	return false
}
