// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package ingestion

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeFileWordCoverage(t *testing.T) {
	source := "use clap\n// a comment here\nfn alpha() { body words }\nfn beta() { more body }"
	row := ComputeFileWordCoverage("src/lib.rs", "rust", source,
		[]string{"fn alpha() { body words }", "fn beta() { more body }"},
		2, // import words: "use clap"
		4, // comment words: "// a comment here"
	)

	assert.Equal(t, "src", row.Folder)
	assert.Equal(t, "lib.rs", row.File)
	assert.Equal(t, "rust", row.Language)
	assert.Equal(t, 18, row.SourceWordCount)
	assert.Equal(t, 12, row.EntityWordCount)
	assert.Equal(t, 2, row.ImportWordCount)
	assert.Equal(t, 4, row.CommentWords)
	assert.Equal(t, 2, row.EntityCount)

	assert.InDelta(t, 100.0*12.0/18.0, row.RawCoveragePct, 1e-9)
	assert.InDelta(t, 100.0, row.EffectivePct, 1e-9)
}

func TestComputeFileWordCoverageEmptySource(t *testing.T) {
	row := ComputeFileWordCoverage("a.rs", "rust", "", nil, 0, 0)
	assert.Zero(t, row.RawCoveragePct)
	assert.Zero(t, row.EffectivePct)
	assert.Zero(t, row.EntityCount)
}

func TestExtractCodeSnippet(t *testing.T) {
	source := "one\ntwo\nthree\nfour"
	assert.Equal(t, "two\nthree", extractCodeSnippet(source, 2, 3))
	assert.Equal(t, source, extractCodeSnippet(source, 1, 4))
	// Clamped at both ends.
	assert.Equal(t, source, extractCodeSnippet(source, 0, 99))
	assert.Equal(t, "", extractCodeSnippet(source, 4, 2))
}

func TestSplitFolderFile(t *testing.T) {
	folder, file := splitFolderFile("crates/core/src/lib.rs")
	assert.Equal(t, "crates/core/src", folder)
	assert.Equal(t, "lib.rs", file)

	folder, file = splitFolderFile("main.rs")
	assert.Equal(t, ".", folder)
	assert.Equal(t, "main.rs", file)
}
