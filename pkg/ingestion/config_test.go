// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package ingestion

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().IncludeGlobs, cfg.IncludeGlobs)
	assert.Equal(t, int64(1<<20), cfg.MaxFileSizeBytes)
	assert.Equal(t, 4, cfg.ParseWorkers)
}

func TestLoadConfigOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "parseltongue.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
include_globs: ["**/*.go"]
max_file_size_bytes: 2048
parse_workers: 8
debounce_ms: 250
watched_extensions: ["go"]
`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"**/*.go"}, cfg.IncludeGlobs)
	assert.Equal(t, int64(2048), cfg.MaxFileSizeBytes)
	assert.Equal(t, 8, cfg.ParseWorkers)
	assert.Equal(t, 250, cfg.DebounceMs)
	assert.Equal(t, []string{"go"}, cfg.WatchedExtensions)
}

func TestLoadConfigRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{not yaml: ["), 0o644))
	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestCheckEligibility(t *testing.T) {
	dir := t.TempDir()
	big := filepath.Join(dir, "big.rs")
	require.NoError(t, os.WriteFile(big, make([]byte, 2048), 0o644))
	small := filepath.Join(dir, "small.rs")
	require.NoError(t, os.WriteFile(small, []byte("fn main() {}"), 0o644))

	cfg := DefaultConfig()
	cfg.MaxFileSizeBytes = 1024
	s := &Streamer{config: cfg}

	ok, _ := s.checkEligibility("src/lib.rs", small)
	assert.True(t, ok)

	// Exclude glob vetoes even an included match.
	ok, reason := s.checkEligibility("target/debug/lib.rs", small)
	assert.False(t, ok)
	assert.Equal(t, ErrUnsupported, reason)

	// No include glob match.
	ok, reason = s.checkEligibility("README.md", small)
	assert.False(t, ok)
	assert.Equal(t, ErrUnsupported, reason)

	// Oversized file.
	ok, reason = s.checkEligibility("src/big.rs", big)
	assert.False(t, ok)
	assert.Equal(t, ErrTooLarge, reason)
}
