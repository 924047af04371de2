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

func TestErrorLogCategorizedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ingestion-errors.txt")
	log, err := OpenErrorLog(path)
	require.NoError(t, err)

	log.Record(ErrTooLarge, "assets/huge.rs", "5 MiB > 1 MiB limit")
	log.Record(ErrParse, "src/broken.rs", "syntax error")
	log.Record(ErrParse, "src/worse.rs", "syntax error")
	require.NoError(t, log.Close())

	assert.Equal(t, 1, log.Count(ErrTooLarge))
	assert.Equal(t, 2, log.Count(ErrParse))
	assert.Equal(t, 3, log.Total())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "[TOO_LARGE] assets/huge.rs | 5 MiB > 1 MiB limit")
	assert.Contains(t, string(content), "[PARSE_ERROR] src/broken.rs | syntax error")
}

func TestWorkspaceLayout(t *testing.T) {
	parent := t.TempDir()
	ws, err := NewWorkspace(parent)
	require.NoError(t, err)

	assert.Contains(t, filepath.Base(ws.Root), "parseltongue")
	assert.Equal(t, filepath.Join(ws.Root, "analysis.db"), ws.DatabasePath)
	assert.Equal(t, filepath.Join(ws.Root, "ingestion-errors.txt"), ws.ErrorLogPath)
	assert.Equal(t, "rocksdb:"+ws.DatabasePath, ws.EngineSpec())

	info, err := os.Stat(ws.Root)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
