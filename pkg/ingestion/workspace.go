// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package ingestion

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Workspace is the timestamped directory holding one ingest's database and
// error log:
//
//	parseltongue20260801143000/
//	├── analysis.db/            RocksDB database (tuned options file)
//	└── ingestion-errors.txt    categorized error log
type Workspace struct {
	Root         string
	DatabasePath string
	ErrorLogPath string
}

// NewWorkspace creates a fresh workspace directory under parent.
func NewWorkspace(parent string) (*Workspace, error) {
	name := "parseltongue" + time.Now().Format("20060102150405")
	root := filepath.Join(parent, name)
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace %s: %w", root, err)
	}
	return &Workspace{
		Root:         root,
		DatabasePath: filepath.Join(root, "analysis.db"),
		ErrorLogPath: filepath.Join(root, "ingestion-errors.txt"),
	}, nil
}

// EngineSpec returns the storage engine specification for this workspace's
// RocksDB database.
func (w *Workspace) EngineSpec() string {
	return "rocksdb:" + w.DatabasePath
}
