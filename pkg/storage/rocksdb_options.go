// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"log/slog"
	"os"
	"path/filepath"
)

// tunedRocksDBOptions enlarges write buffers and background jobs so a large
// ingest burst does not hit the 75 MB write-stall pathology observed on
// Windows with RocksDB defaults.
const tunedRocksDBOptions = `[DBOptions]
max_background_jobs=4
create_if_missing=true

[CFOptions "default"]
write_buffer_size=134217728
max_write_buffer_number=4
level0_slowdown_writes_trigger=40
level0_stop_writes_trigger=56
target_file_size_base=67108864
max_bytes_for_level_base=268435456
`

// writeTunedRocksDBOptions writes the tuned options file into the database
// directory before first open. An existing options file is never overwritten
// (user customizations win), and failures are non-fatal: the database still
// opens with RocksDB defaults.
func writeTunedRocksDBOptions(dbPath string) {
	optionsPath := filepath.Join(dbPath, "options")

	if _, err := os.Stat(optionsPath); err == nil {
		return
	}

	if err := os.MkdirAll(dbPath, 0o755); err != nil {
		slog.Warn("storage.rocksdb.options.mkdir_failed", "path", dbPath, "err", err)
		return
	}

	if err := os.WriteFile(optionsPath, []byte(tunedRocksDBOptions), 0o644); err != nil {
		slog.Warn("storage.rocksdb.options.write_failed", "path", optionsPath, "err", err)
	}
}
