// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package ingestion

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config controls which files an ingestion run touches and how the pipeline
// behaves. Loaded from parseltongue.yaml when present; flags override.
type Config struct {
	// IncludeGlobs are doublestar patterns a file must match to be parsed.
	IncludeGlobs []string `yaml:"include_globs"`

	// ExcludeGlobs are doublestar patterns that veto a file even when an
	// include glob matches.
	ExcludeGlobs []string `yaml:"exclude_globs"`

	// MaxFileSizeBytes skips files larger than this (default 1 MiB).
	MaxFileSizeBytes int64 `yaml:"max_file_size_bytes"`

	// ParseWorkers is the size of the parallel-parse worker pool.
	// Zero selects a default of 4.
	ParseWorkers int `yaml:"parse_workers"`

	// WatchedExtensions are the file extensions (without dot) the watcher
	// dispatches reindexes for.
	WatchedExtensions []string `yaml:"watched_extensions"`

	// DebounceMs is the watcher debounce window in milliseconds.
	DebounceMs int `yaml:"debounce_ms"`
}

// DefaultConfig returns the stock configuration.
func DefaultConfig() Config {
	return Config{
		IncludeGlobs: []string{
			"**/*.rs", "**/*.go", "**/*.py", "**/*.js", "**/*.ts",
		},
		ExcludeGlobs: []string{
			"**/target/**", "**/node_modules/**", "**/vendor/**",
			"**/dist/**", "**/build/**", "**/.git/**",
		},
		MaxFileSizeBytes:  1 << 20,
		ParseWorkers:      4,
		WatchedExtensions: []string{"rs", "go", "py", "js", "ts"},
		DebounceMs:        100,
	}
}

// LoadConfig reads a YAML config file, layering it over the defaults.
// A missing file returns the defaults without error.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.MaxFileSizeBytes <= 0 {
		cfg.MaxFileSizeBytes = 1 << 20
	}
	if cfg.ParseWorkers <= 0 {
		cfg.ParseWorkers = 4
	}
	if cfg.DebounceMs <= 0 {
		cfg.DebounceMs = 100
	}
	return cfg, nil
}
