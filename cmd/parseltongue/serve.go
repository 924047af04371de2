// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/parseltongue/internal/errors"
	"github.com/kraklabs/parseltongue/internal/ui"
	"github.com/kraklabs/parseltongue/pkg/ingestion"
	"github.com/kraklabs/parseltongue/pkg/reindex"
	"github.com/kraklabs/parseltongue/pkg/server"
	"github.com/kraklabs/parseltongue/pkg/storage"
	"github.com/kraklabs/parseltongue/pkg/watcher"
)

// runServe executes the 'serve' CLI command: open the database, install the
// file watcher into shared state, and serve the HTTP endpoints.
func runServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	port := fs.Int("port", 8080, "HTTP listen port")
	dbSpec := fs.String("db", "", "Storage engine spec (e.g. rocksdb:workspace/analysis.db)")
	configPath := fs.String("config", "parseltongue.yaml", "Path to the YAML configuration file")
	watchDir := fs.String("watch", "", "Directory to watch for incremental reindex (empty = disabled)")
	verbose := fs.BoolP("verbose", "V", false, "Enable debug logging")
	noColor := fs.Bool("no-color", false, "Disable colored output")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: parseltongue serve [options]

Description:
  Serve the graph-analytic HTTP endpoints over an existing workspace
  database. With --watch, file changes under the given directory trigger
  debounced incremental reindexes.

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  parseltongue serve --db rocksdb:parseltongue20260801120000/analysis.db
  parseltongue serve --port 9090 --db mem --watch ./my-repo
`)
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	ui.InitColors(*noColor)
	logger := newLogger(*verbose, false)

	if *dbSpec == "" {
		errors.FatalError(errors.NewInputError(
			"No database specified",
			"The serve command needs an existing workspace database",
			"Pass --db rocksdb:<workspace>/analysis.db from a prior ingest",
		), false)
	}

	store, err := storage.New(*dbSpec)
	if err != nil {
		errors.FatalError(errors.NewDatabaseError(
			"Cannot open the workspace database",
			err.Error(),
			"Verify the --db engine spec points at an existing analysis.db",
			err,
		), false)
	}
	defer store.Close()

	if err := store.CreateSchema(context.Background()); err != nil {
		errors.FatalError(errors.NewDatabaseError(
			"Cannot ensure the graph schema",
			err.Error(),
			"The database may be corrupt; re-run ingest",
			err,
		), false)
	}

	config, err := ingestion.LoadConfig(*configPath)
	if err != nil {
		errors.FatalError(errors.NewConfigError(
			"Cannot load configuration",
			err.Error(),
			"Fix or remove the YAML configuration file",
			err,
		), false)
	}

	state := server.NewAppState(store, nil, logger)

	// The watcher service must be owned by the application state for the
	// server lifetime; a locally scoped service would be collected and
	// event delivery would silently stop.
	if *watchDir != "" {
		provider := watcher.NewFsnotifyProvider(
			time.Duration(config.DebounceMs)*time.Millisecond, logger)
		svc := watcher.NewService(provider, watcher.ServiceConfig{
			WatchDirectory:    *watchDir,
			Debounce:          time.Duration(config.DebounceMs) * time.Millisecond,
			WatchedExtensions: config.WatchedExtensions,
		}, func(path string) error {
			parser := ingestion.NewTreeSitterParser(logger)
			_, err := reindex.Execute(context.Background(), path, state.Store(), parser, logger)
			return err
		}, logger)

		if err := svc.Start(); err != nil {
			errors.FatalError(errors.NewInternalError(
				"Cannot start the file watcher",
				err.Error(),
				"Check that the watch directory exists and inotify limits allow it",
				err,
			), false)
		}
		state.SetWatcher(svc)
		ui.Infof("Watching %s (debounce %dms)", *watchDir, config.DebounceMs)
	}

	ui.Successf("Serving on http://localhost:%d", *port)
	if err := server.Serve(*port, state); err != nil {
		errors.FatalError(errors.NewInternalError(
			"HTTP server terminated",
			err.Error(),
			"Check that the port is free and retry",
			err,
		), false)
	}
}

// newLogger builds the process logger: debug when verbose, errors only when
// quiet, info otherwise.
func newLogger(verbose, quiet bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	if quiet {
		level = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
