// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"context"
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/parseltongue/internal/errors"
	"github.com/kraklabs/parseltongue/internal/output"
	"github.com/kraklabs/parseltongue/internal/ui"
	"github.com/kraklabs/parseltongue/pkg/ingestion"
	"github.com/kraklabs/parseltongue/pkg/storage"
)

// runIngest executes the 'ingest' CLI command: walk the directory, parse
// every eligible file, and stream entities, edges, and diagnostics into a
// fresh workspace database.
func runIngest(args []string) {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	dbSpec := fs.String("db", "", "Storage engine spec (default: rocksdb inside a new workspace)")
	configPath := fs.String("config", "parseltongue.yaml", "Path to the YAML configuration file")
	verbose := fs.BoolP("verbose", "V", false, "Enable debug logging")
	quiet := fs.BoolP("quiet", "q", false, "Suppress progress output")
	noColor := fs.Bool("no-color", false, "Disable colored output")
	parallel := fs.Bool("parallel", true, "Parse files with a worker pool")
	jsonOut := fs.Bool("json", false, "Print the run summary as JSON")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: parseltongue ingest <directory> [options]

Description:
  Index a source directory into a persistent code knowledge graph. This
  command:
  1. Creates a timestamped workspace directory with a RocksDB database.
  2. Walks the tree, parsing each eligible file with tree-sitter.
  3. Writes entities, dependency edges, and diagnostics in concurrent
     batches.
  4. Prints a summary and the path to the categorized error log.

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  parseltongue ingest ./my-repo
  parseltongue ingest ./my-repo --db rocksdb:custom.db --verbose
`)
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() != 1 {
		fs.Usage()
		os.Exit(1)
	}
	root := fs.Arg(0)

	ui.InitColors(*noColor)
	logger := newLogger(*verbose, *quiet)

	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		errors.FatalError(errors.NewInputError(
			"Ingest target is not a directory",
			fmt.Sprintf("The path %q does not exist or is not a directory", root),
			"Pass the root of the source repository to index",
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

	workspace, err := ingestion.NewWorkspace(".")
	if err != nil {
		errors.FatalError(errors.NewDatabaseError(
			"Cannot create workspace directory",
			err.Error(),
			"Check write permissions in the current directory",
			err,
		), false)
	}

	engineSpec := *dbSpec
	if engineSpec == "" {
		engineSpec = workspace.EngineSpec()
	}

	store, err := storage.New(engineSpec)
	if err != nil {
		errors.FatalError(errors.NewDatabaseError(
			"Cannot open the workspace database",
			err.Error(),
			"Verify the --db engine spec and that libcozo_c is installed",
			err,
		), false)
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.CreateSchema(ctx); err != nil {
		errors.FatalError(errors.NewDatabaseError(
			"Cannot create the graph schema",
			err.Error(),
			"Delete the workspace directory and retry",
			err,
		), false)
	}

	errLog, err := ingestion.OpenErrorLog(workspace.ErrorLogPath)
	if err != nil {
		errors.FatalError(errors.NewDatabaseError(
			"Cannot create the ingestion error log",
			err.Error(),
			"Check write permissions in the workspace directory",
			err,
		), false)
	}
	defer errLog.Close()

	if !*jsonOut {
		ui.Header("Indexing " + root)
	}

	streamer := ingestion.NewStreamer(config, store, errLog, logger)

	progress := NewProgressConfig(*quiet || *jsonOut, *noColor)
	bar := NewProgressBar(progress, -1, "parsing")
	if bar != nil {
		streamer.OnFileProcessed = func(string) { _ = bar.Add(1) }
	}

	var result *ingestion.StreamResult
	if *parallel {
		result, err = streamer.StreamDirectoryParallel(ctx, root)
	} else {
		result, err = streamer.StreamDirectory(ctx, root)
	}
	if bar != nil {
		_ = bar.Finish()
	}
	if err != nil {
		errors.FatalError(errors.NewDatabaseError(
			"Ingestion failed",
			err.Error(),
			"See the error log for per-file details: "+errLog.Path(),
			err,
		), false)
	}

	if *jsonOut {
		if err := output.JSON(map[string]any{
			"workspace":        workspace.Root,
			"files_processed":  result.FilesProcessed,
			"files_failed":     result.FilesFailed,
			"files_ignored":    result.FilesIgnored,
			"entities_written": result.EntitiesWritten,
			"edges_written":    result.EdgesWritten,
			"tests_excluded":   result.TestsExcluded,
			"duration_ms":      result.Duration.Milliseconds(),
			"error_log":        errLog.Path(),
		}); err != nil {
			errors.FatalError(err, true)
		}
		return
	}

	ui.Successf("Indexed %d files (%d entities, %d edges) in %s",
		result.FilesProcessed, result.EntitiesWritten, result.EdgesWritten,
		result.Duration.Round(timeRounding))
	if result.TestsExcluded > 0 {
		ui.Infof("Filtered %d test entities out of the code graph", result.TestsExcluded)
	}
	if result.FilesIgnored > 0 {
		ui.Infof("Skipped %d ineligible files", result.FilesIgnored)
	}
	if result.FilesFailed > 0 || errLog.Total() > 0 {
		ui.Warningf("%d files failed; see %s", result.FilesFailed, errLog.Path())
	}
	ui.Infof("Workspace: %s", workspace.Root)
}
