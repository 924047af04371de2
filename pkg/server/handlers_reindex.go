// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"archive/zip"
	"bytes"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/kraklabs/parseltongue/pkg/ingestion"
	"github.com/kraklabs/parseltongue/pkg/reindex"
)

// maxUploadBytes caps the zip upload body (256 MiB).
const maxUploadBytes = 256 << 20

func (h *handlers) incrementalReindex(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/incremental-reindex-file-update"
	store := h.requireStore(w, endpoint)
	if store == nil {
		return
	}

	path := r.URL.Query().Get("path")
	if path == "" {
		respondError(w, endpoint, http.StatusBadRequest, "missing required query parameter: path")
		return
	}

	parser := ingestion.NewTreeSitterParser(h.state.logger)
	result, err := reindex.Execute(r.Context(), path, store, parser, h.state.logger)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case strings.Contains(err.Error(), "not found"):
			status = http.StatusNotFound
		case strings.Contains(err.Error(), "not a regular file"),
			strings.Contains(err.Error(), "UTF-8"):
			status = http.StatusBadRequest
		}
		respondError(w, endpoint, status, err.Error())
		return
	}

	respondOK(w, endpoint, result)
}

func (h *handlers) uploadCodebase(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/upload-codebase-zip"
	store := h.requireStore(w, endpoint)
	if store == nil {
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxUploadBytes+1))
	if err != nil {
		respondError(w, endpoint, http.StatusBadRequest, "failed to read request body: "+err.Error())
		return
	}
	if len(body) == 0 {
		respondError(w, endpoint, http.StatusBadRequest, "empty request body")
		return
	}
	if len(body) > maxUploadBytes {
		respondError(w, endpoint, http.StatusRequestEntityTooLarge, "upload exceeds size limit")
		return
	}

	reader, err := zip.NewReader(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		respondError(w, endpoint, http.StatusBadRequest, "invalid zip archive: "+err.Error())
		return
	}

	stageDir, err := os.MkdirTemp("", "parseltongue-upload-")
	if err != nil {
		respondError(w, endpoint, http.StatusInternalServerError, err.Error())
		return
	}
	defer os.RemoveAll(stageDir)

	if err := extractZip(reader, stageDir); err != nil {
		respondError(w, endpoint, http.StatusBadRequest, "zip extraction failed: "+err.Error())
		return
	}

	streamer := ingestion.NewStreamer(ingestion.DefaultConfig(), store, nil, h.state.logger)
	result, err := streamer.StreamDirectoryParallel(r.Context(), stageDir)
	if err != nil {
		respondError(w, endpoint, http.StatusInternalServerError, "ingest failed: "+err.Error())
		return
	}

	respondOK(w, endpoint, map[string]any{
		"files_processed":  result.FilesProcessed,
		"files_failed":     result.FilesFailed,
		"files_ignored":    result.FilesIgnored,
		"entities_written": result.EntitiesWritten,
		"edges_written":    result.EdgesWritten,
		"tests_excluded":   result.TestsExcluded,
		"duration_ms":      result.Duration.Milliseconds(),
	})
}

// extractZip unpacks the archive under destDir, refusing entries that would
// escape it.
func extractZip(reader *zip.Reader, destDir string) error {
	for _, file := range reader.File {
		cleaned := filepath.Clean(file.Name)
		if strings.HasPrefix(cleaned, "..") || filepath.IsAbs(cleaned) {
			continue // path traversal entries are dropped, not fatal
		}
		target := filepath.Join(destDir, cleaned)

		if file.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}

		src, err := file.Open()
		if err != nil {
			return err
		}
		dst, err := os.Create(target)
		if err != nil {
			src.Close()
			return err
		}
		_, err = io.Copy(dst, src)
		src.Close()
		dst.Close()
		if err != nil {
			return err
		}
	}
	return nil
}
