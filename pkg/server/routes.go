// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter builds the route table: every analytic GET endpoint, the two
// POST entry points, and /metrics.
func NewRouter(state *AppState) *http.ServeMux {
	h := &handlers{state: state}
	mux := http.NewServeMux()

	get := func(path string, fn http.HandlerFunc) {
		mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				respondError(w, path, http.StatusMethodNotAllowed, "method not allowed")
				return
			}
			state.TouchRequest()
			fn(w, r)
		})
	}
	post := func(path string, fn http.HandlerFunc) {
		mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				respondError(w, path, http.StatusMethodNotAllowed, "method not allowed")
				return
			}
			state.TouchRequest()
			fn(w, r)
		})
	}

	get("/server-health-check-status", h.health)
	get("/codebase-statistics-overview-summary", h.stats)
	get("/api-reference-documentation-help", h.apiReference)
	get("/code-entities-list-all", h.listEntities)
	get("/code-entity-detail-view", h.entityDetail)
	get("/code-entities-search-fuzzy", h.searchEntities)
	get("/forward-callees-query-graph", h.forwardDeps)
	get("/reverse-callers-query-graph", h.reverseDeps)
	get("/dependency-edges-list-all", h.listEdges)
	get("/blast-radius-impact-analysis", h.blastRadius)
	get("/strongly-connected-components-analysis", h.scc)
	get("/circular-dependency-detection-scan", h.circularDeps)
	get("/kcore-decomposition-layering-analysis", h.kcore)
	get("/centrality-measures-entity-ranking", h.centrality)
	get("/entropy-complexity-measurement-scores", h.entropy)
	get("/complexity-hotspots-ranking-view", h.complexityHotspots)
	get("/coupling-cohesion-metrics-suite", h.ckMetrics)
	get("/technical-debt-sqale-scoring", h.sqaleDebt)
	get("/leiden-community-detection-clusters", h.leiden)
	get("/semantic-cluster-grouping-list", h.semanticClusters)
	get("/smart-context-token-budget", h.smartContext)
	get("/temporal-coupling-hidden-deps", h.temporalCoupling)
	get("/ingestion-coverage-folder-report", h.coverageReport)
	get("/ingestion-diagnostics-coverage-report", h.diagnosticsReport)
	get("/folder-structure-discovery-tree", h.folderStructure)
	get("/file-watcher-status-check", h.watcherStatus)

	post("/incremental-reindex-file-update", h.incrementalReindex)
	post("/upload-codebase-zip", h.uploadCodebase)

	mux.Handle("/metrics", promhttp.Handler())

	return mux
}

// Serve runs the HTTP server until it fails or the listener closes.
func Serve(port int, state *AppState) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           NewRouter(state),
		ReadHeaderTimeout: 10 * time.Second,
	}
	state.logger.Info("server.listen", "port", port)
	return srv.ListenAndServe()
}
