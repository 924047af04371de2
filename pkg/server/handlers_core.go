// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"net/http"
	"sort"

	"github.com/kraklabs/parseltongue/pkg/graph"
	"github.com/kraklabs/parseltongue/pkg/storage"
)

// handlers carries the shared state into each endpoint.
type handlers struct {
	state *AppState
}

// requireStore fetches the store handle or writes the disconnected error.
func (h *handlers) requireStore(w http.ResponseWriter, endpoint string) *storage.Client {
	store := h.state.Store()
	if store == nil {
		respondError(w, endpoint, http.StatusServiceUnavailable, "database not connected")
	}
	return store
}

// buildGraph materializes the transient analysis graph from the stored
// edge relation. Single-owner per request; dropped when the handler
// returns.
func (h *handlers) buildGraph(r *http.Request, store *storage.Client) (*graph.DependencyGraph, error) {
	edges, err := store.GetAllEdges(r.Context())
	if err != nil {
		return nil, err
	}
	graphEdges := make([]graph.Edge, len(edges))
	for i, e := range edges {
		graphEdges[i] = graph.Edge{From: e.FromKey, To: e.ToKey, Type: e.Type}
	}
	return graph.BuildFromEdges(graphEdges), nil
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/server-health-check-status"
	store := h.state.Store()
	respondOK(w, endpoint, map[string]any{
		"status":         "healthy",
		"database":       store != nil,
		"uptime_seconds": h.state.UptimeSeconds(),
	})
}

func (h *handlers) stats(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/codebase-statistics-overview-summary"
	store := h.requireStore(w, endpoint)
	if store == nil {
		return
	}

	entityCount, err := store.CountEntities(r.Context())
	if err != nil {
		respondError(w, endpoint, http.StatusInternalServerError, err.Error())
		return
	}
	edgeCount, err := store.CountEdges(r.Context())
	if err != nil {
		respondError(w, endpoint, http.StatusInternalServerError, err.Error())
		return
	}

	respondOK(w, endpoint, map[string]any{
		"entity_count":      entityCount,
		"edge_count":        edgeCount,
		"engine":            store.Engine(),
		"database_path":     store.Path(),
		"uptime_seconds":    h.state.UptimeSeconds(),
		"last_request_unix": h.state.LastRequestUnix(),
	})
}

// endpointDoc is one row of the API reference.
type endpointDoc struct {
	Method      string `json:"method"`
	Path        string `json:"path"`
	Description string `json:"description"`
}

func (h *handlers) apiReference(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api-reference-documentation-help"
	docs := []endpointDoc{
		{"GET", "/server-health-check-status", "Server and database health"},
		{"GET", "/codebase-statistics-overview-summary", "Entity and edge counts"},
		{"GET", "/api-reference-documentation-help", "This endpoint catalogue"},
		{"GET", "/code-entities-list-all", "List entities (limit query param)"},
		{"GET", "/code-entity-detail-view", "Full entity record by key"},
		{"GET", "/code-entities-search-fuzzy", "Ranked fuzzy search over entity names"},
		{"GET", "/forward-callees-query-graph", "1-hop forward dependencies of key"},
		{"GET", "/reverse-callers-query-graph", "1-hop reverse dependencies of key"},
		{"GET", "/dependency-edges-list-all", "List dependency edges"},
		{"GET", "/blast-radius-impact-analysis", "Reachable entities within max_hops of key"},
		{"GET", "/strongly-connected-components-analysis", "Tarjan SCC decomposition"},
		{"GET", "/circular-dependency-detection-scan", "SCCs of size > 1"},
		{"GET", "/kcore-decomposition-layering-analysis", "Coreness and architecture layers"},
		{"GET", "/centrality-measures-entity-ranking", "PageRank and betweenness centrality"},
		{"GET", "/entropy-complexity-measurement-scores", "Per-entity edge-type entropy"},
		{"GET", "/complexity-hotspots-ranking-view", "Entities ranked by complexity proxy"},
		{"GET", "/coupling-cohesion-metrics-suite", "CK metrics with A-F health grades"},
		{"GET", "/technical-debt-sqale-scoring", "SQALE remediation-hour debt"},
		{"GET", "/leiden-community-detection-clusters", "Leiden communities and modularity"},
		{"GET", "/semantic-cluster-grouping-list", "Entities grouped by semantic path"},
		{"GET", "/smart-context-token-budget", "Greedy context selection under a token budget"},
		{"GET", "/temporal-coupling-hidden-deps", "Simulated co-change coupling pairs"},
		{"GET", "/ingestion-coverage-folder-report", "Word-coverage rollup per folder"},
		{"GET", "/ingestion-diagnostics-coverage-report", "Excluded tests and ignored files"},
		{"GET", "/folder-structure-discovery-tree", "Folder scopes with entity counts"},
		{"GET", "/file-watcher-status-check", "Watcher lifecycle and event counters"},
		{"POST", "/incremental-reindex-file-update", "Reindex one file (path query param)"},
		{"POST", "/upload-codebase-zip", "Upload and ingest a zipped codebase"},
	}
	respondOK(w, endpoint, map[string]any{"endpoints": docs})
}

func (h *handlers) folderStructure(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/folder-structure-discovery-tree"
	store := h.requireStore(w, endpoint)
	if store == nil {
		return
	}

	all, err := store.GetAllEntities(r.Context())
	if err != nil {
		respondError(w, endpoint, http.StatusInternalServerError, err.Error())
		return
	}

	type folder struct {
		L1       string         `json:"l1"`
		Entities int            `json:"entities"`
		L2Counts map[string]int `json:"l2_counts"`
	}
	byL1 := make(map[string]*folder)
	for _, e := range all {
		l1 := e.L1
		if l1 == "" {
			l1 = "."
		}
		f, ok := byL1[l1]
		if !ok {
			f = &folder{L1: l1, L2Counts: make(map[string]int)}
			byL1[l1] = f
		}
		f.Entities++
		if e.L2 != "" {
			f.L2Counts[e.L2]++
		}
	}

	folders := make([]*folder, 0, len(byL1))
	for _, f := range byL1 {
		folders = append(folders, f)
	}
	sort.Slice(folders, func(i, j int) bool { return folders[i].L1 < folders[j].L1 })

	respondOK(w, endpoint, map[string]any{"folders": folders})
}

func (h *handlers) watcherStatus(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/file-watcher-status-check"
	svc := h.state.Watcher()
	if svc == nil {
		respondOK(w, endpoint, map[string]any{"enabled": false})
		return
	}
	respondOK(w, endpoint, map[string]any{
		"enabled": true,
		"status":  svc.StatusSnapshot(),
	})
}
