// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/parseltongue/pkg/entities"
	"github.com/kraklabs/parseltongue/pkg/storage"
	"github.com/kraklabs/parseltongue/pkg/watcher"
)

func newTestServer(t *testing.T) (*httptest.Server, *storage.Client, *AppState) {
	t.Helper()
	store, err := storage.New("mem")
	require.NoError(t, err)
	t.Cleanup(store.Close)
	require.NoError(t, store.CreateSchema(context.Background()))

	state := NewAppState(store, nil, nil)
	srv := httptest.NewServer(NewRouter(state))
	t.Cleanup(srv.Close)
	return srv, store, state
}

func seedEntities(t *testing.T, store *storage.Client) {
	t.Helper()
	ctx := context.Background()

	mk := func(key, name, file string, start uint32) *entities.CodeEntity {
		sig := entities.InterfaceSignature{
			Kind: entities.KindFunction, Name: name,
			Visibility: entities.VisibilityPublic,
			FilePath:   file, LineRange: entities.LineRange{Start: start, End: start + 5},
		}
		e, err := entities.NewCodeEntity(key, sig, entities.ClassCode)
		require.NoError(t, err)
		e.Language = "rust"
		sem := "__" + name
		e.SemanticPath = &sem
		return e
	}

	require.NoError(t, store.InsertEntitiesBatch(ctx, []*entities.CodeEntity{
		mk("rust:fn:alpha:__src_lib:T1", "alpha", "src/lib.rs", 10),
		mk("rust:fn:beta:__src_lib:T2", "beta", "src/lib.rs", 30),
		mk("rust:fn:gamma:__src_other:T3", "gamma", "src/other.rs", 1),
	}))
	require.NoError(t, store.InsertEdgesBatch(ctx, []entities.DependencyEdge{
		{FromKey: "rust:fn:alpha:__src_lib:T1", ToKey: "rust:fn:beta:__src_lib:T2", Type: entities.EdgeCalls},
		{FromKey: "rust:fn:beta:__src_lib:T2", ToKey: "rust:fn:gamma:__src_other:T3", Type: entities.EdgeCalls},
	}))
}

func getJSON(t *testing.T, url string) (int, envelope) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func TestHealthEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(t)
	status, env := getJSON(t, srv.URL+"/server-health-check-status")

	assert.Equal(t, http.StatusOK, status)
	assert.True(t, env.Success)
	assert.Equal(t, "/server-health-check-status", env.Endpoint)
	assert.Greater(t, env.Tokens, 0)
}

func TestStatsEndpoint(t *testing.T) {
	srv, store, _ := newTestServer(t)
	seedEntities(t, store)

	status, env := getJSON(t, srv.URL+"/codebase-statistics-overview-summary")
	require.Equal(t, http.StatusOK, status)

	data := env.Data.(map[string]any)
	assert.Equal(t, float64(3), data["entity_count"])
	assert.Equal(t, float64(2), data["edge_count"])
}

func TestEntityListAndDetail(t *testing.T) {
	srv, store, _ := newTestServer(t)
	seedEntities(t, store)

	_, env := getJSON(t, srv.URL+"/code-entities-list-all")
	data := env.Data.(map[string]any)
	assert.Equal(t, float64(3), data["count"])

	_, env = getJSON(t, srv.URL+"/code-entity-detail-view?key=rust:fn:alpha:__src_lib:T1")
	require.True(t, env.Success)
	detail := env.Data.(map[string]any)
	assert.Equal(t, "rust:fn:alpha:__src_lib:T1", detail["key"])

	status, env := getJSON(t, srv.URL+"/code-entity-detail-view?key=missing")
	assert.Equal(t, http.StatusNotFound, status)
	assert.False(t, env.Success)
	assert.NotEmpty(t, env.Error)
}

func TestFuzzySearch(t *testing.T) {
	srv, store, _ := newTestServer(t)
	seedEntities(t, store)

	_, env := getJSON(t, srv.URL+"/code-entities-search-fuzzy?q=alp")
	require.True(t, env.Success)
	data := env.Data.(map[string]any)
	matches := data["matches"].([]any)
	require.NotEmpty(t, matches)
	top := matches[0].(map[string]any)
	assert.Equal(t, "alpha", top["name"])

	// Missing query parameter keeps the envelope shape.
	status, env := getJSON(t, srv.URL+"/code-entities-search-fuzzy")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.False(t, env.Success)
}

func TestDependencyEndpoints(t *testing.T) {
	srv, store, _ := newTestServer(t)
	seedEntities(t, store)

	_, env := getJSON(t, srv.URL+"/forward-callees-query-graph?key=rust:fn:alpha:__src_lib:T1")
	data := env.Data.(map[string]any)
	deps := data["dependencies"].([]any)
	require.Len(t, deps, 1)
	assert.Equal(t, "rust:fn:beta:__src_lib:T2", deps[0])

	_, env = getJSON(t, srv.URL+"/reverse-callers-query-graph?key=rust:fn:beta:__src_lib:T2")
	data = env.Data.(map[string]any)
	deps = data["dependencies"].([]any)
	require.Len(t, deps, 1)
	assert.Equal(t, "rust:fn:alpha:__src_lib:T1", deps[0])
}

func TestBlastRadiusEndpoint(t *testing.T) {
	srv, store, _ := newTestServer(t)
	seedEntities(t, store)

	_, env := getJSON(t, srv.URL+"/blast-radius-impact-analysis?key=rust:fn:alpha:__src_lib:T1&max_hops=2")
	require.True(t, env.Success)
	data := env.Data.(map[string]any)
	assert.Equal(t, float64(2), data["count"])

	// max_hops=0 returns an empty set.
	_, env = getJSON(t, srv.URL+"/blast-radius-impact-analysis?key=rust:fn:alpha:__src_lib:T1&max_hops=0")
	data = env.Data.(map[string]any)
	assert.Equal(t, float64(0), data["count"])
}

func TestAnalysisEndpoints(t *testing.T) {
	srv, store, _ := newTestServer(t)
	seedEntities(t, store)

	for _, path := range []string{
		"/strongly-connected-components-analysis",
		"/circular-dependency-detection-scan",
		"/kcore-decomposition-layering-analysis",
		"/centrality-measures-entity-ranking",
		"/entropy-complexity-measurement-scores",
		"/complexity-hotspots-ranking-view",
		"/coupling-cohesion-metrics-suite",
		"/technical-debt-sqale-scoring",
		"/leiden-community-detection-clusters",
		"/semantic-cluster-grouping-list",
		"/smart-context-token-budget",
		"/temporal-coupling-hidden-deps",
		"/folder-structure-discovery-tree",
		"/api-reference-documentation-help",
		"/ingestion-coverage-folder-report",
		"/ingestion-diagnostics-coverage-report",
	} {
		status, env := getJSON(t, srv.URL+path)
		assert.Equal(t, http.StatusOK, status, path)
		assert.True(t, env.Success, path)
		assert.Equal(t, path, env.Endpoint, path)
	}
}

func TestWatcherStatusEndpoint(t *testing.T) {
	srv, _, state := newTestServer(t)

	// No watcher installed.
	_, env := getJSON(t, srv.URL+"/file-watcher-status-check")
	data := env.Data.(map[string]any)
	assert.Equal(t, false, data["enabled"])

	// Installing the service into app state makes it visible — and keeps
	// it alive for the server lifetime.
	svc := watcher.NewService(watcher.NewMockProvider(), watcher.ServiceConfig{
		WatchDirectory:    "/repo",
		Debounce:          10 * time.Millisecond,
		WatchedExtensions: []string{"rs"},
	}, nil, nil)
	require.NoError(t, svc.Start())
	state.SetWatcher(svc)

	_, env = getJSON(t, srv.URL+"/file-watcher-status-check")
	data = env.Data.(map[string]any)
	assert.Equal(t, true, data["enabled"])
	statusData := data["status"].(map[string]any)
	assert.Equal(t, true, statusData["running"])

	// The service held by state still delivers after requests complete.
	assert.True(t, state.Watcher().IsRunning())
}

func TestIncrementalReindexEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(t)

	path := filepath.Join(t.TempDir(), "lib.rs")
	require.NoError(t, os.WriteFile(path, []byte("fn alpha() {\n    let a = 1;\n}\n"), 0o644))

	resp, err := http.Post(srv.URL+"/incremental-reindex-file-update?path="+path, "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	require.True(t, env.Success)
	data := env.Data.(map[string]any)
	assert.Equal(t, true, data["hash_changed"])
	assert.Equal(t, float64(1), data["entities_added"])

	// Missing file returns the error envelope with 404.
	resp, err = http.Post(srv.URL+"/incremental-reindex-file-update?path=/nope/ghost.rs", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMethodNotAllowed(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp, err := http.Post(srv.URL+"/server-health-check-status", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	resp2, err := http.Get(srv.URL + "/incremental-reindex-file-update?path=x")
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp2.StatusCode)
}

func TestFuzzyScoreRanking(t *testing.T) {
	assert.Equal(t, 100, fuzzyScore("alpha", "alpha"))
	assert.Equal(t, 80, fuzzyScore("alp", "alpha"))
	assert.Equal(t, 60, fuzzyScore("lph", "alpha"))
	assert.Equal(t, 30, fuzzyScore("aha", "alpha"))
	assert.Equal(t, 0, fuzzyScore("xyz", "alpha"))
}
