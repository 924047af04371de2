// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/kraklabs/parseltongue/pkg/entities"
)

const defaultListLimit = 100

// entitySummary is the compact row served by list and search endpoints.
type entitySummary struct {
	Key       string `json:"key"`
	Name      string `json:"name"`
	Kind      string `json:"kind"`
	FilePath  string `json:"file_path"`
	Language  string `json:"language"`
	LineStart uint32 `json:"line_start"`
	LineEnd   uint32 `json:"line_end"`
}

func summarize(e *entities.CodeEntity) entitySummary {
	return entitySummary{
		Key:       e.Key,
		Name:      e.Signature.Name,
		Kind:      string(e.Kind),
		FilePath:  e.FilePath,
		Language:  e.Language,
		LineStart: e.Signature.LineRange.Start,
		LineEnd:   e.Signature.LineRange.End,
	}
}

func queryLimit(r *http.Request) int {
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			return n
		}
	}
	return defaultListLimit
}

func (h *handlers) listEntities(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/code-entities-list-all"
	store := h.requireStore(w, endpoint)
	if store == nil {
		return
	}

	all, err := store.GetAllEntities(r.Context())
	if err != nil {
		respondError(w, endpoint, http.StatusInternalServerError, err.Error())
		return
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Key < all[j].Key })

	limit := queryLimit(r)
	if len(all) > limit {
		all = all[:limit]
	}

	summaries := make([]entitySummary, len(all))
	for i, e := range all {
		summaries[i] = summarize(e)
	}
	respondOK(w, endpoint, map[string]any{
		"entities": summaries,
		"count":    len(summaries),
	})
}

func (h *handlers) entityDetail(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/code-entity-detail-view"
	store := h.requireStore(w, endpoint)
	if store == nil {
		return
	}

	key := r.URL.Query().Get("key")
	if key == "" {
		respondError(w, endpoint, http.StatusBadRequest, "missing required query parameter: key")
		return
	}

	e, err := store.GetEntity(r.Context(), key)
	if err != nil {
		respondError(w, endpoint, http.StatusNotFound, err.Error())
		return
	}

	respondOK(w, endpoint, map[string]any{
		"key":             e.Key,
		"signature":       e.Signature,
		"current_code":    e.CurrentCode,
		"language":        e.Language,
		"file_path":       e.FilePath,
		"entity_class":    e.Class,
		"birth_timestamp": e.BirthTimestamp,
		"content_hash":    e.ContentHash,
		"semantic_path":   e.SemanticPath,
	})
}

// fuzzyScore ranks how well a candidate name matches the query: exact over
// prefix over substring over in-order subsequence.
func fuzzyScore(query, name string) int {
	q := strings.ToLower(query)
	n := strings.ToLower(name)
	switch {
	case n == q:
		return 100
	case strings.HasPrefix(n, q):
		return 80
	case strings.Contains(n, q):
		return 60
	case isSubsequence(q, n):
		return 30
	}
	return 0
}

func isSubsequence(needle, haystack string) bool {
	i := 0
	for j := 0; i < len(needle) && j < len(haystack); j++ {
		if needle[i] == haystack[j] {
			i++
		}
	}
	return i == len(needle)
}

func (h *handlers) searchEntities(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/code-entities-search-fuzzy"
	store := h.requireStore(w, endpoint)
	if store == nil {
		return
	}

	query := r.URL.Query().Get("q")
	if query == "" {
		respondError(w, endpoint, http.StatusBadRequest, "missing required query parameter: q")
		return
	}

	all, err := store.GetAllEntities(r.Context())
	if err != nil {
		respondError(w, endpoint, http.StatusInternalServerError, err.Error())
		return
	}

	type scored struct {
		entitySummary
		Score int `json:"score"`
	}
	var matches []scored
	for _, e := range all {
		if s := fuzzyScore(query, e.Signature.Name); s > 0 {
			matches = append(matches, scored{summarize(e), s})
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Key < matches[j].Key
	})

	limit := queryLimit(r)
	if len(matches) > limit {
		matches = matches[:limit]
	}
	respondOK(w, endpoint, map[string]any{
		"query":   query,
		"matches": matches,
	})
}

func (h *handlers) forwardDeps(w http.ResponseWriter, r *http.Request) {
	h.oneHopDeps(w, r, "/forward-callees-query-graph", true)
}

func (h *handlers) reverseDeps(w http.ResponseWriter, r *http.Request) {
	h.oneHopDeps(w, r, "/reverse-callers-query-graph", false)
}

func (h *handlers) oneHopDeps(w http.ResponseWriter, r *http.Request, endpoint string, forward bool) {
	store := h.requireStore(w, endpoint)
	if store == nil {
		return
	}

	key := r.URL.Query().Get("key")
	if key == "" {
		respondError(w, endpoint, http.StatusBadRequest, "missing required query parameter: key")
		return
	}

	var deps []string
	var err error
	if forward {
		deps, err = store.GetForwardDependencies(r.Context(), key)
	} else {
		deps, err = store.GetReverseDependencies(r.Context(), key)
	}
	if err != nil {
		respondError(w, endpoint, http.StatusInternalServerError, err.Error())
		return
	}
	sort.Strings(deps)

	respondOK(w, endpoint, map[string]any{
		"key":          key,
		"dependencies": deps,
		"count":        len(deps),
	})
}

func (h *handlers) listEdges(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/dependency-edges-list-all"
	store := h.requireStore(w, endpoint)
	if store == nil {
		return
	}

	edges, err := store.GetAllEdges(r.Context())
	if err != nil {
		respondError(w, endpoint, http.StatusInternalServerError, err.Error())
		return
	}

	type edgeRow struct {
		From string `json:"from"`
		To   string `json:"to"`
		Type string `json:"type"`
	}
	rows := make([]edgeRow, len(edges))
	for i, e := range edges {
		rows[i] = edgeRow{From: e.FromKey, To: e.ToKey, Type: string(e.Type)}
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].From != rows[j].From {
			return rows[i].From < rows[j].From
		}
		return rows[i].To < rows[j].To
	})

	limit := queryLimit(r)
	if len(rows) > limit {
		rows = rows[:limit]
	}
	respondOK(w, endpoint, map[string]any{
		"edges": rows,
		"count": len(rows),
	})
}
