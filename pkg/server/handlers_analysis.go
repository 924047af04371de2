// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"net/http"
	"sort"
	"strconv"

	"github.com/cespare/xxhash/v2"

	"github.com/kraklabs/parseltongue/pkg/graph"
)

func (h *handlers) blastRadius(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/blast-radius-impact-analysis"
	store := h.requireStore(w, endpoint)
	if store == nil {
		return
	}

	key := r.URL.Query().Get("key")
	if key == "" {
		respondError(w, endpoint, http.StatusBadRequest, "missing required query parameter: key")
		return
	}
	maxHops := 3
	if raw := r.URL.Query().Get("max_hops"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			respondError(w, endpoint, http.StatusBadRequest, "max_hops must be a non-negative integer")
			return
		}
		maxHops = n
	}

	entries, err := store.CalculateBlastRadius(r.Context(), key, maxHops)
	if err != nil {
		respondError(w, endpoint, http.StatusInternalServerError, err.Error())
		return
	}

	respondOK(w, endpoint, map[string]any{
		"source":   key,
		"max_hops": maxHops,
		"affected": entries,
		"count":    len(entries),
	})
}

func (h *handlers) scc(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/strongly-connected-components-analysis"
	store := h.requireStore(w, endpoint)
	if store == nil {
		return
	}

	g, err := h.buildGraph(r, store)
	if err != nil {
		respondError(w, endpoint, http.StatusInternalServerError, err.Error())
		return
	}

	components := graph.StronglyConnectedComponents(g)
	respondOK(w, endpoint, map[string]any{
		"components":      components,
		"component_count": len(components),
		"node_count":      g.NodeCount(),
	})
}

func (h *handlers) circularDeps(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/circular-dependency-detection-scan"
	store := h.requireStore(w, endpoint)
	if store == nil {
		return
	}

	g, err := h.buildGraph(r, store)
	if err != nil {
		respondError(w, endpoint, http.StatusInternalServerError, err.Error())
		return
	}

	cycles := graph.CyclicComponents(g)
	respondOK(w, endpoint, map[string]any{
		"cycles":      cycles,
		"cycle_count": len(cycles),
	})
}

func (h *handlers) kcore(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/kcore-decomposition-layering-analysis"
	store := h.requireStore(w, endpoint)
	if store == nil {
		return
	}

	g, err := h.buildGraph(r, store)
	if err != nil {
		respondError(w, endpoint, http.StatusInternalServerError, err.Error())
		return
	}

	coreness := graph.KCoreDecomposition(g)
	type entry struct {
		Key      string          `json:"key"`
		Coreness int             `json:"coreness"`
		Layer    graph.CoreLayer `json:"layer"`
	}
	entries := make([]entry, 0, len(coreness))
	for key, k := range coreness {
		entries = append(entries, entry{Key: key, Coreness: k, Layer: graph.ClassifyCoreLayer(k)})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Coreness != entries[j].Coreness {
			return entries[i].Coreness > entries[j].Coreness
		}
		return entries[i].Key < entries[j].Key
	})

	respondOK(w, endpoint, map[string]any{"entities": entries})
}

func (h *handlers) centrality(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/centrality-measures-entity-ranking"
	store := h.requireStore(w, endpoint)
	if store == nil {
		return
	}

	g, err := h.buildGraph(r, store)
	if err != nil {
		respondError(w, endpoint, http.StatusInternalServerError, err.Error())
		return
	}

	pagerank := graph.PageRank(g, graph.DefaultDamping, graph.DefaultMaxIter, graph.DefaultTolerance)
	betweenness := graph.Betweenness(g)

	type entry struct {
		Key         string  `json:"key"`
		PageRank    float64 `json:"pagerank"`
		Betweenness float64 `json:"betweenness"`
	}
	entries := make([]entry, 0, len(pagerank))
	for key, pr := range pagerank {
		entries = append(entries, entry{Key: key, PageRank: pr, Betweenness: betweenness[key]})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].PageRank != entries[j].PageRank {
			return entries[i].PageRank > entries[j].PageRank
		}
		return entries[i].Key < entries[j].Key
	})

	limit := queryLimit(r)
	if len(entries) > limit {
		entries = entries[:limit]
	}
	respondOK(w, endpoint, map[string]any{"entities": entries})
}

func (h *handlers) entropy(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/entropy-complexity-measurement-scores"
	store := h.requireStore(w, endpoint)
	if store == nil {
		return
	}

	g, err := h.buildGraph(r, store)
	if err != nil {
		respondError(w, endpoint, http.StatusInternalServerError, err.Error())
		return
	}

	scores := graph.EdgeTypeEntropy(g)
	type entry struct {
		Key     string             `json:"key"`
		Entropy float64            `json:"entropy"`
		Level   graph.EntropyLevel `json:"level"`
	}
	entries := make([]entry, 0, len(scores))
	for key, s := range scores {
		entries = append(entries, entry{Key: key, Entropy: s, Level: graph.ClassifyEntropy(s)})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Entropy != entries[j].Entropy {
			return entries[i].Entropy > entries[j].Entropy
		}
		return entries[i].Key < entries[j].Key
	})

	respondOK(w, endpoint, map[string]any{"entities": entries})
}

func (h *handlers) complexityHotspots(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/complexity-hotspots-ranking-view"
	store := h.requireStore(w, endpoint)
	if store == nil {
		return
	}

	g, err := h.buildGraph(r, store)
	if err != nil {
		respondError(w, endpoint, http.StatusInternalServerError, err.Error())
		return
	}

	type entry struct {
		Key string `json:"key"`
		WMC int    `json:"wmc"`
		CBO int    `json:"cbo"`
	}
	entries := make([]entry, 0, g.NodeCount())
	for node := range g.Nodes() {
		entries = append(entries, entry{
			Key: node,
			WMC: graph.WeightedMethods(g, node),
			CBO: graph.CouplingBetweenObjects(g, node),
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].WMC != entries[j].WMC {
			return entries[i].WMC > entries[j].WMC
		}
		return entries[i].Key < entries[j].Key
	})

	limit := queryLimit(r)
	if len(entries) > limit {
		entries = entries[:limit]
	}
	respondOK(w, endpoint, map[string]any{"hotspots": entries})
}

func (h *handlers) ckMetrics(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/coupling-cohesion-metrics-suite"
	store := h.requireStore(w, endpoint)
	if store == nil {
		return
	}

	g, err := h.buildGraph(r, store)
	if err != nil {
		respondError(w, endpoint, http.StatusInternalServerError, err.Error())
		return
	}

	type entry struct {
		Key     string            `json:"key"`
		Metrics graph.CKMetrics   `json:"metrics"`
		Grade   graph.HealthGrade `json:"grade"`
	}

	if key := r.URL.Query().Get("key"); key != "" {
		m := graph.ComputeCKMetrics(g, key)
		respondOK(w, endpoint, entry{Key: key, Metrics: m, Grade: graph.GradeHealth(m)})
		return
	}

	entries := make([]entry, 0, g.NodeCount())
	for node := range g.Nodes() {
		m := graph.ComputeCKMetrics(g, node)
		entries = append(entries, entry{Key: node, Metrics: m, Grade: graph.GradeHealth(m)})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Metrics.CBO != entries[j].Metrics.CBO {
			return entries[i].Metrics.CBO > entries[j].Metrics.CBO
		}
		return entries[i].Key < entries[j].Key
	})

	limit := queryLimit(r)
	if len(entries) > limit {
		entries = entries[:limit]
	}
	respondOK(w, endpoint, map[string]any{"entities": entries})
}

func (h *handlers) sqaleDebt(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/technical-debt-sqale-scoring"
	store := h.requireStore(w, endpoint)
	if store == nil {
		return
	}

	g, err := h.buildGraph(r, store)
	if err != nil {
		respondError(w, endpoint, http.StatusInternalServerError, err.Error())
		return
	}

	results := graph.SqaleDebtAllNodes(g)
	type entry struct {
		graph.SqaleDebt
		Severity graph.DebtSeverity `json:"severity"`
	}
	entries := make([]entry, 0, len(results))
	totalHours := 0.0
	for _, d := range results {
		entries = append(entries, entry{d, graph.ClassifyDebtSeverity(d.TotalDebtHours)})
		totalHours += d.TotalDebtHours
	}

	limit := queryLimit(r)
	if len(entries) > limit {
		entries = entries[:limit]
	}
	respondOK(w, endpoint, map[string]any{
		"entities":         entries,
		"total_debt_hours": totalHours,
	})
}

func (h *handlers) leiden(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/leiden-community-detection-clusters"
	store := h.requireStore(w, endpoint)
	if store == nil {
		return
	}

	resolution := 1.0
	if raw := r.URL.Query().Get("resolution"); raw != "" {
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil || f <= 0 {
			respondError(w, endpoint, http.StatusBadRequest, "resolution must be a positive number")
			return
		}
		resolution = f
	}

	g, err := h.buildGraph(r, store)
	if err != nil {
		respondError(w, endpoint, http.StatusInternalServerError, err.Error())
		return
	}

	communities, modularity := graph.LeidenCommunities(g, resolution, 100)

	clusters := make(map[int][]string)
	for node, comm := range communities {
		clusters[comm] = append(clusters[comm], node)
	}
	type cluster struct {
		ID      int      `json:"id"`
		Members []string `json:"members"`
	}
	out := make([]cluster, 0, len(clusters))
	for id, members := range clusters {
		sort.Strings(members)
		out = append(out, cluster{ID: id, Members: members})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	respondOK(w, endpoint, map[string]any{
		"communities": out,
		"modularity":  modularity,
		"resolution":  resolution,
	})
}

func (h *handlers) semanticClusters(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/semantic-cluster-grouping-list"
	store := h.requireStore(w, endpoint)
	if store == nil {
		return
	}

	all, err := store.GetAllEntities(r.Context())
	if err != nil {
		respondError(w, endpoint, http.StatusInternalServerError, err.Error())
		return
	}

	groups := make(map[string][]string)
	for _, e := range all {
		path := ""
		if e.SemanticPath != nil {
			path = *e.SemanticPath
		}
		groups[path] = append(groups[path], e.Key)
	}
	type cluster struct {
		SemanticPath string   `json:"semantic_path"`
		Members      []string `json:"members"`
	}
	out := make([]cluster, 0, len(groups))
	for path, members := range groups {
		sort.Strings(members)
		out = append(out, cluster{SemanticPath: path, Members: members})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SemanticPath < out[j].SemanticPath })

	respondOK(w, endpoint, map[string]any{"clusters": out})
}

func (h *handlers) smartContext(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/smart-context-token-budget"
	store := h.requireStore(w, endpoint)
	if store == nil {
		return
	}

	budget := 4000
	if raw := r.URL.Query().Get("budget"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondError(w, endpoint, http.StatusBadRequest, "budget must be a positive integer")
			return
		}
		budget = n
	}

	all, err := store.GetAllEntities(r.Context())
	if err != nil {
		respondError(w, endpoint, http.StatusInternalServerError, err.Error())
		return
	}
	g, err := h.buildGraph(r, store)
	if err != nil {
		respondError(w, endpoint, http.StatusInternalServerError, err.Error())
		return
	}

	pagerank := graph.PageRank(g, graph.DefaultDamping, graph.DefaultMaxIter, graph.DefaultTolerance)

	// Greedy: take entities by descending PageRank until the budget runs
	// out. Token cost ≈ code bytes / 4.
	type candidate struct {
		Key    string  `json:"key"`
		Rank   float64 `json:"rank"`
		Tokens int     `json:"tokens"`
	}
	candidates := make([]candidate, 0, len(all))
	for _, e := range all {
		cost := 16
		if e.CurrentCode != nil {
			cost = len(*e.CurrentCode)/4 + 1
		}
		candidates = append(candidates, candidate{Key: e.Key, Rank: pagerank[e.Key], Tokens: cost})
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Rank != candidates[j].Rank {
			return candidates[i].Rank > candidates[j].Rank
		}
		return candidates[i].Key < candidates[j].Key
	})

	var selected []candidate
	used := 0
	for _, c := range candidates {
		if used+c.Tokens > budget {
			continue
		}
		selected = append(selected, c)
		used += c.Tokens
	}

	respondOK(w, endpoint, map[string]any{
		"budget":      budget,
		"used_tokens": used,
		"selected":    selected,
	})
}

func (h *handlers) temporalCoupling(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/temporal-coupling-hidden-deps"
	store := h.requireStore(w, endpoint)
	if store == nil {
		return
	}

	all, err := store.GetAllEntities(r.Context())
	if err != nil {
		respondError(w, endpoint, http.StatusInternalServerError, err.Error())
		return
	}
	g, err := h.buildGraph(r, store)
	if err != nil {
		respondError(w, endpoint, http.StatusInternalServerError, err.Error())
		return
	}

	// Co-change frequencies are simulated: without VCS history wired in,
	// a deterministic hash over the key pair stands in for the edit-log
	// correlation. Pairs sharing a folder scope but no direct edge are the
	// "hidden" candidates.
	type pair struct {
		A     string  `json:"a"`
		B     string  `json:"b"`
		Score float64 `json:"score"`
	}
	var pairs []pair
	keys := make([]string, 0, len(all))
	byKey := make(map[string]string)
	for _, e := range all {
		if e.Signature.LineRange.IsExternal() {
			continue
		}
		keys = append(keys, e.Key)
		byKey[e.Key] = e.L1
	}
	sort.Strings(keys)

	for i := 0; i < len(keys); i++ {
		for j := i + 1; j < len(keys); j++ {
			a, b := keys[i], keys[j]
			if byKey[a] != byKey[b] {
				continue
			}
			if _, direct := g.EdgeType(a, b); direct {
				continue
			}
			if _, direct := g.EdgeType(b, a); direct {
				continue
			}
			score := float64(xxhash.Sum64String(a+"|"+b)%1000) / 1000.0
			if score >= 0.7 {
				pairs = append(pairs, pair{A: a, B: b, Score: score})
			}
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].Score != pairs[j].Score {
			return pairs[i].Score > pairs[j].Score
		}
		return pairs[i].A+pairs[i].B < pairs[j].A+pairs[j].B
	})

	limit := queryLimit(r)
	if len(pairs) > limit {
		pairs = pairs[:limit]
	}
	respondOK(w, endpoint, map[string]any{
		"pairs":     pairs,
		"simulated": true,
	})
}

func (h *handlers) coverageReport(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/ingestion-coverage-folder-report"
	store := h.requireStore(w, endpoint)
	if store == nil {
		return
	}

	rows, err := store.GetWordCoverage(r.Context())
	if err != nil {
		respondError(w, endpoint, http.StatusInternalServerError, err.Error())
		return
	}

	type folderRollup struct {
		Folder       string  `json:"folder"`
		Files        int     `json:"files"`
		SourceWords  int     `json:"source_words"`
		EntityWords  int     `json:"entity_words"`
		ImportWords  int     `json:"import_words"`
		CommentWords int     `json:"comment_words"`
		RawPct       float64 `json:"raw_pct"`
		EffectivePct float64 `json:"effective_pct"`
	}
	byFolder := make(map[string]*folderRollup)
	for _, row := range rows {
		f, ok := byFolder[row.Folder]
		if !ok {
			f = &folderRollup{Folder: row.Folder}
			byFolder[row.Folder] = f
		}
		f.Files++
		f.SourceWords += row.SourceWordCount
		f.EntityWords += row.EntityWordCount
		f.ImportWords += row.ImportWordCount
		f.CommentWords += row.CommentWords
	}
	rollups := make([]*folderRollup, 0, len(byFolder))
	for _, f := range byFolder {
		if f.SourceWords > 0 {
			f.RawPct = float64(f.EntityWords) / float64(f.SourceWords) * 100.0
		}
		f.EffectivePct = effectiveRollup(f.EntityWords, f.SourceWords, f.ImportWords, f.CommentWords)
		rollups = append(rollups, f)
	}
	sort.Slice(rollups, func(i, j int) bool { return rollups[i].Folder < rollups[j].Folder })

	respondOK(w, endpoint, map[string]any{"folders": rollups})
}

func (h *handlers) diagnosticsReport(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/ingestion-diagnostics-coverage-report"
	store := h.requireStore(w, endpoint)
	if store == nil {
		return
	}

	excluded, err := store.GetExcludedTests(r.Context())
	if err != nil {
		respondError(w, endpoint, http.StatusInternalServerError, err.Error())
		return
	}
	ignored, err := store.GetIgnoredFiles(r.Context())
	if err != nil {
		respondError(w, endpoint, http.StatusInternalServerError, err.Error())
		return
	}

	byReason := make(map[string]int)
	for _, row := range ignored {
		byReason[row.Reason]++
	}

	respondOK(w, endpoint, map[string]any{
		"excluded_tests":      excluded,
		"excluded_test_count": len(excluded),
		"ignored_files":       ignored,
		"ignored_file_count":  len(ignored),
		"ignored_by_reason":   byReason,
	})
}

// effectiveRollup recomputes effective coverage from per-file rows that
// carry their own import/comment splits.
func effectiveRollup(entityWords, sourceWords, importWords, commentWords int) float64 {
	denom := sourceWords - importWords - commentWords
	if denom <= 0 {
		return 0
	}
	return float64(entityWords) / float64(denom) * 100.0
}
