// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/parseltongue/pkg/entities"
)

// newMemClient provisions an in-memory store with all schemas created.
func newMemClient(t *testing.T) *Client {
	t.Helper()
	c, err := New("mem")
	require.NoError(t, err)
	t.Cleanup(c.Close)
	require.NoError(t, c.CreateSchema(context.Background()))
	return c
}

func testEntity(t *testing.T, key, name, filePath string, start, end uint32) *entities.CodeEntity {
	t.Helper()
	sig := entities.InterfaceSignature{
		Kind:       entities.KindFunction,
		Name:       name,
		Visibility: entities.VisibilityPublic,
		FilePath:   filePath,
		LineRange:  entities.LineRange{Start: start, End: end},
	}
	e, err := entities.NewCodeEntity(key, sig, entities.ClassCode)
	require.NoError(t, err)
	e.Language = "rust"
	return e
}

func TestCreateSchemaIdempotent(t *testing.T) {
	c := newMemClient(t)
	// Second creation must tolerate already-exists conflicts.
	require.NoError(t, c.CreateSchema(context.Background()))

	names, err := c.ListRelations(context.Background())
	require.NoError(t, err)
	assert.Contains(t, names, "CodeGraph")
	assert.Contains(t, names, "DependencyEdges")
	assert.Contains(t, names, "FileHashCache")
}

func TestEntityRoundTrip(t *testing.T) {
	c := newMemClient(t)
	ctx := context.Background()

	e := testEntity(t, "rust:fn:alpha:__src_lib:T1600000001", "alpha", "src/lib.rs", 10, 20)
	code := "fn alpha() {}"
	e.CurrentCode = &code
	hash := "deadbeef"
	e.ContentHash = &hash
	ts := int64(1600000001)
	e.BirthTimestamp = &ts

	require.NoError(t, c.InsertEntity(ctx, e))

	got, err := c.GetEntity(ctx, e.Key)
	require.NoError(t, err)
	assert.Equal(t, e.Key, got.Key)
	assert.Equal(t, "alpha", got.Signature.Name)
	require.NotNil(t, got.CurrentCode)
	assert.Equal(t, code, *got.CurrentCode)
	require.NotNil(t, got.ContentHash)
	assert.Equal(t, hash, *got.ContentHash)
	require.NotNil(t, got.BirthTimestamp)
	assert.Equal(t, ts, *got.BirthTimestamp)
	assert.Equal(t, "src", got.L1)
}

func TestEntityBatchAndByFilePath(t *testing.T) {
	c := newMemClient(t)
	ctx := context.Background()

	batch := []*entities.CodeEntity{
		testEntity(t, "rust:fn:a:__src_lib:T1600000001", "a", "src/lib.rs", 1, 5),
		testEntity(t, "rust:fn:b:__src_lib:T1600000002", "b", "src/lib.rs", 10, 15),
		testEntity(t, "rust:fn:c:__src_other:T1600000003", "c", "src/other.rs", 1, 5),
	}
	require.NoError(t, c.InsertEntitiesBatch(ctx, batch))

	byFile, err := c.GetEntitiesByFilePath(ctx, "src/lib.rs")
	require.NoError(t, err)
	assert.Len(t, byFile, 2)

	all, err := c.GetAllEntities(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	n, err := c.CountEntities(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	// Batch upsert is idempotent on the key.
	require.NoError(t, c.InsertEntitiesBatch(ctx, batch))
	n, err = c.CountEntities(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestDeleteEntitiesByKeys(t *testing.T) {
	c := newMemClient(t)
	ctx := context.Background()

	batch := []*entities.CodeEntity{
		testEntity(t, "rust:fn:a:__f:T1", "a", "f.rs", 1, 5),
		testEntity(t, "rust:fn:b:__f:T2", "b", "f.rs", 10, 15),
	}
	require.NoError(t, c.InsertEntitiesBatch(ctx, batch))

	removed, err := c.DeleteEntitiesByKeys(ctx, []string{"rust:fn:a:__f:T1"})
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = c.GetEntity(ctx, "rust:fn:a:__f:T1")
	assert.Error(t, err)
	_, err = c.GetEntity(ctx, "rust:fn:b:__f:T2")
	assert.NoError(t, err)
}

func edge(from, to string, et entities.EdgeType) entities.DependencyEdge {
	return entities.DependencyEdge{FromKey: from, ToKey: to, Type: et}
}

func TestEdgeBatchAndQueries(t *testing.T) {
	c := newMemClient(t)
	ctx := context.Background()

	edges := []entities.DependencyEdge{
		edge("A", "B", entities.EdgeCalls),
		edge("A", "C", entities.EdgeUses),
		edge("B", "C", entities.EdgeCalls),
	}
	require.NoError(t, c.InsertEdgesBatch(ctx, edges))

	fwd, err := c.GetForwardDependencies(ctx, "A")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"B", "C"}, fwd)

	rev, err := c.GetReverseDependencies(ctx, "C")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"A", "B"}, rev)

	all, err := c.GetAllEdges(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	// Duplicate composite keys are idempotent.
	require.NoError(t, c.InsertEdgesBatch(ctx, edges))
	n, err := c.CountEdges(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestDeleteEdgesByFromKeys(t *testing.T) {
	c := newMemClient(t)
	ctx := context.Background()

	require.NoError(t, c.InsertEdgesBatch(ctx, []entities.DependencyEdge{
		edge("A", "B", entities.EdgeCalls),
		edge("A", "C", entities.EdgeCalls),
		edge("B", "C", entities.EdgeCalls),
	}))

	removed, err := c.DeleteEdgesByFromKeys(ctx, []string{"A"})
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	// No edge with from_key in the deleted set remains.
	fwd, err := c.GetForwardDependencies(ctx, "A")
	require.NoError(t, err)
	assert.Empty(t, fwd)

	n, err := c.CountEdges(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// Deleting with no matching edges is a clean zero.
	removed, err = c.DeleteEdgesByFromKeys(ctx, []string{"Z"})
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestBlastRadiusChain(t *testing.T) {
	c := newMemClient(t)
	ctx := context.Background()

	require.NoError(t, c.InsertEdgesBatch(ctx, []entities.DependencyEdge{
		edge("A", "B", entities.EdgeCalls),
		edge("B", "C", entities.EdgeCalls),
		edge("C", "D", entities.EdgeCalls),
	}))

	entries, err := c.CalculateBlastRadius(ctx, "A", 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, BlastRadiusEntry{Key: "B", Distance: 1}, entries[0])
	assert.Equal(t, BlastRadiusEntry{Key: "C", Distance: 2}, entries[1])

	// max_hops = 0 returns empty without querying.
	entries, err = c.CalculateBlastRadius(ctx, "A", 0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestBlastRadiusDiamondMinDistance(t *testing.T) {
	c := newMemClient(t)
	ctx := context.Background()

	// A→B→D and A→D: D is reachable at distance 1 and 2; min wins.
	require.NoError(t, c.InsertEdgesBatch(ctx, []entities.DependencyEdge{
		edge("A", "B", entities.EdgeCalls),
		edge("B", "D", entities.EdgeCalls),
		edge("A", "D", entities.EdgeCalls),
	}))

	entries, err := c.CalculateBlastRadius(ctx, "A", 3)
	require.NoError(t, err)
	dist := map[string]int{}
	for _, e := range entries {
		dist[e.Key] = e.Distance
	}
	assert.Equal(t, 1, dist["B"])
	assert.Equal(t, 1, dist["D"])
}

func TestTransitiveClosureWithCycle(t *testing.T) {
	c := newMemClient(t)
	ctx := context.Background()

	require.NoError(t, c.InsertEdgesBatch(ctx, []entities.DependencyEdge{
		edge("A", "B", entities.EdgeCalls),
		edge("B", "C", entities.EdgeCalls),
		edge("C", "A", entities.EdgeCalls), // cycle back
	}))

	reachable, err := c.GetTransitiveClosure(ctx, "A")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"A", "B", "C"}, reachable)
}

func TestHashCacheRoundTrip(t *testing.T) {
	c := newMemClient(t)
	ctx := context.Background()

	// An unset path reads back nil.
	got, err := c.GetCachedFileHash(ctx, "src/lib.rs")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, c.SetCachedFileHash(ctx, "src/lib.rs", "abc123"))
	got, err = c.GetCachedFileHash(ctx, "src/lib.rs")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "abc123", *got)

	// Upsert on change.
	require.NoError(t, c.SetCachedFileHash(ctx, "src/lib.rs", "def456"))
	got, err = c.GetCachedFileHash(ctx, "src/lib.rs")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "def456", *got)
}

func TestDiagnosticsRoundTrip(t *testing.T) {
	c := newMemClient(t)
	ctx := context.Background()

	require.NoError(t, c.InsertExcludedTestsBatch(ctx, []entities.ExcludedTestEntity{
		{Name: "test_alpha", Folder: "src", File: "lib.rs", Class: "TEST",
			Language: "rust", LineStart: 1, LineEnd: 9, Reason: "test attribute"},
	}))
	excluded, err := c.GetExcludedTests(ctx)
	require.NoError(t, err)
	require.Len(t, excluded, 1)
	assert.Equal(t, "test_alpha", excluded[0].Name)

	require.NoError(t, c.InsertWordCoverageBatch(ctx, []entities.FileWordCoverage{
		{Folder: "src", File: "lib.rs", Language: "rust", SourceWordCount: 100,
			EntityWordCount: 80, ImportWordCount: 5, CommentWords: 10,
			RawCoveragePct: 80.0, EffectivePct: 94.1, EntityCount: 3},
	}))
	coverage, err := c.GetWordCoverage(ctx)
	require.NoError(t, err)
	require.Len(t, coverage, 1)
	assert.InDelta(t, 94.1, coverage[0].EffectivePct, 1e-9)

	require.NoError(t, c.InsertIgnoredFilesBatch(ctx, []entities.IgnoredFile{
		{Folder: "assets", File: "logo.png", Extension: "png", Reason: "unsupported extension"},
	}))
	ignored, err := c.GetIgnoredFiles(ctx)
	require.NoError(t, err)
	require.Len(t, ignored, 1)
	assert.Equal(t, "png", ignored[0].Extension)
}

func TestEmptyBatchesAreNoOps(t *testing.T) {
	c := newMemClient(t)
	ctx := context.Background()

	require.NoError(t, c.InsertEntitiesBatch(ctx, nil))
	require.NoError(t, c.InsertEdgesBatch(ctx, nil))
	require.NoError(t, c.InsertExcludedTestsBatch(ctx, nil))
	require.NoError(t, c.InsertWordCoverageBatch(ctx, nil))
	require.NoError(t, c.InsertIgnoredFilesBatch(ctx, nil))

	n, err := c.DeleteEntitiesByKeys(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	n, err = c.DeleteEdgesByFromKeys(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRocksDBOptionsFilePreserved(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "analysis.db")

	writeTunedRocksDBOptions(dbPath)
	content, err := os.ReadFile(filepath.Join(dbPath, "options"))
	require.NoError(t, err)
	assert.Contains(t, string(content), "write_buffer_size=134217728")

	// A user-edited options file survives subsequent opens.
	require.NoError(t, os.WriteFile(filepath.Join(dbPath, "options"), []byte("custom"), 0o644))
	writeTunedRocksDBOptions(dbPath)
	content, err = os.ReadFile(filepath.Join(dbPath, "options"))
	require.NoError(t, err)
	assert.Equal(t, "custom", string(content))
}
