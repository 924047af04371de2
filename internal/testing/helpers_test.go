// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package testing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupTestStoreCreatesSchema(t *testing.T) {
	store := SetupTestStore(t)

	names, err := store.ListRelations(context.Background())
	require.NoError(t, err)
	assert.Contains(t, names, "CodeGraph")
	assert.Contains(t, names, "DependencyEdges")
}

func TestInsertHelpers(t *testing.T) {
	store := SetupTestStore(t)

	InsertTestEntity(t, store, "rust:fn:a:__lib:T1", "a", "lib.rs", 1, 5)
	InsertTestEntity(t, store, "rust:fn:b:__lib:T2", "b", "lib.rs", 10, 15)
	InsertTestEdge(t, store, "rust:fn:a:__lib:T1", "rust:fn:b:__lib:T2")

	e, err := store.GetEntity(context.Background(), "rust:fn:a:__lib:T1")
	require.NoError(t, err)
	assert.Equal(t, "a", e.Signature.Name)

	deps, err := store.GetForwardDependencies(context.Background(), "rust:fn:a:__lib:T1")
	require.NoError(t, err)
	assert.Equal(t, []string{"rust:fn:b:__lib:T2"}, deps)
}
