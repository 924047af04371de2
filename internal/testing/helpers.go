// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package testing provides shared helpers for tests that need a live store
// with the full graph schema created.
package testing

import (
	"context"
	"testing"

	"github.com/kraklabs/parseltongue/pkg/entities"
	"github.com/kraklabs/parseltongue/pkg/storage"
)

// SetupTestStore creates an in-memory store with every relation created.
// The store is closed automatically when the test finishes.
//
// Example:
//
//	func TestMyFeature(t *testing.T) {
//	    store := testing.SetupTestStore(t)
//	    testing.InsertTestEntity(t, store, "rust:fn:f:__lib:T1", "f", "lib.rs", 1, 5)
//	    // ...
//	}
func SetupTestStore(t *testing.T) *storage.Client {
	t.Helper()

	store, err := storage.New("mem")
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(store.Close)

	if err := store.CreateSchema(context.Background()); err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}
	return store
}

// InsertTestEntity seeds one function entity. Convenience for handler and
// traversal tests.
func InsertTestEntity(t *testing.T, store *storage.Client, key, name, filePath string, startLine, endLine uint32) {
	t.Helper()

	sig := entities.InterfaceSignature{
		Kind:       entities.KindFunction,
		Name:       name,
		Visibility: entities.VisibilityPublic,
		FilePath:   filePath,
		LineRange:  entities.LineRange{Start: startLine, End: endLine},
	}
	e, err := entities.NewCodeEntity(key, sig, entities.ClassCode)
	if err != nil {
		t.Fatalf("failed to build test entity: %v", err)
	}
	e.Language = "rust"

	if err := store.InsertEntity(context.Background(), e); err != nil {
		t.Fatalf("failed to insert test entity: %v", err)
	}
}

// InsertTestEdge seeds one Calls edge between two keys.
func InsertTestEdge(t *testing.T, store *storage.Client, fromKey, toKey string) {
	t.Helper()

	edge := &entities.DependencyEdge{
		FromKey: fromKey,
		ToKey:   toKey,
		Type:    entities.EdgeCalls,
	}
	if err := store.InsertEdge(context.Background(), edge); err != nil {
		t.Fatalf("failed to insert test edge: %v", err)
	}
}
