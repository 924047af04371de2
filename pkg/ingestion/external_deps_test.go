// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package ingestion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/parseltongue/pkg/entities"
)

func TestParseExternalKeyParts(t *testing.T) {
	lang, kind, name, crate, err := ParseExternalKeyParts("rust:module:Parser:external-dependency-clap:0-0")
	require.NoError(t, err)
	assert.Equal(t, "rust", lang)
	assert.Equal(t, "module", kind)
	assert.Equal(t, "Parser", name)
	assert.Equal(t, "clap", crate)

	// Unknown pattern maps to the synthetic unresolved-reference crate.
	_, _, name, crate, err = ParseExternalKeyParts("rust:fn:build_cli:unknown:0-0")
	require.NoError(t, err)
	assert.Equal(t, "build_cli", name)
	assert.Equal(t, "unresolved-reference", crate)
}

func TestParseExternalKeyPartsInvalid(t *testing.T) {
	for _, key := range []string{
		"rust:fn:too:few",                             // 4 fields
		"rust:fn:x:src_lib:10-20",                     // neither marker
		"klingon:fn:x:external-dependency-clap:0-0",   // unknown language
		"rust:fn::external-dependency-clap:0-0",       // empty name
		"rust:fn:x:external-dependency-:0-0",          // empty crate
	} {
		_, _, _, _, err := ParseExternalKeyParts(key)
		assert.Error(t, err, key)
	}
}

func TestNewPlaceholderEntityExternal(t *testing.T) {
	p, err := NewPlaceholderEntity("tokio", "Runtime", "struct", "rust")
	require.NoError(t, err)

	assert.Equal(t, "rust:struct:Runtime:external-dependency-tokio:0-0", p.Key)
	assert.True(t, p.Signature.LineRange.IsExternal())
	assert.Equal(t, entities.ClassCode, p.Class)
	assert.Equal(t, entities.VisibilityPublic, p.Signature.Visibility)
	assert.Equal(t, []string{"tokio"}, p.Signature.ModulePath)
	assert.Contains(t, p.Signature.Documentation, "crate 'tokio'")
}

func TestNewPlaceholderEntityUnresolved(t *testing.T) {
	p, err := NewPlaceholderEntity("unresolved-reference", "helper", "fn", "rust")
	require.NoError(t, err)

	assert.Equal(t, "rust:fn:helper:unknown:0-0", p.Key)
	assert.Contains(t, p.Signature.Documentation, "Unresolved reference")
	assert.NotContains(t, p.Signature.Documentation, "crate 'unresolved-reference'")
}

func TestExtractPlaceholdersDeduplicated(t *testing.T) {
	clap := "rust:module:Parser:external-dependency-clap:0-0"
	unknown := "rust:fn:helper:unknown:0-0"
	edges := []entities.DependencyEdge{
		{FromKey: "rust:fn:a:__src_a:T1", ToKey: clap, Type: entities.EdgeUses},
		{FromKey: "rust:fn:b:__src_b:T2", ToKey: clap, Type: entities.EdgeUses},
		{FromKey: "rust:fn:a:__src_a:T1", ToKey: unknown, Type: entities.EdgeCalls},
		{FromKey: "rust:fn:a:__src_a:T1", ToKey: "rust:fn:c:__src_c:T3", Type: entities.EdgeCalls},
	}

	placeholders, warnings := ExtractPlaceholdersFromEdges(edges)
	assert.Empty(t, warnings)
	// Two unique placeholder targets; the intra-workspace edge target is
	// not a placeholder.
	require.Len(t, placeholders, 2)
	keys := []string{placeholders[0].Key, placeholders[1].Key}
	assert.ElementsMatch(t, []string{clap, unknown}, keys)
}

func TestExtractPlaceholdersWarnsOnMalformed(t *testing.T) {
	edges := []entities.DependencyEdge{
		{FromKey: "a", ToKey: "klingon:fn:x:external-dependency-clap:0-0", Type: entities.EdgeUses},
	}
	placeholders, warnings := ExtractPlaceholdersFromEdges(edges)
	assert.Empty(t, placeholders)
	assert.Len(t, warnings, 1)
}
