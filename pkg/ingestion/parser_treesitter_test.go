// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package ingestion

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/parseltongue/pkg/entities"
)

const rustSample = `use clap::Parser;

// entry point
fn main() {
    run();
}

fn run() {
    helper();
}

struct Config {
    port: u16,
}

#[test]
fn test_run() {
    run();
}
`

const goSample = `package sample

import (
	"fmt"
	"github.com/fatih/color"
)

func Alpha() {
	Beta()
	fmt.Println("hi")
}

func Beta() {}
`

func TestSupportedLanguage(t *testing.T) {
	p := NewTreeSitterParser(nil)
	assert.Equal(t, "rust", p.SupportedLanguage("src/lib.rs"))
	assert.Equal(t, "go", p.SupportedLanguage("pkg/a/b.go"))
	assert.Equal(t, "python", p.SupportedLanguage("app.py"))
	assert.Equal(t, "javascript", p.SupportedLanguage("web/app.js"))
	assert.Equal(t, "", p.SupportedLanguage("README.md"))
}

func TestParseRustEntities(t *testing.T) {
	p := NewTreeSitterParser(nil)
	out, err := p.ParseSource([]byte(rustSample), "src/main.rs")
	require.NoError(t, err)

	byName := map[string]ParsedEntity{}
	for _, e := range out.Entities {
		byName[e.Name] = e
	}

	require.Contains(t, byName, "main")
	require.Contains(t, byName, "run")
	require.Contains(t, byName, "Config")
	assert.Equal(t, entities.KindFunction, byName["main"].Kind)
	assert.Equal(t, entities.KindStruct, byName["Config"].Kind)
	assert.Equal(t, "rust", byName["main"].Language)
	assert.Equal(t, 4, byName["main"].StartLine)

	// The #[test] function carries the parser-level test marker.
	require.Contains(t, byName, "test_run")
	assert.Equal(t, "true", byName["test_run"].Metadata["is_test"])
}

func TestParseRustCallEdges(t *testing.T) {
	p := NewTreeSitterParser(nil)
	out, err := p.ParseSource([]byte(rustSample), "src/main.rs")
	require.NoError(t, err)

	var mainToRun, runToUnknown bool
	for _, e := range out.Edges {
		if strings.Contains(e.FromKey, ":main:") && strings.Contains(e.ToKey, ":run:") {
			mainToRun = true
			// In-file callee resolves to a real v2 key.
			assert.Contains(t, e.ToKey, ":T")
		}
		if strings.Contains(e.FromKey, ":run:") && e.ToKey == "rust:fn:helper:unknown:0-0" {
			runToUnknown = true
		}
	}
	assert.True(t, mainToRun, "main should call run within the file")
	assert.True(t, runToUnknown, "helper is undeclared and becomes an unknown placeholder")
}

func TestParseRustImportEdges(t *testing.T) {
	p := NewTreeSitterParser(nil)
	out, err := p.ParseSource([]byte(rustSample), "src/main.rs")
	require.NoError(t, err)

	var clapUse bool
	for _, e := range out.Edges {
		if e.Type == entities.EdgeUses && e.ToKey == "rust:module:clap:external-dependency-clap:0-0" {
			clapUse = true
		}
	}
	assert.True(t, clapUse, "use clap::Parser should produce an external-dependency Uses edge")
}

func TestParseGoEntities(t *testing.T) {
	p := NewTreeSitterParser(nil)
	out, err := p.ParseSource([]byte(goSample), "pkg/sample/sample.go")
	require.NoError(t, err)

	names := map[string]bool{}
	for _, e := range out.Entities {
		names[e.Name] = true
	}
	assert.True(t, names["Alpha"])
	assert.True(t, names["Beta"])

	var alphaCallsBeta bool
	for _, e := range out.Edges {
		if strings.Contains(e.FromKey, ":Alpha:") && strings.Contains(e.ToKey, ":Beta:") {
			alphaCallsBeta = true
		}
	}
	assert.True(t, alphaCallsBeta)
}

func TestParseUnsupportedExtension(t *testing.T) {
	p := NewTreeSitterParser(nil)
	_, err := p.ParseSource([]byte("hello"), "README.md")
	assert.Error(t, err)
}

func TestWordCountHelpers(t *testing.T) {
	p := NewTreeSitterParser(nil)

	comments := p.CommentWordCount([]byte(rustSample), "src/main.rs")
	assert.Greater(t, comments, 0, "// entry point should count")

	imports := p.ImportWordCount([]byte(rustSample), "src/main.rs")
	assert.Greater(t, imports, 0, "use clap::Parser; should count")
}

func TestConvertParsedEntityMintsAndPreservesKeys(t *testing.T) {
	pe := parsed("alpha", "src/lib.rs", "rust", nil)

	minted, err := ConvertParsedEntity(pe, "fn alpha() {}", "")
	require.NoError(t, err)
	assert.Contains(t, minted.Key, "rust:fn:alpha:__src_lib:T")
	require.NotNil(t, minted.ContentHash)
	assert.Len(t, *minted.ContentHash, 64)
	require.NotNil(t, minted.SemanticPath)
	assert.Equal(t, "__src_lib", *minted.SemanticPath)

	// A matched key passed in survives conversion untouched.
	preserved, err := ConvertParsedEntity(pe, "fn alpha() { new body }", "rust:fn:alpha:__src_lib:T123")
	require.NoError(t, err)
	assert.Equal(t, "rust:fn:alpha:__src_lib:T123", preserved.Key)
}
