// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/parseltongue/pkg/entities"
)

func TestEscapeString(t *testing.T) {
	assert.Equal(t, `C:\\Users`, EscapeString(`C:\Users`))
	assert.Equal(t, `User\'s`, EscapeString(`User's`))
	// Backslash-before-quote order: no double escaping.
	assert.Equal(t, `C:\\User\'s\\Path`, EscapeString(`C:\User's\Path`))
	assert.Equal(t, "plain", EscapeString("plain"))
}

func TestQuoteHelpers(t *testing.T) {
	assert.Equal(t, "'a'", quoteString("a"))
	assert.Equal(t, "null", quoteOptString(nil))
	s := "x'y"
	assert.Equal(t, `'x\'y'`, quoteOptString(&s))

	assert.Equal(t, "42", quoteInt(42))
	assert.Equal(t, "null", quoteOptInt(nil))
	n := int64(-7)
	assert.Equal(t, "-7", quoteOptInt(&n))

	assert.Equal(t, "true", quoteBool(true))
	assert.Equal(t, "false", quoteBool(false))
	assert.Equal(t, "0.5", quoteFloat(0.5))
}

func TestEntityTupleRendering(t *testing.T) {
	sig := entities.InterfaceSignature{
		Kind:      entities.KindFunction,
		Name:      "alpha",
		FilePath:  "src/alpha.rs",
		LineRange: entities.LineRange{Start: 1, End: 3},
	}
	e, err := entities.NewCodeEntity("rust:fn:alpha:__src_alpha:T1600000000", sig, entities.ClassCode)
	require.NoError(t, err)
	e.Language = "rust"
	code := "fn alpha() {}"
	e.CurrentCode = &code

	tuple, err := entityTuple(e)
	require.NoError(t, err)

	assert.Contains(t, tuple, "'rust:fn:alpha:__src_alpha:T1600000000'")
	assert.Contains(t, tuple, "'fn alpha() {}'")
	assert.Contains(t, tuple, "'CODE'")
	// Optional v2 fields not set: rendered as null, unquoted.
	assert.Contains(t, tuple, "null")
}

func TestEntityTupleEscapesQuotes(t *testing.T) {
	sig := entities.InterfaceSignature{
		Kind:      entities.KindFunction,
		Name:      "f",
		FilePath:  `C:\repo\f.rs`,
		LineRange: entities.LineRange{Start: 1, End: 1},
	}
	e, err := entities.NewCodeEntity("rust:fn:f:__C__repo_f:T1600000000", sig, entities.ClassCode)
	require.NoError(t, err)
	code := "let s = 'quoted'"
	e.CurrentCode = &code

	tuple, err := entityTuple(e)
	require.NoError(t, err)
	assert.Contains(t, tuple, `C:\\repo\\f.rs`)
	assert.Contains(t, tuple, `\'quoted\'`)
}
