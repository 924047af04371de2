// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLineRange(t *testing.T) {
	r, err := NewLineRange(10, 50)
	require.NoError(t, err)
	assert.Equal(t, "10-50", r.String())
	assert.False(t, r.IsExternal())

	// 0-0 is the external placeholder marker, not an error.
	ext, err := NewLineRange(0, 0)
	require.NoError(t, err)
	assert.True(t, ext.IsExternal())

	_, err = NewLineRange(0, 5)
	assert.Error(t, err)
	_, err = NewLineRange(10, 5)
	assert.Error(t, err)
}

func TestParseKindAliases(t *testing.T) {
	for in, want := range map[string]EntityKind{
		"fn":       KindFunction,
		"function": KindFunction,
		"struct":   KindStruct,
		"variable": KindVariable,
		"const":    KindConstant,
	} {
		got, err := ParseKind(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	_, err := ParseKind("blueprint")
	assert.Error(t, err)
}

func TestParseEdgeType(t *testing.T) {
	for _, s := range []string{"Calls", "Uses", "Implements"} {
		et, err := ParseEdgeType(s)
		require.NoError(t, err)
		assert.Equal(t, EdgeType(s), et)
	}
	_, err := ParseEdgeType("Inherits")
	assert.Error(t, err)
}

func TestDeriveFolderScopes(t *testing.T) {
	tests := []struct {
		path   string
		l1, l2 string
	}{
		{"crates/core/src/lib.rs", "crates", "core"},
		{"src/main.rs", "src", ""},
		{"main.rs", "", ""},
		{"./pkg/graph/graph.go", "pkg", "graph"},
	}
	for _, tc := range tests {
		l1, l2 := DeriveFolderScopes(tc.path)
		assert.Equal(t, tc.l1, l1, tc.path)
		assert.Equal(t, tc.l2, l2, tc.path)
	}
}

func TestNewCodeEntityDefaults(t *testing.T) {
	sig := InterfaceSignature{
		Kind:       KindFunction,
		Name:       "alpha",
		Visibility: VisibilityPublic,
		FilePath:   "src/alpha.rs",
		LineRange:  LineRange{Start: 10, End: 20},
	}
	e, err := NewCodeEntity("rust:fn:alpha:__src_alpha:T1706284800", sig, ClassCode)
	require.NoError(t, err)

	assert.True(t, e.CurrentInd)
	assert.False(t, e.FutureInd)
	assert.Nil(t, e.FutureAction)
	assert.Equal(t, TddCode, e.Tdd)
	assert.Equal(t, "src", e.L1)
	assert.NoError(t, e.Validate())
}

func TestValidateRejectsBadRecords(t *testing.T) {
	sig := InterfaceSignature{Kind: KindFunction, Name: "f", FilePath: "a.rs",
		LineRange: LineRange{Start: 1, End: 2}}
	e, err := NewCodeEntity("k", sig, ClassCode)
	require.NoError(t, err)

	e.Language = "cobol"
	assert.Error(t, e.Validate())

	e.Language = "rust"
	e.Signature.LineRange = LineRange{Start: 9, End: 3}
	assert.Error(t, e.Validate())

	_, err = NewCodeEntity("", sig, ClassCode)
	assert.Error(t, err)
	_, err = NewCodeEntity("k", InterfaceSignature{}, ClassCode)
	assert.Error(t, err)
}
