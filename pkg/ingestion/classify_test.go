// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package ingestion

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kraklabs/parseltongue/pkg/entities"
)

func parsed(name, path, lang string, meta map[string]string) *ParsedEntity {
	if meta == nil {
		meta = map[string]string{}
	}
	return &ParsedEntity{
		Kind: entities.KindFunction, Name: name, Language: lang,
		StartLine: 1, EndLine: 5, FilePath: path, Metadata: meta,
	}
}

func TestClassifyParserMetadataWins(t *testing.T) {
	isTest, reason := ClassifyEntity(parsed("helper", "src/lib.rs", "rust",
		map[string]string{"is_test": "true"}))
	assert.True(t, isTest)
	assert.Equal(t, ReasonParserMetadata, reason)
}

func TestClassifyTestFileNames(t *testing.T) {
	for _, path := range []string{
		"pkg/core/core_test.go",
		"src/auth_test.rs",
		"app/test_models.py",
		"web/api.test.js",
		"web/api.spec.ts",
	} {
		isTest, reason := ClassifyEntity(parsed("whatever", path, "go", nil))
		assert.True(t, isTest, path)
		assert.Equal(t, ReasonTestFileName, reason, path)
	}
}

func TestClassifyTestDirectories(t *testing.T) {
	isTest, reason := ClassifyEntity(parsed("fixture", "crates/core/tests/integration.rs", "rust", nil))
	assert.True(t, isTest)
	assert.Equal(t, ReasonTestDirectory, reason)
}

func TestClassifyCodeStaysCode(t *testing.T) {
	for _, path := range []string{
		"src/lib.rs",
		"pkg/core/core.go",
		"app/models.py",
	} {
		isTest, _ := ClassifyEntity(parsed("handler", path, "go", nil))
		assert.False(t, isTest, path)
	}
}

func TestClassifyPythonTestPrefix(t *testing.T) {
	isTest, reason := ClassifyEntity(parsed("test_login", "app/models.py", "python", nil))
	assert.True(t, isTest)
	assert.Equal(t, ReasonTestNamePrefix, reason)
}
