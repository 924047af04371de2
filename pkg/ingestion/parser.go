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

package ingestion

import "github.com/kraklabs/parseltongue/pkg/entities"

// ParsedEntity is one entity extracted from a source file, before it is
// converted into a persisted CodeEntity.
type ParsedEntity struct {
	Kind     entities.EntityKind
	Name     string
	Language string
	// StartLine and EndLine are 1-based inclusive.
	StartLine int
	EndLine   int
	FilePath  string
	// Metadata carries parser hints; "is_test" = "true" marks entities the
	// parser already knows are tests.
	Metadata map[string]string
}

// ParseOutput is the per-file parser result consumed by the streamer and
// the reindex core.
type ParseOutput struct {
	Entities []ParsedEntity
	Edges    []entities.DependencyEdge
	Warnings []string
}

// CodeParser parses one source file into entities and dependency edges.
//
// Implementations are not safe for concurrent use: tree-sitter parser
// handles hold mutable C state, so the parallel streamer creates one parser
// per worker instead of sharing.
type CodeParser interface {
	// ParseSource parses file content. Edge to_keys may reference targets
	// outside the file as external-dependency or unknown placeholders.
	ParseSource(content []byte, filePath string) (*ParseOutput, error)

	// SupportedLanguage maps a file path to the language this parser would
	// use for it, or "" when the extension is unsupported.
	SupportedLanguage(filePath string) string
}

// Ensure implementations satisfy the interface.
var _ CodeParser = (*TreeSitterParser)(nil)
