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

import (
	"fmt"
	"strings"

	"github.com/kraklabs/parseltongue/pkg/entities"
)

// unresolvedCrateName is the synthetic crate assigned to unknown-target
// references.
const unresolvedCrateName = "unresolved-reference"

// ExtractPlaceholdersFromEdges materializes one placeholder entity per
// unique external or unresolved edge target, so that every persisted edge
// has both endpoints stored (edge-endpoint integrity). Supports two target
// patterns:
//
//	rust:module:Parser:external-dependency-clap:0-0   known external crate
//	rust:fn:build_cli:unknown:0-0                     unresolved reference
//
// Malformed keys and unknown languages produce a warning and are skipped.
func ExtractPlaceholdersFromEdges(edges []entities.DependencyEdge) ([]*entities.CodeEntity, []string) {
	seen := make(map[string]bool)
	var placeholders []*entities.CodeEntity
	var warnings []string

	for i := range edges {
		toKey := edges[i].ToKey
		if !strings.Contains(toKey, ":external-dependency-") && !strings.Contains(toKey, ":unknown:0-0") {
			continue
		}
		if seen[toKey] {
			continue
		}
		seen[toKey] = true

		language, kindStr, itemName, crateName, err := ParseExternalKeyParts(toKey)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("invalid external dependency key %q: %v", toKey, err))
			continue
		}

		placeholder, err := NewPlaceholderEntity(crateName, itemName, kindStr, language)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("failed to create placeholder for %q: %v", toKey, err))
			continue
		}
		placeholders = append(placeholders, placeholder)
	}

	return placeholders, warnings
}

// ParseExternalKeyParts splits an external/unknown target key into
// (language, kind, name, crate). The fourth key field is either
// "external-dependency-<crate>" or the literal "unknown", which maps to the
// synthetic unresolved-reference crate.
func ParseExternalKeyParts(key string) (language, kind, name, crate string, err error) {
	parts := strings.Split(key, ":")
	if len(parts) != 5 {
		return "", "", "", "", fmt.Errorf("expected 5 key fields, got %d", len(parts))
	}

	language = parts[0]
	kind = parts[1]
	name = parts[2]
	marker := parts[3]

	switch {
	case marker == "unknown":
		crate = unresolvedCrateName
	case strings.HasPrefix(marker, "external-dependency-"):
		crate = strings.TrimPrefix(marker, "external-dependency-")
	default:
		return "", "", "", "", fmt.Errorf("field %q is neither external-dependency-<crate> nor unknown", marker)
	}

	if !entities.KnownLanguage(language) {
		return "", "", "", "", fmt.Errorf("unknown language prefix %q", language)
	}
	if name == "" {
		return "", "", "", "", fmt.Errorf("empty item name")
	}
	if crate == "" {
		return "", "", "", "", fmt.Errorf("empty crate name")
	}
	return language, kind, name, crate, nil
}

// NewPlaceholderEntity builds the synthetic entity for one external or
// unresolved target: line range 0-0, public visibility, CODE class, module
// path [crate], with documentation distinguishing the two cases.
func NewPlaceholderEntity(crateName, itemName, kindStr, language string) (*entities.CodeEntity, error) {
	kind, err := entities.ParseKind(kindStr)
	if err != nil {
		return nil, err
	}

	var key, filePath, documentation string
	if crateName == unresolvedCrateName {
		key = fmt.Sprintf("%s:%s:%s:unknown:0-0", language, kindStr, itemName)
		filePath = "unknown"
		documentation = "Unresolved reference - target location unknown. May be an external " +
			"dependency, local function, trait implementation, macro expansion, " +
			"generic instantiation, or dynamic dispatch target."
	} else {
		key = fmt.Sprintf("%s:%s:%s:external-dependency-%s:0-0", language, kindStr, itemName, crateName)
		filePath = "external-dependency-" + crateName
		documentation = fmt.Sprintf("External dependency from crate '%s'. Imported via USE statement.", crateName)
	}

	sig := entities.InterfaceSignature{
		Kind:          kind,
		Name:          itemName,
		Visibility:    entities.VisibilityPublic,
		FilePath:      filePath,
		LineRange:     entities.LineRange{}, // 0-0 external marker
		ModulePath:    []string{crateName},
		Documentation: documentation,
	}

	e, err := entities.NewCodeEntity(key, sig, entities.ClassCode)
	if err != nil {
		return nil, err
	}
	e.Language = language
	return e, nil
}
