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

// Package identity implements ISGL1 v2 stable entity identity.
//
// An ISGL1 v2 key has five colon-delimited fields:
//
//	language:kind:name:semantic_path:timestamp_or_range
//
// e.g. rust:fn:handle_auth:__src_auth:T1706284800. The birth timestamp is a
// deterministic function of (file path, entity name), so keys stay stable
// when line numbers shift. Content hashes make the stability usable: an
// unchanged entity rehashes identically no matter where it moved.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/kraklabs/parseltongue/pkg/entities"
)

const (
	// birthEpochBase is 2020-01-01 00:00:00 UTC.
	birthEpochBase = 1577836800
	// birthEpochRange is ~10 years in seconds; birth timestamps land in
	// [base, base+range).
	birthEpochRange = 315360000
)

// FormatKey composes an ISGL1 v2 key with a birth timestamp.
// Fails only when a field would corrupt the colon-delimited format.
func FormatKey(kind entities.EntityKind, name, language, semanticPath string, birthTimestamp int64) (string, error) {
	for _, f := range []string{string(kind), name, language, semanticPath} {
		if strings.Contains(f, ":") {
			return "", fmt.Errorf("key field contains ':': %q", f)
		}
	}
	return fmt.Sprintf("%s:%s:%s:%s:T%d", language, kind, name, semanticPath, birthTimestamp), nil
}

// ExtractSemanticPath sanitizes a file path for use in ISGL1 keys: the
// extension after the last '.' is dropped, path separators and '-'/'.' become
// '_', and the result carries the "__" prefix. Purely syntactic and
// case-preserving.
func ExtractSemanticPath(filePath string) string {
	withoutExt := filePath
	if pos := strings.LastIndex(filePath, "."); pos >= 0 {
		withoutExt = filePath[:pos]
	}
	sanitized := strings.NewReplacer("/", "_", "\\", "_", "-", "_", ".", "_").Replace(withoutExt)
	return "__" + sanitized
}

// ComputeBirthTimestamp derives the deterministic birth timestamp for an
// entity from its file path and name. Same inputs yield the same timestamp on
// every run and every toolchain: xxhash is a fixed algorithm, unlike
// runtime-seeded map hashes.
func ComputeBirthTimestamp(filePath, entityName string) int64 {
	d := xxhash.New()
	_, _ = d.WriteString(filePath)
	_, _ = d.WriteString("\x00")
	_, _ = d.WriteString(entityName)
	offset := int64(d.Sum64() % birthEpochRange)
	return birthEpochBase + offset
}

// ComputeContentHash returns the lowercase-hex SHA-256 of the entity's exact
// source bytes. Whitespace-sensitive by design: formatting changes are
// content changes.
func ComputeContentHash(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

// ParseKey splits a key into its five fields. The language prefix is the
// authoritative language tag.
func ParseKey(key string) (language, kind, name, semanticPath, tail string, err error) {
	parts := strings.Split(key, ":")
	if len(parts) != 5 {
		return "", "", "", "", "", fmt.Errorf("malformed ISGL1 key (expected 5 fields, got %d): %s", len(parts), key)
	}
	return parts[0], parts[1], parts[2], parts[3], parts[4], nil
}
