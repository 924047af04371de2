// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package identity

import "github.com/kraklabs/parseltongue/pkg/entities"

// PositionToleranceLines is the maximum start-line drift for a position
// match. Entities whose start lines differ by at most this are treated as
// the same entity with an edited body.
const PositionToleranceLines = 10

// Candidate is an entity detected during a reindex scan that needs to be
// matched against the old index.
type Candidate struct {
	Name        string
	Kind        entities.EntityKind
	FilePath    string
	LineRange   entities.LineRange
	ContentHash string
	Code        string
}

// OldEntity is the minimal view of a previously indexed entity used for
// matching. Entities persisted before v2 lack a content hash and must not be
// placed in the match set.
type OldEntity struct {
	Key         string
	Name        string
	FilePath    string
	LineRange   entities.LineRange
	ContentHash string
}

// MatchKind labels the outcome of matching a candidate against the old index.
type MatchKind int

const (
	// ContentMatch: identical name, file, and content hash. The strongest
	// evidence of identity, invariant under line-number shifts.
	ContentMatch MatchKind = iota
	// PositionMatch: same name and file at approximately the same position;
	// the body changed but the entity remains.
	PositionMatch
	// NewEntity: no match; the caller mints a fresh key.
	NewEntity
)

// MatchResult is the outcome of MatchAgainstOldIndex. OldKey is set for
// ContentMatch and PositionMatch.
type MatchResult struct {
	Kind   MatchKind
	OldKey string
}

// MatchAgainstOldIndex runs the three-tier matching algorithm, short-
// circuiting at the highest priority that applies:
//
//  1. ContentMatch — first old entity with identical name, file path, and
//     content hash.
//  2. PositionMatch — first old entity with identical name and file path
//     whose start line is within PositionToleranceLines.
//  3. NewEntity — otherwise.
//
// Pure and infallible: any mismatch degrades to NewEntity.
func MatchAgainstOldIndex(candidate *Candidate, old []OldEntity) MatchResult {
	for i := range old {
		if old[i].ContentHash == candidate.ContentHash &&
			old[i].Name == candidate.Name &&
			old[i].FilePath == candidate.FilePath {
			return MatchResult{Kind: ContentMatch, OldKey: old[i].Key}
		}
	}

	for i := range old {
		if old[i].Name == candidate.Name &&
			old[i].FilePath == candidate.FilePath &&
			withinPositionTolerance(old[i].LineRange, candidate.LineRange) {
			return MatchResult{Kind: PositionMatch, OldKey: old[i].Key}
		}
	}

	return MatchResult{Kind: NewEntity}
}

// withinPositionTolerance compares start lines only.
func withinPositionTolerance(old, cand entities.LineRange) bool {
	diff := int64(old.Start) - int64(cand.Start)
	if diff < 0 {
		diff = -diff
	}
	return diff <= PositionToleranceLines
}
