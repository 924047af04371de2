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

// Package watcher provides the debounced recursive file watcher and the
// integration service that turns surviving change events into incremental
// reindexes.
//
// Lifetime matters here: the service and its provider must be owned by
// shared application state for the server lifetime. Dropping the service
// drops the watcher and silently stops event delivery — the principal bug
// class this package's tests guard against.
package watcher

import (
	"errors"
	"time"
)

// Lifecycle errors. Double-start and stop-without-start are distinct.
var (
	ErrAlreadyRunning = errors.New("watcher already running")
	ErrNotRunning     = errors.New("watcher not running")
)

// ChangeType labels a file change event.
type ChangeType string

const (
	ChangeCreated  ChangeType = "Created"
	ChangeModified ChangeType = "Modified"
	ChangeDeleted  ChangeType = "Deleted"
)

// FileChangeEvent is one change delivered to the service callback.
type FileChangeEvent struct {
	Path      string
	Type      ChangeType
	Timestamp time.Time
}

// Callback receives change events. It must not block: providers invoke it
// from their event-reading goroutine.
type Callback func(FileChangeEvent)

// Provider is the watching capability. The production implementation wraps
// a debounced recursive fsnotify watcher; the mock records watched paths.
type Provider interface {
	// Start begins watching path recursively, delivering events to cb.
	// Returns ErrAlreadyRunning on a second start.
	Start(path string, cb Callback) error

	// Stop stops watching. Returns ErrNotRunning when not started.
	Stop() error

	// IsRunning reports whether the provider is delivering events.
	IsRunning() bool
}
