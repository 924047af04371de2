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

// Package server exposes the graph-analytic HTTP endpoints over the
// persisted code knowledge graph, plus the incremental-reindex and
// zip-upload entry points.
package server

import (
	"log/slog"
	"sync"
	"time"

	"github.com/kraklabs/parseltongue/pkg/storage"
	"github.com/kraklabs/parseltongue/pkg/watcher"
)

// AppState is the shared application state container. It owns the store
// handle and the watcher service for the server lifetime — the watcher in
// particular must live here: if nothing owns it, event delivery silently
// stops.
type AppState struct {
	mu      sync.RWMutex
	store   *storage.Client
	watcher *watcher.Service

	logger      *slog.Logger
	startedAt   time.Time
	lastRequest time.Time
}

// NewAppState creates state around an open store. watcherSvc may be nil
// when file watching is disabled.
func NewAppState(store *storage.Client, watcherSvc *watcher.Service, logger *slog.Logger) *AppState {
	if logger == nil {
		logger = slog.Default()
	}
	return &AppState{
		store:     store,
		watcher:   watcherSvc,
		logger:    logger,
		startedAt: time.Now(),
	}
}

// Store returns the store handle, or nil when disconnected. The read lock
// is released before the caller issues store operations: handlers copy the
// pointer and never hold the lock across a query.
func (s *AppState) Store() *storage.Client {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store
}

// SetStore swaps the store handle.
func (s *AppState) SetStore(store *storage.Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store = store
}

// Watcher returns the watcher service, or nil.
func (s *AppState) Watcher() *watcher.Service {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.watcher
}

// SetWatcher installs the watcher service into the state container.
func (s *AppState) SetWatcher(svc *watcher.Service) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watcher = svc
}

// TouchRequest records request activity for the stats endpoint.
func (s *AppState) TouchRequest() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastRequest = time.Now()
}

// UptimeSeconds returns seconds since server start.
func (s *AppState) UptimeSeconds() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(time.Since(s.startedAt).Seconds())
}

// LastRequestUnix returns the unix timestamp of the most recent request,
// or 0 before the first one.
func (s *AppState) LastRequestUnix() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lastRequest.IsZero() {
		return 0
	}
	return s.lastRequest.Unix()
}
