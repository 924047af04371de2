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

package watcher

import (
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// ServiceConfig configures the integration service.
type ServiceConfig struct {
	// WatchDirectory is the root to watch recursively.
	WatchDirectory string

	// Debounce is the per-path quiet window before a change is processed.
	Debounce time.Duration

	// WatchedExtensions (without dot) pass the callback filter; everything
	// else is discarded at the boundary.
	WatchedExtensions []string
}

// ReindexFunc is invoked for each surviving change event. Failures are
// logged by the service and never tear the watcher down.
type ReindexFunc func(path string) error

// Service wires a Provider to the incremental reindex pipeline: extension
// filtering, per-path latest-wins debounce on spawned goroutines, and
// fire-and-forget dispatch.
type Service struct {
	provider Provider
	config   ServiceConfig
	reindex  ReindexFunc
	logger   *slog.Logger

	mu      sync.Mutex
	pending map[string]time.Time

	running atomic.Bool

	eventsReceived  atomic.Int64
	eventsCoalesced atomic.Int64
	lastEventUnix   atomic.Int64
}

// Status is the snapshot served by the watcher status endpoint.
type Status struct {
	Running         bool   `json:"running"`
	WatchDirectory  string `json:"watch_directory"`
	EventsReceived  int64  `json:"events_received"`
	EventsCoalesced int64  `json:"events_coalesced"`
	LastEventUnix   int64  `json:"last_event_unix"`
}

// NewService creates the integration service. It does not start watching.
func NewService(provider Provider, config ServiceConfig, reindex ReindexFunc, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		provider: provider,
		config:   config,
		reindex:  reindex,
		logger:   logger,
		pending:  make(map[string]time.Time),
	}
}

// Start begins watching. Double-start returns ErrAlreadyRunning.
func (s *Service) Start() error {
	if s.running.Load() {
		return ErrAlreadyRunning
	}
	if err := s.provider.Start(s.config.WatchDirectory, s.handleEvent); err != nil {
		return err
	}
	s.running.Store(true)
	s.logger.Info("watcher.service.start", "dir", s.config.WatchDirectory)
	return nil
}

// Stop stops watching. Outstanding debounce goroutines are not drained;
// they find their timestamps superseded or fire one last reindex.
func (s *Service) Stop() error {
	if !s.running.Load() {
		return ErrNotRunning
	}
	if err := s.provider.Stop(); err != nil {
		return err
	}
	s.running.Store(false)
	s.logger.Info("watcher.service.stop")
	return nil
}

// IsRunning reports whether the service is live.
func (s *Service) IsRunning() bool {
	return s.running.Load()
}

// StatusSnapshot returns the current counters.
func (s *Service) StatusSnapshot() Status {
	return Status{
		Running:         s.running.Load(),
		WatchDirectory:  s.config.WatchDirectory,
		EventsReceived:  s.eventsReceived.Load(),
		EventsCoalesced: s.eventsCoalesced.Load(),
		LastEventUnix:   s.lastEventUnix.Load(),
	}
}

// EventsReceived returns the number of events that passed the extension
// filter.
func (s *Service) EventsReceived() int64 {
	return s.eventsReceived.Load()
}

// handleEvent is the provider callback. Synchronous and non-blocking: it
// records the event and spawns the debounce goroutine, so the watcher
// thread is never held up.
func (s *Service) handleEvent(event FileChangeEvent) {
	if !s.extensionWatched(event.Path) {
		return
	}

	s.eventsReceived.Add(1)
	s.lastEventUnix.Store(time.Now().Unix())

	eventTime := time.Now()
	s.mu.Lock()
	s.pending[event.Path] = eventTime
	s.mu.Unlock()

	go s.debounceAndDispatch(event.Path, eventTime)
}

// debounceAndDispatch sleeps for the debounce window, then processes the
// change only if its timestamp is still the latest recorded for the path.
// This yields at most one reindex per quiescent burst per file.
func (s *Service) debounceAndDispatch(path string, eventTime time.Time) {
	time.Sleep(s.config.Debounce)

	s.mu.Lock()
	recorded, ok := s.pending[path]
	if !ok || !recorded.Equal(eventTime) {
		s.mu.Unlock()
		s.eventsCoalesced.Add(1)
		return
	}
	delete(s.pending, path)
	s.mu.Unlock()

	if s.reindex == nil {
		return
	}
	if err := s.reindex(path); err != nil {
		// Log and keep watching: a failed reindex must never take the
		// watcher down.
		s.logger.Warn("watcher.reindex.failed", "path", path, "err", err)
	}
}

// extensionWatched discards events for paths without an extension or with
// an extension outside the configured set.
func (s *Service) extensionWatched(path string) bool {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return false
	}
	for _, watched := range s.config.WatchedExtensions {
		if ext == watched {
			return true
		}
	}
	return false
}
