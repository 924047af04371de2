// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package watcher

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Directories never watched: descriptor economy and noise.
var watchSkipDirs = map[string]bool{
	".git": true, "node_modules": true, "vendor": true,
	"target": true, "dist": true, "build": true, "bin": true,
}

// FsnotifyProvider watches a directory tree recursively with a debounce
// window: rapid events on the same path within the window collapse to one
// delivery.
type FsnotifyProvider struct {
	debounce time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	done    chan struct{}
	running bool

	// lastDelivered tracks the last delivery time per path for the
	// provider-level debounce.
	lastDelivered map[string]time.Time
}

// NewFsnotifyProvider creates a provider with the given debounce window.
func NewFsnotifyProvider(debounce time.Duration, logger *slog.Logger) *FsnotifyProvider {
	if logger == nil {
		logger = slog.Default()
	}
	return &FsnotifyProvider{
		debounce:      debounce,
		logger:        logger,
		lastDelivered: make(map[string]time.Time),
	}
}

// Start begins recursive watching.
func (p *FsnotifyProvider) Start(path string, cb Callback) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return ErrAlreadyRunning
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}

	count := p.addRecursive(watcher, path)
	p.logger.Info("watcher.start", "root", path, "dirs", count)

	p.watcher = watcher
	p.done = make(chan struct{})
	p.running = true

	go p.readEvents(watcher, p.done, cb)
	return nil
}

// addRecursive adds path and its non-skipped subdirectories to the watch.
func (p *FsnotifyProvider) addRecursive(watcher *fsnotify.Watcher, root string) int {
	count := 0
	_ = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsPermission(err) {
				return filepath.SkipDir
			}
			return nil
		}
		if !info.IsDir() {
			return nil
		}
		base := filepath.Base(path)
		if watchSkipDirs[base] || (strings.HasPrefix(base, ".") && path != root) {
			return filepath.SkipDir
		}
		if err := watcher.Add(path); err != nil {
			p.logger.Warn("watcher.add_failed", "path", path, "err", err)
			if os.IsPermission(err) {
				return filepath.SkipDir
			}
		} else {
			count++
		}
		return nil
	})
	return count
}

// readEvents pumps fsnotify events into the callback until Stop.
func (p *FsnotifyProvider) readEvents(watcher *fsnotify.Watcher, done chan struct{}, cb Callback) {
	for {
		select {
		case <-done:
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			p.handleEvent(watcher, event, cb)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			p.logger.Warn("watcher.fsnotify_error", "err", err)
		}
	}
}

func (p *FsnotifyProvider) handleEvent(watcher *fsnotify.Watcher, event fsnotify.Event, cb Callback) {
	// New directories join the recursive watch.
	if event.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if !watchSkipDirs[filepath.Base(event.Name)] {
				p.addRecursive(watcher, event.Name)
			}
			return
		}
	}

	changeType, ok := convertOp(event.Op)
	if !ok {
		return
	}

	// Provider-level debounce: drop events landing inside the window.
	now := time.Now()
	p.mu.Lock()
	last, seen := p.lastDelivered[event.Name]
	if seen && now.Sub(last) < p.debounce {
		p.mu.Unlock()
		return
	}
	p.lastDelivered[event.Name] = now
	p.mu.Unlock()

	cb(FileChangeEvent{Path: event.Name, Type: changeType, Timestamp: now})
}

func convertOp(op fsnotify.Op) (ChangeType, bool) {
	switch {
	case op.Has(fsnotify.Create):
		return ChangeCreated, true
	case op.Has(fsnotify.Write):
		return ChangeModified, true
	case op.Has(fsnotify.Remove), op.Has(fsnotify.Rename):
		return ChangeDeleted, true
	}
	return "", false
}

// Stop stops the watcher.
func (p *FsnotifyProvider) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return ErrNotRunning
	}
	close(p.done)
	_ = p.watcher.Close()
	p.watcher = nil
	p.running = false
	return nil
}

// IsRunning reports whether events are being delivered.
func (p *FsnotifyProvider) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}
