// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package treebank

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchExtensions are the file suffixes the watcher ingests.
var watchExtensions = map[string]bool{
	".nwk":    true,
	".newick": true,
	".tree":   true,
}

// debounceWindow coalesces the event bursts editors and copy tools
// produce for a single file write.
const debounceWindow = 200 * time.Millisecond

// Watcher ingests tree files dropped into a directory.
//
// Description:
//
//	Watches one directory with fsnotify. Create and write events on
//	*.nwk, *.newick, and *.tree files are debounced per path and then
//	ingested with Store.Put; the file's base name (extension stripped)
//	becomes the bank name. Ingest failures (unparseable files) are
//	logged and skipped, never fatal: a watch directory is a
//	convenience surface, not a validated API.
//
// Thread Safety: one goroutine runs the event loop; Start and Stop
// must not race each other.
type Watcher struct {
	store  *Store
	dir    string
	logger *slog.Logger

	mu      sync.Mutex
	pending map[string]*time.Timer
	fsw     *fsnotify.Watcher
	done    chan struct{}
}

// NewWatcher creates a watcher over dir feeding store.
func NewWatcher(store *Store, dir string, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		store:   store,
		dir:     dir,
		logger:  logger,
		pending: make(map[string]*time.Timer),
	}
}

// Start ingests any files already present, then begins watching.
// The event loop stops when ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fsw.Add(w.dir); err != nil {
		fsw.Close()
		return err
	}
	w.fsw = fsw
	w.done = make(chan struct{})

	// Pre-existing files were "dropped" before we were listening.
	entries, err := os.ReadDir(w.dir)
	if err == nil {
		for _, e := range entries {
			if !e.IsDir() {
				w.maybeIngest(ctx, filepath.Join(w.dir, e.Name()))
			}
		}
	}

	go w.loop(ctx)
	w.logger.Info("treebank watcher started", "dir", w.dir)
	return nil
}

// Stop halts the event loop and releases the fsnotify handle.
func (w *Watcher) Stop() {
	if w.fsw == nil {
		return
	}
	w.fsw.Close()
	<-w.done
	w.fsw = nil
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.done)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			w.debounce(ctx, ev.Name)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("treebank watcher error", "error", err)
		}
	}
}

// debounce schedules (or reschedules) the ingest of path.
func (w *Watcher) debounce(ctx context.Context, path string) {
	if !watchExtensions[strings.ToLower(filepath.Ext(path))] {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		t.Stop()
	}
	w.pending[path] = time.AfterFunc(debounceWindow, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		w.maybeIngest(ctx, path)
	})
}

// maybeIngest reads and stores one file if it looks like a tree file.
func (w *Watcher) maybeIngest(ctx context.Context, path string) {
	ext := strings.ToLower(filepath.Ext(path))
	if !watchExtensions[ext] {
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		w.logger.Warn("treebank ingest read failed", "path", path, "error", err)
		return
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	meta, err := w.store.Put(ctx, name, data)
	if err != nil {
		w.logger.Warn("treebank ingest rejected", "path", path, "error", err)
		return
	}
	w.logger.Info("treebank ingested file", "path", path, "name", name, "ntips", meta.NTips)
}
