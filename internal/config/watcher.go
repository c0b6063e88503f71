// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// =============================================================================
// CONFIG WATCHER
// =============================================================================

// DefaultDebounce is how long the watcher waits after the last write before
// reloading. Editors often write a file in several steps.
const DefaultDebounce = 250 * time.Millisecond

// Change describes a reload that produced a valid config.
type Change struct {
	Old *Config
	New *Config
}

// ThemeChanged reports whether the widget theme differs.
func (c Change) ThemeChanged() bool {
	return c.Old.Widget.Theme != c.New.Widget.Theme
}

// DebugChanged reports whether the debug logging switch differs.
func (c Change) DebugChanged() bool {
	return c.Old.Logging.Debug != c.New.Logging.Debug
}

// Watcher reloads a config file when it changes on disk. Invalid edits are
// logged and ignored; the last good config stays current.
type Watcher struct {
	path     string
	watcher  *fsnotify.Watcher
	debounce time.Duration
	logger   *zap.Logger
	onChange func(Change)

	mu      sync.Mutex
	current *Config
	pending time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWatcher creates a watcher for path. current is the config already in use;
// onChange runs on the watcher goroutine after each successful reload.
func NewWatcher(path string, current *Config, onChange func(Change), logger *zap.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Watcher{
		path:     filepath.Clean(path),
		watcher:  fw,
		debounce: DefaultDebounce,
		logger:   logger.Named("config"),
		onChange: onChange,
		current:  current,
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Watch starts watching. The parent directory is watched rather than the
// file so that atomic rename-over saves are seen.
func (w *Watcher) Watch() error {
	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return err
	}

	w.wg.Add(2)
	go w.processEvents()
	go w.processPending()
	return nil
}

// Current returns the last valid config.
func (w *Watcher) Current() *Config {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// Close stops watching and waits for the goroutines to exit.
func (w *Watcher) Close() error {
	w.cancel()
	err := w.watcher.Close()
	w.wg.Wait()
	return err
}

func (w *Watcher) processEvents() {
	defer w.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("Config watcher panic", zap.Any("panic", r))
		}
	}()

	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				w.mu.Lock()
				w.pending = time.Now()
				w.mu.Unlock()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("Config watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) processPending() {
	defer w.wg.Done()

	tick := w.debounce / 2
	if tick <= 0 {
		tick = time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			w.mu.Lock()
			due := !w.pending.IsZero() && time.Since(w.pending) >= w.debounce
			if due {
				w.pending = time.Time{}
			}
			w.mu.Unlock()
			if due {
				w.reload()
			}
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := LoadFromPath(w.path)
	if err != nil {
		w.logger.Warn("Ignoring invalid config change", zap.String("path", w.path), zap.Error(err))
		return
	}

	w.mu.Lock()
	old := w.current
	w.current = cfg
	w.mu.Unlock()

	w.logger.Info("Config reloaded", zap.String("path", w.path))
	if w.onChange != nil && old != nil {
		w.onChange(Change{Old: old, New: cfg})
	}
}
