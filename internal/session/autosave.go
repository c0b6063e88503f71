// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// DefaultAutoSaveInterval is how often a dirty transcript is saved.
const DefaultAutoSaveInterval = 30 * time.Second

// =============================================================================
// AUTO SAVER
// =============================================================================

// AutoSaver tracks unsaved store changes and decides when to persist them.
// It never saves while a turn is loading so half-streamed replies are not
// written mid-flight unless the widget shuts down.
type AutoSaver struct {
	mu sync.Mutex

	store       *Store
	interval    time.Duration
	lastSave    time.Time
	dirty       bool
	unsubscribe func()

	save func(Snapshot) error
}

// NewAutoSaver watches store and calls save with the latest snapshot when it
// is time to save. interval <= 0 uses DefaultAutoSaveInterval.
func NewAutoSaver(store *Store, interval time.Duration, save func(Snapshot) error) *AutoSaver {
	if interval <= 0 {
		interval = DefaultAutoSaveInterval
	}
	a := &AutoSaver{
		store:    store,
		interval: interval,
		lastSave: time.Now(),
		save:     save,
	}
	a.unsubscribe = store.Subscribe(func(Snapshot) {
		a.MarkDirty()
	})
	return a
}

// Stop detaches from the store.
func (a *AutoSaver) Stop() {
	a.unsubscribe()
}

// MarkDirty records an unsaved change.
func (a *AutoSaver) MarkDirty() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.dirty = true
}

// IsDirty reports whether there are unsaved changes.
func (a *AutoSaver) IsDirty() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.dirty
}

// ShouldSave reports whether a save is due.
func (a *AutoSaver) ShouldSave() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.dirty || a.store.Loading() {
		return false
	}
	return time.Since(a.lastSave) >= a.interval
}

// Flush saves immediately if there are unsaved changes.
func (a *AutoSaver) Flush() error {
	a.mu.Lock()
	if !a.dirty || a.save == nil {
		a.mu.Unlock()
		return nil
	}
	save := a.save
	a.mu.Unlock()

	// Save outside the lock; a change during the save re-marks the saver dirty.
	snap := a.store.Snapshot()
	a.mu.Lock()
	a.dirty = false
	a.mu.Unlock()

	if err := save(snap); err != nil {
		a.MarkDirty()
		return err
	}

	a.mu.Lock()
	a.lastSave = time.Now()
	a.mu.Unlock()
	return nil
}

// =============================================================================
// BUBBLE TEA INTEGRATION
// =============================================================================

// AutoSaveTickMsg is sent periodically to check whether a save is due.
type AutoSaveTickMsg struct {
	Time time.Time
}

// AutoSaveMsg reports the result of an automatic save.
type AutoSaveMsg struct {
	Err error
}

// TickCmd returns a command that ticks once per second.
func TickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return AutoSaveTickMsg{Time: t}
	})
}

// HandleTick saves when due and schedules the next tick.
func (a *AutoSaver) HandleTick() tea.Cmd {
	cmds := []tea.Cmd{TickCmd()}
	if a.ShouldSave() {
		cmds = append(cmds, func() tea.Msg {
			return AutoSaveMsg{Err: a.Flush()}
		})
	}
	return tea.Batch(cmds...)
}
