// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chatview

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/chatwidget/internal/session"
)

// =============================================================================
// SNAPSHOT BRIDGE
// =============================================================================

// snapshotBridge carries store snapshots into the Bubble Tea loop. Only the
// latest snapshot is kept: when deltas arrive faster than the view redraws,
// intermediate states are skipped and the next frame shows the newest one.
//
// The store calls publish from the streaming goroutine; Wait runs as a tea.Cmd.
type snapshotBridge struct {
	mu     sync.Mutex
	latest session.Snapshot

	signal      chan struct{}
	done        chan struct{}
	closeOnce   sync.Once
	unsubscribe func()
}

func newSnapshotBridge(store *session.Store) *snapshotBridge {
	b := &snapshotBridge{
		latest: store.Snapshot(),
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	b.unsubscribe = store.Subscribe(b.publish)
	return b
}

func (b *snapshotBridge) publish(snap session.Snapshot) {
	b.mu.Lock()
	if snap.Version >= b.latest.Version {
		b.latest = snap
	}
	b.mu.Unlock()

	select {
	case b.signal <- struct{}{}:
	default:
		// A wake-up is already pending; it will pick up the latest snapshot.
	}
}

// Latest returns the newest snapshot seen.
func (b *snapshotBridge) Latest() session.Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.latest
}

// Wait returns a command that blocks until the store changes and yields the
// newest snapshot. After Close it yields nil.
func (b *snapshotBridge) Wait() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-b.signal:
			return snapshotMsg{snap: b.Latest()}
		case <-b.done:
			return nil
		}
	}
}

// Close detaches from the store and releases a pending Wait.
func (b *snapshotBridge) Close() {
	b.closeOnce.Do(func() {
		b.unsubscribe()
		close(b.done)
	})
}
