// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"bytes"
	"sort"
	"sync"

	"github.com/jeranaias/chatwidget/internal/model"
)

// =============================================================================
// SNAPSHOT
// =============================================================================

// Snapshot is a consistent copy of the store. Entries and SessionState are
// copies; ResponseContext is shared because it is only ever replaced whole.
type Snapshot struct {
	Entries         []model.ChatEntry
	Loading         bool
	SessionState    model.SessionState
	ResponseContext *model.ResponseContext
	Version         uint64
}

// HasResponseContext reports whether any response context has been received.
func (s Snapshot) HasResponseContext() bool {
	return s.ResponseContext != nil
}

func (s Snapshot) clone() Snapshot {
	out := s
	out.Entries = model.CloneEntries(s.Entries)
	if s.SessionState != nil {
		out.SessionState = bytes.Clone(s.SessionState)
	}
	return out
}

// Listener receives a snapshot after every change.
type Listener func(Snapshot)

// =============================================================================
// STORE
// =============================================================================

// Store holds the conversation of one widget instance.
type Store struct {
	mu        sync.Mutex
	state     Snapshot
	listeners map[int]Listener
	nextID    int
}

// NewStore creates a store seeded with initial entries (may be nil).
func NewStore(initial []model.ChatEntry) *Store {
	return &Store{
		state:     Snapshot{Entries: model.CloneEntries(initial)},
		listeners: make(map[int]Listener),
	}
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// Entries returns a copy of the entries.
func (s *Store) Entries() []model.ChatEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return model.CloneEntries(s.state.Entries)
}

// Len returns the number of entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.state.Entries)
}

// IsEmpty reports whether the store has no entries.
func (s *Store) IsEmpty() bool {
	return s.Len() == 0
}

// Loading reports whether a turn is waiting for its first content.
func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Loading
}

// SessionState returns the last session state received.
func (s *Store) SessionState() model.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return bytes.Clone(s.state.SessionState)
}

// ResponseContext returns the last response context, or nil if none arrived.
func (s *Store) ResponseContext() *model.ResponseContext {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.ResponseContext
}

// Version returns the number of changes applied so far.
func (s *Store) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Version
}

// Subscribe registers fn for change notifications. The returned function
// removes the subscription.
func (s *Store) Subscribe(fn Listener) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

// Replace swaps the entries wholesale.
func (s *Store) Replace(entries []model.ChatEntry) {
	s.update(func(st *Snapshot) {
		st.Entries = model.CloneEntries(entries)
	})
}

// Append adds entries to the end of the conversation.
func (s *Store) Append(entries ...model.ChatEntry) {
	if len(entries) == 0 {
		return
	}
	s.update(func(st *Snapshot) {
		st.Entries = append(model.CloneEntries(st.Entries), entries...)
	})
}

// RestoreSessionState seeds the session state of a resumed conversation.
func (s *Store) RestoreSessionState(state model.SessionState) {
	s.update(func(st *Snapshot) {
		st.SessionState = bytes.Clone(state)
	})
}

// Reset clears the conversation, session state and response context.
func (s *Store) Reset() {
	s.update(func(st *Snapshot) {
		st.Entries = nil
		st.Loading = false
		st.SessionState = nil
		st.ResponseContext = nil
	})
}

// update applies fn under the lock, bumps the version and notifies
// listeners outside the lock.
func (s *Store) update(fn func(st *Snapshot)) {
	s.mu.Lock()
	fn(&s.state)
	s.state.Version++
	snap := s.state.clone()

	ids := make([]int, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	listeners := make([]Listener, 0, len(ids))
	for _, id := range ids {
		listeners = append(listeners, s.listeners[id])
	}
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(snap)
	}
}
