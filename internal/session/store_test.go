// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/chatwidget/internal/model"
)

func TestStore_SnapshotIsACopy(t *testing.T) {
	s := NewStore([]model.ChatEntry{model.Message{Role: model.RoleUser, Content: "a"}})
	s.update(func(st *Snapshot) { st.SessionState = json.RawMessage(`"x"`) })

	snap := s.Snapshot()
	snap.Entries[0] = model.ErrorEntry{Code: "mutated"}
	snap.SessionState[1] = 'y'

	assert.Equal(t, "a", s.Entries()[0].(model.Message).Content)
	assert.JSONEq(t, `"x"`, string(s.SessionState()))
}

func TestStore_SubscribeAndUnsubscribe(t *testing.T) {
	s := NewStore(nil)
	var versions []uint64
	unsubscribe := s.Subscribe(func(snap Snapshot) {
		// Listeners may read the store without deadlocking.
		assert.Equal(t, snap.Version, s.Version())
		versions = append(versions, snap.Version)
	})

	s.Append(model.Message{Role: model.RoleUser, Content: "1"})
	s.Append()
	s.Replace(nil)
	unsubscribe()
	unsubscribe()
	s.Append(model.Message{Role: model.RoleUser, Content: "2"})

	assert.Equal(t, []uint64{1, 2}, versions)
	assert.Equal(t, 1, s.Len())
}

func TestStore_RestoreSessionState(t *testing.T) {
	s := NewStore(nil)
	state := json.RawMessage(`{"thread":"t1"}`)

	s.RestoreSessionState(state)
	state[2] = 'X'

	assert.JSONEq(t, `{"thread":"t1"}`, string(s.SessionState()))
	assert.Equal(t, uint64(1), s.Version())
}

func TestStore_Reset(t *testing.T) {
	s := NewStore([]model.ChatEntry{model.Message{Content: "a"}})
	s.update(func(st *Snapshot) {
		st.Loading = true
		st.SessionState = json.RawMessage(`1`)
		st.ResponseContext = &model.ResponseContext{}
	})

	s.Reset()

	snap := s.Snapshot()
	assert.Empty(t, snap.Entries)
	assert.False(t, snap.Loading)
	assert.Nil(t, snap.SessionState)
	assert.False(t, snap.HasResponseContext())
}

func TestAutoSaver(t *testing.T) {
	s := NewStore(nil)
	var saved []Snapshot
	fail := false
	a := NewAutoSaver(s, time.Nanosecond, func(snap Snapshot) error {
		if fail {
			return errors.New("disk full")
		}
		saved = append(saved, snap)
		return nil
	})
	defer a.Stop()

	assert.False(t, a.IsDirty())
	require.NoError(t, a.Flush())
	assert.Empty(t, saved, "nothing to save yet")

	s.Append(model.Message{Role: model.RoleUser, Content: "hi"})
	assert.True(t, a.IsDirty())
	assert.True(t, a.ShouldSave())

	s.update(func(st *Snapshot) { st.Loading = true })
	assert.False(t, a.ShouldSave(), "never saves mid-turn")
	s.update(func(st *Snapshot) { st.Loading = false })

	fail = true
	assert.Error(t, a.Flush())
	assert.True(t, a.IsDirty(), "failed save stays dirty")

	fail = false
	require.NoError(t, a.Flush())
	require.Len(t, saved, 1)
	assert.Equal(t, 1, len(saved[0].Entries))
	assert.False(t, a.IsDirty())
}
