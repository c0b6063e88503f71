// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/chatwidget/internal/model"
	"github.com/jeranaias/chatwidget/internal/session"
)

func newTestStore(t *testing.T) *TranscriptStore {
	t.Helper()
	store, err := NewTranscriptStore(filepath.Join(t.TempDir(), "transcripts"))
	require.NoError(t, err)
	return store
}

func sampleTranscript() *Transcript {
	overrides := model.NewOverrides()
	overrides.Set("temperature", 0.2)
	return &Transcript{
		Model: "gpt-4o",
		Entries: model.EntryList{
			model.NewUserMessage("How do I reset my password?"),
			model.Message{Role: model.RoleAssistant, Content: "Open settings."},
			model.ErrorEntry{Code: "RATE_LIMITED", Message: "slow down"},
		},
		SessionState:   json.RawMessage(`{"thread":"t1"}`),
		RequestContext: &model.RequestContext{Overrides: overrides, AdditionalInstructions: "be brief"},
	}
}

// =============================================================================
// SAVE / LOAD TESTS
// =============================================================================

func TestTranscriptStore_SaveAndLoad(t *testing.T) {
	store := newTestStore(t)

	id, err := store.Save(sampleTranscript())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(id, "tr_"))

	got, err := store.Load(id)
	require.NoError(t, err)

	assert.Equal(t, "How do I reset my password?", got.Summary)
	assert.Equal(t, "gpt-4o", got.Model)
	require.Len(t, got.Entries, 3)
	assert.Equal(t, model.ErrorEntry{Code: "RATE_LIMITED", Message: "slow down"}, got.Entries[2])
	assert.Equal(t, 2, got.MessageCount())
	assert.JSONEq(t, `{"thread":"t1"}`, string(got.SessionState))
	require.NotNil(t, got.RequestContext)
	assert.Equal(t, []string{"temperature"}, got.RequestContext.Overrides.Keys())
	assert.Equal(t, "be brief", got.RequestContext.AdditionalInstructions)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestTranscriptStore_FilePermissions(t *testing.T) {
	store := newTestStore(t)
	id, err := store.Save(sampleTranscript())
	require.NoError(t, err)

	info, err := os.Stat(filepath.Join(store.BaseDir, id+".json"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestTranscriptStore_ResaveKeepsCreatedAt(t *testing.T) {
	store := newTestStore(t)
	tr := sampleTranscript()
	id, err := store.Save(tr)
	require.NoError(t, err)
	created := tr.CreatedAt

	tr.Entries = append(tr.Entries, model.NewUserMessage("thanks"))
	id2, err := store.Save(tr)
	require.NoError(t, err)
	assert.Equal(t, id, id2)

	got, err := store.Load(id)
	require.NoError(t, err)
	assert.True(t, got.CreatedAt.Equal(created))
	assert.Len(t, got.Entries, 4)
}

func TestTranscriptStore_NotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Load("tr_missing")
	assert.True(t, errors.Is(err, ErrTranscriptNotFound))

	assert.ErrorIs(t, store.Delete("tr_missing"), ErrTranscriptNotFound)

	_, err = store.Latest()
	assert.ErrorIs(t, err, ErrTranscriptNotFound)
}

func TestTranscriptStore_RejectsPathTraversal(t *testing.T) {
	store := newTestStore(t)

	for _, id := range []string{"../etc/passwd", "a/b", "..", "with space"} {
		_, err := store.Load(id)
		assert.ErrorIs(t, err, ErrInvalidID, id)
	}

	_, err := store.Save(&Transcript{ID: "../escape"})
	assert.ErrorIs(t, err, ErrInvalidID)
}

// =============================================================================
// LIST / SEARCH TESTS
// =============================================================================

func saveAt(t *testing.T, store *TranscriptStore, text string) string {
	t.Helper()
	id, err := store.Save(&Transcript{Entries: model.EntryList{model.NewUserMessage(text)}})
	require.NoError(t, err)
	// UpdatedAt drives ordering; keep saves distinguishable.
	time.Sleep(5 * time.Millisecond)
	return id
}

func TestTranscriptStore_ListAndLatest(t *testing.T) {
	store := newTestStore(t)
	first := saveAt(t, store, "first question")
	second := saveAt(t, store, "second question")

	metas, err := store.List()
	require.NoError(t, err)
	require.Len(t, metas, 2)
	assert.Equal(t, second, metas[0].ID)
	assert.Equal(t, first, metas[1].ID)
	assert.Equal(t, "second question", metas[0].Preview)

	latest, err := store.Latest()
	require.NoError(t, err)
	assert.Equal(t, second, latest.ID)

	byIndex, err := store.LoadByIndex(1)
	require.NoError(t, err)
	assert.Equal(t, first, byIndex.ID)
}

func TestTranscriptStore_ListSkipsCorruptFiles(t *testing.T) {
	store := newTestStore(t)
	saveAt(t, store, "fine")
	require.NoError(t, os.WriteFile(filepath.Join(store.BaseDir, "broken.json"), []byte("{"), 0600))

	metas, err := store.List()
	require.NoError(t, err)
	assert.Len(t, metas, 1)
}

func TestTranscriptStore_Search(t *testing.T) {
	store := newTestStore(t)
	saveAt(t, store, "deploying to kubernetes")
	_, err := store.Save(&Transcript{
		Summary: "unrelated",
		Entries: model.EntryList{
			model.NewUserMessage("hello"),
			model.Message{Role: model.RoleAssistant, Content: "Use Kubernetes probes"},
		},
	})
	require.NoError(t, err)
	saveAt(t, store, "something else")

	results, err := store.Search("KUBERNETES")
	require.NoError(t, err)
	assert.Len(t, results, 2)

	all, err := store.Search("")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestTranscriptStore_Resolve(t *testing.T) {
	store := newTestStore(t)
	older := saveAt(t, store, "older")
	newer := saveAt(t, store, "newer")

	got, err := store.Resolve("1")
	require.NoError(t, err)
	assert.Equal(t, newer, got.ID)

	got, err = store.Resolve(older)
	require.NoError(t, err)
	assert.Equal(t, older, got.ID)

	got, err = store.Resolve(older[:len(older)-2])
	require.NoError(t, err)
	assert.Equal(t, older, got.ID)

	_, err = store.Resolve("9")
	assert.ErrorIs(t, err, ErrTranscriptNotFound)
}

// =============================================================================
// LIMIT / DELETE TESTS
// =============================================================================

func TestTranscriptStore_EnforcesLimit(t *testing.T) {
	store := newTestStore(t)
	store.MaxTranscripts = 2

	oldest := saveAt(t, store, "one")
	saveAt(t, store, "two")
	saveAt(t, store, "three")

	metas, err := store.List()
	require.NoError(t, err)
	require.Len(t, metas, 2)
	for _, m := range metas {
		assert.NotEqual(t, oldest, m.ID)
	}
}

func TestTranscriptStore_Clear(t *testing.T) {
	store := newTestStore(t)
	saveAt(t, store, "one")
	saveAt(t, store, "two")

	require.NoError(t, store.Clear())

	metas, err := store.List()
	require.NoError(t, err)
	assert.Empty(t, metas)
}

// =============================================================================
// SNAPSHOT / EXPORT TESTS
// =============================================================================

func TestFromSnapshot_CopiesState(t *testing.T) {
	entries := []model.ChatEntry{model.NewUserMessage("hi")}
	rc := &model.RequestContext{AdditionalInstructions: "x"}
	snap := session.Snapshot{Entries: entries, SessionState: json.RawMessage(`{"a":1}`)}

	tr := FromSnapshot("", "m1", snap, rc)
	rc.AdditionalInstructions = "changed"
	entries[0] = model.ErrorEntry{Code: "E"}

	assert.Equal(t, "x", tr.RequestContext.AdditionalInstructions)
	assert.Equal(t, model.KindMessage, tr.Entries[0].Kind())
	assert.JSONEq(t, `{"a":1}`, string(tr.SessionState))

	empty := FromSnapshot("", "", session.Snapshot{SessionState: json.RawMessage("null")}, nil)
	assert.Nil(t, empty.SessionState)
	assert.Nil(t, empty.RequestContext)
}

func TestTranscript_ExportMarkdown(t *testing.T) {
	tr := sampleTranscript()
	tr.ID = "tr_1"
	tr.Summary = "Password help"

	md := tr.ExportMarkdown()

	assert.Contains(t, md, "# Password help")
	assert.Contains(t, md, "model gpt-4o")
	assert.Contains(t, md, "How do I reset my password?")
	assert.Contains(t, md, "**Error RATE_LIMITED**: slow down")
}

func TestFormatList(t *testing.T) {
	assert.Equal(t, "No saved transcripts.", FormatList(nil))

	out := FormatList([]TranscriptMeta{{ID: "tr_abc", Summary: "Hello there", MessageCount: 3, UpdatedAt: time.Now()}})
	assert.Contains(t, out, "tr_abc")
	assert.Contains(t, out, "Hello there")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Len(t, lines, 3)
}
