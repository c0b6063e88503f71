// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/jeranaias/chatwidget/internal/aichat/aichattest"
	"github.com/jeranaias/chatwidget/internal/model"
)

func TestWelcomeGuard_FiresOnce(t *testing.T) {
	tr := aichattest.New(aichattest.Script{Events: []model.DeltaEvent{aichattest.Content("Welcome!")}})
	ctrl, store := newController(t, tr, Hooks{})
	guard := NewWelcomeGuard(ctrl, true)

	var fired int32
	var runs []func(context.Context) Outcome
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if run := guard.Evaluate(); run != nil {
				atomic.AddInt32(&fired, 1)
				mu.Lock()
				runs = append(runs, run)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Equal(t, int32(1), fired)
	assert.True(t, guard.Fired())

	out := runs[0](context.Background())
	require.Equal(t, StatusCompleted, out.Status)

	// Only the assistant reply is visible; the greeting never shows.
	entries := store.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "Welcome!", entries[0].(model.Message).Content)

	calls := tr.Calls()
	require.Len(t, calls, 1)
	require.Len(t, calls[0].Messages, 1)
	assert.Equal(t, WelcomeGreeting, calls[0].Messages[0].Content)

	// Never re-arms, even after the store is cleared.
	store.Reset()
	for i := 0; i < 10; i++ {
		assert.Nil(t, guard.Evaluate())
	}
}

func TestWelcomeGuard_Conditions(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		ctrl, _ := newController(t, aichattest.New(), Hooks{})
		g := NewWelcomeGuard(ctrl, false)
		assert.Nil(t, g.Evaluate())
		assert.False(t, g.Fired())
	})

	t.Run("no transport", func(t *testing.T) {
		ctrl, _ := newController(t, nil, Hooks{})
		g := NewWelcomeGuard(ctrl, true)
		assert.Nil(t, g.Evaluate())
		assert.False(t, g.Fired())
	})

	t.Run("store not empty", func(t *testing.T) {
		store := NewStore([]model.ChatEntry{model.Message{Role: model.RoleUser, Content: "resumed"}})
		ctrl := NewController(store, aichattest.New(), zaptest.NewLogger(t), Hooks{})
		g := NewWelcomeGuard(ctrl, true)
		assert.Nil(t, g.Evaluate())

		// Becomes eligible once the store is empty.
		store.Reset()
		assert.NotNil(t, g.Evaluate())
	})
}

func TestWelcomeGuard_ErrorReplacesStore(t *testing.T) {
	tr := aichattest.New(aichattest.Script{OpenErr: errors.New("dial tcp: refused")})
	ctrl, store := newController(t, tr, Hooks{
		OnMessage: func(model.Message) { t.Error("greeting must not fire OnMessage") },
		OnError:   func(err error) { t.Errorf("greeting failure reached OnError: %v", err) },
	})

	run := NewWelcomeGuard(ctrl, true).Evaluate()
	require.NotNil(t, run)
	out := run(context.Background())

	require.Equal(t, StatusFailed, out.Status)
	assert.Equal(t, []model.ChatEntry{
		model.ErrorEntry{Code: model.CodeWelcomeMessage, Message: "dial tcp: refused"},
	}, store.Entries())
	assert.False(t, store.Loading())
}

func TestWelcomeGuard_StructuredError(t *testing.T) {
	tr := aichattest.New(aichattest.Script{OpenErr: &model.ChatError{Code: "AUTH", Message: "login required"}})
	ctrl, store := newController(t, tr, Hooks{
		OnError: func(err error) { t.Errorf("greeting failure reached OnError: %v", err) },
	})

	NewWelcomeGuard(ctrl, true).Evaluate()(context.Background())

	assert.Equal(t, []model.ChatEntry{model.ErrorEntry{Code: "AUTH", Message: "login required"}}, store.Entries())
}
