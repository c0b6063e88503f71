// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package widget

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/jeranaias/chatwidget/internal/aichat/aichattest"
	"github.com/jeranaias/chatwidget/internal/model"
	"github.com/jeranaias/chatwidget/internal/projection"
	"github.com/jeranaias/chatwidget/internal/reqctx"
	"github.com/jeranaias/chatwidget/internal/session"
)

// =============================================================================
// CONFIG TESTS
// =============================================================================

func TestConfig_Normalize(t *testing.T) {
	cfg := Config{Features: Features{Tabs: []Tab{TabFlow, "bogus", TabChat, TabFlow}}}.Normalize()

	assert.Equal(t, []Tab{TabFlow, TabChat}, cfg.Features.Tabs)
	assert.Equal(t, ThemeAuto, cfg.Styling.Theme)
	assert.Equal(t, DefaultModel, cfg.Defaults.Model)
	assert.Equal(t, DefaultAvailableModels, cfg.Defaults.AvailableModels)

	// nil tabs means all tabs; an empty list means none.
	assert.Equal(t, AllTabs, Config{}.Normalize().Features.Tabs)
	assert.Empty(t, Config{Features: Features{Tabs: []Tab{}}}.Normalize().Features.Tabs)
}

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	var verr *ValidationError
	err := Config{Styling: Styling{Theme: "sepia"}}.Validate()
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "styling.theme", verr.Field)

	assert.Error(t, Config{Styling: Styling{Height: -1}}.Validate())
	assert.Error(t, Config{Features: Features{Tabs: []Tab{"graph"}}}.Validate())
}

func TestTheme_Resolve(t *testing.T) {
	dark := func() bool { return true }
	light := func() bool { return false }

	assert.Equal(t, ThemeDark, ThemeAuto.Resolve(dark))
	assert.Equal(t, ThemeLight, ThemeAuto.Resolve(light))
	assert.Equal(t, ThemeLight, ThemeAuto.Resolve(nil))
	assert.Equal(t, ThemeLight, ThemeLight.Resolve(dark))
	assert.Equal(t, ThemeDark, ThemeLight.Opposite())
	assert.Equal(t, ThemeLight, ThemeDark.Opposite())
}

// =============================================================================
// WIDGET TESTS
// =============================================================================

func newTestWidget(t *testing.T, tr *aichattest.Transport, opts Options) *Widget {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = zaptest.NewLogger(t)
	}
	if tr == nil {
		return New(nil, opts)
	}
	return New(tr, opts)
}

func TestWidget_InitialModelPrecedence(t *testing.T) {
	w := newTestWidget(t, aichattest.New(), Options{
		Config:       Config{Defaults: Defaults{Model: "from-config"}},
		InitialModel: "from-host",
	})
	assert.Equal(t, "from-host", w.Model())

	w = newTestWidget(t, aichattest.New(), Options{Config: Config{Defaults: Defaults{Model: "from-config"}}})
	assert.Equal(t, "from-config", w.Model())
}

func TestWidget_ResumeRestoresSessionState(t *testing.T) {
	tr := aichattest.New(aichattest.Script{Events: []model.DeltaEvent{aichattest.Content("again")}})
	w := newTestWidget(t, tr, Options{
		InitialMessages: []model.ChatEntry{model.NewUserMessage("earlier")},
		SessionState:    json.RawMessage(`{"thread":"t1"}`),
	})
	assert.JSONEq(t, `{"thread":"t1"}`, string(w.Store().SessionState()))

	out := w.Send(context.Background(), "next")
	require.Equal(t, session.StatusCompleted, out.Status)

	calls := tr.Calls()
	require.Len(t, calls, 1)
	assert.JSONEq(t, `{"thread":"t1"}`, string(calls[0].Options.SessionState))
	assert.Len(t, calls[0].Messages, 2)
}

func TestWidget_SendFiresMessageHookAndUsesModel(t *testing.T) {
	tr := aichattest.New(aichattest.Script{Events: []model.DeltaEvent{aichattest.Content("Hi there")}})
	var sent []model.Message
	w := newTestWidget(t, tr, Options{
		Handlers: EventHandlers{OnMessage: func(m model.Message) { sent = append(sent, m) }},
	})
	w.EditContext(func(e *reqctx.Editor) { e.SetAdditionalInstructions("be brief") })

	out := w.Send(context.Background(), "hello")

	require.Equal(t, session.StatusCompleted, out.Status)
	require.Len(t, sent, 1)
	assert.Equal(t, "hello", sent[0].Content)

	entries := w.Store().Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "Hi there", entries[1].(model.Message).Content)

	calls := tr.Calls()
	require.Len(t, calls, 1)
	require.NotNil(t, calls[0].Options.Context)
	assert.Equal(t, "be brief", calls[0].Options.Context.AdditionalInstructions)
	v, ok := calls[0].Options.Context.Overrides.Get(model.OverrideModelKey)
	require.True(t, ok)
	assert.Equal(t, DefaultModel, v)
}

func TestWidget_ErrorHook(t *testing.T) {
	tr := aichattest.New(aichattest.Script{OpenErr: &model.ChatError{Code: "QUOTA", Message: "out of quota"}})
	var got []error
	w := newTestWidget(t, tr, Options{Handlers: EventHandlers{OnError: func(err error) { got = append(got, err) }}})

	out := w.Send(context.Background(), "hello")

	assert.Equal(t, session.StatusFailed, out.Status)
	require.Len(t, got, 1)
	chatErr, ok := model.AsChatError(got[0])
	require.True(t, ok)
	assert.Equal(t, "QUOTA", chatErr.Code)
}

func TestWidget_WelcomeRunsOnce(t *testing.T) {
	tr := aichattest.New(aichattest.Script{Events: []model.DeltaEvent{aichattest.Content("Welcome!")}})
	var hookCalls int
	w := newTestWidget(t, tr, Options{
		Config:   Config{Features: Features{WelcomeMessage: true}},
		Handlers: EventHandlers{OnMessage: func(model.Message) { hookCalls++ }},
	})

	run := w.Welcome()
	require.NotNil(t, run)
	assert.Nil(t, w.Welcome(), "guard fires once")

	out := run(context.Background())
	require.Equal(t, session.StatusCompleted, out.Status)
	assert.Zero(t, hookCalls, "greeting is not reported to the host")

	entries := w.Store().Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "Welcome!", entries[0].(model.Message).Content)
}

func TestWidget_WelcomeSkippedWithoutTransportOrWithHistory(t *testing.T) {
	w := newTestWidget(t, nil, Options{Config: Config{Features: Features{WelcomeMessage: true}}})
	assert.Nil(t, w.Welcome())

	w = newTestWidget(t, aichattest.New(), Options{
		Config:          Config{Features: Features{WelcomeMessage: true}},
		InitialMessages: []model.ChatEntry{model.NewUserMessage("earlier")},
	})
	assert.Nil(t, w.Welcome())

	w = newTestWidget(t, aichattest.New(), Options{})
	assert.Nil(t, w.Welcome(), "feature disabled")
}

func TestWidget_Tabs(t *testing.T) {
	var changes []Tab
	w := newTestWidget(t, nil, Options{
		Config:   Config{Features: Features{Tabs: []Tab{TabChat, TabFlow}}},
		Handlers: EventHandlers{OnTabChange: func(tab Tab) { changes = append(changes, tab) }},
	})

	assert.Equal(t, TabChat, w.ActiveTab())
	assert.ErrorIs(t, w.SelectTab(TabThoughts), ErrUnknownTab)

	require.NoError(t, w.SelectTab(TabFlow))
	require.NoError(t, w.SelectTab(TabFlow))
	assert.Equal(t, []Tab{TabFlow}, changes, "reselecting the active tab is silent")

	assert.Equal(t, TabChat, w.CycleTab(1))
	assert.Equal(t, TabFlow, w.CycleTab(-1))
}

func TestWidget_ThemeToggle(t *testing.T) {
	var requested []Theme
	w := newTestWidget(t, nil, Options{
		Config:   Config{Features: Features{ThemeToggle: true}, Styling: Styling{Theme: ThemeLight}},
		Handlers: EventHandlers{OnThemeChange: func(th Theme) { requested = append(requested, th) }},
	})

	next, err := w.ToggleTheme(nil)
	require.NoError(t, err)
	assert.Equal(t, ThemeDark, next)
	assert.Equal(t, []Theme{ThemeDark}, requested)
	assert.Equal(t, ThemeLight, w.Theme(nil), "host decides whether to apply it")

	require.NoError(t, w.SetTheme(ThemeDark))
	assert.Equal(t, ThemeDark, w.Theme(nil))
	assert.Error(t, w.SetTheme("neon"))

	w = newTestWidget(t, nil, Options{})
	_, err = w.ToggleTheme(nil)
	assert.ErrorIs(t, err, ErrFeatureDisabled)
}

func TestWidget_SelectModel(t *testing.T) {
	var changes []string
	w := newTestWidget(t, nil, Options{
		Config:   Config{Features: Features{ModelSelector: true}},
		Handlers: EventHandlers{OnModelChange: func(m string) { changes = append(changes, m) }},
	})

	require.NoError(t, w.SelectModel("gpt-4o-mini"))
	assert.Equal(t, "gpt-4o-mini", w.Model())
	assert.Equal(t, []string{"gpt-4o-mini"}, changes)
	assert.Error(t, w.SelectModel(""))

	w = newTestWidget(t, nil, Options{})
	assert.ErrorIs(t, w.SelectModel("x"), ErrFeatureDisabled)
}

func TestWidget_LoadModels(t *testing.T) {
	t.Run("replaces list and reselects", func(t *testing.T) {
		lt := &aichattest.ListingTransport{Transport: aichattest.New(), Models: []string{"llama3", "mistral"}}
		var hook int
		w := New(lt, Options{
			Logger:   zaptest.NewLogger(t),
			Handlers: EventHandlers{OnModelChange: func(string) { hook++ }},
		})
		require.True(t, w.Capabilities().CanListModels())

		require.NoError(t, w.LoadModels(context.Background()))

		models, loading := w.AvailableModels()
		assert.False(t, loading)
		assert.Equal(t, []string{"llama3", "mistral"}, models)
		assert.Equal(t, "llama3", w.Model())
		assert.Zero(t, hook)
	})

	t.Run("failure keeps defaults", func(t *testing.T) {
		lt := &aichattest.ListingTransport{Transport: aichattest.New(), Err: errors.New("boom")}
		w := New(lt, Options{Logger: zaptest.NewLogger(t)})

		assert.Error(t, w.LoadModels(context.Background()))
		models, _ := w.AvailableModels()
		assert.Equal(t, DefaultAvailableModels, models)
		assert.Equal(t, DefaultModel, w.Model())
	})

	t.Run("basic transport is a no-op", func(t *testing.T) {
		w := newTestWidget(t, aichattest.New(), Options{})
		assert.False(t, w.Capabilities().CanListModels())
		assert.NoError(t, w.LoadModels(context.Background()))
	})
}

func TestWidget_Pane(t *testing.T) {
	w := newTestWidget(t, nil, Options{Config: Config{Features: Features{ContextPane: true}}})
	open, err := w.TogglePane()
	require.NoError(t, err)
	assert.True(t, open)
	w.ClosePane()
	assert.False(t, w.PaneOpen())

	w = newTestWidget(t, nil, Options{})
	_, err = w.TogglePane()
	assert.ErrorIs(t, err, ErrFeatureDisabled)
}

func TestWidget_Projections(t *testing.T) {
	w := newTestWidget(t, nil, Options{})
	assert.Equal(t, projection.ThoughtsNoContext, w.Thoughts().State)
	assert.Equal(t, projection.FlowNoContext, w.Flow(projection.DefaultRenderer, ThemeLight).State)
	assert.Nil(t, w.FollowupQuestions())
}
