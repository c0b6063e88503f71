// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package widget is the UI-independent core of the chat widget: configuration,
// host event hooks, and the state behind the header, tabs and context pane.
// The Bubble Tea view in internal/ui/chatview renders it.
package widget

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/jeranaias/chatwidget/internal/aichat"
	"github.com/jeranaias/chatwidget/internal/auth"
	"github.com/jeranaias/chatwidget/internal/model"
	"github.com/jeranaias/chatwidget/internal/projection"
	"github.com/jeranaias/chatwidget/internal/reqctx"
	"github.com/jeranaias/chatwidget/internal/session"
)

// Errors returned by widget operations.
var (
	ErrFeatureDisabled = errors.New("feature disabled")
	ErrUnknownTab      = errors.New("tab not enabled")
)

// Options are the construction parameters shared by both constructors.
type Options struct {
	Config   Config
	Handlers EventHandlers
	// InitialMessages seed the conversation (resumed transcript).
	InitialMessages []model.ChatEntry
	// SessionState restores the opaque backend state of a resumed transcript.
	SessionState model.SessionState
	// InitialModel takes precedence over Config.Defaults.Model.
	InitialModel string
	// RequestContext seeds the context pane.
	RequestContext *model.RequestContext
	Logger         *zap.Logger
}

// Widget holds one widget instance's state. Methods are safe for concurrent
// use; the Bubble Tea model calls them from its update loop and from commands.
type Widget struct {
	handlers   EventHandlers
	logger     *zap.Logger
	transport  aichat.Transport
	caps       aichat.Capabilities
	store      *session.Store
	controller *session.Controller
	welcome    *session.WelcomeGuard

	mu            sync.Mutex
	cfg           Config
	editor        *reqctx.Editor
	activeTab     Tab
	paneOpen      bool
	models        []string
	modelsLoading bool
}

// New builds a widget around a ready transport. transport may be nil; the
// widget then renders but every send is skipped.
func New(transport aichat.Transport, opts Options) *Widget {
	cfg := opts.Config.Normalize()
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	w := &Widget{
		handlers:  opts.Handlers,
		logger:    logger.Named("widget"),
		transport: transport,
		caps:      aichat.ResolveCapabilities(transport),
		store:     session.NewStore(opts.InitialMessages),
		cfg:       cfg,
		editor:    reqctx.NewEditor(opts.RequestContext),
		activeTab: TabChat,
		models:    append([]string(nil), cfg.Defaults.AvailableModels...),
	}
	w.controller = session.NewController(w.store, transport, logger, session.Hooks{
		OnMessage: w.handlers.message,
		OnError:   w.handlers.error,
	})
	w.welcome = session.NewWelcomeGuard(w.controller, cfg.Features.WelcomeMessage)
	if model.HasValue(opts.SessionState) {
		w.store.RestoreSessionState(opts.SessionState)
	}

	selected := cfg.Defaults.Model
	if opts.InitialModel != "" {
		selected = opts.InitialModel
	}
	w.controller.SetModel(selected)
	w.controller.SetRequestContext(w.editor.Context())

	w.logger.Debug("Widget created",
		zap.String("model", selected),
		zap.Stringer("capabilities", w.caps.Kind),
		zap.Int("initial_messages", len(opts.InitialMessages)))
	return w
}

// NewWithCredential builds the transport from a credential and base URL.
func NewWithCredential(credential auth.Credential, baseURL string, opts Options, clientOpts ...aichat.Option) (*Widget, error) {
	if opts.Logger != nil {
		clientOpts = append([]aichat.Option{aichat.WithLogger(opts.Logger)}, clientOpts...)
	}
	client, err := aichat.NewClient(baseURL, credential, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat client: %w", err)
	}
	return New(client, opts), nil
}

// =============================================================================
// ACCESSORS
// =============================================================================

// Config returns the normalized configuration.
func (w *Widget) Config() Config {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cfg
}

// Store returns the conversation store.
func (w *Widget) Store() *session.Store { return w.store }

// Controller returns the session controller.
func (w *Widget) Controller() *session.Controller { return w.controller }

// Transport returns the transport, possibly nil.
func (w *Widget) Transport() aichat.Transport { return w.transport }

// Capabilities returns the capabilities resolved at construction.
func (w *Widget) Capabilities() aichat.Capabilities { return w.caps }

// Logger returns the widget logger.
func (w *Widget) Logger() *zap.Logger { return w.logger }

// =============================================================================
// CONVERSATION
// =============================================================================

// Send runs a user turn.
func (w *Widget) Send(ctx context.Context, text string) session.Outcome {
	return w.controller.Send(ctx, text)
}

// Welcome returns the greeting turn when the welcome guard fires, or nil.
func (w *Widget) Welcome() func(context.Context) session.Outcome {
	return w.welcome.Evaluate()
}

// Thoughts projects the latest response context for the thoughts tab.
func (w *Widget) Thoughts() projection.Thoughts {
	return projection.ThoughtsFrom(w.store.ResponseContext())
}

// Flow projects the latest response context for the flow tab.
func (w *Widget) Flow(r projection.Renderer, theme Theme) projection.Flow {
	return projection.FlowFrom(w.store.ResponseContext(), r, string(theme))
}

// FollowupQuestions returns the suggestions from the latest response context.
func (w *Widget) FollowupQuestions() []string {
	rc := w.store.ResponseContext()
	if rc == nil {
		return nil
	}
	return append([]string(nil), rc.FollowupQuestions...)
}

// =============================================================================
// THEME
// =============================================================================

// Theme returns the configured theme resolved with isDark.
func (w *Widget) Theme(isDark func() bool) Theme {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cfg.Styling.Theme.Resolve(isDark)
}

// SetTheme applies a theme chosen by the host.
func (w *Widget) SetTheme(t Theme) error {
	if !t.IsValid() {
		return &ValidationError{Field: "styling.theme", Message: fmt.Sprintf("unknown theme %q", t)}
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.cfg.Styling.Theme = t
	return nil
}

// ToggleTheme asks the host to switch to the opposite of the resolved theme.
// The host owns the theme and calls SetTheme if it agrees. It returns the
// requested theme.
func (w *Widget) ToggleTheme(isDark func() bool) (Theme, error) {
	w.mu.Lock()
	enabled := w.cfg.Features.ThemeToggle
	next := w.cfg.Styling.Theme.Resolve(isDark).Opposite()
	w.mu.Unlock()

	if !enabled {
		return "", fmt.Errorf("theme toggle: %w", ErrFeatureDisabled)
	}
	if !w.handlers.themeChange(next) {
		w.logger.Debug("Theme toggle requested but no theme handler provided")
	}
	return next, nil
}

// =============================================================================
// TABS AND PANE
// =============================================================================

// Tabs returns the enabled tabs.
func (w *Widget) Tabs() []Tab {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]Tab(nil), w.cfg.Features.Tabs...)
}

// ActiveTab returns the selected tab.
func (w *Widget) ActiveTab() Tab {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.activeTab
}

// SelectTab switches to t if it is enabled.
func (w *Widget) SelectTab(t Tab) error {
	w.mu.Lock()
	if !w.cfg.HasTab(t) {
		w.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownTab, t)
	}
	changed := w.activeTab != t
	w.activeTab = t
	w.mu.Unlock()

	if changed {
		w.handlers.tabChange(t)
	}
	return nil
}

// CycleTab moves to the next (delta > 0) or previous enabled tab.
func (w *Widget) CycleTab(delta int) Tab {
	w.mu.Lock()
	tabs := w.cfg.Features.Tabs
	if len(tabs) == 0 {
		t := w.activeTab
		w.mu.Unlock()
		return t
	}
	idx := slices.Index(tabs, w.activeTab)
	next := tabs[((idx+delta)%len(tabs)+len(tabs))%len(tabs)]
	w.mu.Unlock()

	_ = w.SelectTab(next)
	return next
}

// TogglePane opens or closes the request context pane.
func (w *Widget) TogglePane() (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.cfg.Features.ContextPane {
		return false, fmt.Errorf("context pane: %w", ErrFeatureDisabled)
	}
	w.paneOpen = !w.paneOpen
	return w.paneOpen, nil
}

// ClosePane closes the request context pane.
func (w *Widget) ClosePane() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.paneOpen = false
}

// PaneOpen reports whether the request context pane is open.
func (w *Widget) PaneOpen() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.paneOpen
}

// EditContext applies fn to the request context editor and hands the result
// to the controller for the next turns.
func (w *Widget) EditContext(fn func(e *reqctx.Editor)) *model.RequestContext {
	w.mu.Lock()
	fn(w.editor)
	rc := w.editor.Context()
	w.mu.Unlock()

	w.controller.SetRequestContext(rc)
	return rc
}

// RequestContext returns the context sent with the next turn.
func (w *Widget) RequestContext() *model.RequestContext {
	return w.controller.RequestContext()
}

// =============================================================================
// MODELS
// =============================================================================

// Model returns the selected model.
func (w *Widget) Model() string {
	return w.controller.Model()
}

// SelectModel changes the model sent with the next turns.
func (w *Widget) SelectModel(m string) error {
	w.mu.Lock()
	enabled := w.cfg.Features.ModelSelector
	w.mu.Unlock()
	if !enabled {
		return fmt.Errorf("model selector: %w", ErrFeatureDisabled)
	}
	if m == "" {
		return errors.New("model name is empty")
	}
	w.controller.SetModel(m)
	w.handlers.modelChange(m)
	return nil
}

// AvailableModels returns the selectable models and whether a listing is in
// progress.
func (w *Widget) AvailableModels() ([]string, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.models...), w.modelsLoading
}

// LoadModels refreshes the model list from the transport when it can list
// models. On failure the configured defaults stay in place. If the selected
// model is not offered, the first listed model is selected.
func (w *Widget) LoadModels(ctx context.Context) error {
	if !w.caps.CanListModels() {
		return nil
	}

	w.mu.Lock()
	w.modelsLoading = true
	w.mu.Unlock()

	models, err := w.caps.ListModels(ctx)

	w.mu.Lock()
	w.modelsLoading = false
	if err == nil && len(models) > 0 {
		w.models = append([]string(nil), models...)
	}
	w.mu.Unlock()

	if err != nil {
		w.logger.Error("Failed to load available models", zap.Error(err))
		return err
	}
	w.logger.Debug("Available models loaded", zap.Strings("models", models))

	if len(models) > 0 && !slices.Contains(models, w.controller.Model()) {
		w.controller.SetModel(models[0])
	}
	return nil
}
