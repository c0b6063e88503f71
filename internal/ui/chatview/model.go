// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chatview

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/jeranaias/chatwidget/internal/model"
	"github.com/jeranaias/chatwidget/internal/projection"
	"github.com/jeranaias/chatwidget/internal/session"
	"github.com/jeranaias/chatwidget/internal/ui/styles"
	"github.com/jeranaias/chatwidget/internal/widget"
)

// Options configure the view. All fields are optional.
type Options struct {
	// Context bounds every turn. It is cancelled when the view quits.
	Context context.Context
	// DetectDark resolves the "auto" theme. Defaults to styles.DetectDark.
	DetectDark func() bool
	// Renderer draws flow diagrams. Defaults to NewDiagramRenderer.
	Renderer projection.Renderer
	// AutoSaver, when set, is ticked from the update loop.
	AutoSaver *session.AutoSaver
}

// Model is the Bubble Tea model of the widget.
type Model struct {
	w      *widget.Widget
	keys   KeyMap
	logger *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	bridge *snapshotBridge
	snap   session.Snapshot

	// Styling
	detectDark func() bool
	themeName  widget.Theme
	theme      *styles.Theme
	markdown   *markdownRenderer
	diagrams   projection.Renderer

	// Dimensions
	width  int
	height int

	// UI Components
	input    textarea.Model
	viewport viewport.Model
	spinner  spinner.Model
	help     help.Model
	pane     paneState

	followup  int // highlighted follow-up, -1 for none
	statusMsg string
	autosave  *session.AutoSaver
	quitting  bool
}

// New creates the view for w.
func New(w *widget.Widget, opts Options) *Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)

	detectDark := opts.DetectDark
	if detectDark == nil {
		detectDark = styles.DetectDark
	}
	diagrams := opts.Renderer
	if diagrams == nil {
		diagrams = NewDiagramRenderer()
	}

	keys := DefaultKeyMap()

	ta := textarea.New()
	ta.Placeholder = "Type a message..."
	ta.ShowLineNumbers = false
	ta.CharLimit = 8192
	ta.SetHeight(3)
	ta.KeyMap.InsertNewline = keys.Newline
	ta.Focus()

	// ASCII-compatible animation
	sp := spinner.New()
	sp.Spinner = spinner.Spinner{
		Frames: []string{"|", "/", "-", "\\"},
		FPS:    time.Second / 10,
	}

	bridge := newSnapshotBridge(w.Store())

	m := &Model{
		w:          w,
		keys:       keys,
		logger:     w.Logger(),
		ctx:        ctx,
		cancel:     cancel,
		bridge:     bridge,
		snap:       bridge.Latest(),
		detectDark: detectDark,
		markdown:   newMarkdownRenderer(),
		diagrams:   diagrams,
		width:      80,
		height:     24,
		input:      ta,
		viewport:   viewport.New(80, 16),
		spinner:    sp,
		help:       help.New(),
		pane:       newPaneState(),
		followup:   -1,
		autosave:   opts.AutoSaver,
	}
	m.applyTheme()
	m.refresh()
	return m
}

// =============================================================================
// BUBBLE TEA INTERFACE
// =============================================================================

// Init starts the snapshot bridge, model listing and the welcome turn.
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		m.bridge.Wait(),
		textarea.Blink,
		m.spinner.Tick,
	}
	if m.w.Capabilities().CanListModels() {
		cmds = append(cmds, m.loadModelsCmd())
	}
	if run := m.w.Welcome(); run != nil {
		ctx := m.ctx
		cmds = append(cmds, func() tea.Msg {
			return turnDoneMsg{outcome: run(ctx), welcome: true}
		})
	}
	if m.autosave != nil {
		cmds = append(cmds, session.TickCmd())
	}
	return tea.Batch(cmds...)
}

// Update handles messages and updates the model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.refresh()
		return m, nil

	case snapshotMsg:
		m.snap = msg.snap
		if !m.hasFollowups() {
			m.followup = -1
		}
		m.refresh()
		if m.quitting {
			return m, nil
		}
		return m, m.bridge.Wait()

	case turnDoneMsg:
		m.handleTurnDone(msg)
		return m, nil

	case modelsLoadedMsg:
		if msg.err != nil {
			m.statusMsg = "Model list unavailable, using defaults"
		}
		m.refresh()
		return m, nil

	case themeRequestedMsg:
		if msg.err == nil {
			m.statusMsg = "Theme change requested: " + string(msg.theme)
		}
		return m, nil

	case SetThemeMsg:
		if err := m.w.SetTheme(msg.Theme); err != nil {
			m.statusMsg = err.Error()
			return m, nil
		}
		m.applyTheme()
		m.refresh()
		return m, nil

	case clipboardMsg:
		if msg.err != nil {
			m.statusMsg = "Failed to copy: " + msg.err.Error()
		} else {
			m.statusMsg = fmt.Sprintf("Copied reply (%d chars)", msg.size)
		}
		return m, nil

	case session.AutoSaveTickMsg:
		if m.autosave == nil || m.quitting {
			return m, nil
		}
		return m, m.autosave.HandleTick()

	case session.AutoSaveMsg:
		if msg.Err != nil {
			m.logger.Warn("Auto-save failed", zap.Error(msg.Err))
			m.statusMsg = "Auto-save failed"
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if m.snap.Loading {
			m.refresh()
		}
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// Shutdown cancels any in-flight turn and detaches from the store. It is safe
// to call more than once.
func (m *Model) Shutdown() {
	m.quitting = true
	m.cancel()
	m.bridge.Close()
}

// =============================================================================
// KEY HANDLING
// =============================================================================

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		m.Shutdown()
		return m, tea.Quit
	}
	if m.w.PaneOpen() {
		return m.handlePaneKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Submit):
		return m, m.submit()

	case key.Matches(msg, m.keys.NextTab):
		m.w.CycleTab(1)
		m.refresh()
		return m, nil

	case key.Matches(msg, m.keys.PrevTab):
		m.w.CycleTab(-1)
		m.refresh()
		return m, nil

	case key.Matches(msg, m.keys.NextModel):
		m.nextModel()
		m.refresh()
		return m, nil

	case key.Matches(msg, m.keys.ToggleTheme):
		if !m.w.Config().Features.ThemeToggle {
			return m, nil
		}
		w, detect := m.w, m.detectDark
		return m, func() tea.Msg {
			next, err := w.ToggleTheme(detect)
			return themeRequestedMsg{theme: next, err: err}
		}

	case key.Matches(msg, m.keys.TogglePane):
		open, err := m.w.TogglePane()
		if err != nil {
			return m, nil
		}
		var cmd tea.Cmd
		if open {
			m.input.Blur()
			cmd = m.focusPaneField(0)
		}
		m.refresh()
		return m, cmd

	case key.Matches(msg, m.keys.Followup):
		m.cycleFollowup()
		m.refresh()
		return m, nil

	case key.Matches(msg, m.keys.Copy):
		return m, m.copyLastReply()

	case key.Matches(msg, m.keys.PageUp, m.keys.PageDown):
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit sends the input, or the highlighted follow-up when the input is
// empty.
func (m *Model) submit() tea.Cmd {
	text := m.input.Value()
	if strings.TrimSpace(text) == "" && m.followup >= 0 {
		if followups := m.followups(); m.followup < len(followups) {
			text = followups[m.followup]
		}
	}
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if m.w.Controller().Busy() {
		m.statusMsg = "Waiting for the current reply"
		return nil
	}

	m.input.Reset()
	m.followup = -1
	m.statusMsg = ""
	if m.w.ActiveTab() != widget.TabChat && m.w.Config().HasTab(widget.TabChat) {
		_ = m.w.SelectTab(widget.TabChat)
	}
	m.refresh()

	w, ctx := m.w, m.ctx
	return func() tea.Msg {
		return turnDoneMsg{outcome: w.Send(ctx, text)}
	}
}

func (m *Model) handleTurnDone(msg turnDoneMsg) {
	out := msg.outcome
	if msg.welcome {
		m.logger.Debug("Welcome turn finished", zap.Stringer("status", out.Status))
	}
	m.statusMsg = ""
	if out.Status == session.StatusSkipped {
		switch {
		case errors.Is(out.Reason, session.ErrTurnInFlight):
			m.statusMsg = "Waiting for the current reply"
		case errors.Is(out.Reason, session.ErrNoTransport):
			m.statusMsg = "No chat backend configured"
		}
	}
	m.refresh()
}

func (m *Model) nextModel() {
	if !m.w.Config().Features.ModelSelector {
		return
	}
	models, loading := m.w.AvailableModels()
	if loading || len(models) == 0 {
		return
	}
	next := models[0]
	if i := slices.Index(models, m.w.Model()); i >= 0 {
		next = models[(i+1)%len(models)]
	}
	if err := m.w.SelectModel(next); err != nil {
		m.statusMsg = err.Error()
	}
}

func (m *Model) loadModelsCmd() tea.Cmd {
	w, ctx := m.w, m.ctx
	return func() tea.Msg {
		return modelsLoadedMsg{err: w.LoadModels(ctx)}
	}
}

func (m *Model) followups() []string {
	if m.snap.ResponseContext == nil {
		return nil
	}
	return m.snap.ResponseContext.FollowupQuestions
}

// hasFollowups reports whether follow-ups are shown: the reply is finished and
// the conversation ends with an assistant message.
func (m *Model) hasFollowups() bool {
	if m.snap.Loading || len(m.followups()) == 0 || len(m.snap.Entries) == 0 {
		return false
	}
	last, ok := m.snap.Entries[len(m.snap.Entries)-1].(model.Message)
	return ok && last.Role == model.RoleAssistant
}

func (m *Model) cycleFollowup() {
	if !m.hasFollowups() {
		m.followup = -1
		return
	}
	m.followup++
	if m.followup >= len(m.followups()) {
		m.followup = -1
	}
}

func (m *Model) copyLastReply() tea.Cmd {
	var reply string
	for i := len(m.snap.Entries) - 1; i >= 0; i-- {
		if msg, ok := m.snap.Entries[i].(model.Message); ok && msg.Role == model.RoleAssistant {
			reply = msg.Content
			break
		}
	}
	if reply == "" {
		m.statusMsg = "No reply to copy"
		return nil
	}
	return func() tea.Msg {
		return clipboardMsg{size: len(reply), err: clipboard.WriteAll(reply)}
	}
}

// =============================================================================
// LAYOUT
// =============================================================================

// applyTheme rebuilds the styles from the widget's resolved theme.
func (m *Model) applyTheme() {
	m.themeName = m.w.Theme(m.detectDark)
	m.theme = styles.NewTheme(m.themeName == widget.ThemeDark)
	m.spinner.Style = m.theme.Spinner
	m.input.FocusedStyle.Base = m.theme.InputFocused
	m.input.BlurredStyle.Base = m.theme.Input
}

// frameSize applies the configured size limits to the terminal size.
func (m *Model) frameSize() (int, int) {
	cfg := m.w.Config().Styling
	w, h := m.width, m.height
	if cfg.Width > 0 && cfg.Width < w {
		w = cfg.Width
	}
	if cfg.Height > 0 && cfg.Height < h {
		h = cfg.Height
	}
	return w, h
}

// refresh lays out the components and redraws the active tab into the
// viewport, keeping it pinned to the bottom while the user has not scrolled.
func (m *Model) refresh() {
	width, height := m.frameSize()
	m.theme.SetSize(width, height)
	m.input.SetWidth(max(width-2, 10))
	m.pane.field.Width = max(width/2, 10)

	chrome := lipgloss.Height(m.renderHeader()) +
		lipgloss.Height(m.renderInput()) +
		lipgloss.Height(m.renderStatus())
	if m.w.PaneOpen() {
		chrome += lipgloss.Height(m.renderPane())
	}

	atBottom := m.viewport.AtBottom()
	m.viewport.Width = width
	m.viewport.Height = max(height-chrome, 3)
	m.viewport.SetContent(m.renderBody(width))
	if atBottom || m.snap.Loading {
		m.viewport.GotoBottom()
	}
}

// View renders the widget.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	parts := []string{m.renderHeader(), m.viewport.View()}
	if m.w.PaneOpen() {
		parts = append(parts, m.renderPane())
	}
	parts = append(parts, m.renderInput(), m.renderStatus())
	return m.theme.App.Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}
