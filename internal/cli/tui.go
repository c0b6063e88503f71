// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jeranaias/chatwidget/internal/config"
	"github.com/jeranaias/chatwidget/internal/logging"
	"github.com/jeranaias/chatwidget/internal/model"
	"github.com/jeranaias/chatwidget/internal/session"
	"github.com/jeranaias/chatwidget/internal/storage"
	"github.com/jeranaias/chatwidget/internal/ui/chatview"
	"github.com/jeranaias/chatwidget/internal/widget"
)

// =============================================================================
// PROGRAM HOST
// =============================================================================

// programHost owns the running program and turns widget hooks into messages.
// Hooks fire from the update loop, so sends happen on their own goroutine.
type programHost struct {
	logger *zap.Logger

	mu      sync.Mutex
	program *tea.Program
}

func (h *programHost) attach(p *tea.Program) {
	h.mu.Lock()
	h.program = p
	h.mu.Unlock()
}

func (h *programHost) send(msg tea.Msg) {
	h.mu.Lock()
	p := h.program
	h.mu.Unlock()
	if p != nil {
		go p.Send(msg)
	}
}

func (h *programHost) handlers() widget.EventHandlers {
	return widget.EventHandlers{
		OnMessage: func(m model.Message) {
			h.logger.Debug("Assistant message", zap.String("id", m.ID), zap.Int("length", len(m.Content)))
		},
		OnError: func(err error) {
			h.logger.Warn("Chat error", zap.Error(err))
		},
		OnThemeChange: func(t widget.Theme) {
			h.logger.Debug("Theme change requested", zap.String("theme", string(t)))
			h.send(chatview.SetThemeMsg{Theme: t})
		},
		OnModelChange: func(m string) {
			h.logger.Info("Model selected", zap.String("model", m))
		},
		OnTabChange: func(t widget.Tab) {
			h.logger.Debug("Tab selected", zap.String("tab", string(t)))
		},
	}
}

// =============================================================================
// TRANSCRIPT SAVER
// =============================================================================

// transcriptSaver writes the conversation to one transcript, keeping its ID
// and creation time across saves.
type transcriptSaver struct {
	store *storage.TranscriptStore
	w     *widget.Widget

	mu      sync.Mutex
	id      string
	created time.Time
}

func (s *transcriptSaver) save(snap session.Snapshot) error {
	if len(snap.Entries) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tr := storage.FromSnapshot(s.id, s.w.Model(), snap, s.w.RequestContext())
	tr.CreatedAt = s.created
	id, err := s.store.Save(tr)
	if err != nil {
		return err
	}
	s.id, s.created = id, tr.CreatedAt
	return nil
}

// ID returns the transcript ID, empty until the first save.
func (s *transcriptSaver) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// =============================================================================
// INTERACTIVE WIDGET
// =============================================================================

func (a *app) runTUI(cmd *cobra.Command, _ []string) error {
	if err := RequiresTTY("run the chat widget"); err != nil {
		return err
	}

	client, err := a.newClient()
	if err != nil {
		return err
	}
	transcripts, err := a.transcripts()
	if err != nil {
		return err
	}

	opts := widget.Options{Config: a.widgetConfig(), Logger: a.logger}
	saver := &transcriptSaver{store: transcripts}

	if a.resume {
		if transcripts == nil {
			return NewUsageError("flag", "--resume", "transcript storage is disabled")
		}
		tr, err := transcripts.Latest()
		switch {
		case errors.Is(err, storage.ErrTranscriptNotFound):
			fmt.Fprintln(cmd.ErrOrStderr(), DimStyle.Render("No saved transcript; starting a new conversation."))
		case err != nil:
			return err
		default:
			saver.id, saver.created = tr.ID, tr.CreatedAt
			opts.InitialMessages = tr.Entries
			opts.SessionState = tr.SessionState
			opts.RequestContext = tr.RequestContext
			if a.model == "" {
				opts.InitialModel = tr.Model
			}
			a.logger.Info("Resuming transcript", zap.String("id", tr.ID), zap.Int("entries", len(tr.Entries)))
		}
	}

	host := &programHost{logger: a.logger}
	opts.Handlers = host.handlers()
	w := widget.New(client, opts)
	saver.w = w

	var autosave *session.AutoSaver
	if transcripts != nil {
		autosave = session.NewAutoSaver(w.Store(), a.cfg.AutoSaveInterval(), saver.save)
		defer autosave.Stop()
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	view := chatview.New(w, chatview.Options{Context: ctx, AutoSaver: autosave})
	p := tea.NewProgram(view,
		tea.WithAltScreen(),
		tea.WithContext(ctx),
		tea.WithOutput(os.Stdout),
	)
	host.attach(p)

	if watcher := a.watchConfig(host); watcher != nil {
		defer watcher.Close()
	}

	_, runErr := p.Run()
	view.Shutdown()

	if autosave != nil {
		if err := autosave.Flush(); err != nil {
			a.logger.Error("Failed to save transcript", zap.Error(err))
			fmt.Fprintf(cmd.ErrOrStderr(), "%s %v\n", WarningStyle.Render("Transcript not saved:"), err)
		} else if id := saver.ID(); id != "" {
			fmt.Fprintln(cmd.ErrOrStderr(), DimStyle.Render("Transcript saved: "+id))
		}
	}

	if runErr != nil && !errors.Is(runErr, tea.ErrProgramKilled) {
		return fmt.Errorf("widget failed: %w", runErr)
	}
	return nil
}

// watchConfig reloads the config file while the widget runs. Theme edits are
// applied live and the debug switch flips the log level.
func (a *app) watchConfig(host *programHost) *config.Watcher {
	if a.cfgPath == "" {
		return nil
	}
	if _, err := os.Stat(a.cfgPath); err != nil {
		return nil
	}

	watcher, err := config.NewWatcher(a.cfgPath, a.cfg, func(c config.Change) {
		if c.ThemeChanged() {
			host.send(chatview.SetThemeMsg{Theme: widget.Theme(c.New.Widget.Theme)})
		}
		if c.DebugChanged() {
			logging.SetEnabled(a.logLevel, c.New.Logging.Debug)
		}
	}, a.logger)
	if err != nil {
		a.logger.Warn("Config watcher unavailable", zap.Error(err))
		return nil
	}
	if err := watcher.Watch(); err != nil {
		a.logger.Warn("Config watcher unavailable", zap.Error(err))
		watcher.Close()
		return nil
	}
	return watcher
}
