// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"sync/atomic"

	"github.com/jeranaias/chatwidget/internal/model"
)

// WelcomeGreeting is the synthetic user message that asks the assistant to
// introduce itself.
const WelcomeGreeting = "Hello! Please welcome me and introduce yourself and let me know how you can help me."

const (
	guardArmed int32 = iota
	guardFired
)

// WelcomeGuard sends the greeting turn at most once per widget lifetime. Once
// fired it never re-arms, even if the store is cleared later.
type WelcomeGuard struct {
	controller *Controller
	enabled    bool
	state      atomic.Int32
}

// NewWelcomeGuard creates an armed guard.
func NewWelcomeGuard(controller *Controller, enabled bool) *WelcomeGuard {
	return &WelcomeGuard{controller: controller, enabled: enabled}
}

// Fired reports whether the greeting has been triggered.
func (g *WelcomeGuard) Fired() bool {
	return g.state.Load() == guardFired
}

// Evaluate checks the trigger conditions: transport present, store empty,
// guard armed and feature enabled. When they all hold the guard flips to fired
// before returning, and the returned function runs the greeting turn. It
// returns nil otherwise. Concurrent calls yield at most one non-nil result.
func (g *WelcomeGuard) Evaluate() func(ctx context.Context) Outcome {
	if !g.enabled || !g.controller.HasTransport() || !g.controller.Store().IsEmpty() {
		return nil
	}
	if !g.state.CompareAndSwap(guardArmed, guardFired) {
		return nil
	}
	g.controller.logger.Debug("Sending welcome message")
	return g.run
}

// run drives the greeting through the controller. Only the assistant reply
// (or the error) is published; the greeting itself never shows.
func (g *WelcomeGuard) run(ctx context.Context) Outcome {
	c := g.controller
	if !c.busy.CompareAndSwap(false, true) {
		return c.rejectOverlap()
	}
	defer c.busy.Store(false)

	c.mu.Lock()
	rc, selected := c.requestContext.Clone(), c.model
	c.mu.Unlock()

	return c.run(ctx, Turn{
		Message:        model.NewUserMessage(WelcomeGreeting),
		RequestContext: rc,
		SessionState:   c.store.SessionState(),
		Model:          selected,
	}, replaceMode)
}
