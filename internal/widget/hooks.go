// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package widget

import "github.com/jeranaias/chatwidget/internal/model"

// EventHandlers are the host callbacks. Any of them may be nil.
type EventHandlers struct {
	OnMessage     func(model.Message)
	OnError       func(error)
	OnThemeChange func(Theme)
	OnModelChange func(string)
	OnTabChange   func(Tab)
}

func (h EventHandlers) message(m model.Message) {
	if h.OnMessage != nil {
		h.OnMessage(m)
	}
}

func (h EventHandlers) error(err error) {
	if h.OnError != nil {
		h.OnError(err)
	}
}

func (h EventHandlers) themeChange(t Theme) bool {
	if h.OnThemeChange == nil {
		return false
	}
	h.OnThemeChange(t)
	return true
}

func (h EventHandlers) modelChange(m string) {
	if h.OnModelChange != nil {
		h.OnModelChange(m)
	}
}

func (h EventHandlers) tabChange(t Tab) {
	if h.OnTabChange != nil {
		h.OnTabChange(t)
	}
}
