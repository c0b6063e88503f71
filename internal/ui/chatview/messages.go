// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chatview

import (
	"github.com/jeranaias/chatwidget/internal/session"
	"github.com/jeranaias/chatwidget/internal/widget"
)

// snapshotMsg delivers a store snapshot.
type snapshotMsg struct {
	snap session.Snapshot
}

// turnDoneMsg reports the end of a send or welcome turn.
type turnDoneMsg struct {
	outcome session.Outcome
	welcome bool
}

// modelsLoadedMsg reports the end of model listing.
type modelsLoadedMsg struct {
	err error
}

// themeRequestedMsg reports a theme toggle request handed to the host.
type themeRequestedMsg struct {
	theme widget.Theme
	err   error
}

// clipboardMsg reports the result of copying the last reply.
type clipboardMsg struct {
	size int
	err  error
}

// SetThemeMsg applies a theme chosen by the host. Hosts send it through
// tea.Program.Send, typically from their OnThemeChange handler or after a
// config reload.
type SetThemeMsg struct {
	Theme widget.Theme
}
