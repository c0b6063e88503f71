// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chatview

import "github.com/charmbracelet/bubbles/key"

// =============================================================================
// KEY MAP DEFINITION
// =============================================================================

// KeyMap defines the keyboard bindings of the widget.
type KeyMap struct {
	Submit      key.Binding
	Newline     key.Binding
	NextTab     key.Binding
	PrevTab     key.Binding
	NextModel   key.Binding
	ToggleTheme key.Binding
	TogglePane  key.Binding
	Followup    key.Binding
	Copy        key.Binding
	PageUp      key.Binding
	PageDown    key.Binding
	Quit        key.Binding

	// Context pane
	PaneNext   key.Binding
	PanePrev   key.Binding
	PaneAdd    key.Binding
	PaneRemove key.Binding
	PaneClose  key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "send"),
		),
		Newline: key.NewBinding(
			key.WithKeys("alt+enter", "ctrl+j"),
			key.WithHelp("alt+enter", "newline"),
		),
		NextTab: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "next tab"),
		),
		PrevTab: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("shift+tab", "previous tab"),
		),
		NextModel: key.NewBinding(
			key.WithKeys("ctrl+o"),
			key.WithHelp("C-o", "model"),
		),
		ToggleTheme: key.NewBinding(
			key.WithKeys("ctrl+t"),
			key.WithHelp("C-t", "theme"),
		),
		TogglePane: key.NewBinding(
			key.WithKeys("ctrl+k"),
			key.WithHelp("C-k", "context"),
		),
		Followup: key.NewBinding(
			key.WithKeys("ctrl+f"),
			key.WithHelp("C-f", "follow-up"),
		),
		Copy: key.NewBinding(
			key.WithKeys("ctrl+y"),
			key.WithHelp("C-y", "copy reply"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup"),
			key.WithHelp("PgUp", "page up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown"),
			key.WithHelp("PgDn", "page down"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("C-c", "quit"),
		),
		PaneNext: key.NewBinding(
			key.WithKeys("tab", "down"),
			key.WithHelp("tab", "next field"),
		),
		PanePrev: key.NewBinding(
			key.WithKeys("shift+tab", "up"),
			key.WithHelp("shift+tab", "previous field"),
		),
		PaneAdd: key.NewBinding(
			key.WithKeys("ctrl+a"),
			key.WithHelp("C-a", "add override"),
		),
		PaneRemove: key.NewBinding(
			key.WithKeys("ctrl+d"),
			key.WithHelp("C-d", "remove override"),
		),
		PaneClose: key.NewBinding(
			key.WithKeys("esc", "ctrl+k"),
			key.WithHelp("esc", "close"),
		),
	}
}

// ShortHelp returns the bindings shown in the status bar.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Submit, k.NextTab, k.NextModel, k.ToggleTheme, k.TogglePane, k.Quit}
}
