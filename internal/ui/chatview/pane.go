// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chatview

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/chatwidget/internal/reqctx"
	"github.com/jeranaias/chatwidget/internal/util"
)

// =============================================================================
// CONTEXT PANE
// =============================================================================

// paneState edits the request context one field at a time. Fields are
// numbered row by row (key then value) and the additional instructions come
// last. Edits are committed when focus leaves a field.
type paneState struct {
	focus int
	field textinput.Model
}

func newPaneState() paneState {
	ti := textinput.New()
	ti.Prompt = ""
	ti.CharLimit = 4096
	return paneState{focus: -1, field: ti}
}

// paneRow is one override as displayed.
type paneRow struct {
	key   string
	value string
}

func (m *Model) paneRows() ([]paneRow, string) {
	rc := m.w.RequestContext()
	if rc == nil {
		return nil, ""
	}
	keys := rc.Overrides.Keys()
	rows := make([]paneRow, 0, len(keys))
	for _, k := range keys {
		v, _ := rc.Overrides.Get(k)
		rows = append(rows, paneRow{key: k, value: reqctx.FormatValue(v)})
	}
	return rows, rc.AdditionalInstructions
}

// fieldCount returns the number of editable fields.
func fieldCount(rows []paneRow) int {
	return len(rows)*2 + 1
}

func (m *Model) handlePaneKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	rows, _ := m.paneRows()
	switch {
	case key.Matches(msg, m.keys.PaneClose):
		m.commitPaneField()
		m.pane.focus = -1
		m.pane.field.Blur()
		m.w.ClosePane()
		m.refresh()
		return m, m.input.Focus()

	case key.Matches(msg, m.keys.PaneNext), key.Matches(msg, m.keys.Submit):
		m.commitPaneField()
		rows, _ = m.paneRows()
		cmd := m.focusPaneField((m.pane.focus + 1) % fieldCount(rows))
		m.refresh()
		return m, cmd

	case key.Matches(msg, m.keys.PanePrev):
		m.commitPaneField()
		rows, _ = m.paneRows()
		n := fieldCount(rows)
		cmd := m.focusPaneField((m.pane.focus - 1 + n) % n)
		m.refresh()
		return m, cmd

	case key.Matches(msg, m.keys.PaneAdd):
		m.commitPaneField()
		var added string
		m.w.EditContext(func(e *reqctx.Editor) { added = e.Add() })
		rows, _ = m.paneRows()
		idx := 0
		for i, r := range rows {
			if r.key == added {
				idx = i
			}
		}
		cmd := m.focusPaneField(idx * 2)
		m.refresh()
		return m, cmd

	case key.Matches(msg, m.keys.PaneRemove):
		row := m.pane.focus / 2
		if m.pane.focus >= 0 && row < len(rows) {
			removed := rows[row].key
			m.w.EditContext(func(e *reqctx.Editor) { e.Remove(removed) })
			rows, _ = m.paneRows()
			cmd := m.focusPaneField(min(row*2, fieldCount(rows)-1))
			m.refresh()
			return m, cmd
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.pane.field, cmd = m.pane.field.Update(msg)
	return m, cmd
}

// focusPaneField loads field i into the text input.
func (m *Model) focusPaneField(i int) tea.Cmd {
	rows, instructions := m.paneRows()
	if i < 0 || i >= fieldCount(rows) {
		i = fieldCount(rows) - 1
	}
	m.pane.focus = i

	var text string
	switch {
	case i == len(rows)*2:
		text = instructions
	case i%2 == 0:
		text = rows[i/2].key
	default:
		text = rows[i/2].value
	}
	m.pane.field.SetValue(text)
	m.pane.field.CursorEnd()
	return m.pane.field.Focus()
}

// commitPaneField writes the focused field back to the request context.
func (m *Model) commitPaneField() {
	rows, instructions := m.paneRows()
	i := m.pane.focus
	if i < 0 || i >= fieldCount(rows) {
		return
	}
	text := m.pane.field.Value()

	switch {
	case i == len(rows)*2:
		if text != instructions {
			m.w.EditContext(func(e *reqctx.Editor) { e.SetAdditionalInstructions(text) })
		}
	case i%2 == 0:
		oldKey, newKey := rows[i/2].key, strings.TrimSpace(text)
		if newKey != "" && newKey != oldKey {
			m.w.EditContext(func(e *reqctx.Editor) { e.Rename(oldKey, newKey) })
		}
	default:
		row := rows[i/2]
		if text != row.value {
			m.w.EditContext(func(e *reqctx.Editor) { e.SetValue(row.key, text) })
		}
	}
}

func (m *Model) renderPane() string {
	t := m.theme
	width, _ := m.frameSize()
	rows, instructions := m.paneRows()
	keyWidth := max(width/4, 8)

	lines := []string{t.PaneTitle.Render("Request context")}
	if len(rows) == 0 {
		lines = append(lines, t.Muted.Render("No overrides. ctrl+a adds one."))
	}
	for i, r := range rows {
		k := m.paneCell(i*2, util.PadRight(util.TruncateWidth(r.key, keyWidth), keyWidth))
		v := m.paneCell(i*2+1, util.TruncateWidth(r.value, max(width-keyWidth-10, 10)))
		lines = append(lines, k+t.PaneKey.Render(" = ")+v)
	}
	lines = append(lines, "", t.PaneKey.Render("Additional instructions:"),
		m.paneCell(len(rows)*2, util.TruncateWidth(instructions, max(width-6, 10))))
	lines = append(lines, t.Muted.Render("tab next  shift+tab prev  ctrl+a add  ctrl+d remove  esc close"))

	return t.Pane.Width(max(width-2, 10)).Render(strings.Join(lines, "\n"))
}

// paneCell shows field i, as the live text input when it has focus.
func (m *Model) paneCell(i int, text string) string {
	if i == m.pane.focus {
		return m.theme.PaneFocused.Render("> ") + m.pane.field.View()
	}
	if text == "" {
		return m.theme.Muted.Render("(empty)")
	}
	return "  " + text
}
