// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chatview

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/chatwidget/internal/model"
	"github.com/jeranaias/chatwidget/internal/projection"
	"github.com/jeranaias/chatwidget/internal/util"
	"github.com/jeranaias/chatwidget/internal/widget"
)

const (
	maxModelLabel = 24
	titleText     = "AI Chat"
)

// =============================================================================
// HEADER
// =============================================================================

func (m *Model) renderHeader() string {
	t := m.theme
	width, _ := m.frameSize()
	cfg := m.w.Config()

	left := []string{t.HeaderTitle.Render(titleText)}
	active := m.w.ActiveTab()
	for _, tab := range m.w.Tabs() {
		if tab == active {
			left = append(left, t.TabActive.Render(tab.Title()))
		} else {
			left = append(left, t.Tab.Render(tab.Title()))
		}
	}

	var right []string
	if cfg.Features.ModelSelector {
		label := util.TruncateWidth(m.w.Model(), maxModelLabel)
		if _, loading := m.w.AvailableModels(); loading {
			label += " (loading)"
		}
		right = append(right, t.ModelBadge.Render(label))
	}
	if cfg.Features.ThemeToggle {
		right = append(right, t.HeaderHint.Render("theme: "+string(m.themeName)))
	}

	l := lipgloss.JoinHorizontal(lipgloss.Top, left...)
	r := strings.Join(right, " ")
	gap := width - lipgloss.Width(l) - lipgloss.Width(r) - 2
	if gap < 1 {
		// Narrow terminal: drop the right-hand controls onto their own line.
		return t.Header.Width(width).Render(l + "\n" + r)
	}
	return t.Header.Width(width).Render(l + strings.Repeat(" ", gap) + r)
}

// =============================================================================
// BODY
// =============================================================================

func (m *Model) renderBody(width int) string {
	switch m.w.ActiveTab() {
	case widget.TabThoughts:
		return m.renderThoughts(width)
	case widget.TabFlow:
		return m.renderFlow(width)
	default:
		return m.renderChat(width)
	}
}

// -----------------------------------------------------------------------------
// Chat tab
// -----------------------------------------------------------------------------

func (m *Model) renderChat(width int) string {
	t := m.theme
	entries := m.snap.Entries
	if len(entries) == 0 && !m.snap.Loading {
		if m.w.Transport() == nil {
			return t.EmptyState.Render("No chat backend configured.")
		}
		return t.EmptyState.Render("Start a conversation by typing a message below.")
	}

	contentWidth := max(width-4, 10)
	var b strings.Builder
	for i, entry := range entries {
		if i > 0 {
			b.WriteString("\n\n")
		}
		switch e := entry.(type) {
		case model.Message:
			b.WriteString(m.renderMessage(e, contentWidth))
		case model.ErrorEntry:
			b.WriteString(m.renderErrorEntry(e, contentWidth))
		}
	}

	if m.snap.Loading && !m.streamingVisible() {
		if len(entries) > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(t.AssistantLabel.Render("Assistant") + "\n")
		b.WriteString(t.Spinner.Render(m.spinner.View() + " Thinking..."))
	}

	if m.hasFollowups() {
		b.WriteString("\n\n")
		b.WriteString(m.renderFollowups(contentWidth))
	}
	return b.String()
}

// streamingVisible reports whether the in-flight reply already shows content.
func (m *Model) streamingVisible() bool {
	if len(m.snap.Entries) == 0 {
		return false
	}
	last, ok := m.snap.Entries[len(m.snap.Entries)-1].(model.Message)
	return ok && last.Role == model.RoleAssistant && last.Content != ""
}

func (m *Model) renderMessage(msg model.Message, width int) string {
	t := m.theme
	switch msg.Role {
	case model.RoleUser:
		return t.UserLabel.Render("You") + "\n" +
			t.UserMessage.Width(width).Render(msg.Content)
	case model.RoleAssistant:
		body := m.markdown.Render(msg.Content, width-2, t.GlamourStyle())
		return t.AssistantLabel.Render("Assistant") + "\n" + t.AssistantMessage.Render(body)
	default:
		return t.Muted.Render(msg.Role.DisplayName()) + "\n" + t.Muted.Width(width).Render(msg.Content)
	}
}

func (m *Model) renderErrorEntry(e model.ErrorEntry, width int) string {
	t := m.theme
	code := e.Code
	if code == "" {
		code = model.CodeUnknown
	}
	return t.ErrorEntry.Width(width).Render(t.ErrorCode.Render(code) + " " + e.Message)
}

func (m *Model) renderFollowups(width int) string {
	t := m.theme
	lines := []string{t.Muted.Render("Suggested follow-ups (ctrl+f to pick, enter to send):")}
	for i, q := range m.followups() {
		label := fmt.Sprintf("%d. %s", i+1, util.TruncateWidth(q, max(width-4, 10)))
		if i == m.followup {
			lines = append(lines, "  "+t.FollowupSelected.Render(label))
		} else {
			lines = append(lines, "  "+t.Followup.Render(label))
		}
	}
	return strings.Join(lines, "\n")
}

// -----------------------------------------------------------------------------
// Thoughts tab
// -----------------------------------------------------------------------------

func (m *Model) renderThoughts(width int) string {
	t := m.theme
	th := projection.ThoughtsFrom(m.snap.ResponseContext)
	switch th.State {
	case projection.ThoughtsNoContext:
		return t.EmptyState.Render("No thoughts yet. Send a message to see how the assistant reasons.")
	case projection.ThoughtsEmpty:
		return t.EmptyState.Render("The last response carried no thoughts.") + "\n" +
			t.Debug.Render(th.Debug)
	}

	var b strings.Builder
	for i, item := range th.Items {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(t.SectionTitle.Render(fmt.Sprintf("%d. %s", i+1, item.Title)))
		for _, line := range item.Description {
			b.WriteString("\n" + t.Description.Width(max(width-2, 10)).Render(line))
		}
		if item.Details != "" {
			b.WriteString("\n" + t.Props.Render(highlight(item.Details, "json", m.theme.ChromaStyle())))
		}
	}
	return b.String()
}

// -----------------------------------------------------------------------------
// Flow tab
// -----------------------------------------------------------------------------

func (m *Model) renderFlow(width int) string {
	t := m.theme
	flow := projection.FlowFrom(m.snap.ResponseContext, m.diagrams, string(m.themeName))
	switch flow.State {
	case projection.FlowNoContext:
		return t.EmptyState.Render("No flow yet. Send a message to see how the response was produced.")
	case projection.FlowNoDiagram:
		return t.EmptyState.Render("The last response carried no flow diagram.") + "\n" +
			t.Debug.Render(flow.Debug)
	case projection.FlowRenderError:
		return t.ErrorEntry.Width(max(width-4, 10)).Render("Could not render diagram: "+flow.Err) + "\n\n" +
			t.Debug.Render(highlight(flow.Raw, "json", t.ChromaStyle()))
	}

	var b strings.Builder
	if flow.Description != "" {
		b.WriteString(t.SectionTitle.Render(flow.Description) + "\n")
	}
	b.WriteString(t.Diagram.Render(flow.Output))
	return b.String()
}

// =============================================================================
// INPUT AND STATUS
// =============================================================================

func (m *Model) renderInput() string {
	return m.input.View()
}

func (m *Model) renderStatus() string {
	t := m.theme
	width, _ := m.frameSize()

	left := m.statusMsg
	if m.snap.Loading {
		left = m.spinner.View() + " Streaming reply..."
	}
	bindings := m.help.ShortHelpView(m.keys.ShortHelp())
	if left == "" {
		return t.StatusBar.Width(width).Render(bindings)
	}
	return t.StatusBar.Width(width).Render(util.TruncateWidth(left, max(width/2, 10)) + "  " + bindings)
}
