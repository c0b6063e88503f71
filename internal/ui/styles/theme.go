// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds the styled components of the widget for one colour scheme.
type Theme struct {
	IsDark       bool
	ColorProfile termenv.Profile

	// Layout dimensions
	Width  int
	Height int

	// ==========================================================================
	// CONTAINER AND HEADER
	// ==========================================================================

	App         lipgloss.Style
	Header      lipgloss.Style
	HeaderTitle lipgloss.Style
	Tab         lipgloss.Style
	TabActive   lipgloss.Style
	ModelBadge  lipgloss.Style
	HeaderHint  lipgloss.Style

	// ==========================================================================
	// CONVERSATION
	// ==========================================================================

	UserLabel        lipgloss.Style
	UserMessage      lipgloss.Style
	AssistantLabel   lipgloss.Style
	AssistantMessage lipgloss.Style
	ErrorEntry       lipgloss.Style
	ErrorCode        lipgloss.Style
	Followup         lipgloss.Style
	FollowupSelected lipgloss.Style
	EmptyState       lipgloss.Style

	// ==========================================================================
	// THOUGHTS AND FLOW
	// ==========================================================================

	SectionTitle lipgloss.Style
	Description  lipgloss.Style
	Props        lipgloss.Style
	Diagram      lipgloss.Style
	Debug        lipgloss.Style

	// ==========================================================================
	// CONTEXT PANE AND INPUT
	// ==========================================================================

	Pane         lipgloss.Style
	PaneTitle    lipgloss.Style
	PaneKey      lipgloss.Style
	PaneFocused  lipgloss.Style
	Input        lipgloss.Style
	InputFocused lipgloss.Style
	Spinner      lipgloss.Style
	StatusBar    lipgloss.Style
	Muted        lipgloss.Style
}

// DetectDark reports whether the terminal has a dark background.
func DetectDark() bool {
	return termenv.HasDarkBackground()
}

// NewTheme creates a theme for the light or dark scheme.
func NewTheme(dark bool) *Theme {
	t := &Theme{
		IsDark:       dark,
		ColorProfile: termenv.ColorProfile(),
	}
	t.initStyles()
	return t
}

// GlamourStyle names the glamour standard style matching the theme.
func (t *Theme) GlamourStyle() string {
	if t.IsDark {
		return "dark"
	}
	return "light"
}

// ChromaStyle names the chroma style used for JSON props and diagram source.
func (t *Theme) ChromaStyle() string {
	if t.IsDark {
		return "monokai"
	}
	return "github"
}

// initStyles initializes all the lip gloss styles.
func (t *Theme) initStyles() {
	c := func(ac lipgloss.AdaptiveColor) lipgloss.Color { return Pick(ac, t.IsDark) }

	t.App = lipgloss.NewStyle().
		Foreground(c(TextPrimary))

	// Header
	t.Header = lipgloss.NewStyle().
		Background(c(SurfaceDim)).
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(c(Overlay)).
		Padding(0, 1)

	t.HeaderTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(c(Cyan))

	t.Tab = lipgloss.NewStyle().
		Foreground(c(TextSecondary)).
		Padding(0, 1)

	t.TabActive = lipgloss.NewStyle().
		Bold(true).
		Underline(true).
		Foreground(c(Purple)).
		Padding(0, 1)

	t.ModelBadge = lipgloss.NewStyle().
		Foreground(c(TextInverse)).
		Background(c(Purple)).
		Padding(0, 1)

	t.HeaderHint = lipgloss.NewStyle().
		Foreground(c(TextMuted))

	// Conversation
	t.UserLabel = lipgloss.NewStyle().
		Bold(true).
		Foreground(c(Cyan))

	t.UserMessage = lipgloss.NewStyle().
		Foreground(c(UserBubbleFg)).
		BorderStyle(lipgloss.NormalBorder()).
		BorderLeft(true).
		BorderForeground(c(UserBubbleBorder)).
		PaddingLeft(1)

	t.AssistantLabel = lipgloss.NewStyle().
		Bold(true).
		Foreground(c(Purple))

	t.AssistantMessage = lipgloss.NewStyle().
		Foreground(c(AssistantBubbleFg)).
		BorderStyle(lipgloss.NormalBorder()).
		BorderLeft(true).
		BorderForeground(c(AssistantBubbleBorder))

	t.ErrorEntry = lipgloss.NewStyle().
		Foreground(c(ErrorFg)).
		Background(c(ErrorBg)).
		BorderStyle(lipgloss.NormalBorder()).
		BorderLeft(true).
		BorderForeground(c(Rose)).
		PaddingLeft(1)

	t.ErrorCode = lipgloss.NewStyle().
		Bold(true).
		Foreground(c(Rose))

	t.Followup = lipgloss.NewStyle().
		Foreground(c(Emerald))

	t.FollowupSelected = lipgloss.NewStyle().
		Bold(true).
		Foreground(c(TextInverse)).
		Background(c(Emerald))

	t.EmptyState = lipgloss.NewStyle().
		Foreground(c(TextMuted)).
		Italic(true).
		Padding(1, 2)

	// Thoughts and flow
	t.SectionTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(c(Purple))

	t.Description = lipgloss.NewStyle().
		Foreground(c(TextPrimary)).
		PaddingLeft(2)

	t.Props = lipgloss.NewStyle().
		PaddingLeft(2)

	t.Diagram = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(c(Overlay)).
		Padding(0, 1)

	t.Debug = lipgloss.NewStyle().
		Foreground(c(TextMuted))

	// Context pane and input
	t.Pane = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(c(Overlay)).
		Padding(0, 1)

	t.PaneTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(c(Cyan))

	t.PaneKey = lipgloss.NewStyle().
		Foreground(c(TextSecondary))

	t.PaneFocused = lipgloss.NewStyle().
		Foreground(c(Purple)).
		Bold(true)

	t.Input = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderTop(true).
		BorderForeground(c(Overlay))

	t.InputFocused = t.Input.
		BorderForeground(c(Cyan))

	t.Spinner = lipgloss.NewStyle().
		Foreground(c(Amber))

	t.StatusBar = lipgloss.NewStyle().
		Foreground(c(TextSecondary)).
		Padding(0, 1)

	t.Muted = lipgloss.NewStyle().
		Foreground(c(TextMuted))
}

// SetSize updates the theme dimensions for responsive layouts.
func (t *Theme) SetSize(width, height int) {
	t.Width = width
	t.Height = height
}

// GetLayoutMode returns the current layout mode based on width.
func (t *Theme) GetLayoutMode() LayoutMode {
	if t.Width < 60 {
		return LayoutNarrow
	}
	if t.Width < 100 {
		return LayoutMedium
	}
	return LayoutWide
}

// LayoutMode represents the current responsive layout mode.
type LayoutMode int

const (
	LayoutNarrow LayoutMode = iota // < 60 columns
	LayoutMedium                   // 60-100 columns
	LayoutWide                     // > 100 columns
)
