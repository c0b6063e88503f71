// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package widget

import (
	"fmt"
	"strings"
)

// =============================================================================
// TABS AND THEMES
// =============================================================================

// Tab identifies a content tab.
type Tab string

const (
	TabChat     Tab = "chat"
	TabThoughts Tab = "thoughts"
	TabFlow     Tab = "flow"
)

// AllTabs lists the tabs in display order.
var AllTabs = []Tab{TabChat, TabThoughts, TabFlow}

// IsValid reports whether t is a known tab.
func (t Tab) IsValid() bool {
	switch t {
	case TabChat, TabThoughts, TabFlow:
		return true
	}
	return false
}

// Title returns the tab label.
func (t Tab) Title() string {
	switch t {
	case TabChat:
		return "Chat"
	case TabThoughts:
		return "Thoughts"
	case TabFlow:
		return "Flow"
	default:
		return string(t)
	}
}

// Theme is the colour scheme.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
	// ThemeAuto follows the terminal background.
	ThemeAuto Theme = "auto"
)

// IsValid reports whether t is a known theme.
func (t Theme) IsValid() bool {
	switch t {
	case ThemeLight, ThemeDark, ThemeAuto:
		return true
	}
	return false
}

// Resolve turns ThemeAuto into light or dark using isDark. Other themes are
// returned unchanged.
func (t Theme) Resolve(isDark func() bool) Theme {
	if t != ThemeAuto {
		return t
	}
	if isDark != nil && isDark() {
		return ThemeDark
	}
	return ThemeLight
}

// Opposite returns the other resolved theme.
func (t Theme) Opposite() Theme {
	if t == ThemeDark {
		return ThemeLight
	}
	return ThemeDark
}

// =============================================================================
// CONFIG
// =============================================================================

// DefaultModel is selected when nothing else is configured.
const DefaultModel = "gpt-4o"

// DefaultAvailableModels is offered when the transport cannot list models.
var DefaultAvailableModels = []string{"gpt-4o", "gpt-4o-mini", "gpt-4-turbo"}

// Features switches widget surfaces on and off.
type Features struct {
	ModelSelector  bool
	ThemeToggle    bool
	Tabs           []Tab
	ContextPane    bool
	WelcomeMessage bool
}

// Styling controls appearance. Zero Height or Width means "fill the terminal".
type Styling struct {
	Theme  Theme
	Height int
	Width  int
}

// Defaults are the initial model choices.
type Defaults struct {
	Model           string
	AvailableModels []string
}

// Config is the complete widget configuration.
type Config struct {
	Features Features
	Styling  Styling
	Defaults Defaults
}

// DefaultConfig returns the documented defaults: every feature on, all tabs,
// automatic theme.
func DefaultConfig() Config {
	return Config{
		Features: Features{
			ModelSelector:  true,
			ThemeToggle:    true,
			Tabs:           append([]Tab(nil), AllTabs...),
			ContextPane:    true,
			WelcomeMessage: true,
		},
		Styling: Styling{Theme: ThemeAuto},
		Defaults: Defaults{
			Model:           DefaultModel,
			AvailableModels: append([]string(nil), DefaultAvailableModels...),
		},
	}
}

// Normalize fills unset fields with defaults and drops unknown or repeated
// tabs, keeping the configured order.
func (c Config) Normalize() Config {
	out := c
	if out.Styling.Theme == "" {
		out.Styling.Theme = ThemeAuto
	}
	if strings.TrimSpace(out.Defaults.Model) == "" {
		out.Defaults.Model = DefaultModel
	}
	if len(out.Defaults.AvailableModels) == 0 {
		out.Defaults.AvailableModels = append([]string(nil), DefaultAvailableModels...)
	} else {
		out.Defaults.AvailableModels = append([]string(nil), c.Defaults.AvailableModels...)
	}

	if c.Features.Tabs == nil {
		out.Features.Tabs = append([]Tab(nil), AllTabs...)
	} else {
		seen := make(map[Tab]bool, len(c.Features.Tabs))
		tabs := make([]Tab, 0, len(c.Features.Tabs))
		for _, t := range c.Features.Tabs {
			if t.IsValid() && !seen[t] {
				seen[t] = true
				tabs = append(tabs, t)
			}
		}
		out.Features.Tabs = tabs
	}
	return out
}

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid widget config %s: %s", e.Field, e.Message)
}

// Validate checks values Normalize cannot repair.
func (c Config) Validate() error {
	if c.Styling.Theme != "" && !c.Styling.Theme.IsValid() {
		return &ValidationError{Field: "styling.theme", Message: fmt.Sprintf("must be light, dark or auto, got %q", c.Styling.Theme)}
	}
	if c.Styling.Height < 0 {
		return &ValidationError{Field: "styling.height", Message: "must not be negative"}
	}
	if c.Styling.Width < 0 {
		return &ValidationError{Field: "styling.width", Message: "must not be negative"}
	}
	for _, t := range c.Features.Tabs {
		if !t.IsValid() {
			return &ValidationError{Field: "features.tabs", Message: fmt.Sprintf("unknown tab %q", t)}
		}
	}
	return nil
}

// HasTab reports whether t is enabled.
func (c Config) HasTab(t Tab) bool {
	for _, enabled := range c.Features.Tabs {
		if enabled == t {
			return true
		}
	}
	return false
}
