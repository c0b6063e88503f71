// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling for the chat widget TUI.

Colors are declared as light/dark pairs (colors.go) and resolved by Theme
according to the widget's configured theme, so a host can force light or dark
regardless of the terminal background.

# Usage

	isDark := styles.DetectDark()
	theme := styles.NewTheme(isDark)
	fmt.Println(theme.UserMessage.Render("hello"))

Markdown and syntax highlighting follow the same choice through GlamourStyle
and ChromaStyle.
*/
package styles
