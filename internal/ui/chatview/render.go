// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chatview

import (
	"strings"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/chatwidget/internal/projection"
	"github.com/jeranaias/chatwidget/internal/widget"
)

// =============================================================================
// MARKDOWN
// =============================================================================

// markdownRenderer renders assistant replies with glamour. The glamour
// renderer is rebuilt when the width or theme changes, and finished replies
// are cached by content.
type markdownRenderer struct {
	style string
	width int
	term  *glamour.TermRenderer
	cache map[string]string
}

func newMarkdownRenderer() *markdownRenderer {
	return &markdownRenderer{cache: make(map[string]string)}
}

// Render returns text as styled terminal output. Rendering failures fall back
// to the plain text.
func (r *markdownRenderer) Render(text string, width int, style string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	if width < 20 {
		width = 20
	}
	if r.term == nil || r.width != width || r.style != style {
		term, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(style),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			return text
		}
		r.term, r.width, r.style = term, width, style
		clear(r.cache)
	}
	if out, ok := r.cache[text]; ok {
		return out
	}
	out, err := r.term.Render(text)
	if err != nil {
		return text
	}
	out = strings.Trim(out, "\n")
	r.cache[text] = out
	return out
}

// =============================================================================
// SYNTAX HIGHLIGHTING
// =============================================================================

// highlight colours src with chroma. Unknown lexers fall back to plain text
// and any failure returns src unchanged.
func highlight(src, lexer, style string) string {
	var buf strings.Builder
	if err := quick.Highlight(&buf, src, lexer, "terminal256", style); err != nil {
		return src
	}
	return strings.TrimRight(buf.String(), "\n")
}

// chromaStyleFor maps a resolved widget theme to a chroma style.
func chromaStyleFor(theme string) string {
	if theme == string(widget.ThemeDark) {
		return "monokai"
	}
	return "github"
}

// NewDiagramRenderer returns the flow tab renderer: mermaid source is
// validated, then shown highlighted under its diagram kind.
func NewDiagramRenderer() projection.Renderer {
	return projection.MermaidRenderer{Format: formatDiagram}
}

func formatDiagram(kind, source, theme string) (string, error) {
	body := highlight(strings.TrimSpace(source), "mermaid", chromaStyleFor(theme))
	return "[" + kind + "]\n" + body, nil
}
