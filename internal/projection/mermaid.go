// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package projection

import (
	"errors"
	"fmt"
	"strings"
)

// diagramKinds are the diagram headers the terminal renderer accepts.
var diagramKinds = map[string]bool{
	"graph":              true,
	"flowchart":          true,
	"sequenceDiagram":    true,
	"classDiagram":       true,
	"stateDiagram":       true,
	"stateDiagram-v2":    true,
	"erDiagram":          true,
	"journey":            true,
	"gantt":              true,
	"pie":                true,
	"quadrantChart":      true,
	"requirementDiagram": true,
	"gitGraph":           true,
	"mindmap":            true,
	"timeline":           true,
	"sankey-beta":        true,
	"xychart-beta":       true,
	"block-beta":         true,
}

var flowDirections = map[string]bool{
	"TB": true, "TD": true, "BT": true, "RL": true, "LR": true,
}

// ErrEmptyDiagram is returned for source without any diagram statement.
var ErrEmptyDiagram = errors.New("diagram source is empty")

// SyntaxError reports a problem in mermaid source.
type SyntaxError struct {
	Line int
	Msg  string
}

// Error implements the error interface.
func (e *SyntaxError) Error() string {
	return fmt.Sprintf("Parse error on line %d: %s", e.Line, e.Msg)
}

// DetectDiagram returns the diagram kind declared by source. Leading blank
// lines, %% comments and a --- front matter block are skipped.
func DetectDiagram(source string) (string, error) {
	lines := strings.Split(strings.ReplaceAll(source, "\r\n", "\n"), "\n")
	inFrontMatter := false
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "---":
			inFrontMatter = !inFrontMatter
			continue
		case inFrontMatter, trimmed == "", strings.HasPrefix(trimmed, "%%"):
			continue
		}

		fields := strings.Fields(strings.ReplaceAll(trimmed, ";", " "))
		kind := fields[0]
		if !diagramKinds[kind] {
			return "", &SyntaxError{Line: i + 1, Msg: fmt.Sprintf("unknown diagram type %q", kind)}
		}
		if (kind == "graph" || kind == "flowchart") && len(fields) > 1 && !flowDirections[fields[1]] {
			if !strings.Contains(fields[1], "-") {
				return "", &SyntaxError{Line: i + 1, Msg: fmt.Sprintf("invalid direction %q", fields[1])}
			}
		}
		if kind == "graph" || kind == "flowchart" {
			if err := checkBrackets(lines[i+1:], i+2); err != nil {
				return "", err
			}
		}
		return kind, nil
	}
	return "", ErrEmptyDiagram
}

// checkBrackets verifies that node shapes open and close on each line. A
// closer with nothing open is allowed for the asymmetric shape (A>text]).
func checkBrackets(lines []string, first int) error {
	pairs := map[rune]rune{')': '(', ']': '[', '}': '{'}
	for n, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "%%") {
			continue
		}
		var stack []rune
		inQuote := false
		for _, r := range line {
			switch {
			case r == '"':
				inQuote = !inQuote
			case inQuote:
			case r == '(' || r == '[' || r == '{':
				stack = append(stack, r)
			case r == ')' || r == ']' || r == '}':
				if len(stack) == 0 {
					continue
				}
				if stack[len(stack)-1] != pairs[r] {
					return &SyntaxError{Line: first + n, Msg: fmt.Sprintf("unexpected %q", r)}
				}
				stack = stack[:len(stack)-1]
			}
		}
		if len(stack) > 0 {
			return &SyntaxError{Line: first + n, Msg: fmt.Sprintf("unclosed %q", stack[len(stack)-1])}
		}
	}
	return nil
}

// FormatFunc draws validated diagram source for a terminal.
type FormatFunc func(kind, source, theme string) (string, error)

// MermaidRenderer validates mermaid source and hands it to Format.
type MermaidRenderer struct {
	Format FormatFunc
}

// Render implements Renderer.
func (m MermaidRenderer) Render(source, theme string) (string, error) {
	kind, err := DetectDiagram(source)
	if err != nil {
		return "", err
	}
	if m.Format == nil {
		return plainFormat(kind, source, theme)
	}
	return m.Format(kind, source, theme)
}

func plainFormat(kind, source, _ string) (string, error) {
	return "[" + kind + "]\n" + strings.TrimSpace(source), nil
}

// DefaultRenderer validates mermaid source and shows it as plain text.
var DefaultRenderer Renderer = MermaidRenderer{}
