// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package projection

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/jeranaias/chatwidget/internal/model"
)

// ThoughtsState is the display state of the thoughts tab.
type ThoughtsState int

const (
	// ThoughtsNoContext means no response context has been received.
	ThoughtsNoContext ThoughtsState = iota
	// ThoughtsEmpty means a context arrived without thoughts.
	ThoughtsEmpty
	// ThoughtsReady means there is at least one thought to show.
	ThoughtsReady
)

// ThoughtView is one thought card.
type ThoughtView struct {
	Title       string
	Description []string
	// Details is the pretty-printed props, empty when the thought has none.
	Details string
}

// Thoughts is the projection behind the thoughts tab.
type Thoughts struct {
	State ThoughtsState
	Items []ThoughtView
	// Debug is the pretty-printed context when the tab has nothing to show.
	Debug string
}

// ThoughtsFrom projects rc.
func ThoughtsFrom(rc *model.ResponseContext) Thoughts {
	if rc == nil {
		return Thoughts{State: ThoughtsNoContext}
	}
	if len(rc.Thoughts) == 0 {
		return Thoughts{State: ThoughtsEmpty, Debug: debugDump(rc)}
	}

	items := make([]ThoughtView, 0, len(rc.Thoughts))
	for _, th := range rc.Thoughts {
		items = append(items, ThoughtView{
			Title:       th.Title,
			Description: append([]string(nil), th.Description...),
			Details:     FormatProps(th.Props),
		})
	}
	return Thoughts{State: ThoughtsReady, Items: items}
}

// FormatProps pretty-prints thought props. A JSON string that itself holds
// JSON is decoded first and its escaped newlines are flattened to spaces.
// Props that are absent or null format to "".
func FormatProps(raw json.RawMessage) string {
	if !model.HasValue(raw) {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		var inner any
		if err := json.Unmarshal([]byte(s), &inner); err == nil {
			if out, err := json.MarshalIndent(inner, "", "  "); err == nil {
				return strings.ReplaceAll(string(out), `\n`, " ")
			}
		}
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return string(raw)
	}
	return buf.String()
}
