// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"bytes"
	"encoding/json"
)

// SessionState is the opaque continuation value owned by the backend. The
// widget stores the latest value and sends it back unmodified.
type SessionState = json.RawMessage

// Delta is the incremental part of a streamed completion event.
type Delta struct {
	Role    Role   `json:"role,omitempty"`
	Content string `json:"content,omitempty"`
}

// DeltaEvent is one unit read from a completion stream.
//
// An event without a Delta is a heartbeat: only its session state (if any) is
// honoured.
type DeltaEvent struct {
	Delta        *Delta           `json:"delta,omitempty"`
	SessionState SessionState     `json:"session_state,omitempty"`
	Context      *ResponseContext `json:"context,omitempty"`
}

// HasSessionState reports whether the event carries a usable session state.
// JSON null counts as absent.
func (e DeltaEvent) HasSessionState() bool {
	return HasValue(e.SessionState)
}

// HasValue reports whether raw holds a JSON value other than null.
func HasValue(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}
