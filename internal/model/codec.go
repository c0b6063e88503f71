// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"encoding/json"
	"fmt"
)

// EntryList is a slice of chat entries that round-trips through JSON. Each
// entry is wrapped in an envelope naming its variant.
type EntryList []ChatEntry

type entryEnvelope struct {
	Type    string      `json:"type"`
	Message *Message    `json:"message,omitempty"`
	Error   *ErrorEntry `json:"error,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (l EntryList) MarshalJSON() ([]byte, error) {
	envelopes := make([]entryEnvelope, 0, len(l))
	for i, entry := range l {
		switch e := entry.(type) {
		case Message:
			msg := e
			envelopes = append(envelopes, entryEnvelope{Type: KindMessage.String(), Message: &msg})
		case ErrorEntry:
			errEntry := e
			envelopes = append(envelopes, entryEnvelope{Type: KindError.String(), Error: &errEntry})
		default:
			return nil, fmt.Errorf("entry %d: unsupported chat entry %T", i, entry)
		}
	}
	return json.Marshal(envelopes)
}

// UnmarshalJSON implements json.Unmarshaler.
func (l *EntryList) UnmarshalJSON(data []byte) error {
	var envelopes []entryEnvelope
	if err := json.Unmarshal(data, &envelopes); err != nil {
		return err
	}
	out := make(EntryList, 0, len(envelopes))
	for i, env := range envelopes {
		switch env.Type {
		case "message":
			if env.Message == nil {
				return fmt.Errorf("entry %d: message envelope without message", i)
			}
			out = append(out, *env.Message)
		case "error":
			if env.Error == nil {
				return fmt.Errorf("entry %d: error envelope without error", i)
			}
			out = append(out, *env.Error)
		default:
			return fmt.Errorf("entry %d: unknown entry type %q", i, env.Type)
		}
	}
	*l = out
	return nil
}
