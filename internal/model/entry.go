// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// CHAT ENTRY VARIANT
// =============================================================================

// EntryKind identifies which variant a ChatEntry holds.
type EntryKind int

const (
	KindMessage EntryKind = iota + 1
	KindError
)

// String returns the wire name of the kind.
func (k EntryKind) String() string {
	switch k {
	case KindMessage:
		return "message"
	case KindError:
		return "error"
	default:
		return "unknown"
	}
}

// ChatEntry is one element of the message store: either a Message or an
// ErrorEntry. The interface is sealed; no other type implements it.
type ChatEntry interface {
	Kind() EntryKind
	sealed()
}

// =============================================================================
// MESSAGE
// =============================================================================

// Message represents a single message in a conversation.
//
// A Message is a value. The in-flight assistant message is the only one that
// changes while a turn streams, and the store only ever receives copies of it.
type Message struct {
	ID        string           `json:"id,omitempty"`
	Role      Role             `json:"role"`
	Content   string           `json:"content"`
	Context   *ResponseContext `json:"context,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}

// Kind implements ChatEntry.
func (Message) Kind() EntryKind { return KindMessage }

func (Message) sealed() {}

// NewMessage creates a new message with a generated ID.
func NewMessage(role Role, content string) Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// NewUserMessage creates a new user message.
func NewUserMessage(content string) Message {
	return NewMessage(RoleUser, content)
}

// NewAssistantMessage creates an empty assistant message, ready to receive
// streamed content.
func NewAssistantMessage() Message {
	return NewMessage(RoleAssistant, "")
}

// Preview returns a truncated preview of the message content.
// Uses rune-based truncation to handle Unicode correctly.
func (m Message) Preview(maxLen int) string {
	runes := []rune(m.Content)
	if len(runes) <= maxLen {
		return m.Content
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

// =============================================================================
// ERROR ENTRY
// =============================================================================

// ErrorEntry is a display-only error shown in the conversation. It is never
// sent back to the transport and never mutated after creation.
type ErrorEntry struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Kind implements ChatEntry.
func (ErrorEntry) Kind() EntryKind { return KindError }

func (ErrorEntry) sealed() {}

// Error codes synthesized by the widget for failures that did not carry a
// structured chat error.
const (
	CodeUnknown        = "UNKNOWN_ERROR"
	CodeWelcomeMessage = "WELCOME_MESSAGE_ERROR"
)

// =============================================================================
// STRUCTURED CHAT ERROR
// =============================================================================

// ChatError is the structured {code, message} error a chat backend reports.
// The session controller recognizes it with errors.As and shows it verbatim.
type ChatError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *ChatError) Error() string {
	if e.Code == "" {
		return e.Message
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Entry converts the error to the entry shown in the conversation.
func (e *ChatError) Entry() ErrorEntry {
	return ErrorEntry{Code: e.Code, Message: e.Message}
}

// AsChatError reports whether err carries a structured chat error.
func AsChatError(err error) (*ChatError, bool) {
	var chatErr *ChatError
	if errors.As(err, &chatErr) && chatErr != nil {
		return chatErr, true
	}
	return nil, false
}

// =============================================================================
// ENTRY HELPERS
// =============================================================================

// MessagesOnly drops every ErrorEntry. Errors are display-only and are never
// resent to the transport.
func MessagesOnly(entries []ChatEntry) []Message {
	out := make([]Message, 0, len(entries))
	for _, entry := range entries {
		switch e := entry.(type) {
		case Message:
			out = append(out, e)
		case ErrorEntry:
			// skipped
		}
	}
	return out
}

// CloneEntries returns a shallow copy of the slice. Entries are values, so the
// copy can be handed to observers without exposing the original backing array.
func CloneEntries(entries []ChatEntry) []ChatEntry {
	if entries == nil {
		return nil
	}
	out := make([]ChatEntry, len(entries))
	copy(out, entries)
	return out
}

// LastMessage returns the most recent Message, skipping error entries.
func LastMessage(entries []ChatEntry) (Message, bool) {
	for i := len(entries) - 1; i >= 0; i-- {
		if msg, ok := entries[i].(Message); ok {
			return msg, true
		}
	}
	return Message{}, false
}
