// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures shared by the chat widget.
//
// This package defines the domain types exchanged between the transport, the
// session controller, and the display surfaces.
//
// # Key Types
//
//   - ChatEntry: Sealed variant holding either a Message or an ErrorEntry
//   - Message: A user, assistant, or system message with optional response context
//   - ErrorEntry: A display-only error shown in the conversation
//   - DeltaEvent: One unit of a streamed completion
//   - RequestContext: User-editable overrides merged into every request
//   - ResponseContext: Side-channel data (thoughts, flow diagram, follow-ups)
//
// # Usage
//
// Consumers match entries exhaustively with a type switch:
//
//	switch e := entry.(type) {
//	case model.Message:
//	    render(e.Role, e.Content)
//	case model.ErrorEntry:
//	    renderError(e.Code, e.Message)
//	}
package model
