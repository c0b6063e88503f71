// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session owns the conversation state of one widget instance and the
// streaming turn logic that changes it.
//
// # Key Types
//
//   - Store: the message store plus loading flag, session state and the
//     latest response context, published to subscribers as snapshots
//   - Controller: runs one turn at a time against an aichat.Transport
//   - WelcomeGuard: fires the greeting turn at most once
//   - AutoSaver: marks the transcript dirty and asks for periodic saves
//
// # Usage
//
//	store := session.NewStore(nil)
//	ctrl := session.NewController(store, transport, logger, session.Hooks{})
//	out := ctrl.Send(ctx, "What can you do?")
//	if out.Status == session.StatusFailed {
//	    // the error entry is already in the store
//	}
//
// # Concurrency
//
// Store methods are safe for concurrent use. Subscribers are notified outside
// the store lock and may read the store from the callback. Each snapshot carries
// a Version; a subscriber that receives an older version than it has seen can
// drop it.
package session
