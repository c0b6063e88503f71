// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage persists chat transcripts so a host can resume them.
//
// A transcript is the store's entry list (messages and error entries), the
// opaque session state and the request context that was in use. Each one is
// a JSON file written atomically with owner-only permissions.
//
// # Usage
//
//	store, err := storage.NewTranscriptStore(dir)
//	id, err := store.Save(storage.FromSnapshot(id, model, snap, rc))
//	latest, err := store.Latest()
//
// # Storage Location
//
// The CLI keeps transcripts in ~/.chatwidget/transcripts/ unless configured
// otherwise.
package storage
