// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package projection derives the read-only views shown on the thoughts and
// flow tabs from the latest response context.
//
// Each view distinguishes three situations: no context has arrived yet, a
// context arrived without the relevant data, and a context with data. The flow
// view adds a fourth: the diagram failed to render. Render failures (including
// renderer panics) are contained in the view and never reach the caller.
package projection
