// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the chatwidget command line.
//
// Running chatwidget with no subcommand opens the interactive widget. The
// subcommands cover line-mode use and housekeeping:
//
//   - chat: line-mode REPL with input history
//   - ask: one question, one non-streamed answer
//   - models: list the backend's models
//   - config: show, init, path, get and set
//   - sessions: list, show, export and delete saved transcripts
//   - version: build information
//
// List-style commands accept --json and print a JSONResponse envelope.
package cli
