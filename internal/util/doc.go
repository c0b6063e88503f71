// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared by the chat widget packages.
//
// # Key Functions
//
// File Operations:
//   - AtomicWriteFile: crash-safe file writing with fsync, used for config
//     files and saved transcripts
//   - AtomicWriteJSON: indented JSON through AtomicWriteFile
//
// Display Width:
//   - TruncateWidth: cell-width truncation with an ellipsis for the header,
//     tab bar and transcript listings
//   - StringWidth, PadRight: cell-width measurement and padding
//
// # Usage
//
//	label := util.TruncateWidth(modelName, 24)
//	err := util.AtomicWriteFile(path, data, 0600)
package util
