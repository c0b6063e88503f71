// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package aichat is the completion transport used by the chat widget.
//
// It defines the Transport contract the session controller depends on and an
// HTTP implementation of the AI Chat Protocol:
//
//	POST {base}/chat          one-shot completion
//	POST {base}/chat/stream   NDJSON stream of deltas
//	GET  {base}/models        JSON array of model names
//
// Requests carry a bearer token obtained from an auth.Credential. A credential
// that yields no token produces an unauthenticated request, and the backend's
// own error is surfaced to the caller.
package aichat
