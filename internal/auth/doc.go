// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package auth provides access tokens for the chat backend.
//
// A Credential hands out bearer tokens on demand. Returning a nil token with a
// nil error means "no token right now": the caller proceeds unauthenticated and
// lets the backend reject the request. Expected expiry never produces an error.
//
// # Key Types
//
//   - Credential: The token provider contract
//   - StaticCredential: A fixed token, typically from the environment
//   - KeycloakCredential: OpenID Connect tokens refreshed against a Keycloak realm
//
// Interactive login is not handled here; the Keycloak credential starts from a
// refresh token or a confidential client secret obtained elsewhere.
package auth
