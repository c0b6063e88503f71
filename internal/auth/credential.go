// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"context"
	"strings"
	"time"
)

// AccessToken is a bearer token and the moment it stops being valid.
type AccessToken struct {
	Token     string
	ExpiresOn time.Time
}

// ExpiresWithin reports whether the token expires within d from now.
func (t *AccessToken) ExpiresWithin(d time.Duration) bool {
	if t == nil || t.Token == "" {
		return true
	}
	if t.ExpiresOn.IsZero() {
		return false
	}
	return time.Until(t.ExpiresOn) <= d
}

// GetTokenOptions carries per-call options. It exists so providers can grow
// options without breaking the interface.
type GetTokenOptions struct {
	// Claims requests additional claims from the provider, if supported.
	Claims string
}

// Credential provides access tokens.
//
// GetToken returns (nil, nil) when no token is currently available. Errors are
// reserved for misconfiguration and cancelled contexts.
type Credential interface {
	GetToken(ctx context.Context, scopes []string, opts GetTokenOptions) (*AccessToken, error)
}

// StaticCredential always returns the same token. An empty token yields
// (nil, nil).
type StaticCredential struct {
	token string
}

// NewStaticCredential creates a credential for a fixed token.
func NewStaticCredential(token string) *StaticCredential {
	return &StaticCredential{token: strings.TrimSpace(token)}
}

// GetToken implements Credential.
func (c *StaticCredential) GetToken(ctx context.Context, _ []string, _ GetTokenOptions) (*AccessToken, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.token == "" {
		return nil, nil
	}
	return &AccessToken{Token: c.token}, nil
}
