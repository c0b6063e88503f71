// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	// DefaultMinValidity is how long a token must remain valid to be handed out
	// without a refresh.
	DefaultMinValidity = 60 * time.Second

	// DefaultRetryInterval is the minimum spacing between refresh attempts once
	// a token is due. It keeps a failing identity provider from being hammered by
	// every request.
	DefaultRetryInterval = 5 * time.Second

	// defaultTokenTimeout bounds a single token endpoint call.
	defaultTokenTimeout = 15 * time.Second

	// maxTokenResponseSize limits the token endpoint response body.
	maxTokenResponseSize = 1 << 20
)

// Errors returned by NewKeycloakCredential.
var (
	// ErrMissingRealm indicates the Keycloak URL, realm, or client ID is missing.
	ErrMissingRealm = errors.New("keycloak url, realm and client id are required")

	// ErrNoGrant indicates neither a refresh token nor a client secret was given.
	ErrNoGrant = errors.New("keycloak credential needs a refresh token or a client secret")
)

// TokenError is an OAuth error response from the token endpoint.
type TokenError struct {
	Status      int
	Code        string `json:"error"`
	Description string `json:"error_description"`
}

// Error implements the error interface.
func (e *TokenError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("token endpoint error %s (HTTP %d): %s", e.Code, e.Status, e.Description)
	}
	return fmt.Sprintf("token endpoint error %s (HTTP %d)", e.Code, e.Status)
}

// =============================================================================
// KEYCLOAK CREDENTIAL
// =============================================================================

// KeycloakConfig configures a KeycloakCredential.
type KeycloakConfig struct {
	URL          string // e.g. http://localhost:8080
	Realm        string
	ClientID     string
	ClientSecret string // confidential clients only
	RefreshToken string // from a prior login; enables the refresh_token grant

	// MinValidity refreshes tokens expiring within this window (default 60s).
	MinValidity time.Duration
	// RetryInterval spaces refresh attempts (default 5s).
	RetryInterval time.Duration

	HTTPClient *http.Client
	Logger     *zap.Logger
}

// KeycloakCredential hands out Keycloak access tokens, refreshing them when
// they are about to expire. A failed refresh is logged and reported as "no
// token" so the API call that needed it fails with the backend's own error.
type KeycloakCredential struct {
	tokenURL     string
	clientID     string
	clientSecret string
	minValidity  time.Duration
	httpClient   *http.Client
	logger       *zap.Logger
	limiter      *rate.Limiter

	mu           sync.Mutex
	current      *AccessToken
	refreshToken string
}

// NewKeycloakCredential validates cfg and creates the credential. No network
// call is made until the first GetToken.
func NewKeycloakCredential(cfg KeycloakConfig) (*KeycloakCredential, error) {
	if strings.TrimSpace(cfg.URL) == "" || strings.TrimSpace(cfg.Realm) == "" || strings.TrimSpace(cfg.ClientID) == "" {
		return nil, ErrMissingRealm
	}
	if cfg.RefreshToken == "" && cfg.ClientSecret == "" {
		return nil, ErrNoGrant
	}
	base, err := url.Parse(strings.TrimRight(cfg.URL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid keycloak url %q", cfg.URL)
	}

	if cfg.MinValidity <= 0 {
		cfg.MinValidity = DefaultMinValidity
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = DefaultRetryInterval
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: defaultTokenTimeout}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	tokenURL := base.JoinPath("realms", cfg.Realm, "protocol", "openid-connect", "token")

	return &KeycloakCredential{
		tokenURL:     tokenURL.String(),
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		minValidity:  cfg.MinValidity,
		httpClient:   cfg.HTTPClient,
		logger:       cfg.Logger.Named("keycloak"),
		limiter:      rate.NewLimiter(rate.Every(cfg.RetryInterval), 1),
		refreshToken: cfg.RefreshToken,
	}, nil
}

// TokenURL returns the realm's token endpoint.
func (c *KeycloakCredential) TokenURL() string {
	return c.tokenURL
}

// GetToken implements Credential. Scopes are ignored: Keycloak scopes are
// governed by the realm and client configuration.
func (c *KeycloakCredential) GetToken(ctx context.Context, _ []string, _ GetTokenOptions) (*AccessToken, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current != nil && !c.current.ExpiresWithin(c.minValidity) {
		tok := *c.current
		return &tok, nil
	}

	if !c.limiter.Allow() {
		c.logger.Debug("Token refresh throttled")
		return c.stillValidLocked(), nil
	}

	tok, err := c.refreshLocked(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		c.logger.Warn("Token refresh failed", zap.Error(err))
		return nil, nil
	}
	out := *tok
	return &out, nil
}

// stillValidLocked returns the current token if it has not expired yet.
func (c *KeycloakCredential) stillValidLocked() *AccessToken {
	if c.current == nil || c.current.ExpiresWithin(0) {
		return nil
	}
	tok := *c.current
	return &tok
}

type tokenResponse struct {
	AccessToken      string `json:"access_token"`
	ExpiresIn        int64  `json:"expires_in"`
	RefreshToken     string `json:"refresh_token"`
	RefreshExpiresIn int64  `json:"refresh_expires_in"`
	TokenType        string `json:"token_type"`
}

// refreshLocked exchanges the refresh token (or the client secret) for a new
// access token. Caller must hold c.mu.
func (c *KeycloakCredential) refreshLocked(ctx context.Context) (*AccessToken, error) {
	form := url.Values{}
	form.Set("client_id", c.clientID)
	if c.clientSecret != "" {
		form.Set("client_secret", c.clientSecret)
	}
	if c.refreshToken != "" {
		form.Set("grant_type", "refresh_token")
		form.Set("refresh_token", c.refreshToken)
	} else {
		form.Set("grant_type", "client_credentials")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTokenResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		tokenErr := &TokenError{Status: resp.StatusCode}
		if jsonErr := json.Unmarshal(body, tokenErr); jsonErr != nil || tokenErr.Code == "" {
			tokenErr.Code = http.StatusText(resp.StatusCode)
		}
		return nil, tokenErr
	}

	var parsed tokenResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}
	if parsed.AccessToken == "" {
		return nil, errors.New("token response without access_token")
	}

	tok := &AccessToken{Token: parsed.AccessToken}
	if parsed.ExpiresIn > 0 {
		tok.ExpiresOn = time.Now().Add(time.Duration(parsed.ExpiresIn) * time.Second)
	}
	c.current = tok
	if parsed.RefreshToken != "" {
		c.refreshToken = parsed.RefreshToken
	}

	c.logger.Debug("Token refreshed",
		zap.Time("expires_on", tok.ExpiresOn),
		zap.Bool("rotated_refresh_token", parsed.RefreshToken != ""))
	return tok, nil
}
