// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// =============================================================================
// STATIC CREDENTIAL TESTS
// =============================================================================

func TestStaticCredential(t *testing.T) {
	tok, err := NewStaticCredential("  secret ").GetToken(context.Background(), nil, GetTokenOptions{})
	require.NoError(t, err)
	require.NotNil(t, tok)
	assert.Equal(t, "secret", tok.Token)

	tok, err = NewStaticCredential("").GetToken(context.Background(), nil, GetTokenOptions{})
	require.NoError(t, err)
	assert.Nil(t, tok, "empty token means unauthenticated, not an error")
}

func TestAccessToken_ExpiresWithin(t *testing.T) {
	var nilTok *AccessToken
	assert.True(t, nilTok.ExpiresWithin(time.Minute))
	assert.False(t, (&AccessToken{Token: "x"}).ExpiresWithin(time.Hour), "no expiry means never expires")
	assert.True(t, (&AccessToken{Token: "x", ExpiresOn: time.Now().Add(30 * time.Second)}).ExpiresWithin(time.Minute))
	assert.False(t, (&AccessToken{Token: "x", ExpiresOn: time.Now().Add(5 * time.Minute)}).ExpiresWithin(time.Minute))
}

// =============================================================================
// KEYCLOAK CREDENTIAL TESTS
// =============================================================================

func newTokenServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *int32) {
	t.Helper()
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		assert.Equal(t, "/realms/ecosystemlab/protocol/openid-connect/token", r.URL.Path)
		assert.NoError(t, r.ParseForm())
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestNewKeycloakCredential_Validation(t *testing.T) {
	_, err := NewKeycloakCredential(KeycloakConfig{Realm: "r", ClientID: "c", RefreshToken: "x"})
	assert.ErrorIs(t, err, ErrMissingRealm)

	_, err = NewKeycloakCredential(KeycloakConfig{URL: "http://kc", Realm: "r", ClientID: "c"})
	assert.ErrorIs(t, err, ErrNoGrant)

	cred, err := NewKeycloakCredential(KeycloakConfig{URL: "http://kc:8080/", Realm: "r", ClientID: "c", ClientSecret: "s"})
	require.NoError(t, err)
	assert.Equal(t, "http://kc:8080/realms/r/protocol/openid-connect/token", cred.TokenURL())
}

func TestKeycloakCredential_RefreshAndCache(t *testing.T) {
	srv, hits := newTokenServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "refresh_token", r.Form.Get("grant_type"))
		assert.Equal(t, "initial-refresh", r.Form.Get("refresh_token"))
		assert.Equal(t, "ecosystemlab-client", r.Form.Get("client_id"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at-1","expires_in":300,"refresh_token":"rotated"}`))
	})

	cred, err := NewKeycloakCredential(KeycloakConfig{
		URL:          srv.URL,
		Realm:        "ecosystemlab",
		ClientID:     "ecosystemlab-client",
		RefreshToken: "initial-refresh",
		Logger:       zaptest.NewLogger(t),
	})
	require.NoError(t, err)

	tok, err := cred.GetToken(context.Background(), []string{"openid"}, GetTokenOptions{})
	require.NoError(t, err)
	require.NotNil(t, tok)
	assert.Equal(t, "at-1", tok.Token)
	assert.WithinDuration(t, time.Now().Add(300*time.Second), tok.ExpiresOn, 5*time.Second)

	// Second call is served from cache.
	tok, err = cred.GetToken(context.Background(), nil, GetTokenOptions{})
	require.NoError(t, err)
	assert.Equal(t, "at-1", tok.Token)
	assert.Equal(t, int32(1), atomic.LoadInt32(hits))
}

func TestKeycloakCredential_RefreshesNearExpiry(t *testing.T) {
	var n int32
	srv, hits := newTokenServer(t, func(w http.ResponseWriter, r *http.Request) {
		i := atomic.AddInt32(&n, 1)
		if i == 2 {
			assert.Equal(t, "rotated", r.Form.Get("refresh_token"))
		}
		w.Header().Set("Content-Type", "application/json")
		// 30s lifetime is inside the 60s validity window, so every call refreshes.
		_, _ = w.Write([]byte(`{"access_token":"at","expires_in":30,"refresh_token":"rotated"}`))
	})

	cred, err := NewKeycloakCredential(KeycloakConfig{
		URL:           srv.URL,
		Realm:         "ecosystemlab",
		ClientID:      "c",
		RefreshToken:  "initial",
		RetryInterval: time.Nanosecond,
	})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		tok, err := cred.GetToken(context.Background(), nil, GetTokenOptions{})
		require.NoError(t, err)
		require.NotNil(t, tok)
	}
	assert.Equal(t, int32(2), atomic.LoadInt32(hits))
}

func TestKeycloakCredential_ClientCredentialsGrant(t *testing.T) {
	srv, _ := newTokenServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "client_credentials", r.Form.Get("grant_type"))
		assert.Equal(t, "s3cret", r.Form.Get("client_secret"))
		_, _ = w.Write([]byte(`{"access_token":"svc","expires_in":600}`))
	})

	cred, err := NewKeycloakCredential(KeycloakConfig{URL: srv.URL, Realm: "ecosystemlab", ClientID: "c", ClientSecret: "s3cret"})
	require.NoError(t, err)

	tok, err := cred.GetToken(context.Background(), nil, GetTokenOptions{})
	require.NoError(t, err)
	require.NotNil(t, tok)
	assert.Equal(t, "svc", tok.Token)
}

func TestKeycloakCredential_FailureReturnsNoToken(t *testing.T) {
	srv, hits := newTokenServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"Session not active"}`))
	})

	cred, err := NewKeycloakCredential(KeycloakConfig{
		URL:           srv.URL,
		Realm:         "ecosystemlab",
		ClientID:      "c",
		RefreshToken:  "stale",
		RetryInterval: time.Hour,
		Logger:        zaptest.NewLogger(t),
	})
	require.NoError(t, err)

	tok, err := cred.GetToken(context.Background(), nil, GetTokenOptions{})
	assert.NoError(t, err, "refresh failure must not surface as an error")
	assert.Nil(t, tok)

	// Throttled: the identity provider is not asked again right away.
	tok, err = cred.GetToken(context.Background(), nil, GetTokenOptions{})
	assert.NoError(t, err)
	assert.Nil(t, tok)
	assert.Equal(t, int32(1), atomic.LoadInt32(hits))
}

func TestKeycloakCredential_CancelledContext(t *testing.T) {
	cred, err := NewKeycloakCredential(KeycloakConfig{URL: "http://127.0.0.1:1", Realm: "r", ClientID: "c", RefreshToken: "x"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = cred.GetToken(ctx, nil, GetTokenOptions{})
	assert.ErrorIs(t, err, context.Canceled)
}
