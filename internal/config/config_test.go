// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/jeranaias/chatwidget/internal/auth"
	"github.com/jeranaias/chatwidget/internal/widget"
)

var envKeys = []string{
	"CHATWIDGET_BASE_URL", "CHATWIDGET_TOKEN", "CHATWIDGET_MODEL", "CHATWIDGET_THEME", "CHATWIDGET_DEBUG",
	"KEYCLOAK_URL", "KEYCLOAK_REALM", "KEYCLOAK_CLIENT_ID", "KEYCLOAK_CLIENT_SECRET", "KEYCLOAK_REFRESH_TOKEN",
}

// isolate points ConfigDir at a temp dir and clears the override variables.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv(HomeEnv, dir)
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
	return dir
}

// =============================================================================
// DEFAULTS / LOAD TESTS
// =============================================================================

func TestDefault_MatchesWidgetDefaults(t *testing.T) {
	cfg := Default()
	wc := cfg.WidgetConfig().Normalize()

	assert.Equal(t, widget.DefaultConfig(), wc)
	require.NoError(t, cfg.Validate())
}

func TestLoad_NoFileUsesDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default().Backend.BaseURL, cfg.Backend.BaseURL)
	assert.Equal(t, "auto", cfg.Widget.Theme)
}

func TestLoad_TOMLKeepsDefaultsForMissingKeys(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[backend]
base_url = "https://chat.example.com/api"

[widget]
theme = "dark"
tabs = ["chat", "flow"]
context_pane = false
`), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://chat.example.com/api", cfg.Backend.BaseURL)
	assert.Equal(t, 120, cfg.Backend.TimeoutSecs)
	assert.Equal(t, "dark", cfg.Widget.Theme)
	assert.Equal(t, "gpt-4o", cfg.Widget.Model)
	assert.True(t, cfg.Widget.ModelSelector)
	assert.False(t, cfg.Widget.ContextPane)

	wc := cfg.WidgetConfig().Normalize()
	assert.Equal(t, []widget.Tab{widget.TabChat, widget.TabFlow}, wc.Features.Tabs)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm(), "loading narrows permissions")
}

func TestLoad_JSONFallback(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"),
		[]byte(`{"widget":{"model":"gpt-4o-mini"}}`), 0600))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", cfg.Widget.Model)
}

func TestLoad_InvalidFile(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(`[widget]
theme = "sepia"
`), 0600))

	_, err := Load()
	require.Error(t, err)

	var verrs ValidateErrors
	require.True(t, errors.As(err, &verrs))
	assert.Equal(t, "widget.theme", verrs[0].Field)
}

func TestApplyEnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("CHATWIDGET_BASE_URL", "http://override:9000")
	t.Setenv("CHATWIDGET_MODEL", "gpt-4-turbo")
	t.Setenv("CHATWIDGET_THEME", "LIGHT")
	t.Setenv("CHATWIDGET_DEBUG", "true")
	t.Setenv("KEYCLOAK_URL", "http://kc:8080")
	t.Setenv("KEYCLOAK_REALM", "ecosystemlab")
	t.Setenv("KEYCLOAK_CLIENT_ID", "widget")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://override:9000", cfg.Backend.BaseURL)
	assert.Equal(t, "gpt-4-turbo", cfg.Widget.Model)
	assert.Equal(t, "light", cfg.Widget.Theme)
	assert.True(t, cfg.Logging.Debug)
	assert.True(t, cfg.HasKeycloak())
}

func TestLoadDotEnv(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("CHATWIDGET_TOKEN=from-dotenv\n"), 0600))
	require.NoError(t, os.Unsetenv("CHATWIDGET_TOKEN"))

	require.NoError(t, LoadDotEnv())
	t.Cleanup(func() { os.Unsetenv("CHATWIDGET_TOKEN") })

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.Backend.Token)
}

// =============================================================================
// VALIDATION TESTS
// =============================================================================

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		mod   func(*Config)
		field string
	}{
		{"bad scheme", func(c *Config) { c.Backend.BaseURL = "ftp://x" }, "backend.base_url"},
		{"no host", func(c *Config) { c.Backend.BaseURL = "not a url" }, "backend.base_url"},
		{"keycloak without realm", func(c *Config) { c.Keycloak.URL = "http://kc" }, "keycloak"},
		{"negative width", func(c *Config) { c.Widget.Width = -1 }, "widget.width"},
		{"unknown tab", func(c *Config) { c.Widget.Tabs = []string{"chat", "graphs"} }, "widget.tabs"},
		{"negative autosave", func(c *Config) { c.Storage.AutoSaveSecs = -5 }, "storage.autosave_secs"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mod(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			var verrs ValidateErrors
			require.True(t, errors.As(err, &verrs))
			assert.Equal(t, tc.field, verrs[0].Field)
		})
	}
}

// =============================================================================
// SAVE / GET / SET TESTS
// =============================================================================

func TestSaveTOML_RoundTrip(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "nested", "config.toml")

	cfg := Default()
	cfg.Backend.Token = "secret"
	cfg.Widget.Tabs = []string{"thoughts"}
	require.NoError(t, SaveTOML(cfg, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, "secret", loaded.Backend.Token)
	assert.Equal(t, []string{"thoughts"}, loaded.Widget.Tabs)
}

func TestGetSet(t *testing.T) {
	cfg := Default()

	require.NoError(t, cfg.Set("widget.theme", "dark"))
	require.NoError(t, cfg.Set("backend.timeout_secs", "30"))
	require.NoError(t, cfg.Set("widget.available_models", "a, b,,c"))
	require.NoError(t, cfg.Set("storage.enabled", "no"))
	require.NoError(t, cfg.Set("keycloak.client_id", "widget"))

	v, err := cfg.Get("widget.theme")
	require.NoError(t, err)
	assert.Equal(t, "dark", v)
	assert.Equal(t, 30*time.Second, cfg.Timeout())
	assert.Equal(t, []string{"a", "b", "c"}, cfg.Widget.AvailableModels)
	assert.False(t, cfg.Storage.Enabled)
	assert.Equal(t, "widget", cfg.Keycloak.ClientID)

	_, err = cfg.Get("widget.nope")
	assert.Error(t, err)
	assert.Error(t, cfg.Set("backend.base_url.x", "y"))
}

func TestGetAllKeys_Resolve(t *testing.T) {
	cfg := Default()
	for _, key := range GetAllKeys() {
		_, err := cfg.Get(key)
		assert.NoError(t, err, key)
	}
}

func TestString_RedactsSecrets(t *testing.T) {
	cfg := Default()
	cfg.Backend.Token = "tok-123"
	cfg.Keycloak.ClientSecret = "shh"
	cfg.Keycloak.RefreshToken = "rt"

	out := cfg.String()
	assert.NotContains(t, out, "tok-123")
	assert.NotContains(t, out, "shh")
	assert.Contains(t, out, "[REDACTED]")
	assert.Equal(t, "tok-123", cfg.Backend.Token, "original untouched")
}

// =============================================================================
// CREDENTIAL TESTS
// =============================================================================

func TestCredential(t *testing.T) {
	cfg := Default()
	cfg.Backend.Token = "static"

	cred, err := cfg.Credential(zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.IsType(t, &auth.StaticCredential{}, cred)

	cfg.Keycloak = KeycloakConfig{URL: "http://kc:8080", Realm: "r", ClientID: "c", RefreshToken: "rt"}
	cred, err = cfg.Credential(zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.IsType(t, &auth.KeycloakCredential{}, cred)

	cfg.Keycloak.RefreshToken = ""
	_, err = cfg.Credential(nil)
	assert.ErrorIs(t, err, auth.ErrNoGrant)
}

func TestPaths(t *testing.T) {
	dir := isolate(t)
	cfg := Default()

	td, err := cfg.TranscriptDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "transcripts"), td)

	cfg.Logging.File = "/tmp/x.log"
	lp, err := cfg.LogPath()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/x.log", lp)
}
