// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"
)

func writeTheme(t *testing.T, path, theme string) {
	t.Helper()
	cfg := Default()
	cfg.Widget.Theme = theme
	require.NoError(t, SaveTOML(cfg, path))
}

func TestWatcher_ReloadsOnChange(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	dir := isolate(t)
	path := filepath.Join(dir, "config.toml")
	writeTheme(t, path, "light")

	initial, err := LoadFromPath(path)
	require.NoError(t, err)

	changes := make(chan Change, 4)
	w, err := NewWatcher(path, initial, func(c Change) { changes <- c }, zaptest.NewLogger(t))
	require.NoError(t, err)
	w.debounce = 20 * time.Millisecond
	require.NoError(t, w.Watch())
	defer w.Close()

	writeTheme(t, path, "dark")

	select {
	case c := <-changes:
		assert.True(t, c.ThemeChanged())
		assert.False(t, c.DebugChanged())
		assert.Equal(t, "dark", c.New.Widget.Theme)
	case <-time.After(5 * time.Second):
		t.Fatal("no reload observed")
	}
	assert.Equal(t, "dark", w.Current().Widget.Theme)
}

func TestWatcher_IgnoresInvalidEdit(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	dir := isolate(t)
	path := filepath.Join(dir, "config.toml")
	writeTheme(t, path, "light")
	initial, err := LoadFromPath(path)
	require.NoError(t, err)

	changes := make(chan Change, 4)
	w, err := NewWatcher(path, initial, func(c Change) { changes <- c }, zaptest.NewLogger(t))
	require.NoError(t, err)
	w.debounce = 20 * time.Millisecond
	require.NoError(t, w.Watch())
	defer w.Close()

	require.NoError(t, os.WriteFile(path, []byte("[widget]\ntheme = \"neon\"\n"), 0600))

	select {
	case c := <-changes:
		t.Fatalf("unexpected reload to %q", c.New.Widget.Theme)
	case <-time.After(300 * time.Millisecond):
	}
	assert.Equal(t, "light", w.Current().Widget.Theme)
}
