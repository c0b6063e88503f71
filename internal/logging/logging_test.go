// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestLevelFor(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, LevelFor(true))
	assert.Equal(t, zapcore.ErrorLevel, LevelFor(false))
}

func TestNew_WritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "widget.log")

	logger, level, err := New(Options{Enabled: false, Path: path})
	require.NoError(t, err)

	logger.Debug("hidden debug")
	logger.Error("visible error")

	SetEnabled(level, true)
	logger.Debug("visible debug")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.NotContains(t, out, "hidden debug")
	assert.Contains(t, out, "visible error")
	assert.Contains(t, out, "visible debug")
	assert.Contains(t, out, "chatwidget")
}

func TestOrNop(t *testing.T) {
	assert.NotNil(t, OrNop(nil))
}
