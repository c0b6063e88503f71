// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging builds the zap logger shared by every chatwidget component.
//
// Logging has a single switch. When enabled, everything down to Debug is
// written; when disabled, only errors are. The interactive widget owns the
// terminal, so it logs to a file; line-mode commands may log to stderr.
package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options configures New.
type Options struct {
	// Enabled turns on debug output. Errors are always logged.
	Enabled bool
	// Path is the log file. Empty means stderr.
	Path string
}

// LevelFor maps the enabled switch to a zap level.
func LevelFor(enabled bool) zapcore.Level {
	if enabled {
		return zapcore.DebugLevel
	}
	return zapcore.ErrorLevel
}

// New builds a logger. The returned AtomicLevel can be flipped at runtime with
// SetEnabled, which the config watcher does when the debug flag changes.
func New(opts Options) (*zap.Logger, zap.AtomicLevel, error) {
	level := zap.NewAtomicLevelAt(LevelFor(opts.Enabled))

	config := zap.NewProductionConfig()
	config.Level = level
	config.Encoding = "console"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	config.Sampling = nil
	config.ErrorOutputPaths = []string{"stderr"}

	if opts.Path != "" {
		if err := os.MkdirAll(filepath.Dir(opts.Path), 0700); err != nil {
			return nil, level, fmt.Errorf("failed to create log directory: %w", err)
		}
		config.OutputPaths = []string{opts.Path}
	} else {
		config.OutputPaths = []string{"stderr"}
	}

	logger, err := config.Build()
	if err != nil {
		return nil, level, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger.Named("chatwidget"), level, nil
}

// SetEnabled flips a level created by New between debug and errors-only.
func SetEnabled(level zap.AtomicLevel, enabled bool) {
	level.SetLevel(LevelFor(enabled))
}

// OrNop returns logger, or a no-op logger when it is nil.
func OrNop(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}
