// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for the
// chatwidget host.
//
// Supports both TOML and JSON configuration formats, with defaults,
// environment variable overrides, .env files and validation.
//
// # Key Types
//
//   - Config: Main configuration structure
//   - BackendConfig: Chat backend URL and static token
//   - KeycloakConfig: Refreshing credential settings
//   - WidgetConfig: File form of widget.Config
//   - Watcher: Reloads the file when it changes
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (CHATWIDGET_*, KEYCLOAK_*), including .env files
//   - ~/.chatwidget/config.toml
//   - ~/.chatwidget/config.json
//   - Built-in defaults
//
// # Usage
//
//	_ = config.LoadDotEnv()
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	cred, err := cfg.Credential(logger)
package config
