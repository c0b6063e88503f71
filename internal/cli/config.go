// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config.go - Configuration command handler for chatwidget.
//
// Subcommands:
//   show              Print the effective configuration (secrets redacted)
//   init [--force]    Write a default config file
//   path              Print the config file path
//   get <key>         Print one value, e.g. widget.theme
//   set <key> <value> Change one value in the config file
//   keys              List every settable key
package cli

import (
	"crypto/sha256"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/chatwidget/internal/config"
)

func (a *app) configCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.configShow(cmd)
		},
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.configInit(cmd, force)
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the effective configuration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.configShow(cmd)
			},
		},
		initCmd,
		&cobra.Command{
			Use:   "path",
			Short: "Print the config file path",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				if a.jsonMode {
					_, err := os.Stat(a.cfgPath)
					return NewJSONResponse("config path", map[string]interface{}{
						"path":   a.cfgPath,
						"exists": err == nil,
					}).Write(cmd.OutOrStdout())
				}
				fmt.Fprintln(cmd.OutOrStdout(), a.cfgPath)
				return nil
			},
		},
		&cobra.Command{
			Use:   "get <key>",
			Short: "Print one configuration value",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.configGet(cmd, args[0])
			},
		},
		&cobra.Command{
			Use:   "set <key> <value>",
			Short: "Change one value in the config file",
			Example: `  chatwidget config set widget.theme dark
  chatwidget config set widget.available_models gpt-4o,gpt-4o-mini
  chatwidget config set backend.base_url https://chat.example.com`,
			Args: cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.configSet(cmd, args[0], args[1])
			},
		},
		&cobra.Command{
			Use:   "keys",
			Short: "List every configuration key",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				if a.jsonMode {
					return NewJSONResponse("config keys", config.GetAllKeys()).Write(cmd.OutOrStdout())
				}
				for _, k := range config.GetAllKeys() {
					fmt.Fprintln(cmd.OutOrStdout(), k)
				}
				return nil
			},
		},
	)
	return cmd
}

// =============================================================================
// HANDLERS
// =============================================================================

func (a *app) configShow(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()
	if a.jsonMode {
		return NewJSONResponse("config show", map[string]interface{}{
			"path":   a.cfgPath,
			"config": rawJSON(a.cfg.String()),
		}).Write(out)
	}
	fmt.Fprintln(out, TitleStyle.Render("Configuration"))
	fmt.Fprintf(out, "%s%s\n", RenderLabel("File:"), a.cfgPath)
	fmt.Fprintln(out, RenderSeparator(40))
	fmt.Fprintln(out, a.cfg.String())
	return nil
}

func (a *app) configInit(cmd *cobra.Command, force bool) error {
	if _, err := os.Stat(a.cfgPath); err == nil && !force {
		return NewUsageError("config", a.cfgPath, "already exists (use --force to overwrite)")
	}
	if err := saveConfigFile(config.Default(), a.cfgPath); err != nil {
		return err
	}
	if a.jsonMode {
		return NewJSONResponse("config init", map[string]string{"path": a.cfgPath}).Write(cmd.OutOrStdout())
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s Wrote %s\n", SuccessStyle.Render("[OK]"), a.cfgPath)
	return nil
}

func (a *app) configGet(cmd *cobra.Command, key string) error {
	v, err := a.cfg.Get(key)
	if err != nil {
		return NewUsageError("key", key, err.Error())
	}
	text := formatConfigValue(v)
	if a.jsonMode {
		var data interface{} = v
		if isSecretKey(key) {
			data = maskIfSecret(key, text)
		}
		return NewJSONResponse("config get", map[string]interface{}{"key": key, "value": data}).Write(cmd.OutOrStdout())
	}
	fmt.Fprintln(cmd.OutOrStdout(), maskIfSecret(key, text))
	return nil
}

// configSet edits the file itself, not the effective config, so environment
// variables and flags of this invocation are not written back.
func (a *app) configSet(cmd *cobra.Command, key, value string) error {
	cfg, err := loadConfigFile(a.cfgPath)
	if err != nil {
		return err
	}
	if err := cfg.Set(key, value); err != nil {
		return NewUsageError("key", key, err.Error())
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := saveConfigFile(cfg, a.cfgPath); err != nil {
		return err
	}

	if a.jsonMode {
		return NewJSONResponse("config set", map[string]string{
			"key":   key,
			"value": maskIfSecret(key, value),
			"path":  a.cfgPath,
		}).Write(cmd.OutOrStdout())
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s = %s\n", SuccessStyle.Render("[OK]"), key, maskIfSecret(key, value))
	return nil
}

// loadConfigFile reads path over the defaults without environment overrides.
// A missing file yields the defaults.
func loadConfigFile(path string) (*config.Config, error) {
	cfg := config.Default()
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}
	if strings.HasSuffix(path, ".json") {
		err := config.LoadJSON(cfg, path)
		return cfg, err
	}
	return cfg, config.LoadTOML(cfg, path)
}

func saveConfigFile(cfg *config.Config, path string) error {
	if strings.HasSuffix(path, ".json") {
		return config.SaveJSON(cfg, path)
	}
	return config.SaveTOML(cfg, path)
}

// =============================================================================
// HELPERS
// =============================================================================

// rawJSON embeds already-encoded JSON in a response.
type rawJSON string

// MarshalJSON implements json.Marshaler.
func (r rawJSON) MarshalJSON() ([]byte, error) {
	return []byte(r), nil
}

func formatConfigValue(v interface{}) string {
	if list, ok := v.([]string); ok {
		return strings.Join(list, ",")
	}
	return fmt.Sprint(v)
}

func isSecretKey(key string) bool {
	keyLower := strings.ToLower(key)
	for _, s := range []string{"secret", "token", "password"} {
		if strings.Contains(keyLower, s) {
			return true
		}
	}
	return false
}

// maskSecret shows a short SHA-256 fingerprint instead of the secret, so two
// values can be compared without exposing either.
func maskSecret(value string) string {
	if value == "" {
		return "(not set)"
	}
	hash := sha256.Sum256([]byte(value))
	return fmt.Sprintf("sha256:%x...", hash[:4])
}

// maskIfSecret masks the value if the key is a secret field.
func maskIfSecret(key, value string) string {
	if isSecretKey(key) {
		return maskSecret(value)
	}
	return value
}
