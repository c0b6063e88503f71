// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/jeranaias/chatwidget/internal/auth"
	"github.com/jeranaias/chatwidget/internal/util"
	"github.com/jeranaias/chatwidget/internal/widget"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete chatwidget host configuration.
type Config struct {
	Version string `toml:"version" json:"version"`

	// Chat backend
	Backend BackendConfig `toml:"backend" json:"backend"`

	// Keycloak token refresh (optional)
	Keycloak KeycloakConfig `toml:"keycloak" json:"keycloak"`

	// Widget features and styling
	Widget WidgetConfig `toml:"widget" json:"widget"`

	// Logging
	Logging LoggingConfig `toml:"logging" json:"logging"`

	// Transcript persistence
	Storage StorageConfig `toml:"storage" json:"storage"`
}

// BackendConfig locates the AI Chat Protocol backend.
type BackendConfig struct {
	BaseURL     string `toml:"base_url" json:"base_url"`
	Token       string `toml:"token" json:"token,omitempty"`
	TimeoutSecs int    `toml:"timeout_secs" json:"timeout_secs"`
}

// KeycloakConfig configures the refreshing credential. It is used when URL,
// realm and client ID are all set.
type KeycloakConfig struct {
	URL          string `toml:"url" json:"url"`
	Realm        string `toml:"realm" json:"realm"`
	ClientID     string `toml:"client_id" json:"client_id"`
	ClientSecret string `toml:"client_secret" json:"client_secret,omitempty"`
	RefreshToken string `toml:"refresh_token" json:"refresh_token,omitempty"`
}

// WidgetConfig mirrors widget.Config in file form.
type WidgetConfig struct {
	Theme           string   `toml:"theme" json:"theme"`
	Model           string   `toml:"model" json:"model"`
	AvailableModels []string `toml:"available_models" json:"available_models"`
	Tabs            []string `toml:"tabs" json:"tabs"`
	ModelSelector   bool     `toml:"model_selector" json:"model_selector"`
	ThemeToggle     bool     `toml:"theme_toggle" json:"theme_toggle"`
	ContextPane     bool     `toml:"context_pane" json:"context_pane"`
	WelcomeMessage  bool     `toml:"welcome_message" json:"welcome_message"`
	Height          int      `toml:"height" json:"height"`
	Width           int      `toml:"width" json:"width"`
}

// LoggingConfig controls the zap logger.
type LoggingConfig struct {
	Debug bool   `toml:"debug" json:"debug"`
	File  string `toml:"file" json:"file"`
}

// StorageConfig controls transcript persistence.
type StorageConfig struct {
	Enabled        bool   `toml:"enabled" json:"enabled"`
	Dir            string `toml:"dir" json:"dir"`
	MaxTranscripts int    `toml:"max_transcripts" json:"max_transcripts"`
	AutoSaveSecs   int    `toml:"autosave_secs" json:"autosave_secs"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with the documented defaults.
func Default() *Config {
	wc := widget.DefaultConfig()
	tabs := make([]string, len(wc.Features.Tabs))
	for i, t := range wc.Features.Tabs {
		tabs[i] = string(t)
	}

	return &Config{
		Version: "1",
		Backend: BackendConfig{
			BaseURL:     "http://localhost:8000",
			TimeoutSecs: 120,
		},
		Widget: WidgetConfig{
			Theme:           string(wc.Styling.Theme),
			Model:           wc.Defaults.Model,
			AvailableModels: wc.Defaults.AvailableModels,
			Tabs:            tabs,
			ModelSelector:   wc.Features.ModelSelector,
			ThemeToggle:     wc.Features.ThemeToggle,
			ContextPane:     wc.Features.ContextPane,
			WelcomeMessage:  wc.Features.WelcomeMessage,
		},
		Storage: StorageConfig{
			Enabled:        true,
			MaxTranscripts: 100,
			AutoSaveSecs:   30,
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// HomeEnv overrides the configuration directory.
const HomeEnv = "CHATWIDGET_HOME"

// ConfigDir returns the chatwidget configuration directory path.
func ConfigDir() (string, error) {
	if dir := os.Getenv(HomeEnv); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".chatwidget"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, util.DefaultDirPerm)
}

// TranscriptDir returns the configured transcript directory, defaulting to
// "transcripts" under ConfigDir.
func (c *Config) TranscriptDir() (string, error) {
	if c.Storage.Dir != "" {
		return c.Storage.Dir, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "transcripts"), nil
}

// LogPath returns the configured log file, defaulting to chatwidget.log under
// ConfigDir.
func (c *Config) LogPath() (string, error) {
	if c.Logging.File != "" {
		return c.Logging.File, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "chatwidget.log"), nil
}

// ensureSecurePermissions narrows config files to 0600; they may hold tokens.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if mode := info.Mode().Perm(); mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// LoadDotEnv loads .env files from the working directory and ConfigDir.
// Variables already set in the environment win. Missing files are ignored.
func LoadDotEnv() error {
	candidates := []string{".env"}
	if dir, err := ConfigDir(); err == nil {
		candidates = append(candidates, filepath.Join(dir, ".env"))
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
	}
	return nil
}

// Load loads configuration from the config file(s).
// Tries TOML first, then JSON, and falls back to defaults.
// Environment overrides are applied last.
func Load() (*Config, error) {
	tomlPath, err := ConfigPathTOML()
	if err == nil {
		if _, statErr := os.Stat(tomlPath); statErr == nil {
			return LoadFromPath(tomlPath)
		}
	}

	jsonPath, err := ConfigPathJSON()
	if err == nil {
		if _, statErr := os.Stat(jsonPath); statErr == nil {
			return LoadFromPath(jsonPath)
		}
	}

	cfg := Default()
	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML decodes a TOML file over cfg. Keys absent from the file keep
// whatever cfg already held.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	fillDefaults(cfg)
	return nil
}

// LoadJSON decodes a JSON file over cfg.
func LoadJSON(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	fillDefaults(cfg)
	return nil
}

// LoadFromPath loads configuration from a specific file with env overrides
// and validation. Files ending in .json are read as JSON, anything else as TOML.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if strings.HasSuffix(path, ".json") {
		if err := LoadJSON(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load JSON config from %s: %w", path, err)
		}
	} else {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
		}
	}

	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// fillDefaults fills in values a file may have blanked.
func fillDefaults(cfg *Config) {
	defaults := Default()

	if cfg.Version == "" {
		cfg.Version = defaults.Version
	}
	if cfg.Backend.TimeoutSecs == 0 {
		cfg.Backend.TimeoutSecs = defaults.Backend.TimeoutSecs
	}
	if cfg.Widget.Theme == "" {
		cfg.Widget.Theme = defaults.Widget.Theme
	}
	if cfg.Widget.Model == "" {
		cfg.Widget.Model = defaults.Widget.Model
	}
	if len(cfg.Widget.AvailableModels) == 0 {
		cfg.Widget.AvailableModels = defaults.Widget.AvailableModels
	}
	if cfg.Storage.MaxTranscripts == 0 {
		cfg.Storage.MaxTranscripts = defaults.Storage.MaxTranscripts
	}
	if cfg.Storage.AutoSaveSecs == 0 {
		cfg.Storage.AutoSaveSecs = defaults.Storage.AutoSaveSecs
	}
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML writes cfg as TOML with 0600 permissions.
func SaveTOML(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), util.DefaultDirPerm); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("# chatwidget configuration file\n")
	sb.WriteString("# Environment variables (CHATWIDGET_*, KEYCLOAK_*) override these values.\n\n")
	if err := toml.NewEncoder(&sb).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := util.AtomicWriteFile(path, []byte(sb.String()), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// SaveJSON writes cfg as indented JSON with 0600 permissions.
func SaveJSON(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), util.DefaultDirPerm); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := util.AtomicWriteJSON(path, cfg, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns every problem found.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if c.Backend.BaseURL != "" {
		u, err := url.Parse(c.Backend.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, ValidationError{
				Field:   "backend.base_url",
				Message: fmt.Sprintf("invalid URL %q", c.Backend.BaseURL),
			})
		} else if u.Scheme != "http" && u.Scheme != "https" {
			errs = append(errs, ValidationError{
				Field:   "backend.base_url",
				Message: fmt.Sprintf("unsupported scheme %q, must be http or https", u.Scheme),
			})
		}
	}
	if c.Backend.TimeoutSecs < 0 {
		errs = append(errs, ValidationError{Field: "backend.timeout_secs", Message: "cannot be negative"})
	}

	if c.Keycloak.URL != "" {
		if _, err := url.Parse(c.Keycloak.URL); err != nil {
			errs = append(errs, ValidationError{Field: "keycloak.url", Message: fmt.Sprintf("invalid URL: %v", err)})
		}
		if c.Keycloak.Realm == "" || c.Keycloak.ClientID == "" {
			errs = append(errs, ValidationError{Field: "keycloak", Message: "realm and client_id are required when url is set"})
		}
	}

	if err := c.WidgetConfig().Validate(); err != nil {
		var wErr *widget.ValidationError
		if errors.As(err, &wErr) {
			errs = append(errs, ValidationError{Field: "widget." + fieldTail(wErr.Field), Message: wErr.Message})
		} else {
			errs = append(errs, ValidationError{Field: "widget", Message: err.Error()})
		}
	}

	if c.Storage.MaxTranscripts < 0 {
		errs = append(errs, ValidationError{Field: "storage.max_transcripts", Message: "cannot be negative"})
	}
	if c.Storage.AutoSaveSecs < 0 {
		errs = append(errs, ValidationError{Field: "storage.autosave_secs", Message: "cannot be negative"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// fieldTail drops the section prefix widget.Config uses ("styling.theme" → "theme").
func fieldTail(field string) string {
	if i := strings.LastIndexByte(field, '.'); i >= 0 {
		return field[i+1:]
	}
	return field
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - CHATWIDGET_BASE_URL: overrides backend.base_url
//   - CHATWIDGET_TOKEN: overrides backend.token
//   - CHATWIDGET_MODEL: overrides widget.model
//   - CHATWIDGET_THEME: overrides widget.theme
//   - CHATWIDGET_DEBUG: "1" or "true" enables debug logging
//   - KEYCLOAK_URL, KEYCLOAK_REALM, KEYCLOAK_CLIENT_ID,
//     KEYCLOAK_CLIENT_SECRET, KEYCLOAK_REFRESH_TOKEN: override keycloak.*
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("CHATWIDGET_BASE_URL"); v != "" {
		c.Backend.BaseURL = v
	}
	if v := os.Getenv("CHATWIDGET_TOKEN"); v != "" {
		c.Backend.Token = v
	}
	if v := os.Getenv("CHATWIDGET_MODEL"); v != "" {
		c.Widget.Model = v
	}
	if v := os.Getenv("CHATWIDGET_THEME"); v != "" {
		c.Widget.Theme = strings.ToLower(v)
	}
	if v := os.Getenv("CHATWIDGET_DEBUG"); v != "" {
		c.Logging.Debug = parseBool(v)
	}

	if v := os.Getenv("KEYCLOAK_URL"); v != "" {
		c.Keycloak.URL = v
	}
	if v := os.Getenv("KEYCLOAK_REALM"); v != "" {
		c.Keycloak.Realm = v
	}
	if v := os.Getenv("KEYCLOAK_CLIENT_ID"); v != "" {
		c.Keycloak.ClientID = v
	}
	if v := os.Getenv("KEYCLOAK_CLIENT_SECRET"); v != "" {
		c.Keycloak.ClientSecret = v
	}
	if v := os.Getenv("KEYCLOAK_REFRESH_TOKEN"); v != "" {
		c.Keycloak.RefreshToken = v
	}
}

func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "1" || s == "true" || s == "yes"
}

// =============================================================================
// CONVERSIONS
// =============================================================================

// WidgetConfig converts the file form into widget.Config. The result is not
// normalized.
func (c *Config) WidgetConfig() widget.Config {
	var tabs []widget.Tab
	if c.Widget.Tabs != nil {
		tabs = make([]widget.Tab, len(c.Widget.Tabs))
		for i, t := range c.Widget.Tabs {
			tabs[i] = widget.Tab(strings.ToLower(strings.TrimSpace(t)))
		}
	}
	return widget.Config{
		Features: widget.Features{
			ModelSelector:  c.Widget.ModelSelector,
			ThemeToggle:    c.Widget.ThemeToggle,
			Tabs:           tabs,
			ContextPane:    c.Widget.ContextPane,
			WelcomeMessage: c.Widget.WelcomeMessage,
		},
		Styling: widget.Styling{
			Theme:  widget.Theme(c.Widget.Theme),
			Height: c.Widget.Height,
			Width:  c.Widget.Width,
		},
		Defaults: widget.Defaults{
			Model:           c.Widget.Model,
			AvailableModels: append([]string(nil), c.Widget.AvailableModels...),
		},
	}
}

// HasKeycloak reports whether the Keycloak credential is configured.
func (c *Config) HasKeycloak() bool {
	return c.Keycloak.URL != "" && c.Keycloak.Realm != "" && c.Keycloak.ClientID != ""
}

// Credential builds the credential for the backend: Keycloak when configured,
// otherwise the static token (which may be empty).
func (c *Config) Credential(logger *zap.Logger) (auth.Credential, error) {
	if c.HasKeycloak() {
		return auth.NewKeycloakCredential(auth.KeycloakConfig{
			URL:          c.Keycloak.URL,
			Realm:        c.Keycloak.Realm,
			ClientID:     c.Keycloak.ClientID,
			ClientSecret: c.Keycloak.ClientSecret,
			RefreshToken: c.Keycloak.RefreshToken,
			Logger:       logger,
		})
	}
	return auth.NewStaticCredential(c.Backend.Token), nil
}

// Timeout returns the backend request timeout.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Backend.TimeoutSecs) * time.Second
}

// AutoSaveInterval returns the transcript autosave interval.
func (c *Config) AutoSaveInterval() time.Duration {
	return time.Duration(c.Storage.AutoSaveSecs) * time.Second
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value using dot notation (e.g., "widget.theme").
func (c *Config) Get(key string) (interface{}, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set sets a configuration value using dot notation. String values are
// converted to the field's type; lists are comma separated.
func (c *Config) Set(key string, value interface{}) error {
	field, err := c.lookup(key)
	if err != nil {
		return err
	}
	if !field.CanSet() {
		return fmt.Errorf("cannot set field: %s", key)
	}
	return setFieldValue(field, value)
}

func (c *Config) lookup(key string) (reflect.Value, error) {
	if strings.TrimSpace(key) == "" {
		return reflect.Value{}, errors.New("empty key")
	}
	parts := strings.Split(key, ".")

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		fieldName := normalizeFieldName(part)
		field := v.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, fieldName)
		})
		if !field.IsValid() {
			return reflect.Value{}, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}
		if i == len(parts)-1 {
			return field, nil
		}
		if field.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("field '%s' is not a struct", strings.Join(parts[:i+1], "."))
		}
		v = field
	}
	return reflect.Value{}, fmt.Errorf("invalid key: %s", key)
}

// normalizeFieldName converts a snake_case or kebab-case name to its Go field equivalent.
func normalizeFieldName(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-'
	})

	var result strings.Builder
	for _, part := range parts {
		if len(part) > 0 {
			result.WriteString(strings.ToUpper(string(part[0])))
			result.WriteString(strings.ToLower(part[1:]))
		}
	}
	return result.String()
}

// setFieldValue sets a reflect.Value from an interface{} value with type conversion.
func setFieldValue(field reflect.Value, value interface{}) error {
	if strVal, ok := value.(string); ok {
		switch field.Kind() {
		case reflect.String:
			field.SetString(strVal)
			return nil
		case reflect.Int, reflect.Int64:
			intVal, err := strconv.ParseInt(strVal, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer value: %v", err)
			}
			field.SetInt(intVal)
			return nil
		case reflect.Bool:
			field.SetBool(parseBool(strVal))
			return nil
		case reflect.Slice:
			if field.Type().Elem().Kind() == reflect.String {
				var items []string
				for _, item := range strings.Split(strVal, ",") {
					if item = strings.TrimSpace(item); item != "" {
						items = append(items, item)
					}
				}
				if items == nil {
					items = []string{}
				}
				field.Set(reflect.ValueOf(items))
				return nil
			}
		}
	}

	val := reflect.ValueOf(value)
	if val.IsValid() && val.Type().AssignableTo(field.Type()) {
		field.Set(val)
		return nil
	}
	if val.IsValid() && val.Type().ConvertibleTo(field.Type()) {
		field.Set(val.Convert(field.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign %T to %s", value, field.Type())
}

// GetAllKeys returns all configuration keys in dot notation.
func GetAllKeys() []string {
	return []string{
		"version",
		"backend.base_url",
		"backend.token",
		"backend.timeout_secs",
		"keycloak.url",
		"keycloak.realm",
		"keycloak.client_id",
		"keycloak.client_secret",
		"keycloak.refresh_token",
		"widget.theme",
		"widget.model",
		"widget.available_models",
		"widget.tabs",
		"widget.model_selector",
		"widget.theme_toggle",
		"widget.context_pane",
		"widget.welcome_message",
		"widget.height",
		"widget.width",
		"logging.debug",
		"logging.file",
		"storage.enabled",
		"storage.dir",
		"storage.max_transcripts",
		"storage.autosave_secs",
	}
}

// =============================================================================
// CLONE / STRING
// =============================================================================

// Clone creates a deep copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	clone.Widget.AvailableModels = append([]string(nil), c.Widget.AvailableModels...)
	if c.Widget.Tabs != nil {
		clone.Widget.Tabs = append([]string{}, c.Widget.Tabs...)
	}
	return &clone
}

// String returns the config as JSON with secrets redacted.
func (c *Config) String() string {
	safe := c.Clone()
	if safe.Backend.Token != "" {
		safe.Backend.Token = "[REDACTED]"
	}
	if safe.Keycloak.ClientSecret != "" {
		safe.Keycloak.ClientSecret = "[REDACTED]"
	}
	if safe.Keycloak.RefreshToken != "" {
		safe.Keycloak.RefreshToken = "[REDACTED]"
	}
	data, _ := json.MarshalIndent(safe, "", "  ")
	return string(data)
}
