// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"runtime"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jeranaias/chatwidget/internal/aichat"
	"github.com/jeranaias/chatwidget/internal/config"
	"github.com/jeranaias/chatwidget/internal/logging"
	"github.com/jeranaias/chatwidget/internal/storage"
	"github.com/jeranaias/chatwidget/internal/widget"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// =============================================================================
// APPLICATION STATE
// =============================================================================

// app is the state shared by every command of one invocation.
type app struct {
	// Global flags
	configPath string
	baseURL    string
	model      string
	theme      string
	debug      bool
	jsonMode   bool

	// Root command flags
	resume bool

	// Prepared by setup
	cfg      *config.Config
	cfgPath  string
	logger   *zap.Logger
	logLevel zap.AtomicLevel
}

// setup loads .env files and configuration, applies flag overrides and
// builds the logger. The interactive widget logs to a file; every other
// command logs to stderr.
func (a *app) setup(cmd *cobra.Command) error {
	if err := config.LoadDotEnv(); err != nil {
		return err
	}

	var (
		cfg *config.Config
		err error
	)
	if a.configPath != "" {
		cfg, err = config.LoadFromPath(a.configPath)
		a.cfgPath = a.configPath
	} else {
		cfg, err = config.Load()
		a.cfgPath, _ = config.ConfigPathTOML()
	}
	if err != nil {
		return err
	}

	if a.baseURL != "" {
		cfg.Backend.BaseURL = a.baseURL
	}
	if a.model != "" {
		cfg.Widget.Model = a.model
	}
	if a.theme != "" {
		cfg.Widget.Theme = a.theme
	}
	if a.debug {
		cfg.Logging.Debug = true
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	a.cfg = cfg

	logPath := ""
	if cmd == cmd.Root() {
		if logPath, err = cfg.LogPath(); err != nil {
			return err
		}
	}
	a.logger, a.logLevel, err = logging.New(logging.Options{Enabled: cfg.Logging.Debug, Path: logPath})
	if err != nil {
		return err
	}
	a.logger.Debug("Configuration loaded", zap.String("path", a.cfgPath), zap.String("base_url", cfg.Backend.BaseURL))
	return nil
}

func (a *app) teardown() {
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}

// newClient builds the backend client from the configuration.
func (a *app) newClient() (*aichat.Client, error) {
	cred, err := a.cfg.Credential(a.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create credential: %w", err)
	}
	return aichat.NewClient(a.cfg.Backend.BaseURL, cred,
		aichat.WithLogger(a.logger),
		aichat.WithTimeout(a.cfg.Timeout()))
}

// transcripts opens the transcript store. It returns nil when persistence is
// disabled.
func (a *app) transcripts() (*storage.TranscriptStore, error) {
	if !a.cfg.Storage.Enabled {
		return nil, nil
	}
	dir, err := a.cfg.TranscriptDir()
	if err != nil {
		return nil, err
	}
	store, err := storage.NewTranscriptStore(dir)
	if err != nil {
		return nil, err
	}
	store.MaxTranscripts = a.cfg.Storage.MaxTranscripts
	return store, nil
}

// requireTranscripts is transcripts for commands that cannot work without them.
func (a *app) requireTranscripts() (*storage.TranscriptStore, error) {
	store, err := a.transcripts()
	if err != nil {
		return nil, err
	}
	if store == nil {
		return nil, NewCommandError("sessions", "open transcripts", "transcript storage is disabled (storage.enabled = false)", nil)
	}
	return store, nil
}

// widgetConfig returns the widget configuration of this invocation.
func (a *app) widgetConfig() widget.Config {
	return a.cfg.WidgetConfig()
}

// =============================================================================
// COMMAND TREE
// =============================================================================

// NewRootCommand builds the full command tree with fresh state.
func NewRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "chatwidget",
		Short: "Terminal chat widget for AI Chat Protocol backends",
		Long: `chatwidget is a terminal chat client for AI Chat Protocol backends.

Run it without a subcommand to open the interactive widget with chat,
thoughts and flow tabs. Settings come from ~/.chatwidget/config.toml,
.env files and CHATWIDGET_* / KEYCLOAK_* environment variables.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.teardown()
		},
		RunE: a.runTUI,
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&a.configPath, "config", "c", "", "Config file (default ~/.chatwidget/config.toml)")
	pf.StringVar(&a.baseURL, "base-url", "", "Chat backend base URL")
	pf.StringVarP(&a.model, "model", "m", "", "Model to select")
	pf.StringVar(&a.theme, "theme", "", "Theme: light, dark or auto")
	pf.BoolVarP(&a.debug, "debug", "d", false, "Enable debug logging")
	pf.BoolVar(&a.jsonMode, "json", false, "Print machine-readable JSON where supported")

	root.Flags().BoolVarP(&a.resume, "resume", "r", false, "Resume the most recent transcript")

	root.AddCommand(
		a.chatCommand(),
		a.askCommand(),
		a.modelsCommand(),
		a.configCommand(),
		a.sessionsCommand(),
		a.versionCommand(),
	)
	return root
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	root := NewRootCommand()
	if err := root.Execute(); err != nil {
		jsonMode, _ := root.PersistentFlags().GetBool("json")
		DisplayError(err, jsonMode)
		return GetExitCode(err)
	}
	return ExitSuccess
}

// =============================================================================
// VERSION
// =============================================================================

// versionInfo is the version command's payload.
type versionInfo struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

func (a *app) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := versionInfo{
				Version:   Version,
				GitCommit: GitCommit,
				BuildDate: BuildDate,
				GoVersion: runtime.Version(),
				Platform:  runtime.GOOS + "/" + runtime.GOARCH,
			}
			if a.jsonMode {
				return NewJSONResponse("version", info).Write(cmd.OutOrStdout())
			}
			printVersion(cmd.OutOrStdout(), info)
			return nil
		},
	}
}

func printVersion(w io.Writer, info versionInfo) {
	fmt.Fprintf(w, "chatwidget %s\n", info.Version)
	fmt.Fprintf(w, "  %s%s\n", RenderLabel("Commit:"), info.GitCommit)
	fmt.Fprintf(w, "  %s%s\n", RenderLabel("Built:"), info.BuildDate)
	fmt.Fprintf(w, "  %s%s (%s)\n", RenderLabel("Go:"), info.GoVersion, info.Platform)
}
