// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// session_cmd.go - Saved transcript commands for chatwidget.
//
// Command: sessions [subcommand]
// Aliases: session
//
// Subcommands:
//   list (default)      List saved transcripts (aliases: ls)
//   show <ref>          Print a transcript as Markdown
//   export <ref>        Write a transcript as Markdown or JSON
//   delete <ref>        Delete a transcript (requires --confirm)
//   clear               Delete every transcript (requires --confirm)
//   stats               Show transcript statistics
//
// A ref is a 1-based list number, a transcript ID or an unambiguous ID prefix.
//
// Examples:
//   chatwidget sessions
//   chatwidget sessions list --search kubernetes
//   chatwidget sessions show 1
//   chatwidget sessions export tr_3f2a --format json -o chat.json
//   chatwidget sessions delete 2 --confirm
package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jeranaias/chatwidget/internal/storage"
	"github.com/jeranaias/chatwidget/internal/util"
)

// sessionStats is the stats payload.
type sessionStats struct {
	Transcripts   int       `json:"transcripts"`
	Messages      int       `json:"messages"`
	Oldest        time.Time `json:"oldest,omitempty"`
	Newest        time.Time `json:"newest,omitempty"`
	Directory     string    `json:"directory"`
	MaxRetained   int       `json:"max_retained"`
	ModelsUsed    []string  `json:"models_used,omitempty"`
	AutoSaveEvery string    `json:"autosave_every"`
}

func (a *app) sessionsCommand() *cobra.Command {
	var search string

	list := func(cmd *cobra.Command, args []string) error {
		return a.sessionsList(cmd, search)
	}

	cmd := &cobra.Command{
		Use:     "sessions",
		Aliases: []string{"session"},
		Short:   "Manage saved transcripts",
		Args:    cobra.NoArgs,
		RunE:    list,
	}

	listCmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List saved transcripts",
		Args:    cobra.NoArgs,
		RunE:    list,
	}
	listCmd.Flags().StringVar(&search, "search", "", "Only transcripts whose summary or messages contain this text")

	var (
		format string
		output string
	)
	exportCmd := &cobra.Command{
		Use:   "export <ref>",
		Short: "Write a transcript as Markdown or JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.sessionsExport(cmd, args[0], format, output)
		},
	}
	exportCmd.Flags().StringVar(&format, "format", "md", "Export format: md or json")
	exportCmd.Flags().StringVarP(&output, "output", "o", "", "Write to this file instead of stdout")

	var confirmDelete bool
	deleteCmd := &cobra.Command{
		Use:     "delete <ref>",
		Aliases: []string{"rm"},
		Short:   "Delete a transcript",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.sessionsDelete(cmd, args[0], confirmDelete)
		},
	}
	deleteCmd.Flags().BoolVar(&confirmDelete, "confirm", false, "Confirm the deletion")

	var confirmClear bool
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every transcript",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.sessionsClear(cmd, confirmClear)
		},
	}
	clearCmd.Flags().BoolVar(&confirmClear, "confirm", false, "Confirm the deletion")

	cmd.AddCommand(
		listCmd,
		&cobra.Command{
			Use:   "show <ref>",
			Short: "Print a transcript",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.sessionsShow(cmd, args[0])
			},
		},
		exportCmd,
		deleteCmd,
		clearCmd,
		&cobra.Command{
			Use:   "stats",
			Short: "Show transcript statistics",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.sessionsStats(cmd)
			},
		},
	)
	return cmd
}

// =============================================================================
// HANDLERS
// =============================================================================

func (a *app) sessionsList(cmd *cobra.Command, search string) error {
	store, err := a.requireTranscripts()
	if err != nil {
		return err
	}

	var metas []storage.TranscriptMeta
	if search != "" {
		metas, err = store.Search(search)
	} else {
		metas, err = store.List()
	}
	if err != nil {
		return err
	}

	if a.jsonMode {
		if metas == nil {
			metas = []storage.TranscriptMeta{}
		}
		return NewJSONResponse("sessions list", metas).Write(cmd.OutOrStdout())
	}
	fmt.Fprint(cmd.OutOrStdout(), storage.FormatList(metas))
	return nil
}

func (a *app) sessionsShow(cmd *cobra.Command, ref string) error {
	store, err := a.requireTranscripts()
	if err != nil {
		return err
	}
	tr, err := store.Resolve(ref)
	if err != nil {
		return err
	}
	if a.jsonMode {
		return NewJSONResponse("sessions show", tr).Write(cmd.OutOrStdout())
	}
	displayResponse(cmd.OutOrStdout(), tr.ExportMarkdown())
	return nil
}

func (a *app) sessionsExport(cmd *cobra.Command, ref, format, output string) error {
	if format != "md" && format != "json" {
		return NewUsageError("format", format, "must be md or json")
	}
	store, err := a.requireTranscripts()
	if err != nil {
		return err
	}
	tr, err := store.Resolve(ref)
	if err != nil {
		return err
	}

	if output == "" {
		if format == "json" {
			return NewJSONResponse("sessions export", tr).Write(cmd.OutOrStdout())
		}
		fmt.Fprint(cmd.OutOrStdout(), tr.ExportMarkdown())
		return nil
	}

	if format == "json" {
		err = util.AtomicWriteJSON(output, tr, 0600)
	} else {
		err = util.AtomicWriteFile(output, []byte(tr.ExportMarkdown()), 0600)
	}
	if err != nil {
		return fmt.Errorf("failed to export transcript: %w", err)
	}
	a.logger.Info("Transcript exported", zap.String("id", tr.ID), zap.String("path", output))
	fmt.Fprintf(cmd.ErrOrStderr(), "%s Exported %s to %s\n", SuccessStyle.Render("[OK]"), tr.ID, output)
	return nil
}

func (a *app) sessionsDelete(cmd *cobra.Command, ref string, confirm bool) error {
	store, err := a.requireTranscripts()
	if err != nil {
		return err
	}
	tr, err := store.Resolve(ref)
	if err != nil {
		return err
	}
	if !confirm {
		return NewUsageError("confirm", ref, fmt.Sprintf("would delete %s (%s); rerun with --confirm", tr.ID, tr.Summary))
	}
	if err := store.Delete(tr.ID); err != nil {
		return err
	}
	a.logger.Info("Transcript deleted", zap.String("id", tr.ID))

	if a.jsonMode {
		return NewJSONResponse("sessions delete", map[string]string{"id": tr.ID}).Write(cmd.OutOrStdout())
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s Deleted %s\n", SuccessStyle.Render("[OK]"), tr.ID)
	return nil
}

func (a *app) sessionsClear(cmd *cobra.Command, confirm bool) error {
	store, err := a.requireTranscripts()
	if err != nil {
		return err
	}
	metas, err := store.List()
	if err != nil {
		return err
	}
	if !confirm {
		return NewUsageError("confirm", "", fmt.Sprintf("would delete %d transcripts; rerun with --confirm", len(metas)))
	}
	if err := store.Clear(); err != nil {
		return err
	}
	a.logger.Info("Transcripts cleared", zap.Int("count", len(metas)))

	if a.jsonMode {
		return NewJSONResponse("sessions clear", map[string]int{"deleted": len(metas)}).Write(cmd.OutOrStdout())
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s Deleted %d transcripts\n", SuccessStyle.Render("[OK]"), len(metas))
	return nil
}

func (a *app) sessionsStats(cmd *cobra.Command) error {
	store, err := a.requireTranscripts()
	if err != nil {
		return err
	}
	metas, err := store.List()
	if err != nil {
		return err
	}

	stats := sessionStats{
		Transcripts:   len(metas),
		Directory:     store.BaseDir,
		MaxRetained:   store.MaxTranscripts,
		AutoSaveEvery: a.cfg.AutoSaveInterval().String(),
	}
	seen := make(map[string]bool)
	for _, m := range metas {
		stats.Messages += m.MessageCount
		if stats.Oldest.IsZero() || m.CreatedAt.Before(stats.Oldest) {
			stats.Oldest = m.CreatedAt
		}
		if m.UpdatedAt.After(stats.Newest) {
			stats.Newest = m.UpdatedAt
		}
		if m.Model != "" && !seen[m.Model] {
			seen[m.Model] = true
			stats.ModelsUsed = append(stats.ModelsUsed, m.Model)
		}
	}

	if a.jsonMode {
		return NewJSONResponse("sessions stats", stats).Write(cmd.OutOrStdout())
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, TitleStyle.Render("Transcripts"))
	fmt.Fprintln(out, RenderSeparator(40))
	fmt.Fprintf(out, "%s%d\n", RenderLabel("Saved:"), stats.Transcripts)
	fmt.Fprintf(out, "%s%d\n", RenderLabel("Messages:"), stats.Messages)
	if stats.Transcripts > 0 {
		fmt.Fprintf(out, "%s%s\n", RenderLabel("Oldest:"), stats.Oldest.Local().Format("2006-01-02 15:04"))
		fmt.Fprintf(out, "%s%s\n", RenderLabel("Newest:"), stats.Newest.Local().Format("2006-01-02 15:04"))
	}
	fmt.Fprintf(out, "%s%d\n", RenderLabel("Keep:"), stats.MaxRetained)
	fmt.Fprintf(out, "%s%s\n", RenderLabel("Directory:"), stats.Directory)
	if _, err := os.Stat(stats.Directory); err != nil {
		fmt.Fprintln(out, DimStyle.Render("(directory not created yet)"))
	}
	return nil
}
