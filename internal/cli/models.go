// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jeranaias/chatwidget/internal/aichat"
)

// modelsResult is the --json payload.
type modelsResult struct {
	Models   []string `json:"models"`
	Selected string   `json:"selected,omitempty"`
	// Source is "backend" when listed by the backend, "config" otherwise.
	Source string `json:"source"`
}

func (a *app) modelsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the models the backend offers",
		Long: `List the models the backend offers.

Falls back to widget.available_models from the config when the backend
cannot list models or the listing fails.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.newClient()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			result := modelsResult{
				Models:   a.cfg.Widget.AvailableModels,
				Selected: a.cfg.Widget.Model,
				Source:   "config",
			}
			caps := aichat.ResolveCapabilities(client)
			if caps.CanListModels() {
				models, err := caps.ListModels(ctx)
				switch {
				case err != nil:
					a.logger.Warn("Model listing failed, using configured models", zap.Error(err))
					if len(result.Models) == 0 {
						return err
					}
				case len(models) > 0:
					result.Models, result.Source = models, "backend"
				}
			}

			if a.jsonMode {
				return NewJSONResponse("models", result).Write(cmd.OutOrStdout())
			}
			out := cmd.OutOrStdout()
			if len(result.Models) == 0 {
				fmt.Fprintln(out, DimStyle.Render("No models available."))
				return nil
			}
			for _, m := range result.Models {
				if m == result.Selected {
					fmt.Fprintf(out, "%s %s\n", SuccessStyle.Render("*"), m)
					continue
				}
				fmt.Fprintf(out, "  %s\n", m)
			}
			return nil
		},
	}
}
