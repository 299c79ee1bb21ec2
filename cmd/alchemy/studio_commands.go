package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"alchemy/internal/services/qloo"
	"alchemy/internal/studio"
)

func newStudioCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "studio",
		Short: "Inspect and edit the local studio workspace",
	}
	cmd.AddCommand(newStudioShowCommand(ctx))
	cmd.AddCommand(newStudioPromptCommand(ctx))
	cmd.AddCommand(newStudioSetCultureCommand(ctx))
	cmd.AddCommand(newStudioApplyCultureCommand(ctx))
	cmd.AddCommand(newStudioClearCommand(ctx))
	return cmd
}

func (c *commandContext) openStudio() (*studio.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return studio.NewStore(studio.NewFileBackend(cfg.Paths.StatePath))
}

func newStudioShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the current workspace state",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStudio()
			if err != nil {
				return err
			}
			defer store.Close()

			state := store.State()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Prompt: %s\n", orPlaceholder(state.Prompt))
			fmt.Fprintf(out, "Last image: %s\n", artifactSummary(state.LastImage))
			fmt.Fprintf(out, "Last video: %s\n", artifactSummary(state.LastVideo))
			if state.CulturalContext != nil {
				fmt.Fprintf(out, "Cultural fragment: %s\n", orPlaceholder(studio.SynthesizeCulture(state.CulturalContext)))
			} else {
				fmt.Fprintln(out, "Cultural fragment: (no cultural context)")
			}

			if len(state.Workflow) == 0 {
				fmt.Fprintln(out, "Workflow history is empty.")
				return nil
			}
			rows := make([][]string, 0, len(state.Workflow))
			for _, step := range state.Workflow {
				rows = append(rows, []string{
					step.At.Local().Format("2006-01-02 15:04:05"),
					string(step.Mode),
					step.Action,
				})
			}
			fmt.Fprintln(out, renderTable([]string{"At", "Mode", "Action"}, rows))
			return nil
		},
	}
}

func newStudioPromptCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "prompt <text>",
		Short: "Replace the working prompt",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStudio()
			if err != nil {
				return err
			}
			defer store.Close()

			store.SetPrompt(strings.Join(args, " "))
			if err := store.Flush(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Prompt updated.")
			return nil
		},
	}
}

func newStudioSetCultureCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "set-culture <json-file>",
		Short: "Load a cultural context from a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read cultural context: %w", err)
			}
			var analysis qloo.Analysis
			if err := json.Unmarshal(data, &analysis); err != nil {
				return fmt.Errorf("decode cultural context: %w", err)
			}

			store, err := ctx.openStudio()
			if err != nil {
				return err
			}
			defer store.Close()

			store.SetCulturalContext(analysis)
			if err := store.Flush(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Cultural context applied.")
			return nil
		},
	}
}

func newStudioApplyCultureCommand(ctx *commandContext) *cobra.Command {
	var mode string

	cmd := &cobra.Command{
		Use:   "apply-culture",
		Short: "Append the cultural fragment to the working prompt",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStudio()
			if err != nil {
				return err
			}
			defer store.Close()

			before := store.State().Prompt
			store.ApplyCulturalToPrompt(mode)
			if err := store.Flush(); err != nil {
				return err
			}
			after := store.State().Prompt
			out := cmd.OutOrStdout()
			if before == after {
				fmt.Fprintln(out, "No cultural context set; prompt unchanged.")
				return nil
			}
			fmt.Fprintf(out, "Prompt is now:\n%s\n", after)
			return nil
		},
	}
	cmd.Flags().StringVar(&mode, "mode", "create", "Workflow mode hint: create, edit, or video")
	return cmd
}

func newStudioClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Reset the workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStudio()
			if err != nil {
				return err
			}
			defer store.Close()

			store.Clear()
			if err := store.Flush(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Workspace cleared.")
			return nil
		},
	}
}

func orPlaceholder(value string) string {
	if strings.TrimSpace(value) == "" {
		return "(empty)"
	}
	return value
}

func artifactSummary(artifact *studio.Artifact) string {
	if artifact == nil {
		return "(none)"
	}
	if artifact.ID != "" {
		return fmt.Sprintf("%s (%s)", artifact.URL, artifact.ID)
	}
	return artifact.URL
}
