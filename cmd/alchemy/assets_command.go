package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newAssetsCommand(ctx *commandContext) *cobra.Command {
	var session string

	cmd := &cobra.Command{
		Use:   "assets",
		Short: "List generated assets",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			list, err := client.Assets(cmd.Context(), session)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(list) == 0 {
				fmt.Fprintln(out, "No assets yet.")
				return nil
			}
			rows := make([][]string, 0, len(list))
			for _, asset := range list {
				rows = append(rows, []string{
					shortID(asset.ID),
					asset.Session,
					string(asset.Kind),
					asset.Title,
					formatSize(asset.SizeBytes),
					asset.CreatedAt.Local().Format("2006-01-02 15:04"),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "Session", "Kind", "Title", "Size", "Created"},
				rows, 5))
			return nil
		},
	}
	cmd.Flags().StringVarP(&session, "session", "s", "", "Only list assets for one session")
	return cmd
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatSize(bytes int64) string {
	switch {
	case bytes >= 1<<20:
		return fmt.Sprintf("%.1f MiB", float64(bytes)/(1<<20))
	case bytes >= 1<<10:
		return fmt.Sprintf("%.1f KiB", float64(bytes)/(1<<10))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
