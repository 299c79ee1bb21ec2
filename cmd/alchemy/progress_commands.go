package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"alchemy/internal/progress"
)

func newProgressCommand(ctx *commandContext) *cobra.Command {
	var session string
	var timestamps bool

	cmd := &cobra.Command{
		Use:   "progress",
		Short: "Follow a session's progress stream",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			return client.Follow(cmd.Context(), session, func(msg progress.Message) {
				if timestamps && msg.TS > 0 {
					at := time.UnixMilli(msg.TS).Local().Format("15:04:05")
					fmt.Fprintf(out, "%s %s\n", at, msg.Text)
					return
				}
				fmt.Fprintln(out, msg.Text)
			})
		},
	}
	cmd.PersistentFlags().StringVarP(&session, "session", "s", "default", "Progress session identifier")
	cmd.Flags().BoolVar(&timestamps, "timestamps", false, "Prefix messages with their publish time")

	cmd.AddCommand(newProgressSendCommand(ctx, &session))
	return cmd
}

func newProgressSendCommand(ctx *commandContext, session *string) *cobra.Command {
	return &cobra.Command{
		Use:   "send <message>",
		Short: "Publish a message to a session",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			message := strings.TrimSpace(strings.Join(args, " "))
			if message == "" {
				return fmt.Errorf("message must not be empty")
			}
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			if err := client.Push(cmd.Context(), *session, message); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Published to session %q.\n", *session)
			return nil
		},
	}
}
