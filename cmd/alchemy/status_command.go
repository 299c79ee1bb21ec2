package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"alchemy/internal/apiclient"
)

const (
	ansiReset = "\x1b[0m"
	ansiRed   = "\x1b[31m"
	ansiGreen = "\x1b[32m"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon status",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			status, err := client.Status(cmd.Context())
			if err != nil {
				if errors.Is(err, apiclient.ErrAPIUnavailable) {
					fmt.Fprintln(out, statusBadge(false, shouldColorize(out))+" daemon is not reachable at "+ctx.apiBind())
					fmt.Fprintln(out, "Start it with `alchemyd`.")
					return nil
				}
				return err
			}

			colorize := shouldColorize(out)
			fmt.Fprintln(out, statusBadge(status.Running, colorize)+" alchemy daemon")
			rows := [][]string{
				{"PID", fmt.Sprintf("%d", status.PID)},
				{"API address", status.APIAddress},
				{"Media dir", status.MediaDir},
				{"Lock file", status.LockFilePath},
			}
			fmt.Fprintln(out, renderTable([]string{"Field", "Value"}, rows))
			return nil
		},
	}
}

func statusBadge(running bool, colorize bool) string {
	if running {
		if colorize {
			return ansiGreen + "[RUNNING]" + ansiReset
		}
		return "[RUNNING]"
	}
	if colorize {
		return ansiRed + "[STOPPED]" + ansiReset
	}
	return "[STOPPED]"
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
