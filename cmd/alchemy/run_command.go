package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"alchemy/internal/campaign"
	"alchemy/internal/progress"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var session string
	var imageURL string
	var demographicsFile string
	var demographicFlags []string
	var follow bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start a campaign run",
		Long: `Start a campaign run for a set of target demographics.

Demographics come either from a JSON file (an array of objects with
title, description, city, and country fields) or from repeated
--demographic flags using "Title|description|city|country" syntax;
trailing empty fields may be omitted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			demographics, err := collectDemographics(demographicsFile, demographicFlags)
			if err != nil {
				return err
			}
			if len(demographics) == 0 {
				return fmt.Errorf("no demographics provided (use --demographic or --demographics-file)")
			}

			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			req := campaign.RunRequest{
				Session:      session,
				ImageURL:     imageURL,
				Demographics: demographics,
			}
			if err := client.StartRun(cmd.Context(), req); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Run started for session %q with %d demographics.\n", session, len(demographics))
			if !follow {
				fmt.Fprintf(out, "Follow progress with `alchemy progress --session %s`.\n", session)
				return nil
			}

			return client.Follow(cmd.Context(), session, func(msg progress.Message) {
				fmt.Fprintln(out, msg.Text)
			})
		},
	}

	cmd.Flags().StringVarP(&session, "session", "s", "voice", "Progress session identifier")
	cmd.Flags().StringVar(&imageURL, "image-url", "", "Optional source image to analyze before generation")
	cmd.Flags().StringVarP(&demographicsFile, "demographics-file", "f", "", "JSON file with the demographic list")
	cmd.Flags().StringArrayVarP(&demographicFlags, "demographic", "d", nil, `Inline demographic ("Title|description|city|country"), repeatable`)
	cmd.Flags().BoolVar(&follow, "follow", false, "Stream progress until interrupted")
	return cmd
}

func collectDemographics(file string, inline []string) ([]campaign.Demographic, error) {
	var demographics []campaign.Demographic
	if file = strings.TrimSpace(file); file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read demographics file: %w", err)
		}
		if err := json.Unmarshal(data, &demographics); err != nil {
			return nil, fmt.Errorf("decode demographics file: %w", err)
		}
	}
	for _, raw := range inline {
		d, err := parseDemographic(raw)
		if err != nil {
			return nil, err
		}
		demographics = append(demographics, d)
	}
	return demographics, nil
}

func parseDemographic(raw string) (campaign.Demographic, error) {
	parts := strings.Split(raw, "|")
	title := strings.TrimSpace(parts[0])
	if title == "" {
		return campaign.Demographic{}, fmt.Errorf("demographic %q: title required", raw)
	}
	d := campaign.Demographic{Title: title}
	if len(parts) > 1 {
		d.Description = strings.TrimSpace(parts[1])
	}
	if len(parts) > 2 {
		d.City = strings.TrimSpace(parts[2])
	}
	if len(parts) > 3 {
		d.Country = strings.TrimSpace(parts[3])
	}
	return d, nil
}
