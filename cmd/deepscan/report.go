package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nao1215/deepscan/internal/report"
)

// NewReportCmd creates the report command.
func NewReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Summarize a website scan",
		Long: `Report prints the pages known for a website scan and the status of
their queued page scans.

Use --list to print the ids of all stored website scans.

Examples:
  # Human-readable summary with every known page
  deepscan report --website-id example -v

  # Markdown report written to a file
  deepscan report --website-id example --markdown -o reports/example.md`,
		Args: cobra.NoArgs,
		RunE: runReportCmd,
	}

	cmd.Flags().String("website-id", "", "Website scan id")
	cmd.Flags().Bool("list", false, "List stored website scan ids")
	cmd.Flags().String("prefix", "", "Only list website scan ids with this prefix")

	addOutputFlags(cmd)

	return cmd
}

// runReportCmd executes the report command.
func runReportCmd(cmd *cobra.Command, _ []string) error {
	v, err := newViper(cmd)
	if err != nil {
		return err
	}

	websiteID := v.GetString("website-id")
	list := v.GetBool("list")
	if websiteID == "" && !list {
		return errors.New("website scan id is required (--website-id or DEEPSCAN_WEBSITE_ID)")
	}

	cfg, err := loadServiceConfig(v)
	if err != nil {
		return err
	}

	svc, err := openService(cfg, newLogger(v, false), nil)
	if err != nil {
		return err
	}
	defer svc.Close()

	ctx := cmd.Context()

	if list {
		ids, err := svc.store.ListWebsiteScanIDs(ctx, v.GetString("prefix"))
		if err != nil {
			return fmt.Errorf("failed to list website scans: %w", err)
		}
		for _, id := range ids {
			fmt.Fprintln(cmd.OutOrStdout(), id)
		}
		return nil
	}

	websiteScan, err := svc.websiteScans().Read(ctx, websiteID)
	if err != nil {
		return err
	}
	requests, err := svc.store.ScanRequests(ctx, websiteID)
	if err != nil {
		return fmt.Errorf("failed to read scan requests: %w", err)
	}

	return writeWebsiteReport(cmd, v, report.NewWebsiteReport(websiteScan, requests))
}
