package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for deepscan.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deepscan",
		Short: "Website deep scan orchestrator",
		Long: `deepscan turns single page scans into website-wide scans.

A page scan that asks for a deep scan crawls the links of its page,
records the in-scope pages on a shared website scan and queues a page
scan for every page that was not known before. Workers drain the queue,
and each queued scan crawls further until the website reaches its page
limit.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().StringP("config", "c", "",
		"Configuration file path (default: .deepscan.yaml in current directory or XDG config dir)")

	// Add subcommands
	cmd.AddCommand(NewScanCmd())
	cmd.AddCommand(NewWorkerCmd())
	cmd.AddCommand(NewReportCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
