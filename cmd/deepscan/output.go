package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nao1215/deepscan/internal/model"
	"github.com/nao1215/deepscan/internal/report"
)

// errConflictingFormats is returned when both --json and --markdown are set.
var errConflictingFormats = errors.New("--json and --markdown are mutually exclusive")

// addOutputFlags adds the report format and destination flags.
func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write output to specified file path (creates directories if needed)")
}

// newReportWriter creates the writer selected by the output flags.
func newReportWriter(v *viper.Viper, output io.Writer) (report.Writer, error) {
	jsonFormat := v.GetBool("json")
	markdownFormat := v.GetBool("markdown")

	switch {
	case jsonFormat && markdownFormat:
		return nil, errConflictingFormats
	case jsonFormat:
		return report.NewJSONWriter(output, report.WithPrettyPrint(), report.WithVersion(getVersion())), nil
	case markdownFormat:
		return report.NewMarkdownWriter(output), nil
	default:
		return report.NewSimpleWriter(output, report.WithVerbose(v.GetBool("verbose"))), nil
	}
}

// withOutput calls fn with the destination selected by --output: the
// named file, or the command's stdout.
func withOutput(cmd *cobra.Command, v *viper.Viper, fn func(report.Writer) error) error {
	var output io.Writer = cmd.OutOrStdout()

	if path := v.GetString("output"); path != "" {
		dir := filepath.Dir(path)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		// Reports list every known page of a website; keep them private.
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		output = f
	}

	writer, err := newReportWriter(v, output)
	if err != nil {
		return err
	}
	return fn(writer)
}

// writePageResult writes a page scan result.
func writePageResult(cmd *cobra.Command, v *viper.Viper, result *model.OnDemandPageScanResult) error {
	return withOutput(cmd, v, func(w report.Writer) error {
		if _, err := w.WritePage(result); err != nil {
			return fmt.Errorf("failed to write page result: %w", err)
		}
		return nil
	})
}

// writeWebsiteReport writes a website report.
func writeWebsiteReport(cmd *cobra.Command, v *viper.Viper, websiteReport *report.WebsiteReport) error {
	return withOutput(cmd, v, func(w report.Writer) error {
		if _, err := w.Write(websiteReport); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
		return nil
	})
}
