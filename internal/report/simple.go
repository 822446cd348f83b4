package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/deepscan/internal/model"
)

// SimpleWriter outputs human-readable text reports for terminal display.
type SimpleWriter struct {
	baseWriter

	// verbose lists every known page with its scan status.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the website report in human-readable format.
func (w *SimpleWriter) Write(report *WebsiteReport) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, report)
	w.writeSummary(&sb, report)
	if w.verbose {
		w.writePages(&sb, report)
	}
	w.writeFailures(&sb, report)

	return w.output.Write([]byte(sb.String()))
}

// WritePage outputs a page scan result in human-readable format.
func (w *SimpleWriter) WritePage(result *model.OnDemandPageScanResult) (int, error) {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Scan ID:      %s\n", result.ID)
	fmt.Fprintf(&sb, "URL:          %s\n", result.URL)
	if result.ScannedURL != "" {
		fmt.Fprintf(&sb, "Scanned URL:  %s\n", result.ScannedURL)
	}
	fmt.Fprintf(&sb, "Status Code:  %d\n", result.StatusCode)
	fmt.Fprintf(&sb, "Title:        %s\n", orDash(result.PageTitle))
	for _, ref := range result.WebsiteScanRefs {
		fmt.Fprintf(&sb, "Website Scan: %s (%s)\n", ref.ID, ref.ScanGroupType)
	}

	return w.output.Write([]byte(sb.String()))
}

// writeHeader writes the report header with website information.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, report *WebsiteReport) {
	ws := report.WebsiteScan

	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                     WEBSITE DEEP SCAN REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "Website Scan: %s\n", ws.ID)
	fmt.Fprintf(sb, "Base URL:     %s\n", ws.BaseURL)
	fmt.Fprintf(sb, "Patterns:     %s\n", orDash(strings.Join(ws.DiscoveryPatterns, ", ")))
	fmt.Fprintf(sb, "Known Pages:  %d\n", report.KnownPageCount())
	sb.WriteString("\n")
}

// writeSummary writes the scan request status counts.
func (w *SimpleWriter) writeSummary(sb *strings.Builder, report *WebsiteReport) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("PAGE SCAN STATUS\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "  PENDING:   %d\n", report.PendingCount)
	fmt.Fprintf(sb, "  RUNNING:   %d\n", report.RunningCount)
	fmt.Fprintf(sb, "  COMPLETED: %d\n", report.CompletedCount)
	fmt.Fprintf(sb, "  FAILED:    %d\n", report.FailedCount)
	sb.WriteString("\n")
}

// writePages lists the known pages with their scan status.
func (w *SimpleWriter) writePages(sb *strings.Builder, report *WebsiteReport) {
	sb.WriteString("KNOWN PAGES\n\n")
	if report.KnownPageCount() == 0 {
		sb.WriteString("  (none)\n\n")
		return
	}
	for _, page := range report.WebsiteScan.KnownPages {
		fmt.Fprintf(sb, "  [%-9s] %s\n", report.statusOf(page), page)
	}
	sb.WriteString("\n")
}

// writeFailures lists failed page scans and their errors.
func (w *SimpleWriter) writeFailures(sb *strings.Builder, report *WebsiteReport) {
	failed := report.FailedRequests()
	if len(failed) == 0 {
		return
	}
	sb.WriteString("FAILED PAGE SCANS\n\n")
	for _, req := range failed {
		fmt.Fprintf(sb, "  %s\n    %s\n", req.URL, orDash(req.Error))
	}
	sb.WriteString("\n")
}
