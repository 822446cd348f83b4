package report

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/deepscan/internal/model"
)

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for documentation and sharing.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the website report in Markdown format.
func (w *MarkdownWriter) Write(report *WebsiteReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writeSummary(md, report)
	w.writePages(md, report)
	w.writeFailures(md, report)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// WritePage outputs a page scan result in Markdown format.
func (w *MarkdownWriter) WritePage(result *model.OnDemandPageScanResult) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Page Scan")
	md.PlainText("")

	rows := [][]string{
		{"Scan ID", "`" + result.ID + "`"},
		{"URL", result.URL},
		{"Scanned URL", orDash(result.ScannedURL)},
		{"Status Code", strconv.Itoa(result.StatusCode)},
		{"Title", orDash(result.PageTitle)},
	}
	for _, ref := range result.WebsiteScanRefs {
		rows = append(rows, []string{"Website Scan (" + string(ref.ScanGroupType) + ")", "`" + ref.ID + "`"})
	}

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with website information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *WebsiteReport) {
	md.H1("Website Deep Scan Report")
	md.PlainText("")

	ws := report.WebsiteScan
	patterns := "-"
	if ws.HasDiscoveryPatterns() {
		patterns = "`" + ws.DiscoveryPatterns[0] + "`"
		if len(ws.DiscoveryPatterns) > 1 {
			patterns += " (+" + strconv.Itoa(len(ws.DiscoveryPatterns)-1) + ")"
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Website Scan ID", "`" + ws.ID + "`"},
			{"Base URL", ws.BaseURL},
			{"Discovery Pattern", patterns},
			{"Known Pages", strconv.Itoa(report.KnownPageCount())},
			{"Last Updated", ws.UpdatedAt.Format("2006-01-02 15:04:05 MST")},
		},
	})
	md.PlainText("")
}

// writeSummary writes the scan request status section.
func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, report *WebsiteReport) {
	md.H2("Page Scan Status")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Status", "Count"},
		Rows: [][]string{
			{"Pending", strconv.Itoa(report.PendingCount)},
			{"Running", strconv.Itoa(report.RunningCount)},
			{"Completed", strconv.Itoa(report.CompletedCount)},
			{"Failed", strconv.Itoa(report.FailedCount)},
			{"**Total**", "**" + strconv.Itoa(len(report.ScanRequests)) + "**"},
		},
	})
	md.PlainText("")

	if len(report.ScanRequests) > 0 {
		w.writePieChart(md, report)
	}
	w.writeAlert(md, report)
}

// writePieChart writes a mermaid pie chart of request statuses.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, report *WebsiteReport) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Page Scan Status"),
		piechart.WithShowData(true),
	)

	if report.PendingCount > 0 {
		chart.LabelAndIntValue("Pending", uint64(report.PendingCount))
	}
	if report.RunningCount > 0 {
		chart.LabelAndIntValue("Running", uint64(report.RunningCount))
	}
	if report.CompletedCount > 0 {
		chart.LabelAndIntValue("Completed", uint64(report.CompletedCount))
	}
	if report.FailedCount > 0 {
		chart.LabelAndIntValue("Failed", uint64(report.FailedCount))
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeAlert writes an alert summarizing the scan state.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, report *WebsiteReport) {
	switch {
	case report.FailedCount > 0:
		md.Warningf("%d page scan(s) failed.", report.FailedCount)
	case report.PendingCount+report.RunningCount > 0:
		md.Note(strconv.Itoa(report.PendingCount+report.RunningCount) + " page scan(s) are still queued or running.")
	case len(report.ScanRequests) == 0:
		md.Note("No pages have been queued for this website yet.")
	default:
		md.Tip("Every queued page has been scanned.")
	}
	md.PlainText("")
}

// writePages writes the known pages with their scan status.
func (w *MarkdownWriter) writePages(md *markdown.Markdown, report *WebsiteReport) {
	md.H2("Known Pages")
	md.PlainText("")

	if report.KnownPageCount() == 0 {
		md.PlainText("No pages discovered yet.")
		md.PlainText("")
		return
	}

	rows := make([][]string, 0, report.KnownPageCount())
	for i, page := range report.WebsiteScan.KnownPages {
		rows = append(rows, []string{strconv.Itoa(i + 1), page, report.statusOf(page)})
	}
	md.Table(markdown.TableSet{
		Header: []string{"#", "URL", "Status"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFailures writes the error of each failed page scan.
func (w *MarkdownWriter) writeFailures(md *markdown.Markdown, report *WebsiteReport) {
	failed := report.FailedRequests()
	if len(failed) == 0 {
		return
	}

	md.H2("Failed Page Scans")
	md.PlainText("")
	for _, req := range failed {
		md.Details(req.URL, orDash(req.Error))
	}
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [deepscan](https://github.com/nao1215/deepscan)*")
}
