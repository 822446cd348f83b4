package report

import (
	"io"

	"github.com/nao1215/deepscan/internal/model"
)

// Writer defines the interface for report output.
type Writer interface {
	// Write outputs a website report.
	// Returns the number of bytes written and any error encountered.
	Write(report *WebsiteReport) (int, error)

	// WritePage outputs the result of a single page scan.
	WritePage(result *model.OnDemandPageScanResult) (int, error)
}

// MultiWriter writes to multiple Writers simultaneously.
// This is useful for outputting to both terminal and file.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the report to all configured Writers.
// Returns the total bytes written across all writers.
// Stops on first error encountered.
func (m *MultiWriter) Write(report *WebsiteReport) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(report)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// WritePage outputs the page result to all configured Writers.
func (m *MultiWriter) WritePage(result *model.OnDemandPageScanResult) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.WritePage(result)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// orDash returns s, or "-" when s is empty.
func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
