// Package report renders website scans and page scan results.
//
// This package contains writers for different output formats:
//   - SimpleWriter: Human-readable text output for terminal display
//   - MarkdownWriter: Markdown built with nao1215/markdown for sharing
//   - JSONWriter: Structured JSON output for tool integration
//
// A WebsiteReport combines a website scan with the status of the scan
// requests queued for its pages. Writers implement the Writer interface,
// allowing them to be used interchangeably and composed with MultiWriter.
package report
