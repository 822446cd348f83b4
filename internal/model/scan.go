package model

import "time"

// ScanGroupType tags the role a website scan plays for a page scan.
type ScanGroupType string

const (
	// ScanGroupDeepScan marks the website scan that collects the pages
	// discovered by deep scanning. Exactly one is expected per deep scan run.
	ScanGroupDeepScan ScanGroupType = "deep-scan"

	// ScanGroupConsolidatedReport marks the website scan that aggregates
	// page results into a single report.
	ScanGroupConsolidatedReport ScanGroupType = "consolidated-scan-report"
)

// ScanMetadata describes a single page scan request.
// It is created by the caller before a scan begins and never mutated.
type ScanMetadata struct {
	// ID is the page scan identifier.
	ID string `json:"id"`

	// URL is the page to scan. For a deep scan it is also the crawl seed.
	URL string `json:"url"`

	// DeepScan enables website-wide crawling from this page.
	DeepScan bool `json:"deep_scan"`
}

// WebsiteScanRef links a page scan result to a website scan aggregate.
type WebsiteScanRef struct {
	// ID is the website scan identifier.
	ID string `json:"id"`

	// ScanGroupType is the role of the referenced website scan.
	ScanGroupType ScanGroupType `json:"scan_group_type"`
}

// OnDemandPageScanResult is the result of scanning a single page.
// The deep scanner only reads it.
type OnDemandPageScanResult struct {
	// ID is the page scan identifier.
	ID string `json:"id"`

	// URL is the scanned page.
	URL string `json:"url"`

	// WebsiteScanRefs lists the website scans this page belongs to.
	// A nil slice means the page scan is not part of any website scan.
	WebsiteScanRefs []WebsiteScanRef `json:"website_scan_refs,omitempty"`

	// StatusCode is the HTTP status of the loaded page.
	StatusCode int `json:"status_code,omitempty"`

	// PageTitle is the <title> of the loaded page.
	PageTitle string `json:"page_title,omitempty"`

	// ScannedURL is set when the page was reached through a redirect.
	ScannedURL string `json:"scanned_url,omitempty"`

	// ScannedAt is when the page was loaded.
	ScannedAt time.Time `json:"scanned_at"`
}

// WebsiteScanRef returns the first reference with the given group type.
func (r *OnDemandPageScanResult) WebsiteScanRef(groupType ScanGroupType) (WebsiteScanRef, bool) {
	for _, ref := range r.WebsiteScanRefs {
		if ref.ScanGroupType == groupType {
			return ref, true
		}
	}
	return WebsiteScanRef{}, false
}
