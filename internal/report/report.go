package report

import (
	"time"

	"github.com/nao1215/deepscan/internal/model"
)

// WebsiteReport summarizes a website scan and its queued page scans.
type WebsiteReport struct {
	// WebsiteScan is the reported website scan.
	WebsiteScan *model.WebsiteScanResult `json:"website_scan"`

	// ScanRequests are the page scans queued for the website, oldest first.
	ScanRequests []model.ScanRequest `json:"scan_requests"`

	// Status counts of ScanRequests.
	PendingCount   int `json:"pending_count"`
	RunningCount   int `json:"running_count"`
	CompletedCount int `json:"completed_count"`
	FailedCount    int `json:"failed_count"`

	// GeneratedAt is when the report was built.
	GeneratedAt time.Time `json:"generated_at"`
}

// NewWebsiteReport builds a report and counts request statuses.
func NewWebsiteReport(websiteScan *model.WebsiteScanResult, requests []model.ScanRequest) *WebsiteReport {
	if requests == nil {
		requests = make([]model.ScanRequest, 0)
	}
	r := &WebsiteReport{
		WebsiteScan:  websiteScan,
		ScanRequests: requests,
		GeneratedAt:  time.Now().UTC(),
	}
	for _, req := range requests {
		switch req.Status {
		case model.ScanRequestPending:
			r.PendingCount++
		case model.ScanRequestRunning:
			r.RunningCount++
		case model.ScanRequestCompleted:
			r.CompletedCount++
		case model.ScanRequestFailed:
			r.FailedCount++
		}
	}
	return r
}

// KnownPageCount returns the number of pages recorded on the website scan.
func (r *WebsiteReport) KnownPageCount() int {
	if r.WebsiteScan == nil {
		return 0
	}
	return len(r.WebsiteScan.KnownPages)
}

// FailedRequests returns the failed scan requests.
func (r *WebsiteReport) FailedRequests() []model.ScanRequest {
	failed := make([]model.ScanRequest, 0, r.FailedCount)
	for _, req := range r.ScanRequests {
		if req.Status == model.ScanRequestFailed {
			failed = append(failed, req)
		}
	}
	return failed
}

// statusOf returns the request status of a known page, or "-" when the
// page has no request (the page the website scan started from).
func (r *WebsiteReport) statusOf(pageURL string) string {
	for _, req := range r.ScanRequests {
		if req.URL == pageURL {
			return string(req.Status)
		}
	}
	return "-"
}
