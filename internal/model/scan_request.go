package model

import (
	"time"

	"github.com/google/uuid"
)

// ScanRequestStatus is the lifecycle state of a queued page scan.
type ScanRequestStatus string

const (
	// ScanRequestPending is waiting to be claimed by a worker.
	ScanRequestPending ScanRequestStatus = "pending"

	// ScanRequestRunning has been claimed by a worker.
	ScanRequestRunning ScanRequestStatus = "running"

	// ScanRequestCompleted finished successfully.
	ScanRequestCompleted ScanRequestStatus = "completed"

	// ScanRequestFailed finished with an error.
	ScanRequestFailed ScanRequestStatus = "failed"
)

// ScanRequest is a page scan emitted by feed generation for a page that
// became known through deep scanning.
type ScanRequest struct {
	// ID is the page scan identifier assigned to the request.
	ID string `json:"id"`

	// URL is the page to scan.
	URL string `json:"url"`

	// DeepScan is forwarded to the page scan so that it crawls as well.
	DeepScan bool `json:"deep_scan"`

	// WebsiteScanID is the website scan the page belongs to.
	WebsiteScanID string `json:"website_scan_id"`

	// ParentScanID is the page scan whose deep scan discovered this page.
	ParentScanID string `json:"parent_scan_id,omitempty"`

	// Status is the request lifecycle state.
	Status ScanRequestStatus `json:"status"`

	// Error holds the failure message for failed requests.
	Error string `json:"error,omitempty"`

	// CreatedAt is when the request was queued.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is when the status last changed.
	UpdatedAt time.Time `json:"updated_at"`
}

// NewScanRequest creates a pending deep scan request for a discovered page.
func NewScanRequest(pageURL, websiteScanID, parentScanID string) ScanRequest {
	now := time.Now().UTC()
	return ScanRequest{
		ID:            uuid.NewString(),
		URL:           pageURL,
		DeepScan:      true,
		WebsiteScanID: websiteScanID,
		ParentScanID:  parentScanID,
		Status:        ScanRequestPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Metadata returns the scan metadata for running this request.
func (r ScanRequest) Metadata() *ScanMetadata {
	return &ScanMetadata{
		ID:       r.ID,
		URL:      r.URL,
		DeepScan: r.DeepScan,
	}
}

// PageScanResult returns the page scan result a run of this request starts
// from, referencing the request's website scan as its deep scan target.
func (r ScanRequest) PageScanResult() *OnDemandPageScanResult {
	return &OnDemandPageScanResult{
		ID:  r.ID,
		URL: r.URL,
		WebsiteScanRefs: []WebsiteScanRef{
			{ID: r.WebsiteScanID, ScanGroupType: ScanGroupDeepScan},
		},
	}
}
