package feed

import (
	"context"

	"github.com/nao1215/deepscan/internal/model"
)

// Queue stores scan requests. Requests are unique per (website scan id, URL).
type Queue interface {
	// Enqueue stores the requests whose (WebsiteScanID, URL) is not stored
	// yet and returns how many were added. Existing requests are left as is.
	Enqueue(ctx context.Context, requests []model.ScanRequest) (int, error)

	// QueuedURLs returns the URLs that already have a request for the website scan.
	QueuedURLs(ctx context.Context, websiteScanID string) ([]string, error)
}

// WorkQueue is a Queue that workers drain.
type WorkQueue interface {
	Queue

	// Claim marks up to limit pending requests as running, oldest first,
	// and returns them.
	Claim(ctx context.Context, limit int) ([]model.ScanRequest, error)

	// Complete records the final status of a claimed request. Setting
	// ScanRequestPending releases it so a later Claim returns it again.
	Complete(ctx context.Context, id string, status model.ScanRequestStatus, errMsg string) error

	// ScanRequests returns every request of the website scan, oldest first.
	ScanRequests(ctx context.Context, websiteScanID string) ([]model.ScanRequest, error)
}
