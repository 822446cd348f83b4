package websitescan

import (
	"context"

	"github.com/nao1215/deepscan/internal/model"
)

// Store persists WebsiteScanResult documents under optimistic concurrency.
//
// Implementations assign a new ETag on every successful Create and Replace
// and return the stored document carrying it.
type Store interface {
	// Read returns the stored document or ErrNotFound.
	Read(ctx context.Context, id string) (*model.WebsiteScanResult, error)

	// Create stores a new document or returns ErrAlreadyExists.
	Create(ctx context.Context, doc *model.WebsiteScanResult) (*model.WebsiteScanResult, error)

	// Replace stores doc if the stored ETag equals doc.ETag, otherwise it
	// returns ErrConflict. A missing document yields ErrNotFound.
	Replace(ctx context.Context, doc *model.WebsiteScanResult) (*model.WebsiteScanResult, error)
}
