package feed

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nao1215/deepscan/internal/discovery"
	"github.com/nao1215/deepscan/internal/model"
)

// Generator enqueues scan requests for the pages of a website scan.
type Generator struct {
	queue    Queue
	logger   *slog.Logger
	onQueued func(n int)
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) GeneratorOption {
	return func(g *Generator) {
		g.logger = logger
	}
}

// WithQueuedHook registers fn to be called with the number of requests
// added by each QueueDiscoveredPages call.
func WithQueuedHook(fn func(n int)) GeneratorOption {
	return func(g *Generator) {
		g.onQueued = fn
	}
}

// NewGenerator creates a Generator that enqueues into queue.
func NewGenerator(queue Queue, opts ...GeneratorOption) *Generator {
	g := &Generator{
		queue:  queue,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// QueueDiscoveredPages enqueues a deep scan request for every known page of
// websiteScan that has no request yet. The page that was just scanned is
// never queued again.
func (g *Generator) QueueDiscoveredPages(ctx context.Context, websiteScan *model.WebsiteScanResult, pageScanResult *model.OnDemandPageScanResult) error {
	if websiteScan == nil || len(websiteScan.KnownPages) == 0 {
		return nil
	}

	queued, err := g.queue.QueuedURLs(ctx, websiteScan.ID)
	if err != nil {
		return fmt.Errorf("failed to read queued urls of website scan %s: %w", websiteScan.ID, err)
	}

	skip := make(map[string]struct{}, len(queued)+1)
	for _, u := range queued {
		skip[discovery.NormalizeURL(u)] = struct{}{}
	}
	parentID := ""
	if pageScanResult != nil {
		skip[discovery.NormalizeURL(pageScanResult.URL)] = struct{}{}
		parentID = pageScanResult.ID
	}

	requests := make([]model.ScanRequest, 0, len(websiteScan.KnownPages))
	for _, page := range websiteScan.KnownPages {
		key := discovery.NormalizeURL(page)
		if _, ok := skip[key]; ok {
			continue
		}
		skip[key] = struct{}{}
		requests = append(requests, model.NewScanRequest(page, websiteScan.ID, parentID))
	}

	if len(requests) == 0 {
		g.logger.Debug("no new pages to queue", "websiteScanId", websiteScan.ID)
		return nil
	}

	added, err := g.queue.Enqueue(ctx, requests)
	if err != nil {
		return fmt.Errorf("failed to queue scan requests of website scan %s: %w", websiteScan.ID, err)
	}

	g.logger.Info("queued discovered pages",
		"websiteScanId", websiteScan.ID,
		"queued", added,
		"candidates", len(requests),
	)
	if g.onQueued != nil {
		g.onQueued(added)
	}
	return nil
}
