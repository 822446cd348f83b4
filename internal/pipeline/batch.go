package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/deepscan/internal/metrics"
	"github.com/nao1215/deepscan/internal/model"
)

// PageFactory creates a ready-to-use page for one scan.
type PageFactory func(ctx context.Context) (Page, error)

// BatchProcessor runs many page scans concurrently.
// Each scan gets a fresh pipeline and page.
type BatchProcessor struct {
	// pipelineFactory creates a new pipeline for each scan.
	pipelineFactory func() *Pipeline

	// pageFactory creates the page each scan loads. The page is closed
	// when the scan finishes.
	pageFactory PageFactory

	// concurrency is the maximum number of concurrent scans.
	concurrency int

	// recorder counts running and finished scans.
	recorder *metrics.Recorder

	// logger is used for batch-level logging.
	logger *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent scans.
// Default is 4 if not specified.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// WithBatchRecorder records busy workers and page scan outcomes.
func WithBatchRecorder(recorder *metrics.Recorder) BatchOption {
	return func(b *BatchProcessor) {
		b.recorder = recorder
	}
}

// NewBatchProcessor creates a new BatchProcessor.
func NewBatchProcessor(pipelineFactory func() *Pipeline, pageFactory PageFactory, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		pipelineFactory: pipelineFactory,
		pageFactory:     pageFactory,
		concurrency:     4,
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// ProcessBatch scans the requests concurrently and returns one Scan per
// request, in request order. Failed scans are returned with their error
// recorded; the returned error is only set when ctx is cancelled.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, requests []model.ScanRequest) ([]*Scan, error) {
	bp.logger.Info("starting batch processing",
		"total_requests", len(requests),
		"concurrency", bp.concurrency,
	)

	startTime := time.Now()
	results := make([]*Scan, len(requests))
	var mu sync.Mutex

	err := bp.ProcessBatchWithCallback(ctx, requests, func(scan *Scan, index int) {
		mu.Lock()
		results[index] = scan
		mu.Unlock()
	})

	bp.logger.Info("batch processing complete",
		"total_requests", len(requests),
		"elapsed", time.Since(startTime),
	)

	return results, err
}

// ProcessBatchWithCallback scans the requests and calls callback for each
// finished scan with the index of its request. The callback is called from
// the scanning goroutine, so it must be safe for concurrent use.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	requests []model.ScanRequest,
	callback func(scan *Scan, index int),
) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, req := range requests {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			scan := bp.scan(ctx, req)
			callback(scan, i)
			return nil
		})
	}

	return g.Wait()
}

// scan runs one request on a fresh page and pipeline.
func (bp *BatchProcessor) scan(ctx context.Context, req model.ScanRequest) *Scan {
	bp.recorder.RecordWorkerStarted()
	defer bp.recorder.RecordWorkerFinished()

	scan := NewScan(req.Metadata(), req.PageScanResult(), nil)

	page, err := bp.pageFactory(ctx)
	if err != nil {
		scan.Error = fmt.Errorf("failed to create page: %w", err)
		scan.ErrorMessage = scan.Error.Error()
		bp.logger.Warn("scan failed", "scanId", req.ID, "url", req.URL, "error", scan.Error)
		bp.recorder.RecordPageScan(string(model.ScanRequestFailed))
		return scan
	}
	defer func() {
		if err := page.Close(); err != nil {
			bp.logger.Debug("failed to close page", "scanId", req.ID, "error", err)
		}
	}()
	scan.Page = page

	if err := bp.pipelineFactory().Execute(ctx, scan); err != nil {
		bp.logger.Warn("scan failed", "scanId", req.ID, "url", req.URL, "error", err)
		bp.recorder.RecordPageScan(string(model.ScanRequestFailed))
		return scan
	}

	bp.logger.Info("scan completed", "scanId", req.ID, "url", req.URL)
	bp.recorder.RecordPageScan(string(model.ScanRequestCompleted))
	return scan
}
