package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/nao1215/deepscan/internal/browser"
	"github.com/nao1215/deepscan/internal/deepscan"
	"github.com/nao1215/deepscan/internal/model"
)

// Page is the page a scan loads and crawls with.
// *browser.Page implements it.
type Page interface {
	Navigate(ctx context.Context, pageURL string) (*browser.NavigationResult, error)
	UnderlyingPage() *http.Client
	Close() error
}

// DeepScanner runs a deep scan for a loaded page.
// *deepscan.Scanner implements it.
type DeepScanner interface {
	RunDeepScan(ctx context.Context, metadata *model.ScanMetadata, pageScanResult *model.OnDemandPageScanResult, page deepscan.Page) error
}

// PageLoadStep loads the scanned page and records the outcome on the
// page scan result.
type PageLoadStep struct {
	// logger for structured logging.
	logger *slog.Logger
}

// PageLoadStepOption configures a PageLoadStep.
type PageLoadStepOption func(*PageLoadStep)

// WithPageLoadLogger sets a custom logger for the page load step.
func WithPageLoadLogger(logger *slog.Logger) PageLoadStepOption {
	return func(s *PageLoadStep) {
		s.logger = logger
	}
}

// NewPageLoadStep creates a new page load step.
func NewPageLoadStep(opts ...PageLoadStepOption) *PageLoadStep {
	s := &PageLoadStep{
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *PageLoadStep) Name() string {
	return "page_load"
}

// Do navigates the scan's page to the scan URL.
func (s *PageLoadStep) Do(ctx context.Context, scan *Scan) error {
	nav, err := scan.Page.Navigate(ctx, scan.Metadata.URL)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", scan.Metadata.URL, err)
	}

	scan.Result.StatusCode = nav.StatusCode
	scan.Result.PageTitle = nav.Title
	scan.Result.ScannedAt = time.Now().UTC()
	if nav.Redirected() {
		scan.Result.ScannedURL = nav.URL
	}

	s.logger.Info("page loaded",
		"scanId", scan.Metadata.ID,
		"url", scan.Metadata.URL,
		"status", nav.StatusCode,
		"redirected", nav.Redirected(),
	)
	return nil
}

// DeepScanStep runs the deep scan of a loaded page. Scans that did not ask
// for a deep scan pass through untouched.
type DeepScanStep struct {
	// scanner runs the deep scan.
	scanner DeepScanner

	// logger for structured logging.
	logger *slog.Logger
}

// DeepScanStepOption configures a DeepScanStep.
type DeepScanStepOption func(*DeepScanStep)

// WithDeepScanLogger sets a custom logger for the deep scan step.
func WithDeepScanLogger(logger *slog.Logger) DeepScanStepOption {
	return func(s *DeepScanStep) {
		s.logger = logger
	}
}

// NewDeepScanStep creates a new deep scan step.
func NewDeepScanStep(scanner DeepScanner, opts ...DeepScanStepOption) *DeepScanStep {
	s := &DeepScanStep{
		scanner: scanner,
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *DeepScanStep) Name() string {
	return "deep_scan"
}

// Do runs the deep scan when the scan metadata enables it.
func (s *DeepScanStep) Do(ctx context.Context, scan *Scan) error {
	if !scan.Metadata.DeepScan {
		s.logger.Debug("deep scan disabled for page", "scanId", scan.Metadata.ID)
		return nil
	}
	return s.scanner.RunDeepScan(ctx, scan.Metadata, scan.Result, scan.Page)
}

// DefaultPipeline creates the page scan pipeline: page_load then deep_scan.
func DefaultPipeline(scanner DeepScanner, logger *slog.Logger, opts ...Option) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}

	p := New(append([]Option{WithLogger(logger)}, opts...)...)
	p.AddSteps(
		NewPageLoadStep(WithPageLoadLogger(logger)),
		NewDeepScanStep(scanner, WithDeepScanLogger(logger)),
	)
	return p
}
