package deepscan

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/nao1215/deepscan/internal/config"
	"github.com/nao1215/deepscan/internal/discovery"
	"github.com/nao1215/deepscan/internal/metrics"
	"github.com/nao1215/deepscan/internal/model"
)

// Page is a loaded page whose HTTP client is reused for crawling.
type Page interface {
	UnderlyingPage() *http.Client
}

// CrawlConfigProvider returns the crawl limits.
type CrawlConfigProvider interface {
	CrawlConfig(ctx context.Context) (config.CrawlConfig, error)
}

// WebsiteScanReader reads a website scan by id.
type WebsiteScanReader interface {
	Read(ctx context.Context, id string) (*model.WebsiteScanResult, error)
}

// WebsiteScanWriter merges discovered URLs into a website scan.
type WebsiteScanWriter interface {
	UpdateWithDiscoveredURLs(ctx context.Context, websiteScanID string, urls, patterns []string) (*model.WebsiteScanResult, error)
}

// CrawlRunner crawls from a seed URL and returns in-scope URLs.
type CrawlRunner interface {
	Run(ctx context.Context, seedURL string, patterns []string, client *http.Client) ([]string, error)
}

// FeedGenerator queues scan requests for the pages of a website scan.
type FeedGenerator interface {
	QueueDiscoveredPages(ctx context.Context, websiteScan *model.WebsiteScanResult, pageScanResult *model.OnDemandPageScanResult) error
}

// PatternGenerator returns the default discovery pattern of a base URL.
type PatternGenerator func(baseURL string) string

// URLProcessor bounds and deduplicates discovered URLs against known ones.
type URLProcessor func(discovered []string, limit int, known []string) []string

// Scanner runs deep scans.
type Scanner struct {
	config      CrawlConfigProvider
	reader      WebsiteScanReader
	crawler     CrawlRunner
	writer      WebsiteScanWriter
	feed        FeedGenerator
	generate    PatternGenerator
	processURLs URLProcessor
	recorder    *metrics.Recorder
	logger      *slog.Logger
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scanner) {
		s.logger = logger
	}
}

// WithPatternGenerator replaces discovery.GeneratePattern.
func WithPatternGenerator(fn PatternGenerator) Option {
	return func(s *Scanner) {
		s.generate = fn
	}
}

// WithURLProcessor replaces discovery.ProcessURLs.
func WithURLProcessor(fn URLProcessor) Option {
	return func(s *Scanner) {
		s.processURLs = fn
	}
}

// WithRecorder records run outcomes and discovered URL counts.
func WithRecorder(recorder *metrics.Recorder) Option {
	return func(s *Scanner) {
		s.recorder = recorder
	}
}

// NewScanner creates a Scanner from its collaborators.
func NewScanner(
	cfg CrawlConfigProvider,
	reader WebsiteScanReader,
	crawler CrawlRunner,
	writer WebsiteScanWriter,
	feed FeedGenerator,
	opts ...Option,
) *Scanner {
	s := &Scanner{
		config:      cfg,
		reader:      reader,
		crawler:     crawler,
		writer:      writer,
		feed:        feed,
		generate:    discovery.GeneratePattern,
		processURLs: discovery.ProcessURLs,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RunDeepScan crawls the website of pageScanResult from metadata.URL and
// records the discovered pages on the website scan referenced by the
// page scan result's deep-scan reference. Newly known pages are queued
// for scanning.
//
// Reaching the urlCrawlLimit is not an error: the run ends without
// crawling and RunDeepScan returns nil.
func (s *Scanner) RunDeepScan(
	ctx context.Context,
	metadata *model.ScanMetadata,
	pageScanResult *model.OnDemandPageScanResult,
	page Page,
) error {
	start := time.Now()
	outcome := metrics.OutcomeFailed
	defer func() {
		s.recorder.RecordRun(outcome, time.Since(start))
	}()

	ref, ok := pageScanResult.WebsiteScanRef(model.ScanGroupDeepScan)
	if !ok {
		s.logger.Error("Website scan ref is not found for deep scan",
			"scanId", metadata.ID,
			"url", metadata.URL,
			"websiteScanRefs", pageScanResult.WebsiteScanRefs,
		)
		outcome = metrics.OutcomeMissingRef
		return fmt.Errorf("%w: page scan %s", ErrMissingDeepScanRef, pageScanResult.ID)
	}

	logger := s.logger.With("websiteScanId", ref.ID)
	logger.Debug("deep scan reference resolved", "scanId", metadata.ID)

	crawlConfig, err := s.config.CrawlConfig(ctx)
	if err != nil {
		return fmt.Errorf("failed to read crawl config: %w", err)
	}
	limit := crawlConfig.URLCrawlLimit

	websiteScan, err := s.reader.Read(ctx, ref.ID)
	if err != nil {
		return err
	}

	if len(websiteScan.KnownPages) > limit {
		logger.Info("The website deep scan completed since maximum discovered pages limit was reached.",
			"discoveredUrlsTotal", strconv.Itoa(len(websiteScan.KnownPages)),
			"discoveredUrlsLimit", strconv.Itoa(limit),
		)
		outcome = metrics.OutcomeLimitReached
		return nil
	}
	logger.Debug("discovered pages limit checked",
		"knownPages", len(websiteScan.KnownPages),
		"limit", limit,
	)

	patterns := websiteScan.DiscoveryPatterns
	if len(patterns) == 0 {
		patterns = []string{s.generate(websiteScan.BaseURL)}
		logger.Debug("discovery pattern generated", "patterns", patterns)
	} else {
		logger.Debug("discovery patterns reused", "patterns", patterns)
	}

	discovered, err := s.crawler.Run(ctx, metadata.URL, patterns, page.UnderlyingPage())
	if err != nil {
		return fmt.Errorf("failed to crawl %s: %w", metadata.URL, err)
	}
	logger.Debug("website crawled", "discoveredUrls", len(discovered))

	processed := s.processURLs(discovered, limit, websiteScan.KnownPages)
	logger.Debug("discovered urls processed", "newUrls", len(processed))

	updated, err := s.writer.UpdateWithDiscoveredURLs(ctx, ref.ID, processed, patterns)
	if err != nil {
		return fmt.Errorf("failed to update website scan: %w", err)
	}
	s.recorder.RecordDiscoveredURLs(len(processed))
	logger.Debug("website scan updated", "knownPages", len(updated.KnownPages))

	if err := s.feed.QueueDiscoveredPages(ctx, updated, pageScanResult); err != nil {
		return fmt.Errorf("failed to queue discovered pages: %w", err)
	}

	logger.Info("The website deep scan completed.",
		"discoveredUrls", len(discovered),
		"newUrls", len(processed),
		"knownPages", len(updated.KnownPages),
	)
	outcome = metrics.OutcomeCompleted
	return nil
}
