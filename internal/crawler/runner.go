package crawler

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/nao1215/deepscan/internal/discovery"
)

// Default crawl settings.
const (
	// DefaultMaxDepth loads the seed page and collects the links on it.
	DefaultMaxDepth = 1

	// DefaultUserAgent is sent with crawl requests.
	DefaultUserAgent = "deepscan/1.0"

	// DefaultMaxBodySize limits the bytes read per crawled page.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB
)

// Runner performs one crawl pass from a seed page and returns the
// in-scope URLs it discovered. A Runner holds no per-crawl state and may be
// used by concurrent deep scans.
type Runner struct {
	// maxDepth is the number of link hops collected. colly counts the seed
	// page as depth 1, so links of pages up to maxDepth are collected and
	// pages deeper than maxDepth are never loaded.
	maxDepth int

	// delay is the pause between requests.
	delay time.Duration

	// userAgent is the User-Agent header sent with crawl requests.
	userAgent string

	// maxBodySize limits the bytes read per page. 0 disables the limit.
	maxBodySize int

	// logger receives per-page failures and crawl summaries.
	logger *slog.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithMaxDepth sets the number of link hops collected from the seed page.
func WithMaxDepth(depth int) Option {
	return func(r *Runner) {
		r.maxDepth = depth
	}
}

// WithDelay sets the delay between requests.
func WithDelay(d time.Duration) Option {
	return func(r *Runner) {
		r.delay = d
	}
}

// WithUserAgent sets a custom User-Agent header.
func WithUserAgent(ua string) Option {
	return func(r *Runner) {
		r.userAgent = ua
	}
}

// WithMaxBodySize sets the maximum response body size.
func WithMaxBodySize(size int) Option {
	return func(r *Runner) {
		r.maxBodySize = size
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// NewRunner creates a Runner with the default crawl policy.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		maxDepth:    DefaultMaxDepth,
		userAgent:   DefaultUserAgent,
		maxBodySize: DefaultMaxBodySize,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.maxDepth < 1 {
		r.maxDepth = 1
	}
	return r
}

// Run crawls from seedURL with client and returns the normalized URLs on
// the seed host that match at least one pattern, deduplicated in the order
// they were first found.
//
// client is owned by the caller; Run neither creates nor closes it.
// A seed page that cannot be loaded fails the crawl with ErrSeedUnreachable;
// failures on other pages are logged and skipped.
func (r *Runner) Run(ctx context.Context, seedURL string, patterns []string, client *http.Client) ([]string, error) {
	if client == nil {
		return nil, ErrNoClient
	}

	compiled, err := discovery.CompilePatterns(patterns)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPattern, err)
	}

	seed, err := url.Parse(seedURL)
	if err != nil || seed.Host == "" {
		return nil, fmt.Errorf("%w: invalid seed URL %q", ErrSeedUnreachable, seedURL)
	}

	c, err := r.newCollector(ctx, client)
	if err != nil {
		return nil, err
	}

	discovered := make([]string, 0)
	seen := make(map[string]bool)
	var seedErr error

	c.OnResponse(func(resp *colly.Response) {
		// Error pages are delivered here because of ParseHTTPErrorResponse.
		if resp.StatusCode >= http.StatusBadRequest {
			statusErr := fmt.Errorf("HTTP %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
			if resp.Request.Depth <= 1 {
				seedErr = statusErr
				return
			}
			r.logger.Warn("failed to crawl page", "url", resp.Request.URL.String(), "status", resp.StatusCode, "error", statusErr)
			return
		}
		if !strings.Contains(strings.ToLower(resp.Headers.Get("Content-Type")), "html") {
			return
		}

		parser, err := NewParser(resp.Request.URL.String())
		if err != nil {
			return
		}
		result, err := parser.Parse(bytes.NewReader(resp.Body))
		if err != nil {
			r.logger.Debug("failed to parse page", "url", resp.Request.URL.String(), "error", err)
			return
		}

		for _, link := range result.Links {
			link = discovery.NormalizeURL(link)
			if isIgnored(link) || !sameHost(link, seed) || !discovery.MatchAny(compiled, link) {
				continue
			}
			if !seen[link] {
				seen[link] = true
				discovered = append(discovered, link)
			}
			// colly refuses links beyond MaxDepth and already visited ones.
			if err := resp.Request.Visit(link); err != nil {
				r.logger.Debug("link not followed", "url", link, "reason", err)
			}
		}
	})

	c.OnError(func(resp *colly.Response, err error) {
		if resp.Request.Depth <= 1 {
			seedErr = err
			return
		}
		r.logger.Warn("failed to crawl page", "url", resp.Request.URL.String(), "status", resp.StatusCode, "error", err)
	})

	if err := c.Visit(seed.String()); err != nil && seedErr == nil {
		seedErr = err
	}
	c.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if seedErr != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrSeedUnreachable, seedURL, seedErr)
	}

	r.logger.Debug("crawl completed", "url", seedURL, "discovered", len(discovered))
	return discovered, nil
}

// newCollector builds a synchronous collector that sends its requests with client.
func (r *Runner) newCollector(ctx context.Context, client *http.Client) (*colly.Collector, error) {
	opts := []colly.CollectorOption{
		colly.StdlibContext(ctx),
		colly.MaxDepth(r.maxDepth),
		colly.ParseHTTPErrorResponse(),
		colly.IgnoreRobotsTxt(),
		colly.UserAgent(r.userAgent),
		colly.DisallowedURLFilters(ignoredResources...),
	}
	if r.maxBodySize > 0 {
		opts = append(opts, colly.MaxBodySize(r.maxBodySize))
	}

	c := colly.NewCollector(opts...)
	c.SetClient(client)

	if r.delay > 0 {
		if err := c.Limit(&colly.LimitRule{
			DomainGlob:  "*",
			Parallelism: 1,
			Delay:       r.delay,
		}); err != nil {
			return nil, fmt.Errorf("failed to set crawl delay: %w", err)
		}
	}

	return c, nil
}
