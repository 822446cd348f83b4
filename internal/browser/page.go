package browser

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/proxy"
)

// maxRedirects stops redirect loops while allowing normal redirect chains.
const maxRedirects = 10

// Page is a reusable browsing session.
// The zero value is not usable; create pages with NewPage.
type Page struct {
	// proxyAddress routes requests through a SOCKS5 proxy when set.
	proxyAddress string

	// cookie is injected into every request.
	cookie string

	// headers are injected into every request.
	headers map[string]string

	// timeout bounds each request.
	timeout time.Duration

	// userAgent is sent with navigation requests.
	userAgent string

	// maxBodySize limits how much of a page is read for title extraction.
	maxBodySize int64

	// logger receives lifecycle events.
	logger *slog.Logger

	// mu guards client.
	mu sync.Mutex

	// client is nil until Create and after Close.
	client *http.Client
}

// Option configures a Page.
type Option func(*Page)

// WithProxy routes requests through the SOCKS5 proxy at address ("host:port").
func WithProxy(address string) Option {
	return func(p *Page) {
		p.proxyAddress = address
	}
}

// WithCookie injects a raw cookie string ("name=value; other=value") into every request.
func WithCookie(cookie string) Option {
	return func(p *Page) {
		p.cookie = cookie
	}
}

// WithHeaders injects custom headers into every request.
func WithHeaders(headers map[string]string) Option {
	return func(p *Page) {
		p.headers = headers
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(p *Page) {
		p.timeout = d
	}
}

// WithUserAgent sets the User-Agent header sent by Navigate.
func WithUserAgent(ua string) Option {
	return func(p *Page) {
		p.userAgent = ua
	}
}

// WithMaxBodySize limits the bytes read per navigation.
func WithMaxBodySize(size int64) Option {
	return func(p *Page) {
		p.maxBodySize = size
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Page) {
		p.logger = logger
	}
}

// NewPage creates a page. The page has no client until Create is called.
func NewPage(opts ...Option) (*Page, error) {
	p := &Page{
		timeout:     30 * time.Second,
		userAgent:   "deepscan/1.0",
		maxBodySize: 5 * 1024 * 1024,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.proxyAddress != "" && !isValidProxyAddress(p.proxyAddress) {
		return nil, ErrInvalidProxyAddress
	}
	return p, nil
}

// Create builds the HTTP client backing the page. Calling Create on a page
// that is already created is a no-op.
func (p *Page) Create(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.client != nil {
		return nil
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     30 * time.Second,
	}

	if p.proxyAddress != "" {
		dialer, err := proxy.SOCKS5("tcp", p.proxyAddress, nil, proxy.Direct)
		if err != nil {
			return fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
		}
		transport.Proxy = nil
		if cd, ok := dialer.(proxy.ContextDialer); ok {
			transport.DialContext = cd.DialContext
		} else {
			transport.DialContext = func(_ context.Context, network, addr string) (net.Conn, error) {
				return dialer.Dial(network, addr)
			}
		}
	}

	jar, _ := cookiejar.New(nil) //nolint:errcheck // cookiejar.New only fails with invalid options

	var rt http.RoundTripper = transport
	if p.cookie != "" || len(p.headers) > 0 {
		rt = &headerInjectingTransport{
			base:    transport,
			cookie:  p.cookie,
			headers: p.headers,
		}
	}

	p.client = &http.Client{
		Transport: rt,
		Timeout:   p.timeout,
		Jar:       jar,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}

	p.logger.Debug("page created", "proxy", p.proxyAddress != "")
	return nil
}

// Close releases the page's idle connections. Close is idempotent.
func (p *Page) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.client == nil {
		return nil
	}
	p.client.CloseIdleConnections()
	p.client = nil
	p.logger.Debug("page closed")
	return nil
}

// UnderlyingPage returns the HTTP client of the page, or nil if the page
// is not created.
func (p *Page) UnderlyingPage() *http.Client {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.client
}

// CheckProxy verifies that the configured proxy speaks SOCKS5.
// It returns ErrNoProxy when the page connects directly.
func (p *Page) CheckProxy(ctx context.Context) error {
	if p.proxyAddress == "" {
		return ErrNoProxy
	}
	status := checkSOCKS5(ctx, p.proxyAddress)
	if err := status.Error(); err != nil {
		return fmt.Errorf("proxy %s: %w", p.proxyAddress, err)
	}
	return nil
}

// NavigationResult describes a loaded page.
type NavigationResult struct {
	// RequestedURL is the URL passed to Navigate.
	RequestedURL string

	// URL is the final URL after redirects.
	URL string

	// StatusCode is the HTTP status of the final response.
	StatusCode int

	// Title is the text of the <title> element, if any.
	Title string
}

// Redirected reports whether the final URL differs from the requested one.
func (r *NavigationResult) Redirected() bool {
	return r.URL != r.RequestedURL
}

// Navigate loads pageURL and returns its status, title and final URL.
// Non-2xx statuses are not errors; transport failures are.
func (p *Page) Navigate(ctx context.Context, pageURL string) (*NavigationResult, error) {
	client := p.UnderlyingPage()
	if client == nil {
		return nil, ErrPageNotCreated
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request for %s: %w", pageURL, err)
	}
	req.Header.Set("User-Agent", p.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to navigate to %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	result := &NavigationResult{
		RequestedURL: pageURL,
		URL:          resp.Request.URL.String(),
		StatusCode:   resp.StatusCode,
	}

	if strings.Contains(resp.Header.Get("Content-Type"), "text/html") {
		var body io.Reader = resp.Body
		if p.maxBodySize > 0 {
			body = io.LimitReader(resp.Body, p.maxBodySize)
		}
		result.Title = extractTitle(body)
	}

	p.logger.Debug("page loaded", "url", result.URL, "status", result.StatusCode)
	return result, nil
}

// extractTitle returns the trimmed text of the first <title> element.
func extractTitle(r io.Reader) string {
	z := html.NewTokenizer(r)
	inTitle := false
	var title strings.Builder
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.TrimSpace(title.String())
		case html.StartTagToken:
			name, _ := z.TagName()
			if string(name) == "title" {
				inTitle = true
			}
		case html.TextToken:
			if inTitle {
				title.Write(z.Text())
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			if string(name) == "title" {
				return strings.TrimSpace(title.String())
			}
		}
	}
}

// headerInjectingTransport wraps an http.RoundTripper to inject
// custom headers and cookies into every request, including redirects
// and crawler requests made with the same client.
type headerInjectingTransport struct {
	base    http.RoundTripper
	cookie  string
	headers map[string]string
}

// RoundTrip implements http.RoundTripper.
func (t *headerInjectingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())

	if t.cookie != "" {
		if existing := clone.Header.Get("Cookie"); existing != "" {
			clone.Header.Set("Cookie", existing+"; "+t.cookie)
		} else {
			clone.Header.Set("Cookie", t.cookie)
		}
	}

	for key, value := range t.headers {
		clone.Header.Set(key, value)
	}

	return t.base.RoundTrip(clone)
}
