package config

import (
	"context"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "deepscan"

	// DefaultURLCrawlLimit is the maximum number of pages recorded per website.
	// Deep scans stop crawling once a website knows more pages than this.
	DefaultURLCrawlLimit = 100

	// DefaultMaxDepth loads only the seed page and collects the links on it.
	DefaultMaxDepth = 1

	// DefaultRequestTimeout bounds each HTTP request made by the page and crawler.
	DefaultRequestTimeout = 30 * time.Second

	// DefaultCrawlDelay is the politeness delay between crawl requests.
	DefaultCrawlDelay = 0 * time.Second

	// DefaultUserAgent identifies deepscan in HTTP requests.
	DefaultUserAgent = "deepscan/1.0 (+https://github.com/nao1215/deepscan)"

	// DefaultMaxBodySize limits the response body read per page.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB

	// BackendSQLite stores website scans and scan requests in a SQLite file.
	BackendSQLite = "sqlite"

	// BackendRedis stores website scans and scan requests in Redis.
	BackendRedis = "redis"

	// DefaultRedisAddress is the address used when none is configured.
	DefaultRedisAddress = "127.0.0.1:6379"

	// DefaultKeyPrefix namespaces Redis keys.
	DefaultKeyPrefix = "deepscan"

	// DefaultWriterMaxAttempts is the optimistic-concurrency retry budget.
	DefaultWriterMaxAttempts = 5

	// DefaultWriterInitialDelay is the first backoff after a write conflict.
	DefaultWriterInitialDelay = 50 * time.Millisecond

	// DefaultWriterMaxDelay caps the backoff between write attempts.
	DefaultWriterMaxDelay = 2 * time.Second

	// DefaultConcurrency is the number of page scans a worker runs at once.
	DefaultConcurrency = 4

	// DefaultBatchSize is the number of queued requests a worker claims at once.
	DefaultBatchSize = 20
)

// CrawlConfig holds the limits consumed by the deep scanner and crawler.
type CrawlConfig struct {
	// URLCrawlLimit is the upper bound on known pages per website.
	URLCrawlLimit int `yaml:"urlCrawlLimit"`

	// MaxDepth is the number of link hops collected from the seed page.
	// Pages at depth MaxDepth are collected but not loaded.
	MaxDepth int `yaml:"maxDepth"`

	// RequestTimeout bounds each HTTP request.
	RequestTimeout time.Duration `yaml:"requestTimeout"`

	// Delay is the pause between crawl requests.
	Delay time.Duration `yaml:"delay"`

	// UserAgent is the User-Agent header sent with requests.
	UserAgent string `yaml:"userAgent"`

	// MaxBodySize limits the response body read per page. 0 disables the limit.
	MaxBodySize int `yaml:"maxBodySize"`
}

// StorageConfig selects and configures the storage backend.
type StorageConfig struct {
	// Backend is BackendSQLite or BackendRedis.
	Backend string `yaml:"backend"`

	// DBDir is the directory holding the SQLite database.
	DBDir string `yaml:"dbDir"`

	// RedisAddress is the Redis server in "host:port" format.
	RedisAddress string `yaml:"redisAddress"`

	// RedisPassword authenticates with Redis.
	RedisPassword string `yaml:"redisPassword,omitempty"`

	// RedisDB is the Redis logical database.
	RedisDB int `yaml:"redisDB"`

	// KeyPrefix namespaces Redis keys.
	KeyPrefix string `yaml:"keyPrefix"`
}

// WriterConfig bounds the optimistic-concurrency retries of the website
// scan writer.
type WriterConfig struct {
	// MaxAttempts is the number of read-merge-write attempts, including the first.
	MaxAttempts int `yaml:"maxAttempts"`

	// InitialDelay is the backoff after the first conflict.
	InitialDelay time.Duration `yaml:"initialDelay"`

	// MaxDelay caps the exponential backoff.
	MaxDelay time.Duration `yaml:"maxDelay"`
}

// WorkerConfig configures draining of queued scan requests.
type WorkerConfig struct {
	// Concurrency is the number of page scans run at once.
	Concurrency int `yaml:"concurrency"`

	// BatchSize is the number of requests claimed per round.
	BatchSize int `yaml:"batchSize"`
}

// BrowserConfig configures the page used to load and crawl pages.
type BrowserConfig struct {
	// ProxyAddress routes requests through a SOCKS5 proxy ("host:port").
	// Empty means direct connections.
	ProxyAddress string `yaml:"proxyAddress,omitempty"`

	// Cookie is sent with every request.
	// Format: "name=value" or "name1=value1; name2=value2"
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are custom HTTP headers sent with every request.
	Headers map[string]string `yaml:"headers,omitempty"`
}

// ServiceConfig holds all configuration options for deepscan.
// It is populated from defaults, the YAML configuration file and CLI flags,
// and passed through the application explicitly rather than via globals.
type ServiceConfig struct {
	// Crawl holds the crawl limits. The deep scanner reads it through
	// the CrawlConfig method.
	Crawl CrawlConfig `yaml:"crawlConfig"`

	// Storage selects the storage backend.
	Storage StorageConfig `yaml:"storage"`

	// Writer bounds website scan write retries.
	Writer WriterConfig `yaml:"writer"`

	// Worker configures queue draining.
	Worker WorkerConfig `yaml:"worker"`

	// Browser configures page loading.
	Browser BrowserConfig `yaml:"browser"`
}

// NewServiceConfig creates a ServiceConfig with default values.
func NewServiceConfig() *ServiceConfig {
	return &ServiceConfig{
		Crawl: CrawlConfig{
			URLCrawlLimit:  DefaultURLCrawlLimit,
			MaxDepth:       DefaultMaxDepth,
			RequestTimeout: DefaultRequestTimeout,
			Delay:          DefaultCrawlDelay,
			UserAgent:      DefaultUserAgent,
			MaxBodySize:    DefaultMaxBodySize,
		},
		Storage: StorageConfig{
			Backend:      BackendSQLite,
			DBDir:        XDGDataDir(),
			RedisAddress: DefaultRedisAddress,
			KeyPrefix:    DefaultKeyPrefix,
		},
		Writer: WriterConfig{
			MaxAttempts:  DefaultWriterMaxAttempts,
			InitialDelay: DefaultWriterInitialDelay,
			MaxDelay:     DefaultWriterMaxDelay,
		},
		Worker: WorkerConfig{
			Concurrency: DefaultConcurrency,
			BatchSize:   DefaultBatchSize,
		},
	}
}

// CrawlConfig returns the crawl configuration.
// It makes *ServiceConfig usable as the deep scanner's config provider.
func (c *ServiceConfig) CrawlConfig(_ context.Context) (CrawlConfig, error) {
	return c.Crawl, nil
}

// XDGDataDir returns the XDG data directory for deepscan.
// On Linux: ~/.local/share/deepscan
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for deepscan.
// On Linux: ~/.config/deepscan
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns the first problem found so it can be fixed before scanning starts.
func (c *ServiceConfig) Validate() error {
	if c.Crawl.URLCrawlLimit <= 0 {
		return ErrInvalidURLCrawlLimit
	}
	if c.Crawl.MaxDepth < 1 {
		return ErrInvalidMaxDepth
	}
	if c.Crawl.RequestTimeout <= 0 {
		return ErrInvalidRequestTimeout
	}
	if c.Crawl.Delay < 0 {
		return ErrInvalidCrawlDelay
	}
	if c.Crawl.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}

	switch c.Storage.Backend {
	case BackendSQLite:
	case BackendRedis:
		if c.Storage.RedisAddress == "" {
			return ErrMissingRedisAddress
		}
	default:
		return ErrUnknownStorageBackend
	}

	if c.Writer.MaxAttempts <= 0 {
		return ErrInvalidMaxAttempts
	}
	if c.Worker.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}

	return nil
}
