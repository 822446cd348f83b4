package config

import "errors"

// Configuration validation errors.
// These errors are returned by ServiceConfig.Validate() so callers can use
// errors.Is() for programmatic handling while still printing a readable
// message.
var (
	// ErrInvalidURLCrawlLimit is returned when urlCrawlLimit is not positive.
	// A zero limit would terminate every deep scan before crawling.
	ErrInvalidURLCrawlLimit = errors.New("invalid urlCrawlLimit: must be positive")

	// ErrInvalidMaxDepth is returned when the crawl depth is below one.
	ErrInvalidMaxDepth = errors.New("invalid maxDepth: must be at least 1")

	// ErrInvalidRequestTimeout is returned when the request timeout is not positive.
	ErrInvalidRequestTimeout = errors.New("invalid requestTimeout: must be positive")

	// ErrInvalidCrawlDelay is returned when the crawl delay is negative.
	// Use 0 for no delay between requests.
	ErrInvalidCrawlDelay = errors.New("invalid crawl delay: must be non-negative")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	// Use 0 for no limit.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrUnknownStorageBackend is returned for a storage backend other than
	// sqlite or redis.
	ErrUnknownStorageBackend = errors.New("unknown storage backend: must be sqlite or redis")

	// ErrMissingRedisAddress is returned when the redis backend is selected
	// without an address.
	ErrMissingRedisAddress = errors.New("redis storage requires redisAddress")

	// ErrInvalidMaxAttempts is returned when the writer retry budget is not positive.
	ErrInvalidMaxAttempts = errors.New("invalid writer maxAttempts: must be positive")

	// ErrInvalidConcurrency is returned when worker concurrency is not positive.
	ErrInvalidConcurrency = errors.New("invalid worker concurrency: must be positive")
)
