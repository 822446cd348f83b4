package crawler

import "errors"

// Crawl errors.
var (
	// ErrSeedUnreachable is returned when the seed page cannot be loaded.
	// Failures on pages reached from the seed are logged and skipped.
	ErrSeedUnreachable = errors.New("seed page is unreachable")

	// ErrInvalidPattern is returned when a discovery pattern is not a valid
	// regular expression.
	ErrInvalidPattern = errors.New("invalid discovery pattern")

	// ErrNoClient is returned when Run is called without an HTTP client.
	ErrNoClient = errors.New("page client is required")
)
