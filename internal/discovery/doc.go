// Package discovery decides which URLs belong to a website and which newly
// discovered URLs are added to it.
//
// Both functions are pure: GeneratePattern derives the default same-origin
// discovery pattern for a website, and ProcessURLs bounds and deduplicates
// the URLs returned by a crawl against the pages already known.
package discovery
