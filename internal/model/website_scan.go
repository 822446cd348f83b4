package model

import "time"

// WebsiteScanResult is the aggregate root for a crawled website.
// It is shared by every deep scan run of the same website and is only
// mutated through an optimistic-concurrency write guarded by ETag.
type WebsiteScanResult struct {
	// ID is the website scan identifier.
	ID string `json:"id"`

	// BaseURL is the URL the website scan was started from.
	// It is the input for generating the default discovery pattern.
	BaseURL string `json:"base_url"`

	// KnownPages holds every page URL recorded for the website.
	// It never contains duplicates.
	KnownPages []string `json:"known_pages"`

	// DiscoveryPatterns are the regular expressions that define which
	// discovered URLs belong to the website. Nil until first established;
	// once set they are never replaced.
	DiscoveryPatterns []string `json:"discovery_patterns,omitempty"`

	// ETag is the opaque concurrency token of the stored document.
	ETag string `json:"etag,omitempty"`

	// CreatedAt is when the aggregate was first written.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is when the aggregate was last written.
	UpdatedAt time.Time `json:"updated_at"`
}

// NewWebsiteScanResult creates an empty aggregate for a website.
func NewWebsiteScanResult(id, baseURL string) *WebsiteScanResult {
	return &WebsiteScanResult{
		ID:         id,
		BaseURL:    baseURL,
		KnownPages: make([]string, 0),
	}
}

// Clone returns a deep copy so callers can merge without aliasing the
// slices of a document that may be retried.
func (w *WebsiteScanResult) Clone() *WebsiteScanResult {
	if w == nil {
		return nil
	}
	c := *w
	c.KnownPages = append(make([]string, 0, len(w.KnownPages)), w.KnownPages...)
	if w.DiscoveryPatterns != nil {
		c.DiscoveryPatterns = append(make([]string, 0, len(w.DiscoveryPatterns)), w.DiscoveryPatterns...)
	}
	return &c
}

// HasDiscoveryPatterns reports whether the discovery patterns are established.
func (w *WebsiteScanResult) HasDiscoveryPatterns() bool {
	return len(w.DiscoveryPatterns) > 0
}
