package websitescan

import (
	"slices"

	"github.com/nao1215/deepscan/internal/model"
)

// Merge returns a copy of current with urls added to KnownPages and, if
// current has no discovery patterns yet, patterns set as its patterns.
//
// KnownPages keeps its existing order followed by the new URLs in the
// order given, without duplicates. current is not modified, so the same
// read document can be merged again after a failed write.
func Merge(current *model.WebsiteScanResult, urls, patterns []string) *model.WebsiteScanResult {
	merged := current.Clone()

	seen := make(map[string]bool, len(merged.KnownPages)+len(urls))
	pages := make([]string, 0, len(merged.KnownPages)+len(urls))
	for _, page := range merged.KnownPages {
		if !seen[page] {
			seen[page] = true
			pages = append(pages, page)
		}
	}
	for _, u := range urls {
		if !seen[u] {
			seen[u] = true
			pages = append(pages, u)
		}
	}
	merged.KnownPages = pages

	if !merged.HasDiscoveryPatterns() && len(patterns) > 0 {
		merged.DiscoveryPatterns = slices.Clone(patterns)
	}

	return merged
}
