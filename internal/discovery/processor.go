package discovery

// ProcessURLs returns the discovered URLs to add to a website.
//
// URLs already in known are dropped, the rest are deduplicated, and the
// result is truncated so that len(known)+len(result) never exceeds limit.
// Truncation keeps the first-encountered order of discovered. When known
// already holds limit or more pages the result is empty.
//
// The returned slice is never nil.
func ProcessURLs(discovered []string, limit int, known []string) []string {
	remaining := limit - len(known)
	if remaining <= 0 {
		return []string{}
	}

	seen := make(map[string]struct{}, len(known)+len(discovered))
	for _, u := range known {
		seen[u] = struct{}{}
	}

	result := make([]string, 0, min(remaining, len(discovered)))
	for _, u := range discovered {
		if len(result) >= remaining {
			break
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		result = append(result, u)
	}

	return result
}
