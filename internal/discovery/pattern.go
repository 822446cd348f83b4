package discovery

import (
	"net/url"
	"regexp"
	"strings"
)

// GeneratePattern returns the default discovery pattern for a website.
//
// The pattern matches every http or https URL on the same host as baseURL.
// A default port (:80, :443) is left out, matching NormalizeURL:
//
//	GeneratePattern("https://example.com/docs/") == `^http(s?)://example\.com(/.*)?$`
//
// Input that does not parse to a URL with a host falls back to a prefix
// match on the literal value. The result is deterministic for a given input.
func GeneratePattern(baseURL string) string {
	trimmed := strings.TrimSpace(baseURL)

	u, err := url.Parse(trimmed)
	if err != nil || u.Host == "" {
		return "^" + regexp.QuoteMeta(trimmed) + ".*$"
	}

	return `^http(s?)://` + regexp.QuoteMeta(canonicalHost(u)) + `(/.*)?$`
}

// CompilePatterns compiles discovery patterns, returning the first error.
func CompilePatterns(patterns []string) ([]*regexp.Regexp, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, err
		}
		compiled = append(compiled, re)
	}
	return compiled, nil
}

// MatchAny reports whether rawURL matches at least one pattern.
func MatchAny(patterns []*regexp.Regexp, rawURL string) bool {
	for _, re := range patterns {
		if re.MatchString(rawURL) {
			return true
		}
	}
	return false
}
