package discovery

import (
	"net/url"
	"strings"
)

// NormalizeURL returns the canonical spelling of a page URL, so that one
// page is known, queued and skipped under a single key.
//
// The fragment is dropped, scheme and host are lowercased, the default
// port of the scheme is removed and an empty path becomes "/".
// Input that does not parse is returned unchanged.
func NormalizeURL(pageURL string) string {
	u, err := url.Parse(strings.TrimSpace(pageURL))
	if err != nil || u.Host == "" {
		return pageURL
	}

	u.Fragment = ""
	u.RawFragment = ""
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = canonicalHost(u)
	if u.Path == "" {
		u.Path = "/"
	}

	return u.String()
}

// canonicalHost returns the lowercased host of u without the default port
// of its scheme.
func canonicalHost(u *url.URL) string {
	host := strings.ToLower(u.Host)
	switch port := u.Port(); {
	case port == "80" && strings.EqualFold(u.Scheme, "http"),
		port == "443" && strings.EqualFold(u.Scheme, "https"):
		return strings.TrimSuffix(host, ":"+port)
	}
	return host
}
