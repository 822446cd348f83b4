package crawler

import (
	"net/url"
	"regexp"
	"strings"
)

// ignoredResources match links that are never pages worth scanning:
// static resources by extension and the Microsoft sign-in host.
// They are handed to colly as disallow filters and also keep such links
// out of the discovered set.
var ignoredResources = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\.(pdf|js|css|svg|png|jpe?g|gif|json|xml|exe|dmg|zip|war|rar|ico|txt)([?#].*)?$`),
	regexp.MustCompile(`^https://login\.microsoftonline\.com/`),
}

// isIgnored reports whether a link points at an ignored resource.
func isIgnored(link string) bool {
	for _, re := range ignoredResources {
		if re.MatchString(link) {
			return true
		}
	}
	return false
}

// sameHost reports whether link is on the same hostname as seed.
// Ports are not compared; the discovery patterns decide whether another
// port of the host is in scope.
func sameHost(link string, seed *url.URL) bool {
	u, err := url.Parse(link)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Hostname(), seed.Hostname())
}
