// Package browser provides the page handle used to load a scanned page and
// to crawl the website it belongs to.
//
// A Page owns an *http.Client configured with the request timeout, a
// cookie jar, custom headers and an optional SOCKS5 proxy. The client is
// exposed through UnderlyingPage so that the crawler reuses the same
// session (cookies, proxy and headers) as the page load that preceded it.
//
// # Lifecycle
//
//	page, err := browser.NewPage(browser.WithTimeout(30 * time.Second))
//	if err := page.Create(ctx); err != nil { ... }
//	defer page.Close()
//
//	nav, err := page.Navigate(ctx, "https://example.com/")
//	links, err := runner.Run(ctx, nav.URL, patterns, page.UnderlyingPage())
package browser
