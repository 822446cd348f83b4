// Package crawler discovers the pages of a website by following links from
// a seed page.
//
// # Architecture
//
// The Runner drives one crawl pass on top of gocolly/colly. colly owns the
// request loop, depth accounting and visited-URL bookkeeping; the Runner
// decides which links are in scope. Links are extracted by Parser, which is
// built on golang.org/x/net/html.
//
// The Runner never creates its own HTTP client. The caller passes the
// client of an already loaded browser page, so the crawl shares that
// page's cookies, headers, proxy and timeout.
//
// # Crawl policy
//
//   - Depth 1 by default: the seed page is loaded and its links collected
//   - One request at a time, robots.txt is not consulted
//   - Only links on the seed host that match a discovery pattern are kept
//   - Static resources (pdf, js, css, images, archives, ...) and sign-in
//     pages of login.microsoftonline.com are skipped
//
// # Usage
//
//	runner := crawler.NewRunner(crawler.WithMaxDepth(1))
//	urls, err := runner.Run(ctx, "https://example.com/", patterns, page.UnderlyingPage())
package crawler
