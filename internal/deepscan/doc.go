// Package deepscan decides whether a page scan grows into a website-wide
// crawl and runs that crawl.
//
// Scanner.RunDeepScan is called by the page scan pipeline once a page has
// been loaded. A run goes through these states:
//
//	Start -> RefResolved -> LimitChecked -> PatternResolved -> Crawled
//	      -> Processed -> Persisted -> FedForward -> Done
//
// A run stops early, without error, when the website already knows more
// pages than the configured urlCrawlLimit. A failure before Persisted
// leaves the website scan untouched.
//
// Every collaborator is a narrow interface declared here so the Scanner
// can be exercised with fakes:
//
//	scanner := deepscan.NewScanner(cfg, provider, crawlRunner, writer, generator,
//		deepscan.WithLogger(logger),
//	)
//	err := scanner.RunDeepScan(ctx, metadata, pageScanResult, page)
package deepscan
