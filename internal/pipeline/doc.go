// Package pipeline runs page scans as a sequence of steps.
//
// A page scan loads its page (PageLoadStep) and, when the scan asks for
// it, grows into a website-wide deep scan (DeepScanStep). Each step
// receives the Scan being built and may modify its result.
//
// BatchProcessor runs many page scans concurrently with errgroup, giving
// every scan its own page and pipeline. Worker drains a feed.WorkQueue
// through a BatchProcessor, which is how pages discovered by a deep scan
// get scanned in turn.
package pipeline
