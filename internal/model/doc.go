// Package model defines the core data structures used throughout deepscan.
//
// This package contains the following main types:
//   - ScanMetadata: The immutable description of a single page scan request
//   - OnDemandPageScanResult: The page scan result a deep scan is started from
//   - WebsiteScanResult: The versioned aggregate of all pages known for a website
//   - ScanRequest: A queued page scan produced by feed generation
//
// Models live in their own package because the crawler, the storage
// backends, the feed generator and the orchestrator all share them.
//
// The models are serializable to JSON for report output and storage.
package model
