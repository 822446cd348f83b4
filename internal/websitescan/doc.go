// Package websitescan reads and updates WebsiteScanResult aggregates.
//
// A WebsiteScanResult is shared by every deep scan of the same website, and
// scans of different pages of one website often finish at the same time.
// Updates therefore never overwrite blindly: the Writer reads the stored
// document, merges the new pages into it and replaces it only if the
// document's ETag is unchanged. On a conflict it re-reads and merges again.
//
// Merge is pure and idempotent, so a retried merge produces the same
// KnownPages as a single one. Discovery patterns are first-writer-wins:
// once an aggregate has patterns, later merges keep them.
//
// Storage backends implement Store:
//   - internal/database: SQLite
//   - internal/redisstore: Redis
package websitescan
