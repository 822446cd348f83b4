// Package database provides SQLite-based storage for deepscan.
//
// DB stores:
//   - Website scan aggregates, versioned by an ETag for optimistic concurrency
//   - Scan requests produced by feed generation, unique per website and URL
//
// It implements websitescan.Store and feed.WorkQueue, so a single SQLite file
// backs both the aggregate writer and the worker queue.
//
// We use SQLite via modernc.org/sqlite because it needs no server and no
// CGO. Concurrency control does not depend on SQLite locking: Replace is an
// UPDATE guarded by the ETag the document was read with.
package database
