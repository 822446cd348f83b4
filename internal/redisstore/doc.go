// Package redisstore keeps website scans and scan requests in Redis.
//
// It is the shared backend for deployments where several workers on
// different hosts run deep scans of the same website. Website scans are
// stored as JSON documents and replaced under WATCH/MULTI/EXEC, so a write
// whose ETag is stale, or whose key changed between read and write, is
// reported as websitescan.ErrConflict and retried by websitescan.Writer.
//
// Key layout, with the default "deepscan" prefix:
//
//	deepscan:websites                      sorted set of website scan ids by creation
//	deepscan:website:<id>                  website scan JSON
//	deepscan:website:<id>:urls             hash of queued URL -> request id
//	deepscan:website:<id>:requests         list of request ids, oldest first
//	deepscan:request:<id>                  scan request JSON
//	deepscan:pending                       list of pending request ids
package redisstore
