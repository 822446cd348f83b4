package feed

import "errors"

// ErrScanRequestNotFound is returned when a scan request id is unknown.
var ErrScanRequestNotFound = errors.New("scan request not found")
