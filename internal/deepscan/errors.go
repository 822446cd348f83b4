package deepscan

import "errors"

// ErrMissingDeepScanRef is returned when a page scan result has no website
// scan reference of the deep-scan group type.
var ErrMissingDeepScanRef = errors.New("deep scan website scan reference not found")
