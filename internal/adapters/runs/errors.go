package runs

import "errors"

// Sentinel kinds for run-tracking fetch errors.
var (
	ErrFetch  = errors.New("run fetch failed")
	ErrDecode = errors.New("run decode failed")
)
