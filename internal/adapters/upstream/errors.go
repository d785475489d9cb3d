package upstream

import "errors"

// Sentinel kinds for upstream failures.
var (
	ErrStatus            = errors.New("upstream returned an error status")
	ErrDecode            = errors.New("upstream payload could not be decoded")
	ErrRetriesExhausted  = errors.New("upstream retries exhausted")
	ErrRosterUnavailable = errors.New("roster unavailable")
)
