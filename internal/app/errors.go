package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrNoUpstream   = errors.New("no upstream source configured")
	ErrNotReady     = errors.New("feature table or model not available")
	ErrInvalidRange = errors.New("invalid date range")
)
