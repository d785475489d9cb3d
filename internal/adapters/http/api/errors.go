package api

import "errors"

// Sentinel kinds for API errors.
var (
	ErrBadRequest = errors.New("bad request")
	ErrBadDate    = errors.New("invalid date; must be YYYY-MM-DD")
)
