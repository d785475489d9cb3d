package cli

import "errors"

// Sentinel kinds for command errors.
var (
	ErrUsage          = errors.New("usage")
	ErrUnknownCommand = errors.New("unknown command")
)
