package repository

import "errors"

// Sentinel kinds for storage errors.
var (
	ErrCorruptRecord = errors.New("corrupt record")
	ErrTableSchema   = errors.New("feature table columns do not match schema")
	ErrClosed        = errors.New("store closed")
)
