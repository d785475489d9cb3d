package features

import "errors"

var (
	// ErrInvalidSchema reports an unusable feature schema.
	ErrInvalidSchema = errors.New("invalid feature schema")
	// ErrFeatureContract reports produced columns that differ from what a
	// consumer expects. It is never recovered from by reordering or dropping.
	ErrFeatureContract = errors.New("feature contract mismatch")
)
