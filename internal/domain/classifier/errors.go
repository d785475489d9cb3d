package classifier

import "errors"

var (
	// ErrShape reports a feature matrix that does not fit the model.
	ErrShape = errors.New("feature matrix shape mismatch")
	// ErrNotEnoughData reports a training set that cannot be fit.
	ErrNotEnoughData = errors.New("not enough training data")
	// ErrInvalidArtifact reports an unreadable or inconsistent model artifact.
	ErrInvalidArtifact = errors.New("invalid model artifact")
)
