package inference

import "errors"

var (
	// ErrSchedule reports that the game-day schedule could not be resolved.
	ErrSchedule = errors.New("schedule unavailable")
	// ErrNoTable reports a missing feature table or model.
	ErrNoTable = errors.New("feature table not loaded")
)
