package artifact

import "errors"

// ErrMissing reports that an artifact file does not exist yet.
var ErrMissing = errors.New("artifact file missing")
