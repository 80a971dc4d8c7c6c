package lifecycle

import "errors"

// Sentinel errors for the lifecycle service layer.
var (
	ErrTransitionNotAllowed = errors.New("state transition not allowed")
)
