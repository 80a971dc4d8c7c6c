package warmup

import "errors"

var (
	// ErrAlreadyWarming is returned by CreatePlan if the IP already has one.
	ErrAlreadyWarming = errors.New("warmup plan already exists for ip")
)
