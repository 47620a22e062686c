package settlement

import "errors"

// Service errors
var (
	ErrInvalidState     = errors.New("appointment is not in a valid state for this settlement")
	ErrUnknownMilestone = errors.New("unknown payment milestone kind")
)
