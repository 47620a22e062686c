package appointment

import "errors"

// Service errors
var (
	ErrInvalidState   = errors.New("appointment is not in a valid state for this operation")
	ErrNotParticipant = errors.New("user is not a party to this appointment")
)
