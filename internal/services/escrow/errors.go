package escrow

import "errors"

// Service errors
var (
	ErrInvalidState = errors.New("escrow hold is not in a valid state for this operation")
	ErrNotFound     = errors.New("escrow hold not found")
)
