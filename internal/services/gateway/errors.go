package gateway

import "errors"

// Service errors
var (
	ErrInvalidSignature   = errors.New("callback signature verification failed")
	ErrUnknownTransaction = errors.New("no payment transaction matches the order reference")
	ErrInvalidState       = errors.New("appointment is not in a valid state for this installment")
	ErrUnknownKind        = errors.New("unknown payment kind")
	ErrNotParticipant     = errors.New("user is not the paying party of this appointment")
)
