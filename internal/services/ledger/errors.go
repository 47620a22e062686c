package ledger

import "errors"

// Service errors
var (
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrWalletSuspended    = errors.New("wallet is not active")
	ErrInvariantViolation = errors.New("ledger invariant violation")
)
