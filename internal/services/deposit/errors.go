package deposit

import "errors"

// Service errors
var (
	ErrInvalidAmount      = errors.New("invalid deposit amount")
	ErrInvalidState       = errors.New("deposit is not in a valid state for this operation")
	ErrOwnListing         = errors.New("cannot deposit on your own listing")
	ErrListingNotSellable = errors.New("listing is not open for sale")
	ErrDuplicateDeposit   = errors.New("a live deposit already exists on this listing")
	ErrNotParticipant     = errors.New("user is not a party to this deposit")
)
