package repositories

import "errors"

// Not-found sentinels, mapped from gorm.ErrRecordNotFound at the
// repository boundary.
var (
	ErrWalletNotFound      = errors.New("wallet not found")
	ErrDepositNotFound     = errors.New("deposit not found")
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrEscrowNotFound      = errors.New("escrow hold not found")
	ErrPaymentNotFound     = errors.New("payment transaction not found")
	ErrListingNotFound     = errors.New("listing not found")
	ErrUserNotFound        = errors.New("user not found")
)
