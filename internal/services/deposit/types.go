package deposit

import (
	"time"

	"relist/internal/models"
)

// Seller actions on a pending deposit.
const (
	ActionConfirm = "CONFIRM"
	ActionReject  = "REJECT"
)

// Deposit lifetime and default meeting lead time.
const (
	DefaultExpiry        = 7 * 24 * time.Hour
	DefaultMeetingLeadIn = 3 * 24 * time.Hour
)

// CreateResult is the outcome of a deposit request. A short balance is a
// normal outcome, not an error: TopUpRequired is set, Shortfall says how
// much is missing, and nothing was mutated.
type CreateResult struct {
	Deposit       *models.Deposit
	TopUpRequired bool
	Shortfall     int64
}

// ConfirmResult is the outcome of a seller confirmation.
type ConfirmResult struct {
	Deposit     *models.Deposit
	Hold        *models.EscrowHold
	Appointment *models.Appointment
}
