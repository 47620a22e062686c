package models

import "time"

// Payment transaction statuses
const (
	PaymentStatusPending = "pending"
	PaymentStatusSuccess = "success"
	PaymentStatusFailed  = "failed"
)

// Payment kinds, one per money-movement intent against the gateway.
const (
	PaymentKindDeposit   = "deposit"   // 10% of the listing price
	PaymentKindRemaining = "remaining" // 90% after the deposit milestone
	PaymentKindFull      = "full"      // 100% in one installment
)

// PaymentTransaction is the idempotency record for one external gateway
// round-trip. It is created in pending state before the user is redirected
// and updated exactly once to a terminal status by the callback handler.
// The full appointment id is stored on the row so callbacks resolve
// without parsing the order reference.
type PaymentTransaction struct {
	ID                  uint   `gorm:"primarykey"`
	OrderRef            string `gorm:"uniqueIndex;not null"`
	AppointmentID       uint   `gorm:"not null;index"`
	UserID              uint   `gorm:"not null;index"`
	Kind                string `gorm:"not null"`
	Amount              int64  `gorm:"not null"`
	Status              string `gorm:"not null;default:'pending';index"`
	GatewayResponseCode string
	GatewayTxnID        string
	ProcessedAt         *time.Time
	Result              JSON `gorm:"type:jsonb"` // snapshot returned on duplicate delivery
	CreatedAt           time.Time
	UpdatedAt           time.Time
}
