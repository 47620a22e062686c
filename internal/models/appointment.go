package models

import "time"

// Appointment statuses
const (
	AppointmentStatusPending         = "pending"
	AppointmentStatusConfirmed       = "confirmed"
	AppointmentStatusRescheduled     = "rescheduled"
	AppointmentStatusAwaitingPayment = "awaiting_remaining_payment"
	AppointmentStatusCompleted       = "completed"
	AppointmentStatusCancelled       = "cancelled"
	AppointmentStatusRejected        = "rejected"
)

// DefaultMaxReschedules bounds the reject/reschedule loop before the
// appointment is force-cancelled and the escrow refunded.
const DefaultMaxReschedules = 3

// Timeline records the payment milestones of an appointment. A set field
// doubles as the idempotency guard for re-applying that milestone.
type Timeline struct {
	DepositRequestAt          *time.Time
	DepositPaidAt             *time.Time
	RemainingPaymentRequestAt *time.Time
	RemainingPaidAt           *time.Time
	FullPaymentRequestAt      *time.Time
	FullPaymentPaidAt         *time.Time
	CompletedAt               *time.Time
	OverdueProcessedAt        *time.Time
}

// Appointment tracks the in-person meeting between buyer and seller after
// escrow is funded. Status only moves forward except the bounded
// reschedule loop.
type Appointment struct {
	ID                uint     `gorm:"primarykey"`
	DepositID         uint     `gorm:"uniqueIndex;not null"`
	BuyerID           uint     `gorm:"not null;index"`
	SellerID          uint     `gorm:"not null;index"`
	ScheduledDate     time.Time
	Status            string   `gorm:"not null;default:'pending';index"`
	BuyerConfirmed    bool     `gorm:"not null;default:false"`
	SellerConfirmed   bool     `gorm:"not null;default:false"`
	BuyerConfirmedAt  *time.Time
	SellerConfirmedAt *time.Time
	RescheduledCount  int      `gorm:"not null;default:0"`
	MaxReschedules    int      `gorm:"not null;default:3"`
	ReminderSentAt    *time.Time
	Timeline          Timeline `gorm:"embedded;embeddedPrefix:timeline_"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Terminal reports whether the appointment reached a final status.
func (a *Appointment) Terminal() bool {
	switch a.Status {
	case AppointmentStatusCompleted, AppointmentStatusCancelled, AppointmentStatusRejected:
		return true
	}
	return false
}

// BothConfirmed reports whether buyer and seller both confirmed the meeting.
func (a *Appointment) BothConfirmed() bool {
	return a.BuyerConfirmed && a.SellerConfirmed
}
