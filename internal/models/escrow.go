package models

import "time"

// Escrow hold statuses
const (
	EscrowStatusActive   = "active"
	EscrowStatusReleased = "released"
	EscrowStatusRefunded = "refunded"
)

// EscrowHold represents funds moved out of a buyer's frozen balance into a
// hold tied to one deposit. A hold reaches exactly one terminal status:
// released to seller and platform, or refunded to the buyer.
type EscrowHold struct {
	ID         uint   `gorm:"primarykey"`
	DepositID  uint   `gorm:"uniqueIndex;not null"`
	BuyerID    uint   `gorm:"not null;index"`
	SellerID   uint   `gorm:"not null;index"`
	ListingID  uint   `gorm:"not null;index"`
	Amount     int64  `gorm:"not null"`
	Status     string `gorm:"not null;default:'active';index"`
	ReleasedAt *time.Time
	RefundedAt *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
