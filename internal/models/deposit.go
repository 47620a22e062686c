package models

import "time"

// Deposit statuses
const (
	DepositStatusPendingSeller   = "pending_seller_confirmation"
	DepositStatusInEscrow        = "in_escrow"
	DepositStatusSellerCancelled = "seller_cancelled"
	DepositStatusCompleted       = "completed"
	DepositStatusCancelled       = "cancelled"
)

// Deposit is a buyer's intent to transact on a listing. The amount is
// frozen in the buyer's wallet at creation and moves into an escrow hold
// when the seller confirms. Deposits are never deleted, only transitioned.
type Deposit struct {
	ID        uint   `gorm:"primarykey"`
	ListingID uint   `gorm:"not null;index"`
	BuyerID   uint   `gorm:"not null;index"`
	SellerID  uint   `gorm:"not null;index"`
	Amount    int64  `gorm:"not null"`
	Status    string `gorm:"not null;default:'pending_seller_confirmation';index"`
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Live reports whether the deposit still blocks a new one on the same
// listing by the same buyer.
func (d *Deposit) Live() bool {
	switch d.Status {
	case DepositStatusPendingSeller, DepositStatusInEscrow, DepositStatusCompleted:
		return true
	}
	return false
}
