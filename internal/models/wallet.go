package models

import (
	"time"
)

// Wallet statuses
const (
	WalletStatusActive    = "active"
	WalletStatusFrozen    = "frozen"
	WalletStatusSuspended = "suspended"
)

// Wallet holds a user's spendable balance and the amount currently frozen
// for pending deposits. All amounts are minor units. Every move between
// Balance and FrozenAmount is balance-conserving; neither field may go
// negative.
type Wallet struct {
	ID                uint   `gorm:"primarykey"`
	UserID            uint   `gorm:"uniqueIndex;not null"`
	Balance           int64  `gorm:"not null;default:0"`
	FrozenAmount      int64  `gorm:"not null;default:0"`
	TotalDeposited    int64  `gorm:"not null;default:0"`
	TotalWithdrawn    int64  `gorm:"not null;default:0"`
	Status            string `gorm:"default:'active'"`
	LastTransactionAt *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// PlatformWallet is the single aggregate ledger for the platform itself.
// Exactly one row exists, keyed by PlatformWalletID.
type PlatformWallet struct {
	ID                uint  `gorm:"primarykey"`
	Balance           int64 `gorm:"not null;default:0"`
	TotalEarned       int64 `gorm:"not null;default:0"`
	TotalTransactions int64 `gorm:"not null;default:0"`
	LastTransactionAt *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// PlatformWalletID is the well-known primary key of the singleton row.
const PlatformWalletID uint = 1

// Platform transaction kinds
const (
	PlatformTxnSaleRevenue     = "sale_revenue"
	PlatformTxnCancellationFee = "cancellation_fee"
	PlatformTxnOverdueShare    = "overdue_share"
)

// PlatformTransaction is one credit applied to the platform wallet,
// kept for the operator history endpoint.
type PlatformTransaction struct {
	ID        uint   `gorm:"primarykey"`
	Kind      string `gorm:"not null;index"`
	Amount    int64  `gorm:"not null"`
	RefID     uint   `gorm:"index"` // appointment id the credit settles
	CreatedAt time.Time
}
