package ledger

import (
	"context"

	"relist/internal/models"
)

// Service is the wallet ledger. Every operation executes as a single
// atomic unit against one wallet row; cross-wallet movements are composed
// by higher-level orchestrators, never here.
type Service interface {
	GetWallet(ctx context.Context, userID uint) (*models.Wallet, error)

	// Freeze earmarks amount out of the spendable balance.
	Freeze(ctx context.Context, userID uint, amount int64) error
	// Unfreeze returns earmarked funds to the spendable balance.
	Unfreeze(ctx context.Context, userID uint, amount int64) error
	// Credit adds to the spendable balance.
	Credit(ctx context.Context, userID uint, amount int64) error
	// Debit removes from the spendable balance.
	Debit(ctx context.Context, userID uint, amount int64) error
	// DebitFrozen removes funds from the frozen amount without crediting
	// the balance. Frozen funds leave for escrow directly; they never
	// pass back through the balance on the way out.
	DebitFrozen(ctx context.Context, userID uint, amount int64) error

	GetPlatform(ctx context.Context) (*models.PlatformWallet, error)
	// CreditPlatform adds revenue to the platform wallet singleton and
	// appends an audit row.
	CreditPlatform(ctx context.Context, amount int64, kind string, refID uint) error
}

// WalletCache is the cache surface the ledger uses for wallet reads.
type WalletCache interface {
	GetWallet(ctx context.Context, userID uint) (*models.Wallet, bool, error)
	CacheWallet(ctx context.Context, wallet *models.Wallet) error
	InvalidateWallet(ctx context.Context, userID uint) error
}
