package repositories

import (
	"time"

	"relist/internal/models"
)

// WalletRepository is the data access contract for user wallets and the
// platform wallet singleton. ForUpdate variants take a row lock and are
// only meaningful inside ExecuteInTransaction.
type WalletRepository interface {
	Create(wallet *models.Wallet) error
	GetByUserID(userID uint) (*models.Wallet, error)
	GetByUserIDForUpdate(userID uint) (*models.Wallet, error)
	GetOrCreate(userID uint) (*models.Wallet, error)
	Update(wallet *models.Wallet) error

	GetPlatformForUpdate() (*models.PlatformWallet, error)
	GetPlatform() (*models.PlatformWallet, error)
	UpdatePlatform(pw *models.PlatformWallet) error
	CreatePlatformTransaction(txn *models.PlatformTransaction) error
	ListPlatformTransactions(kind string, from, to *time.Time, limit, offset int) ([]models.PlatformTransaction, int64, error)

	ExecuteInTransaction(fn func(WalletRepository) error) error
}
