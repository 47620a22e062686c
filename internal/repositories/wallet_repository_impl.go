package repositories

import (
	"errors"
	"fmt"
	"time"

	"relist/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type walletRepository struct {
	db *gorm.DB
}

func NewWalletRepository(db *gorm.DB) WalletRepository {
	return &walletRepository{db: db}
}

func (r *walletRepository) Create(wallet *models.Wallet) error {
	if err := r.db.Create(wallet).Error; err != nil {
		return fmt.Errorf("failed to create wallet: %w", err)
	}
	return nil
}

func (r *walletRepository) GetByUserID(userID uint) (*models.Wallet, error) {
	var wallet models.Wallet
	if err := r.db.Where("user_id = ?", userID).First(&wallet).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	return &wallet, nil
}

// GetByUserIDForUpdate reads the wallet row under FOR UPDATE so concurrent
// balance checks on the same user serialize.
func (r *walletRepository) GetByUserIDForUpdate(userID uint) (*models.Wallet, error) {
	var wallet models.Wallet
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		First(&wallet).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to lock wallet: %w", err)
	}
	return &wallet, nil
}

// GetOrCreate implements lazy wallet creation on first access.
func (r *walletRepository) GetOrCreate(userID uint) (*models.Wallet, error) {
	wallet, err := r.GetByUserID(userID)
	if err == nil {
		return wallet, nil
	}
	if !errors.Is(err, ErrWalletNotFound) {
		return nil, err
	}
	wallet = &models.Wallet{UserID: userID, Status: models.WalletStatusActive}
	if err := r.Create(wallet); err != nil {
		// Lost a race with a concurrent first access; re-read.
		if existing, gerr := r.GetByUserID(userID); gerr == nil {
			return existing, nil
		}
		return nil, err
	}
	return wallet, nil
}

func (r *walletRepository) Update(wallet *models.Wallet) error {
	if err := r.db.Save(wallet).Error; err != nil {
		return fmt.Errorf("failed to update wallet: %w", err)
	}
	return nil
}

func (r *walletRepository) GetPlatform() (*models.PlatformWallet, error) {
	var pw models.PlatformWallet
	if err := r.db.First(&pw, models.PlatformWalletID).Error; err != nil {
		return nil, fmt.Errorf("failed to get platform wallet: %w", err)
	}
	return &pw, nil
}

func (r *walletRepository) GetPlatformForUpdate() (*models.PlatformWallet, error) {
	var pw models.PlatformWallet
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&pw, models.PlatformWalletID).Error
	if err != nil {
		return nil, fmt.Errorf("failed to lock platform wallet: %w", err)
	}
	return &pw, nil
}

func (r *walletRepository) UpdatePlatform(pw *models.PlatformWallet) error {
	if err := r.db.Save(pw).Error; err != nil {
		return fmt.Errorf("failed to update platform wallet: %w", err)
	}
	return nil
}

func (r *walletRepository) CreatePlatformTransaction(txn *models.PlatformTransaction) error {
	if err := r.db.Create(txn).Error; err != nil {
		return fmt.Errorf("failed to create platform transaction: %w", err)
	}
	return nil
}

func (r *walletRepository) ListPlatformTransactions(kind string, from, to *time.Time, limit, offset int) ([]models.PlatformTransaction, int64, error) {
	q := r.db.Model(&models.PlatformTransaction{})
	if kind != "" {
		q = q.Where("kind = ?", kind)
	}
	if from != nil {
		q = q.Where("created_at >= ?", *from)
	}
	if to != nil {
		q = q.Where("created_at < ?", *to)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count platform transactions: %w", err)
	}

	var txns []models.PlatformTransaction
	err := q.Order("created_at DESC").Limit(limit).Offset(offset).Find(&txns).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list platform transactions: %w", err)
	}
	return txns, total, nil
}

func (r *walletRepository) ExecuteInTransaction(fn func(WalletRepository) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fn(&walletRepository{db: tx})
	})
}
