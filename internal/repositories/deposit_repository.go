package repositories

import (
	"errors"
	"fmt"
	"time"

	"relist/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DepositRepository is the data access contract for deposits.
type DepositRepository interface {
	Create(deposit *models.Deposit) error
	GetByID(id uint) (*models.Deposit, error)
	GetByIDForUpdate(id uint) (*models.Deposit, error)
	Update(deposit *models.Deposit) error
	HasLiveDeposit(buyerID, listingID uint) (bool, error)
	ListExpiredPending(now time.Time) ([]models.Deposit, error)
	List(status string, limit, offset int) ([]models.Deposit, int64, error)
	ExecuteInTransaction(fn func(DepositRepository) error) error
}

type depositRepository struct {
	db *gorm.DB
}

func NewDepositRepository(db *gorm.DB) DepositRepository {
	return &depositRepository{db: db}
}

func (r *depositRepository) Create(deposit *models.Deposit) error {
	if err := r.db.Create(deposit).Error; err != nil {
		return fmt.Errorf("failed to create deposit: %w", err)
	}
	return nil
}

func (r *depositRepository) GetByID(id uint) (*models.Deposit, error) {
	var deposit models.Deposit
	if err := r.db.First(&deposit, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDepositNotFound
		}
		return nil, fmt.Errorf("failed to get deposit: %w", err)
	}
	return &deposit, nil
}

func (r *depositRepository) GetByIDForUpdate(id uint) (*models.Deposit, error) {
	var deposit models.Deposit
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&deposit, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDepositNotFound
		}
		return nil, fmt.Errorf("failed to lock deposit: %w", err)
	}
	return &deposit, nil
}

func (r *depositRepository) Update(deposit *models.Deposit) error {
	if err := r.db.Save(deposit).Error; err != nil {
		return fmt.Errorf("failed to update deposit: %w", err)
	}
	return nil
}

// HasLiveDeposit reports whether the buyer already has a non-terminal
// deposit on the listing.
func (r *depositRepository) HasLiveDeposit(buyerID, listingID uint) (bool, error) {
	var count int64
	err := r.db.Model(&models.Deposit{}).
		Where("buyer_id = ? AND listing_id = ? AND status IN ?",
			buyerID, listingID,
			[]string{models.DepositStatusPendingSeller, models.DepositStatusInEscrow, models.DepositStatusCompleted}).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check live deposits: %w", err)
	}
	return count > 0, nil
}

func (r *depositRepository) ListExpiredPending(now time.Time) ([]models.Deposit, error) {
	var deposits []models.Deposit
	err := r.db.Where("status = ? AND expires_at <= ?", models.DepositStatusPendingSeller, now).
		Find(&deposits).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list expired deposits: %w", err)
	}
	return deposits, nil
}

func (r *depositRepository) List(status string, limit, offset int) ([]models.Deposit, int64, error) {
	q := r.db.Model(&models.Deposit{})
	if status != "" {
		q = q.Where("status = ?", status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count deposits: %w", err)
	}

	var deposits []models.Deposit
	err := q.Order("created_at DESC").Limit(limit).Offset(offset).Find(&deposits).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list deposits: %w", err)
	}
	return deposits, total, nil
}

func (r *depositRepository) ExecuteInTransaction(fn func(DepositRepository) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fn(&depositRepository{db: tx})
	})
}
