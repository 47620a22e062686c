package repositories

import (
	"errors"
	"fmt"

	"relist/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EscrowRepository is the data access contract for escrow holds.
type EscrowRepository interface {
	Create(hold *models.EscrowHold) error
	GetByID(id uint) (*models.EscrowHold, error)
	GetByIDForUpdate(id uint) (*models.EscrowHold, error)
	GetByDepositID(depositID uint) (*models.EscrowHold, error)
	Update(hold *models.EscrowHold) error
	ExecuteInTransaction(fn func(EscrowRepository) error) error
}

type escrowRepository struct {
	db *gorm.DB
}

func NewEscrowRepository(db *gorm.DB) EscrowRepository {
	return &escrowRepository{db: db}
}

func (r *escrowRepository) Create(hold *models.EscrowHold) error {
	if err := r.db.Create(hold).Error; err != nil {
		return fmt.Errorf("failed to create escrow hold: %w", err)
	}
	return nil
}

func (r *escrowRepository) GetByID(id uint) (*models.EscrowHold, error) {
	var hold models.EscrowHold
	if err := r.db.First(&hold, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEscrowNotFound
		}
		return nil, fmt.Errorf("failed to get escrow hold: %w", err)
	}
	return &hold, nil
}

func (r *escrowRepository) GetByIDForUpdate(id uint) (*models.EscrowHold, error) {
	var hold models.EscrowHold
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&hold, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEscrowNotFound
		}
		return nil, fmt.Errorf("failed to lock escrow hold: %w", err)
	}
	return &hold, nil
}

func (r *escrowRepository) GetByDepositID(depositID uint) (*models.EscrowHold, error) {
	var hold models.EscrowHold
	err := r.db.Where("deposit_id = ?", depositID).First(&hold).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEscrowNotFound
		}
		return nil, fmt.Errorf("failed to get escrow hold by deposit: %w", err)
	}
	return &hold, nil
}

func (r *escrowRepository) Update(hold *models.EscrowHold) error {
	if err := r.db.Save(hold).Error; err != nil {
		return fmt.Errorf("failed to update escrow hold: %w", err)
	}
	return nil
}

func (r *escrowRepository) ExecuteInTransaction(fn func(EscrowRepository) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fn(&escrowRepository{db: tx})
	})
}
