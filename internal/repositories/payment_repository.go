package repositories

import (
	"errors"
	"fmt"

	"relist/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PaymentRepository is the data access contract for payment transactions,
// the idempotency records of gateway round-trips.
type PaymentRepository interface {
	Create(txn *models.PaymentTransaction) error
	GetByOrderRef(orderRef string) (*models.PaymentTransaction, error)
	GetByOrderRefForUpdate(orderRef string) (*models.PaymentTransaction, error)
	Update(txn *models.PaymentTransaction) error
	ListByStatus(status string) ([]models.PaymentTransaction, error)
	ListByUser(userID uint, limit, offset int) ([]models.PaymentTransaction, int64, error)
	ExecuteInTransaction(fn func(PaymentRepository) error) error
}

type paymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) Create(txn *models.PaymentTransaction) error {
	if err := r.db.Create(txn).Error; err != nil {
		return fmt.Errorf("failed to create payment transaction: %w", err)
	}
	return nil
}

func (r *paymentRepository) GetByOrderRef(orderRef string) (*models.PaymentTransaction, error) {
	var txn models.PaymentTransaction
	err := r.db.Where("order_ref = ?", orderRef).First(&txn).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("failed to get payment transaction: %w", err)
	}
	return &txn, nil
}

// GetByOrderRefForUpdate locks the idempotency record so concurrent
// deliveries of the same callback serialize on the row.
func (r *paymentRepository) GetByOrderRefForUpdate(orderRef string) (*models.PaymentTransaction, error) {
	var txn models.PaymentTransaction
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("order_ref = ?", orderRef).
		First(&txn).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("failed to lock payment transaction: %w", err)
	}
	return &txn, nil
}

func (r *paymentRepository) Update(txn *models.PaymentTransaction) error {
	if err := r.db.Save(txn).Error; err != nil {
		return fmt.Errorf("failed to update payment transaction: %w", err)
	}
	return nil
}

func (r *paymentRepository) ListByStatus(status string) ([]models.PaymentTransaction, error) {
	var txns []models.PaymentTransaction
	if err := r.db.Where("status = ?", status).Find(&txns).Error; err != nil {
		return nil, fmt.Errorf("failed to list payment transactions: %w", err)
	}
	return txns, nil
}

func (r *paymentRepository) ListByUser(userID uint, limit, offset int) ([]models.PaymentTransaction, int64, error) {
	q := r.db.Model(&models.PaymentTransaction{}).Where("user_id = ?", userID)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count payment transactions: %w", err)
	}

	var txns []models.PaymentTransaction
	err := q.Order("created_at DESC").Limit(limit).Offset(offset).Find(&txns).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list payment transactions: %w", err)
	}
	return txns, total, nil
}

func (r *paymentRepository) ExecuteInTransaction(fn func(PaymentRepository) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fn(&paymentRepository{db: tx})
	})
}
