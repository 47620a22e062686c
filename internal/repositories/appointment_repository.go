package repositories

import (
	"errors"
	"fmt"

	"relist/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AppointmentRepository is the data access contract for appointments.
type AppointmentRepository interface {
	Create(appointment *models.Appointment) error
	GetByID(id uint) (*models.Appointment, error)
	GetByIDForUpdate(id uint) (*models.Appointment, error)
	GetByDepositID(depositID uint) (*models.Appointment, error)
	Update(appointment *models.Appointment) error
	ListAwaitingRemainingPayment() ([]models.Appointment, error)
	List(status string, limit, offset int) ([]models.Appointment, int64, error)
	ExecuteInTransaction(fn func(AppointmentRepository) error) error
}

type appointmentRepository struct {
	db *gorm.DB
}

func NewAppointmentRepository(db *gorm.DB) AppointmentRepository {
	return &appointmentRepository{db: db}
}

func (r *appointmentRepository) Create(appointment *models.Appointment) error {
	if err := r.db.Create(appointment).Error; err != nil {
		return fmt.Errorf("failed to create appointment: %w", err)
	}
	return nil
}

func (r *appointmentRepository) GetByID(id uint) (*models.Appointment, error) {
	var appointment models.Appointment
	if err := r.db.First(&appointment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAppointmentNotFound
		}
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return &appointment, nil
}

func (r *appointmentRepository) GetByIDForUpdate(id uint) (*models.Appointment, error) {
	var appointment models.Appointment
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&appointment, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAppointmentNotFound
		}
		return nil, fmt.Errorf("failed to lock appointment: %w", err)
	}
	return &appointment, nil
}

func (r *appointmentRepository) GetByDepositID(depositID uint) (*models.Appointment, error) {
	var appointment models.Appointment
	err := r.db.Where("deposit_id = ?", depositID).First(&appointment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAppointmentNotFound
		}
		return nil, fmt.Errorf("failed to get appointment by deposit: %w", err)
	}
	return &appointment, nil
}

func (r *appointmentRepository) Update(appointment *models.Appointment) error {
	if err := r.db.Save(appointment).Error; err != nil {
		return fmt.Errorf("failed to update appointment: %w", err)
	}
	return nil
}

// ListAwaitingRemainingPayment returns the sweeper's working set: every
// appointment whose remaining installment is still outstanding.
func (r *appointmentRepository) ListAwaitingRemainingPayment() ([]models.Appointment, error) {
	var appointments []models.Appointment
	err := r.db.Where("status = ? AND timeline_deposit_paid_at IS NOT NULL",
		models.AppointmentStatusAwaitingPayment).
		Find(&appointments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list awaiting appointments: %w", err)
	}
	return appointments, nil
}

func (r *appointmentRepository) List(status string, limit, offset int) ([]models.Appointment, int64, error) {
	q := r.db.Model(&models.Appointment{})
	if status != "" {
		q = q.Where("status = ?", status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count appointments: %w", err)
	}

	var appointments []models.Appointment
	err := q.Order("created_at DESC").Limit(limit).Offset(offset).Find(&appointments).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list appointments: %w", err)
	}
	return appointments, total, nil
}

func (r *appointmentRepository) ExecuteInTransaction(fn func(AppointmentRepository) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fn(&appointmentRepository{db: tx})
	})
}
