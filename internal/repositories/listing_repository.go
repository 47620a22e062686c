package repositories

import (
	"errors"
	"fmt"

	"relist/internal/models"

	"gorm.io/gorm"
)

// ListingRepository is the read/status surface the settlement core needs
// from the external listing catalog.
type ListingRepository interface {
	GetByID(id uint) (*models.Listing, error)
	UpdateStatus(id uint, status string) error
}

type listingRepository struct {
	db *gorm.DB
}

func NewListingRepository(db *gorm.DB) ListingRepository {
	return &listingRepository{db: db}
}

func (r *listingRepository) GetByID(id uint) (*models.Listing, error) {
	var listing models.Listing
	if err := r.db.First(&listing, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrListingNotFound
		}
		return nil, fmt.Errorf("failed to get listing: %w", err)
	}
	return &listing, nil
}

func (r *listingRepository) UpdateStatus(id uint, status string) error {
	result := r.db.Model(&models.Listing{}).Where("id = ?", id).Update("status", status)
	if result.Error != nil {
		return fmt.Errorf("failed to update listing status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrListingNotFound
	}
	return nil
}
