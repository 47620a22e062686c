// Package listing is the settlement core's view of the external listing
// catalog: read a listing, check it is sellable, flip its status as
// transactions progress. CRUD and moderation live elsewhere.
package listing

import (
	"context"
	"errors"

	"relist/internal/models"
	"relist/internal/repositories"
)

// Service errors
var (
	ErrNotFound    = errors.New("listing not found")
	ErrNotSellable = errors.New("listing is not open for sale")
)

type Service interface {
	Get(ctx context.Context, id uint) (*models.Listing, error)
	SetStatus(ctx context.Context, id uint, status string) error
}

type service struct {
	repo repositories.ListingRepository
}

func NewService(repo repositories.ListingRepository) Service {
	if repo == nil {
		panic("listing repository is required")
	}
	return &service{repo: repo}
}

func (s *service) Get(ctx context.Context, id uint) (*models.Listing, error) {
	listing, err := s.repo.GetByID(id)
	if err != nil {
		if errors.Is(err, repositories.ErrListingNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return listing, nil
}

func (s *service) SetStatus(ctx context.Context, id uint, status string) error {
	if err := s.repo.UpdateStatus(id, status); err != nil {
		if errors.Is(err, repositories.ErrListingNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}
