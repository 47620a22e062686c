// Package escrow manages holds: funds that left a buyer's frozen balance
// for one deposit and are waiting to be released to the seller and
// platform or refunded to the buyer. A hold reaches its terminal status
// exactly once.
package escrow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"relist/internal/models"
	"relist/internal/repositories"
)

// Service manages the lifecycle of escrow holds. The fund movements
// themselves belong to the settlement engine; this service only owns the
// hold rows and their exactly-once terminal transition.
type Service interface {
	Open(ctx context.Context, deposit *models.Deposit) (*models.EscrowHold, error)
	GetByDepositID(ctx context.Context, depositID uint) (*models.EscrowHold, error)
	Release(ctx context.Context, holdID uint) (*models.EscrowHold, error)
	Refund(ctx context.Context, holdID uint) (*models.EscrowHold, error)
}

type service struct {
	repo repositories.EscrowRepository
}

func NewService(repo repositories.EscrowRepository) Service {
	if repo == nil {
		panic("escrow repository is required")
	}
	return &service{repo: repo}
}

func (s *service) Open(ctx context.Context, deposit *models.Deposit) (*models.EscrowHold, error) {
	hold := &models.EscrowHold{
		DepositID: deposit.ID,
		BuyerID:   deposit.BuyerID,
		SellerID:  deposit.SellerID,
		ListingID: deposit.ListingID,
		Amount:    deposit.Amount,
		Status:    models.EscrowStatusActive,
	}
	if err := s.repo.Create(hold); err != nil {
		return nil, fmt.Errorf("failed to open escrow hold: %w", err)
	}
	return hold, nil
}

func (s *service) GetByDepositID(ctx context.Context, depositID uint) (*models.EscrowHold, error) {
	hold, err := s.repo.GetByDepositID(depositID)
	if err != nil {
		if errors.Is(err, repositories.ErrEscrowNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return hold, nil
}

func (s *service) Release(ctx context.Context, holdID uint) (*models.EscrowHold, error) {
	return s.finalize(holdID, models.EscrowStatusReleased)
}

func (s *service) Refund(ctx context.Context, holdID uint) (*models.EscrowHold, error) {
	return s.finalize(holdID, models.EscrowStatusRefunded)
}

// finalize sets the terminal status under a row lock. Only an active hold
// may transition, so the second of two racing calls fails cleanly.
func (s *service) finalize(holdID uint, status string) (*models.EscrowHold, error) {
	var result *models.EscrowHold
	err := s.repo.ExecuteInTransaction(func(tx repositories.EscrowRepository) error {
		hold, err := tx.GetByIDForUpdate(holdID)
		if err != nil {
			if errors.Is(err, repositories.ErrEscrowNotFound) {
				return ErrNotFound
			}
			return err
		}
		if hold.Status != models.EscrowStatusActive {
			return ErrInvalidState
		}
		now := time.Now()
		hold.Status = status
		switch status {
		case models.EscrowStatusReleased:
			hold.ReleasedAt = &now
		case models.EscrowStatusRefunded:
			hold.RefundedAt = &now
		}
		if err := tx.Update(hold); err != nil {
			return err
		}
		result = hold
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
