// Package ledger implements per-user balance and frozen-amount
// bookkeeping plus the platform wallet aggregate. Operations serialize on
// the wallet row, so two concurrent freezes for the same user cannot both
// pass the balance check against a stale read.
package ledger

import (
	"context"
	"fmt"
	"time"

	"relist/internal/models"
	"relist/internal/repositories"

	"github.com/sirupsen/logrus"
)

type service struct {
	repo  repositories.WalletRepository
	cache WalletCache
	log   *logrus.Entry
}

// NewService creates a new wallet ledger. The cache is optional.
func NewService(repo repositories.WalletRepository, cache WalletCache, log *logrus.Logger) Service {
	if repo == nil {
		panic("wallet repository is required")
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &service{
		repo:  repo,
		cache: cache,
		log:   log.WithField("component", "ledger"),
	}
}

func (s *service) GetWallet(ctx context.Context, userID uint) (*models.Wallet, error) {
	if s.cache != nil {
		if wallet, found, err := s.cache.GetWallet(ctx, userID); err == nil && found {
			return wallet, nil
		}
	}

	wallet, err := s.repo.GetOrCreate(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.CacheWallet(ctx, wallet); err != nil {
			s.log.WithError(err).Warn("failed to cache wallet")
		}
	}
	return wallet, nil
}

func (s *service) Freeze(ctx context.Context, userID uint, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	return s.mutate(ctx, userID, "freeze", func(w *models.Wallet) error {
		if w.Status != models.WalletStatusActive {
			return ErrWalletSuspended
		}
		if w.Balance < amount {
			return ErrInsufficientFunds
		}
		w.Balance -= amount
		w.FrozenAmount += amount
		return nil
	})
}

func (s *service) Unfreeze(ctx context.Context, userID uint, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	return s.mutate(ctx, userID, "unfreeze", func(w *models.Wallet) error {
		if w.FrozenAmount < amount {
			// Callers never unfreeze more than they froze; if this
			// trips, the ledger is corrupt and must not be "fixed" here.
			return ErrInvariantViolation
		}
		w.FrozenAmount -= amount
		w.Balance += amount
		return nil
	})
}

func (s *service) Credit(ctx context.Context, userID uint, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	return s.mutate(ctx, userID, "credit", func(w *models.Wallet) error {
		w.Balance += amount
		w.TotalDeposited += amount
		return nil
	})
}

func (s *service) Debit(ctx context.Context, userID uint, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	return s.mutate(ctx, userID, "debit", func(w *models.Wallet) error {
		if w.Status != models.WalletStatusActive {
			return ErrWalletSuspended
		}
		if w.Balance < amount {
			return ErrInsufficientFunds
		}
		w.Balance -= amount
		w.TotalWithdrawn += amount
		return nil
	})
}

func (s *service) DebitFrozen(ctx context.Context, userID uint, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	return s.mutate(ctx, userID, "debit_frozen", func(w *models.Wallet) error {
		if w.FrozenAmount < amount {
			return ErrInvariantViolation
		}
		w.FrozenAmount -= amount
		return nil
	})
}

// mutate applies fn to the locked wallet row inside one transaction.
func (s *service) mutate(ctx context.Context, userID uint, op string, fn func(*models.Wallet) error) error {
	// Lazy creation happens outside the lock so the FOR UPDATE read
	// always has a row to bind to.
	if _, err := s.repo.GetOrCreate(userID); err != nil {
		return fmt.Errorf("failed to ensure wallet: %w", err)
	}

	err := s.repo.ExecuteInTransaction(func(tx repositories.WalletRepository) error {
		wallet, err := tx.GetByUserIDForUpdate(userID)
		if err != nil {
			return err
		}
		if err := fn(wallet); err != nil {
			return err
		}
		if wallet.Balance < 0 || wallet.FrozenAmount < 0 {
			return ErrInvariantViolation
		}
		now := time.Now()
		wallet.LastTransactionAt = &now
		return tx.Update(wallet)
	})
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"op":      op,
			"user_id": userID,
		}).WithError(err).Warn("wallet mutation failed")
		return err
	}

	if s.cache != nil {
		if cerr := s.cache.InvalidateWallet(ctx, userID); cerr != nil {
			s.log.WithError(cerr).Warn("failed to invalidate wallet cache")
		}
	}
	return nil
}

func (s *service) GetPlatform(ctx context.Context) (*models.PlatformWallet, error) {
	pw, err := s.repo.GetPlatform()
	if err != nil {
		return nil, fmt.Errorf("failed to get platform wallet: %w", err)
	}
	return pw, nil
}

func (s *service) CreditPlatform(ctx context.Context, amount int64, kind string, refID uint) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}

	err := s.repo.ExecuteInTransaction(func(tx repositories.WalletRepository) error {
		pw, err := tx.GetPlatformForUpdate()
		if err != nil {
			return err
		}
		pw.Balance += amount
		pw.TotalEarned += amount
		pw.TotalTransactions++
		now := time.Now()
		pw.LastTransactionAt = &now
		if err := tx.UpdatePlatform(pw); err != nil {
			return err
		}
		return tx.CreatePlatformTransaction(&models.PlatformTransaction{
			Kind:   kind,
			Amount: amount,
			RefID:  refID,
		})
	})
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"kind":   kind,
			"ref_id": refID,
			"amount": amount,
		}).WithError(err).Warn("platform credit failed")
		return err
	}
	return nil
}
