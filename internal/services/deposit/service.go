// Package deposit orchestrates the negotiation between buyer and seller:
// buyer intent freezes funds, the seller accepts into escrow or rejects,
// and acceptance opens the appointment that the rest of the settlement
// pipeline drives.
package deposit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"relist/internal/models"
	"relist/internal/repositories"
	"relist/internal/services/escrow"
	"relist/internal/services/ledger"
	"relist/internal/services/listing"
	"relist/internal/services/notification"

	"github.com/sirupsen/logrus"
)

// Service drives deposit negotiation. Mutating operations hold the
// deposit row lock end to end, so the status guard and the action are
// atomic with respect to concurrent callers on the same deposit.
type Service interface {
	CreateDeposit(ctx context.Context, buyerID, listingID uint, amount int64) (*CreateResult, error)
	SellerConfirm(ctx context.Context, depositID, sellerID uint, action string) (*ConfirmResult, error)
	Cancel(ctx context.Context, depositID, buyerID uint) (*models.Deposit, error)
	ExpirePending(ctx context.Context, now time.Time) (int, error)
	Get(ctx context.Context, depositID uint) (*models.Deposit, error)
}

type service struct {
	deposits     repositories.DepositRepository
	appointments repositories.AppointmentRepository
	ledger       ledger.Service
	escrow       escrow.Service
	listings     listing.Service
	notifier     notification.Service
	log          *logrus.Entry
}

func NewService(
	deposits repositories.DepositRepository,
	appointments repositories.AppointmentRepository,
	ledgerSvc ledger.Service,
	escrowSvc escrow.Service,
	listings listing.Service,
	notifier notification.Service,
	log *logrus.Logger,
) Service {
	if deposits == nil || appointments == nil {
		panic("deposit and appointment repositories are required")
	}
	if ledgerSvc == nil || escrowSvc == nil || listings == nil {
		panic("ledger, escrow and listing services are required")
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &service{
		deposits:     deposits,
		appointments: appointments,
		ledger:       ledgerSvc,
		escrow:       escrowSvc,
		listings:     listings,
		notifier:     notifier,
		log:          log.WithField("component", "deposit"),
	}
}

func (s *service) Get(ctx context.Context, depositID uint) (*models.Deposit, error) {
	return s.deposits.GetByID(depositID)
}

func (s *service) CreateDeposit(ctx context.Context, buyerID, listingID uint, amount int64) (*CreateResult, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	lst, err := s.listings.Get(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if lst.SellerID == buyerID {
		return nil, ErrOwnListing
	}
	if !lst.Sellable() {
		return nil, ErrListingNotSellable
	}
	if amount > lst.Price {
		return nil, ErrInvalidAmount
	}

	live, err := s.deposits.HasLiveDeposit(buyerID, listingID)
	if err != nil {
		return nil, err
	}
	if live {
		return nil, ErrDuplicateDeposit
	}

	wallet, err := s.ledger.GetWallet(ctx, buyerID)
	if err != nil {
		return nil, err
	}
	if wallet.Balance < amount {
		// Normal outcome: the caller offers a top-up path. No mutation.
		return &CreateResult{
			TopUpRequired: true,
			Shortfall:     amount - wallet.Balance,
		}, nil
	}

	if err := s.ledger.Freeze(ctx, buyerID, amount); err != nil {
		return nil, err
	}

	dep := &models.Deposit{
		ListingID: listingID,
		BuyerID:   buyerID,
		SellerID:  lst.SellerID,
		Amount:    amount,
		Status:    models.DepositStatusPendingSeller,
		ExpiresAt: time.Now().Add(DefaultExpiry),
	}
	if err := s.deposits.Create(dep); err != nil {
		// The freeze must not outlive a failed deposit row.
		if uerr := s.ledger.Unfreeze(ctx, buyerID, amount); uerr != nil {
			s.log.WithError(uerr).WithField("buyer_id", buyerID).
				Error("failed to unfreeze after deposit create failure")
		}
		return nil, fmt.Errorf("failed to create deposit: %w", err)
	}

	s.notify(ctx, notification.EventDepositRequested, dep)
	return &CreateResult{Deposit: dep}, nil
}

func (s *service) SellerConfirm(ctx context.Context, depositID, sellerID uint, action string) (*ConfirmResult, error) {
	if action != ActionConfirm && action != ActionReject {
		return nil, ErrInvalidState
	}

	var result ConfirmResult
	err := s.deposits.ExecuteInTransaction(func(tx repositories.DepositRepository) error {
		dep, err := tx.GetByIDForUpdate(depositID)
		if err != nil {
			return err
		}
		if dep.SellerID != sellerID {
			return ErrNotParticipant
		}
		if dep.Status != models.DepositStatusPendingSeller {
			return ErrInvalidState
		}

		if action == ActionReject {
			if err := s.ledger.Unfreeze(ctx, dep.BuyerID, dep.Amount); err != nil {
				return err
			}
			dep.Status = models.DepositStatusSellerCancelled
			if err := tx.Update(dep); err != nil {
				return err
			}
			result.Deposit = dep
			return nil
		}

		// The hold and appointment rows are created before the frozen
		// debit: a failure up to that point leaves the buyer's frozen
		// funds untouched, and a retried confirm reuses the rows
		// instead of duplicating them.
		hold, err := s.escrow.GetByDepositID(ctx, dep.ID)
		if err != nil {
			if !errors.Is(err, escrow.ErrNotFound) {
				return err
			}
			hold, err = s.escrow.Open(ctx, dep)
			if err != nil {
				return err
			}
		}

		appt, err := s.appointments.GetByDepositID(dep.ID)
		if err != nil {
			if !errors.Is(err, repositories.ErrAppointmentNotFound) {
				return err
			}
			appt = &models.Appointment{
				DepositID:      dep.ID,
				BuyerID:        dep.BuyerID,
				SellerID:       dep.SellerID,
				ScheduledDate:  time.Now().Add(DefaultMeetingLeadIn),
				Status:         models.AppointmentStatusPending,
				MaxReschedules: models.DefaultMaxReschedules,
			}
			if err := s.appointments.Create(appt); err != nil {
				return fmt.Errorf("failed to create appointment: %w", err)
			}
		}

		// Frozen funds move into the hold directly; the balance is
		// never credited on the way. An invariant violation while the
		// hold is active means a previous attempt debited the funds
		// and lost the deposit update; finish the transition.
		if err := s.ledger.DebitFrozen(ctx, dep.BuyerID, dep.Amount); err != nil {
			if !errors.Is(err, ledger.ErrInvariantViolation) || hold.Status != models.EscrowStatusActive {
				return err
			}
			s.log.WithField("deposit_id", dep.ID).Warn("frozen funds already in escrow; completing confirm")
		}

		dep.Status = models.DepositStatusInEscrow
		if err := tx.Update(dep); err != nil {
			return err
		}

		result = ConfirmResult{Deposit: dep, Hold: hold, Appointment: appt}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if action == ActionReject {
		s.notify(ctx, notification.EventDepositRejected, result.Deposit)
		return &result, nil
	}

	s.notify(ctx, notification.EventDepositConfirmed, result.Deposit)
	if s.notifier == nil {
		return &result, nil
	}
	s.notifier.Emit(ctx, notification.EventAppointmentCreated, map[string]interface{}{
		"appointment_id": result.Appointment.ID,
		"deposit_id":     result.Deposit.ID,
		"buyer_id":       result.Deposit.BuyerID,
		"seller_id":      result.Deposit.SellerID,
		"scheduled_date": result.Appointment.ScheduledDate,
	})
	return &result, nil
}

func (s *service) Cancel(ctx context.Context, depositID, buyerID uint) (*models.Deposit, error) {
	var dep *models.Deposit
	err := s.deposits.ExecuteInTransaction(func(tx repositories.DepositRepository) error {
		d, err := tx.GetByIDForUpdate(depositID)
		if err != nil {
			return err
		}
		if d.BuyerID != buyerID {
			return ErrNotParticipant
		}
		if d.Status != models.DepositStatusPendingSeller {
			return ErrInvalidState
		}
		if err := s.ledger.Unfreeze(ctx, d.BuyerID, d.Amount); err != nil {
			return err
		}
		d.Status = models.DepositStatusCancelled
		if err := tx.Update(d); err != nil {
			return err
		}
		dep = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.notify(ctx, notification.EventDepositCancelled, dep)
	return dep, nil
}

// ExpirePending cancels pending deposits past their expiry and returns
// the frozen funds. Invoked from the sweeper.
func (s *service) ExpirePending(ctx context.Context, now time.Time) (int, error) {
	expired, err := s.deposits.ListExpiredPending(now)
	if err != nil {
		return 0, err
	}

	count := 0
	for i := range expired {
		id := expired[i].ID
		var dep *models.Deposit
		err := s.deposits.ExecuteInTransaction(func(tx repositories.DepositRepository) error {
			d, err := tx.GetByIDForUpdate(id)
			if err != nil {
				return err
			}
			if d.Status != models.DepositStatusPendingSeller {
				return ErrInvalidState // resolved concurrently
			}
			if err := s.ledger.Unfreeze(ctx, d.BuyerID, d.Amount); err != nil {
				return err
			}
			d.Status = models.DepositStatusCancelled
			if err := tx.Update(d); err != nil {
				return err
			}
			dep = d
			return nil
		})
		if err != nil {
			if errors.Is(err, ErrInvalidState) {
				continue
			}
			s.log.WithError(err).WithField("deposit_id", id).Warn("failed to expire deposit")
			continue
		}
		s.notify(ctx, notification.EventDepositExpired, dep)
		count++
	}
	return count, nil
}

func (s *service) notify(ctx context.Context, event string, dep *models.Deposit) {
	if s.notifier == nil {
		return
	}
	s.notifier.Emit(ctx, event, map[string]interface{}{
		"deposit_id": dep.ID,
		"listing_id": dep.ListingID,
		"buyer_id":   dep.BuyerID,
		"seller_id":  dep.SellerID,
		"amount":     dep.Amount,
	})
}
