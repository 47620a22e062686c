// Package settlement applies the terminal fund movements of a
// transaction: milestone completion, voluntary cancellation with refund,
// the deadline-triggered overdue split, and the reconciliation pass that
// re-drives callbacks whose local effect went missing.
//
// Settlements are sequences of single-row ledger operations in a fixed
// order, gated by the appointment's status. The appointment row is held
// under lock for the whole sequence and flips to its terminal status only
// after every fund movement has been issued, so a crash mid-sequence
// leaves a non-terminal appointment that the sweeper re-drives.
package settlement

import (
	"context"
	"errors"
	"time"

	"relist/internal/models"
	"relist/internal/repositories"
	"relist/internal/services/escrow"
	"relist/internal/services/ledger"
	"relist/internal/services/listing"
	"relist/internal/services/notification"

	"github.com/sirupsen/logrus"
)

// Service is the settlement engine.
type Service interface {
	// CompleteMilestone applies the fund movement and state advance for
	// one paid installment. Re-invocation for an already-applied
	// milestone is a no-op.
	CompleteMilestone(ctx context.Context, appointmentID uint, kind string, amount int64) error
	// CancelAndRefund refunds the full escrow amount to the buyer and
	// cancels the appointment and its deposit.
	CancelAndRefund(ctx context.Context, appointmentID uint) error
	// SettleOverdue applies the forced 50/30/20 split once the
	// remaining-payment deadline has passed. No-op unless the
	// appointment is still awaiting the remaining payment.
	SettleOverdue(ctx context.Context, appointmentID uint) error
	// Reconcile re-drives successful gateway payments whose milestone
	// never got applied locally. Returns how many were re-driven.
	Reconcile(ctx context.Context) (int, error)
}

// Config carries the tunable settlement parameters.
type Config struct {
	PlatformShareCap int64
}

type service struct {
	appointments repositories.AppointmentRepository
	deposits     repositories.DepositRepository
	payments     repositories.PaymentRepository
	ledger       ledger.Service
	escrow       escrow.Service
	listings     listing.Service
	notifier     notification.Service
	cfg          Config
	log          *logrus.Entry
}

func NewService(
	appointments repositories.AppointmentRepository,
	deposits repositories.DepositRepository,
	payments repositories.PaymentRepository,
	ledgerSvc ledger.Service,
	escrowSvc escrow.Service,
	listings listing.Service,
	notifier notification.Service,
	cfg Config,
	log *logrus.Logger,
) Service {
	if appointments == nil || deposits == nil || payments == nil {
		panic("appointment, deposit and payment repositories are required")
	}
	if ledgerSvc == nil || escrowSvc == nil || listings == nil {
		panic("ledger, escrow and listing services are required")
	}
	if cfg.PlatformShareCap <= 0 {
		cfg.PlatformShareCap = DefaultPlatformShareCap
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &service{
		appointments: appointments,
		deposits:     deposits,
		payments:     payments,
		ledger:       ledgerSvc,
		escrow:       escrowSvc,
		listings:     listings,
		notifier:     notifier,
		cfg:          cfg,
		log:          log.WithField("component", "settlement"),
	}
}

func (s *service) CompleteMilestone(ctx context.Context, appointmentID uint, kind string, amount int64) error {
	var applied bool
	err := s.appointments.ExecuteInTransaction(func(tx repositories.AppointmentRepository) error {
		appt, err := tx.GetByIDForUpdate(appointmentID)
		if err != nil {
			return err
		}

		// Second idempotency layer, independent of the gateway-level
		// one: a set timeline field means the milestone already
		// landed.
		switch kind {
		case models.PaymentKindDeposit:
			if appt.Timeline.DepositPaidAt != nil {
				return nil
			}
		case models.PaymentKindRemaining:
			if appt.Timeline.RemainingPaidAt != nil {
				return nil
			}
		case models.PaymentKindFull:
			if appt.Timeline.FullPaymentPaidAt != nil {
				return nil
			}
		default:
			return ErrUnknownMilestone
		}

		if appt.Terminal() {
			return ErrInvalidState
		}

		now := time.Now()
		switch kind {
		case models.PaymentKindDeposit:
			if err := s.ledger.CreditPlatform(ctx, amount, models.PlatformTxnSaleRevenue, appt.ID); err != nil {
				return err
			}
			appt.Timeline.DepositPaidAt = &now
			appt.Status = models.AppointmentStatusAwaitingPayment
			if err := tx.Update(appt); err != nil {
				return err
			}
			if err := s.listings.SetStatus(ctx, s.listingID(appt), models.ListingStatusInTransaction); err != nil {
				s.log.WithError(err).Warn("failed to flip listing to in_transaction")
			}

		case models.PaymentKindRemaining, models.PaymentKindFull:
			if err := s.ledger.CreditPlatform(ctx, amount, models.PlatformTxnSaleRevenue, appt.ID); err != nil {
				return err
			}
			// The earnest deposit held in escrow belongs to the
			// seller once the sale completes.
			if err := s.releaseEscrowToSeller(ctx, appt); err != nil {
				return err
			}
			if kind == models.PaymentKindRemaining {
				appt.Timeline.RemainingPaidAt = &now
			} else {
				appt.Timeline.FullPaymentPaidAt = &now
			}
			appt.Timeline.CompletedAt = &now
			appt.Status = models.AppointmentStatusCompleted
			if err := tx.Update(appt); err != nil {
				return err
			}
			if err := s.completeDeposit(appt.DepositID); err != nil {
				return err
			}
			if err := s.listings.SetStatus(ctx, s.listingID(appt), models.ListingStatusSold); err != nil {
				s.log.WithError(err).Warn("failed to flip listing to sold")
			}
		}

		applied = true
		return nil
	})
	if err != nil {
		return err
	}

	if applied && s.notifier != nil {
		s.notifier.Emit(ctx, notification.EventMilestonePaid, map[string]interface{}{
			"appointment_id": appointmentID,
			"kind":           kind,
			"amount":         amount,
		})
	}
	return nil
}

func (s *service) CancelAndRefund(ctx context.Context, appointmentID uint) error {
	var (
		appt   *models.Appointment
		amount int64
	)
	err := s.appointments.ExecuteInTransaction(func(tx repositories.AppointmentRepository) error {
		a, err := tx.GetByIDForUpdate(appointmentID)
		if err != nil {
			return err
		}
		if a.Terminal() {
			return ErrInvalidState
		}

		hold, err := s.escrow.GetByDepositID(ctx, a.DepositID)
		if err != nil {
			return err
		}
		amount = hold.Amount

		wasInTransaction := a.Status == models.AppointmentStatusAwaitingPayment

		// Fund movement first, terminal flips after.
		if err := s.ledger.Credit(ctx, a.BuyerID, hold.Amount); err != nil {
			return err
		}
		if _, err := s.escrow.Refund(ctx, hold.ID); err != nil && !errors.Is(err, escrow.ErrInvalidState) {
			return err
		}

		a.Status = models.AppointmentStatusCancelled
		if err := tx.Update(a); err != nil {
			return err
		}
		if err := s.cancelDeposit(a.DepositID); err != nil {
			return err
		}
		if wasInTransaction {
			if err := s.listings.SetStatus(ctx, s.listingID(a), models.ListingStatusPublished); err != nil {
				s.log.WithError(err).Warn("failed to revert listing to published")
			}
		}
		appt = a
		return nil
	})
	if err != nil {
		return err
	}

	if s.notifier != nil {
		s.notifier.Emit(ctx, notification.EventAppointmentCancelled, map[string]interface{}{
			"appointment_id": appt.ID,
			"deposit_id":     appt.DepositID,
			"refund_amount":  amount,
			"buyer_id":       appt.BuyerID,
		})
	}
	return nil
}

func (s *service) SettleOverdue(ctx context.Context, appointmentID uint) error {
	var (
		appt  *models.Appointment
		split Split
	)
	err := s.appointments.ExecuteInTransaction(func(tx repositories.AppointmentRepository) error {
		a, err := tx.GetByIDForUpdate(appointmentID)
		if err != nil {
			return err
		}
		// Idempotent on the status guard: anything other than awaiting
		// means the transaction resolved some other way.
		if a.Status != models.AppointmentStatusAwaitingPayment {
			return nil
		}

		hold, err := s.escrow.GetByDepositID(ctx, a.DepositID)
		if err != nil {
			return err
		}
		split = ComputeOverdueSplit(hold.Amount, s.cfg.PlatformShareCap)

		// The amount already left the buyer's frozen balance when the
		// hold was funded, so the split is pure credits, in fixed
		// order: buyer, seller, platform.
		if err := s.ledger.Credit(ctx, a.BuyerID, split.Buyer); err != nil {
			return err
		}
		if err := s.ledger.Credit(ctx, a.SellerID, split.Seller); err != nil {
			return err
		}
		if err := s.ledger.CreditPlatform(ctx, split.Platform, models.PlatformTxnOverdueShare, a.ID); err != nil {
			return err
		}
		if _, err := s.escrow.Refund(ctx, hold.ID); err != nil && !errors.Is(err, escrow.ErrInvalidState) {
			return err
		}

		now := time.Now()
		a.Timeline.OverdueProcessedAt = &now
		a.Status = models.AppointmentStatusCancelled
		if err := tx.Update(a); err != nil {
			return err
		}
		if err := s.cancelDeposit(a.DepositID); err != nil {
			return err
		}
		if err := s.listings.SetStatus(ctx, s.listingID(a), models.ListingStatusPublished); err != nil {
			s.log.WithError(err).Warn("failed to revert listing to published")
		}
		appt = a
		return nil
	})
	if err != nil {
		return err
	}
	if appt == nil {
		return nil // status guard no-op
	}

	s.log.WithFields(logrus.Fields{
		"appointment_id": appt.ID,
		"buyer_share":    split.Buyer,
		"seller_share":   split.Seller,
		"platform_share": split.Platform,
	}).Info("overdue split applied")

	if s.notifier != nil {
		s.notifier.Emit(ctx, notification.EventOverdueSettled, map[string]interface{}{
			"appointment_id": appt.ID,
			"buyer_share":    split.Buyer,
			"seller_share":   split.Seller,
			"platform_share": split.Platform,
		})
	}
	return nil
}

// Reconcile walks successful payment transactions and re-applies any
// whose milestone is missing from the appointment timeline. This is the
// recovery pass for a crash between the gateway commit and the local
// milestone application.
func (s *service) Reconcile(ctx context.Context) (int, error) {
	succeeded, err := s.payments.ListByStatus(models.PaymentStatusSuccess)
	if err != nil {
		return 0, err
	}

	redriven := 0
	for i := range succeeded {
		txn := &succeeded[i]
		appt, err := s.appointments.GetByID(txn.AppointmentID)
		if err != nil {
			s.log.WithError(err).WithField("order_ref", txn.OrderRef).
				Warn("reconcile: dangling payment transaction")
			continue
		}
		if milestoneApplied(appt, txn.Kind) {
			continue
		}
		if err := s.CompleteMilestone(ctx, appt.ID, txn.Kind, txn.Amount); err != nil {
			s.log.WithError(err).WithField("order_ref", txn.OrderRef).
				Warn("reconcile: failed to re-drive milestone")
			continue
		}
		redriven++
	}
	return redriven, nil
}

// releaseEscrowToSeller pays the earnest deposit out to the seller when
// the sale completes. Skips cleanly if the hold already reached a
// terminal status.
func (s *service) releaseEscrowToSeller(ctx context.Context, appt *models.Appointment) error {
	hold, err := s.escrow.GetByDepositID(ctx, appt.DepositID)
	if err != nil {
		return err
	}
	if hold.Status != models.EscrowStatusActive {
		return nil
	}
	if err := s.ledger.Credit(ctx, appt.SellerID, hold.Amount); err != nil {
		return err
	}
	if _, err := s.escrow.Release(ctx, hold.ID); err != nil && !errors.Is(err, escrow.ErrInvalidState) {
		return err
	}
	return nil
}

func milestoneApplied(appt *models.Appointment, kind string) bool {
	switch kind {
	case models.PaymentKindDeposit:
		return appt.Timeline.DepositPaidAt != nil
	case models.PaymentKindRemaining:
		return appt.Timeline.RemainingPaidAt != nil
	case models.PaymentKindFull:
		return appt.Timeline.FullPaymentPaidAt != nil
	}
	return true
}

func (s *service) completeDeposit(depositID uint) error {
	dep, err := s.deposits.GetByID(depositID)
	if err != nil {
		return err
	}
	dep.Status = models.DepositStatusCompleted
	return s.deposits.Update(dep)
}

func (s *service) cancelDeposit(depositID uint) error {
	dep, err := s.deposits.GetByID(depositID)
	if err != nil {
		return err
	}
	dep.Status = models.DepositStatusCancelled
	return s.deposits.Update(dep)
}

func (s *service) listingID(appt *models.Appointment) uint {
	dep, err := s.deposits.GetByID(appt.DepositID)
	if err != nil {
		s.log.WithError(err).WithField("deposit_id", appt.DepositID).
			Warn("failed to resolve listing for appointment")
		return 0
	}
	return dep.ListingID
}
