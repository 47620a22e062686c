// Package appointment tracks the in-person meeting after escrow funds: a
// confirmation handshake by both parties, a bounded reschedule loop, and
// cancellation, which always refunds the escrow through the settlement
// engine.
package appointment

import (
	"context"
	"time"

	"relist/internal/models"
	"relist/internal/repositories"
	"relist/internal/services/notification"
	"relist/internal/services/settlement"

	"github.com/sirupsen/logrus"
)

// RescheduleStep is how far the meeting moves on each reject.
const RescheduleStep = 7 * 24 * time.Hour

// Service drives the appointment state machine.
type Service interface {
	Get(ctx context.Context, appointmentID uint) (*models.Appointment, error)
	// Confirm marks one party's attendance. Confirming twice is a
	// no-op; the appointment flips to confirmed on the edge where the
	// second flag becomes true.
	Confirm(ctx context.Context, appointmentID, userID uint) (*models.Appointment, error)
	// Reject pushes the meeting out a week and resets both
	// confirmations. Once the reschedule budget is exhausted the
	// appointment is force-cancelled and the escrow refunded.
	Reject(ctx context.Context, appointmentID, userID uint) (*models.Appointment, error)
	// Cancel is callable by either party from any non-terminal state
	// and always triggers a full refund from escrow.
	Cancel(ctx context.Context, appointmentID, userID uint) error
}

type service struct {
	appointments repositories.AppointmentRepository
	settlement   settlement.Service
	notifier     notification.Service
	log          *logrus.Entry
}

func NewService(
	appointments repositories.AppointmentRepository,
	settlementSvc settlement.Service,
	notifier notification.Service,
	log *logrus.Logger,
) Service {
	if appointments == nil || settlementSvc == nil {
		panic("appointment repository and settlement service are required")
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &service{
		appointments: appointments,
		settlement:   settlementSvc,
		notifier:     notifier,
		log:          log.WithField("component", "appointment"),
	}
}

func (s *service) Get(ctx context.Context, appointmentID uint) (*models.Appointment, error) {
	return s.appointments.GetByID(appointmentID)
}

func (s *service) Confirm(ctx context.Context, appointmentID, userID uint) (*models.Appointment, error) {
	var appt *models.Appointment
	var confirmed bool
	err := s.appointments.ExecuteInTransaction(func(tx repositories.AppointmentRepository) error {
		a, err := tx.GetByIDForUpdate(appointmentID)
		if err != nil {
			return err
		}
		if err := requireParty(a, userID); err != nil {
			return err
		}
		if a.Status != models.AppointmentStatusPending && a.Status != models.AppointmentStatusRescheduled {
			return ErrInvalidState
		}

		now := time.Now()
		switch userID {
		case a.BuyerID:
			if a.BuyerConfirmed {
				appt = a
				return nil // per-party idempotent
			}
			a.BuyerConfirmed = true
			a.BuyerConfirmedAt = &now
		case a.SellerID:
			if a.SellerConfirmed {
				appt = a
				return nil
			}
			a.SellerConfirmed = true
			a.SellerConfirmedAt = &now
		}

		if a.BothConfirmed() {
			a.Status = models.AppointmentStatusConfirmed
			confirmed = true
		}
		if err := tx.Update(a); err != nil {
			return err
		}
		appt = a
		return nil
	})
	if err != nil {
		return nil, err
	}

	if confirmed && s.notifier != nil {
		s.notifier.Emit(ctx, notification.EventAppointmentConfirmed, map[string]interface{}{
			"appointment_id": appt.ID,
			"buyer_id":       appt.BuyerID,
			"seller_id":      appt.SellerID,
			"scheduled_date": appt.ScheduledDate,
		})
	}
	return appt, nil
}

func (s *service) Reject(ctx context.Context, appointmentID, userID uint) (*models.Appointment, error) {
	var (
		appt      *models.Appointment
		exhausted bool
	)
	err := s.appointments.ExecuteInTransaction(func(tx repositories.AppointmentRepository) error {
		a, err := tx.GetByIDForUpdate(appointmentID)
		if err != nil {
			return err
		}
		if err := requireParty(a, userID); err != nil {
			return err
		}
		if a.Status != models.AppointmentStatusPending && a.Status != models.AppointmentStatusRescheduled {
			return ErrInvalidState
		}

		if a.RescheduledCount >= a.MaxReschedules {
			// Budget spent: resolved outside this transaction via the
			// settlement engine's refund path.
			exhausted = true
			appt = a
			return nil
		}

		a.ScheduledDate = a.ScheduledDate.Add(RescheduleStep)
		a.BuyerConfirmed = false
		a.SellerConfirmed = false
		a.BuyerConfirmedAt = nil
		a.SellerConfirmedAt = nil
		a.RescheduledCount++
		a.Status = models.AppointmentStatusRescheduled
		if err := tx.Update(a); err != nil {
			return err
		}
		appt = a
		return nil
	})
	if err != nil {
		return nil, err
	}

	if exhausted {
		s.log.WithField("appointment_id", appointmentID).
			Info("reschedule budget exhausted, cancelling with refund")
		if err := s.settlement.CancelAndRefund(ctx, appointmentID); err != nil {
			return nil, err
		}
		return s.appointments.GetByID(appointmentID)
	}

	if s.notifier != nil {
		s.notifier.Emit(ctx, notification.EventAppointmentRescheduled, map[string]interface{}{
			"appointment_id":    appt.ID,
			"rescheduled_count": appt.RescheduledCount,
			"scheduled_date":    appt.ScheduledDate,
			"rejected_by":       userID,
		})
	}
	return appt, nil
}

func (s *service) Cancel(ctx context.Context, appointmentID, userID uint) error {
	appt, err := s.appointments.GetByID(appointmentID)
	if err != nil {
		return err
	}
	if err := requireParty(appt, userID); err != nil {
		return err
	}
	if appt.Terminal() {
		return ErrInvalidState
	}
	// The settlement engine re-checks the state under lock.
	return s.settlement.CancelAndRefund(ctx, appointmentID)
}

func requireParty(a *models.Appointment, userID uint) error {
	if userID != a.BuyerID && userID != a.SellerID {
		return ErrNotParticipant
	}
	return nil
}
