// Package sweeper runs the periodic pass that enforces time-based
// transitions no user action would otherwise trigger: remaining-payment
// reminders, the overdue split once the deadline passes, expiry of stale
// pending deposits, and the reconciliation of committed gateway successes.
package sweeper

import (
	"context"
	"time"

	"relist/internal/models"
	"relist/internal/repositories"
	"relist/internal/services/deposit"
	"relist/internal/services/notification"
	"relist/internal/services/settlement"

	"github.com/sirupsen/logrus"
)

// Defaults for the sweep cadence and the remaining-payment deadline.
const (
	DefaultInterval        = time.Hour
	DefaultPaymentDeadline = 7 * 24 * time.Hour
	DefaultReminderWindow  = 48 * time.Hour
)

// Config tunes the sweeper. Zero values fall back to the defaults.
type Config struct {
	Interval        time.Duration
	PaymentDeadline time.Duration // counted from DepositPaidAt
	ReminderWindow  time.Duration // before the deadline
}

func (c *Config) applyDefaults() {
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	if c.PaymentDeadline <= 0 {
		c.PaymentDeadline = DefaultPaymentDeadline
	}
	if c.ReminderWindow <= 0 {
		c.ReminderWindow = DefaultReminderWindow
	}
}

// Sweeper owns the periodic settlement maintenance loop.
type Sweeper struct {
	cfg          Config
	appointments repositories.AppointmentRepository
	settlement   settlement.Service
	deposits     deposit.Service
	notifier     notification.Service
	log          *logrus.Entry
	now          func() time.Time
}

func New(
	cfg Config,
	appointments repositories.AppointmentRepository,
	settlementSvc settlement.Service,
	deposits deposit.Service,
	notifier notification.Service,
	log *logrus.Logger,
) *Sweeper {
	if appointments == nil || settlementSvc == nil {
		panic("sweeper dependencies are required")
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	cfg.applyDefaults()
	return &Sweeper{
		cfg:          cfg,
		appointments: appointments,
		settlement:   settlementSvc,
		deposits:     deposits,
		notifier:     notifier,
		log:          log.WithField("component", "sweeper"),
		now:          time.Now,
	}
}

// Run blocks, sweeping on the configured interval until ctx is cancelled.
// Intended to be started as a goroutine by the server entrypoint.
func (s *Sweeper) Run(ctx context.Context) {
	s.log.WithField("interval", s.cfg.Interval).Info("sweeper started")
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("sweeper stopped")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep executes one full pass. Errors are logged per entity and never
// abort the pass; the next tick retries whatever is still pending.
func (s *Sweeper) Sweep(ctx context.Context) {
	s.sweepOverdue(ctx)

	if s.deposits != nil {
		if n, err := s.deposits.ExpirePending(ctx, s.now()); err != nil {
			s.log.WithError(err).Warn("deposit expiry pass failed")
		} else if n > 0 {
			s.log.WithField("expired", n).Info("expired stale pending deposits")
		}
	}

	if n, err := s.settlement.Reconcile(ctx); err != nil {
		s.log.WithError(err).Warn("reconciliation pass failed")
	} else if n > 0 {
		s.log.WithField("redriven", n).Warn("reconciled committed gateway successes")
	}
}

// sweepOverdue walks every appointment still waiting on the remaining
// installment. Within the reminder window a single reminder fires; past
// the deadline the overdue split is applied.
func (s *Sweeper) sweepOverdue(ctx context.Context) {
	appointments, err := s.appointments.ListAwaitingRemainingPayment()
	if err != nil {
		s.log.WithError(err).Warn("failed to list awaiting appointments")
		return
	}

	now := s.now()
	for i := range appointments {
		appt := &appointments[i]
		if appt.Timeline.DepositPaidAt == nil {
			continue
		}
		deadline := appt.Timeline.DepositPaidAt.Add(s.cfg.PaymentDeadline)

		switch {
		case !now.Before(deadline):
			if err := s.settlement.SettleOverdue(ctx, appt.ID); err != nil {
				s.log.WithError(err).WithField("appointment_id", appt.ID).
					Error("overdue settlement failed")
			}
		case now.After(deadline.Add(-s.cfg.ReminderWindow)) && appt.ReminderSentAt == nil:
			s.sendReminder(ctx, appt, deadline)
		}
	}
}

// sendReminder fires the payment reminder at most once per appointment.
// The sent marker is set under the row lock so concurrent sweeps cannot
// double-send.
func (s *Sweeper) sendReminder(ctx context.Context, appt *models.Appointment, deadline time.Time) {
	var send bool
	err := s.appointments.ExecuteInTransaction(func(tx repositories.AppointmentRepository) error {
		a, err := tx.GetByIDForUpdate(appt.ID)
		if err != nil {
			return err
		}
		if a.Status != models.AppointmentStatusAwaitingPayment || a.ReminderSentAt != nil {
			return nil
		}
		now := s.now()
		a.ReminderSentAt = &now
		send = true
		return tx.Update(a)
	})
	if err != nil {
		s.log.WithError(err).WithField("appointment_id", appt.ID).Warn("failed to record payment reminder")
		return
	}
	if send && s.notifier != nil {
		s.notifier.Emit(ctx, notification.EventPaymentReminder, map[string]interface{}{
			"appointment_id": appt.ID,
			"buyer_id":       appt.BuyerID,
			"deadline":       deadline,
		})
	}
}
