// Package notification emits fire-and-forget settlement events. Delivery
// is an external concern; a failed emit must never roll back a settlement
// mutation, so every method returns nothing and swallows its own errors.
package notification

import (
	"context"

	"github.com/sirupsen/logrus"
)

// Event names emitted by the settlement core.
const (
	EventDepositRequested       = "deposit.requested"
	EventDepositConfirmed       = "deposit.confirmed"
	EventDepositRejected        = "deposit.rejected"
	EventDepositExpired         = "deposit.expired"
	EventDepositCancelled       = "deposit.cancelled"
	EventAppointmentCreated     = "appointment.created"
	EventAppointmentConfirmed   = "appointment.confirmed"
	EventAppointmentRescheduled = "appointment.rescheduled"
	EventAppointmentCancelled   = "appointment.cancelled"
	EventMilestonePaid          = "payment.milestone"
	EventPaymentReminder        = "payment.reminder"
	EventOverdueSettled         = "payment.overdue_settled"
)

// Service publishes settlement events to the notification collaborator.
type Service interface {
	Emit(ctx context.Context, event string, fields map[string]interface{})
}

type service struct {
	log *logrus.Entry
}

// NewService creates the default emitter, which logs each event. The
// outbound transport (email/push/socket) subscribes to these logs out of
// process.
func NewService(log *logrus.Logger) Service {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &service{log: log.WithField("component", "notification")}
}

func (s *service) Emit(ctx context.Context, event string, fields map[string]interface{}) {
	s.log.WithField("event", event).WithFields(logrus.Fields(fields)).Info("settlement event")
}
