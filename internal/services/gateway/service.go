// Package gateway adapts the external payment provider: it builds signed
// redirect URLs for each installment and turns the provider's at-least-once
// callbacks into exactly-once settlement effects, keyed on the
// PaymentTransaction row.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"relist/internal/models"
	"relist/internal/repositories"
	"relist/internal/services/notification"
	"relist/internal/services/settlement"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Service is the payment gateway adapter.
type Service interface {
	// BuildPaymentURL pre-registers a pending transaction for one
	// installment and returns the signed URL to redirect the buyer to.
	BuildPaymentURL(ctx context.Context, appointmentID, userID uint, kind string) (*PaymentRequest, error)
	// HandleCallback validates and applies one provider callback. Both
	// the user-facing return redirect and the server IPN land here; a
	// replayed delivery returns the stored result without moving funds.
	HandleCallback(ctx context.Context, params map[string]string) (*CallbackResult, error)
}

type service struct {
	cfg          Config
	payments     repositories.PaymentRepository
	appointments repositories.AppointmentRepository
	deposits     repositories.DepositRepository
	listings     repositories.ListingRepository
	settlement   settlement.Service
	notifier     notification.Service
	log          *logrus.Entry
}

func NewService(
	cfg Config,
	payments repositories.PaymentRepository,
	appointments repositories.AppointmentRepository,
	deposits repositories.DepositRepository,
	listings repositories.ListingRepository,
	settlementSvc settlement.Service,
	notifier notification.Service,
	log *logrus.Logger,
) Service {
	if payments == nil || appointments == nil || deposits == nil || listings == nil || settlementSvc == nil {
		panic("gateway service dependencies are required")
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &service{
		cfg:          cfg,
		payments:     payments,
		appointments: appointments,
		deposits:     deposits,
		listings:     listings,
		settlement:   settlementSvc,
		notifier:     notifier,
		log:          log.WithField("component", "gateway"),
	}
}

// InstallmentAmount computes the installment for a payment kind from the
// listing price. Deposit and remaining always sum to the full price: the
// remainder is computed by subtraction, not by its own rounding.
func InstallmentAmount(price int64, kind string) (int64, error) {
	deposit := price * depositPct / 100
	switch kind {
	case models.PaymentKindDeposit:
		return deposit, nil
	case models.PaymentKindRemaining:
		return price - deposit, nil
	case models.PaymentKindFull:
		return price, nil
	}
	return 0, ErrUnknownKind
}

func (s *service) BuildPaymentURL(ctx context.Context, appointmentID, userID uint, kind string) (*PaymentRequest, error) {
	var (
		amount int64
		appt   *models.Appointment
	)
	err := s.appointments.ExecuteInTransaction(func(tx repositories.AppointmentRepository) error {
		a, err := tx.GetByIDForUpdate(appointmentID)
		if err != nil {
			return err
		}
		if userID != a.BuyerID {
			return ErrNotParticipant
		}
		switch kind {
		case models.PaymentKindDeposit, models.PaymentKindFull:
			if a.Status != models.AppointmentStatusConfirmed {
				return ErrInvalidState
			}
		case models.PaymentKindRemaining:
			if a.Status != models.AppointmentStatusAwaitingPayment {
				return ErrInvalidState
			}
		default:
			return ErrUnknownKind
		}

		deposit, err := s.deposits.GetByID(a.DepositID)
		if err != nil {
			return err
		}
		lst, err := s.listings.GetByID(deposit.ListingID)
		if err != nil {
			return err
		}
		amount, err = InstallmentAmount(lst.Price, kind)
		if err != nil {
			return err
		}

		now := time.Now()
		switch kind {
		case models.PaymentKindDeposit:
			a.Timeline.DepositRequestAt = &now
		case models.PaymentKindRemaining:
			a.Timeline.RemainingPaymentRequestAt = &now
		case models.PaymentKindFull:
			a.Timeline.FullPaymentRequestAt = &now
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

	// Pre-registration before redirect: the callback must find this row.
	orderRef := fmt.Sprintf("RL-%s", uuid.NewString())
	txn := &models.PaymentTransaction{
		OrderRef:      orderRef,
		AppointmentID: appt.ID,
		UserID:        userID,
		Kind:          kind,
		Amount:        amount,
		Status:        models.PaymentStatusPending,
	}
	if err := s.payments.Create(txn); err != nil {
		return nil, err
	}

	params := map[string]string{
		ParamMerchantCode: s.cfg.MerchantCode,
		ParamOrderRef:     orderRef,
		ParamAmount:       strconv.FormatInt(amount, 10),
		ParamReturnURL:    s.cfg.ReturnURL,
	}
	params[ParamSignature] = Sign(params, s.cfg.Secret)

	q := url.Values{}
	for k, v := range params {
		q.Set(k, v)
	}
	payURL := s.cfg.PayURL + "?" + q.Encode()

	s.log.WithFields(logrus.Fields{
		"order_ref":      orderRef,
		"appointment_id": appt.ID,
		"kind":           kind,
		"amount":         amount,
	}).Info("payment url issued")

	return &PaymentRequest{URL: payURL, OrderRef: orderRef, Kind: kind, Amount: amount}, nil
}

func (s *service) HandleCallback(ctx context.Context, params map[string]string) (*CallbackResult, error) {
	if !VerifySignature(params, s.cfg.Secret) {
		s.log.WithField("order_ref", params[ParamOrderRef]).Warn("callback signature mismatch")
		return nil, ErrInvalidSignature
	}
	orderRef := params[ParamOrderRef]
	if orderRef == "" {
		return nil, ErrUnknownTransaction
	}

	var result *CallbackResult
	err := s.payments.ExecuteInTransaction(func(tx repositories.PaymentRepository) error {
		txn, err := tx.GetByOrderRefForUpdate(orderRef)
		if err != nil {
			if errors.Is(err, repositories.ErrPaymentNotFound) {
				return ErrUnknownTransaction
			}
			return err
		}

		if txn.Status != models.PaymentStatusPending {
			// Duplicate delivery (return redirect + IPN for the same
			// event). Return the stored outcome, move no funds.
			result = resultFromTransaction(txn, true)
			return nil
		}

		code := params[ParamResponseCode]
		now := time.Now()
		txn.GatewayResponseCode = code
		txn.GatewayTxnID = params[ParamGatewayTxnID]
		txn.ProcessedAt = &now
		if code == CodeSuccess {
			txn.Status = models.PaymentStatusSuccess
		} else {
			txn.Status = models.PaymentStatusFailed
		}
		result = resultFromTransaction(txn, false)
		txn.Result = models.NewJSON(map[string]interface{}{
			"order_ref":      result.OrderRef,
			"appointment_id": result.AppointmentID,
			"kind":           result.Kind,
			"amount":         result.Amount,
			"success":        result.Success,
			"response_code":  result.ResponseCode,
			"message":        result.Message,
			"gateway_txn_id": result.GatewayTxnID,
		})
		return tx.Update(txn)
	})
	if err != nil {
		return nil, err
	}
	if result.Duplicate || !result.Success {
		return result, nil
	}

	// The terminal status above is already committed; a failure here is
	// picked up by the reconciliation pass, which re-drives the milestone
	// from the success row.
	if err := s.settlement.CompleteMilestone(ctx, result.AppointmentID, result.Kind, result.Amount); err != nil {
		s.log.WithError(err).WithField("order_ref", orderRef).
			Error("milestone application failed after gateway success")
		return nil, fmt.Errorf("failed to apply payment milestone: %w", err)
	}

	if s.notifier != nil {
		s.notifier.Emit(ctx, notification.EventMilestonePaid, map[string]interface{}{
			"order_ref":      result.OrderRef,
			"appointment_id": result.AppointmentID,
			"kind":           result.Kind,
			"amount":         result.Amount,
		})
	}
	return result, nil
}

func resultFromTransaction(txn *models.PaymentTransaction, duplicate bool) *CallbackResult {
	return &CallbackResult{
		OrderRef:      txn.OrderRef,
		AppointmentID: txn.AppointmentID,
		Kind:          txn.Kind,
		Amount:        txn.Amount,
		Success:       txn.Status == models.PaymentStatusSuccess,
		ResponseCode:  txn.GatewayResponseCode,
		Message:       CodeMessage(txn.GatewayResponseCode),
		GatewayTxnID:  txn.GatewayTxnID,
		Duplicate:     duplicate,
	}
}
