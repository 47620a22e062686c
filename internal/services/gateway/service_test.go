package gateway

import (
	"context"
	"strconv"
	"testing"
	"time"

	"relist/internal/models"
	"relist/internal/repositories"
	"relist/internal/services/notification"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type fakePaymentRepo struct {
	byOrderRef map[string]*models.PaymentTransaction
	nextID     uint
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{byOrderRef: make(map[string]*models.PaymentTransaction), nextID: 1}
}

func (r *fakePaymentRepo) Create(txn *models.PaymentTransaction) error {
	txn.ID = r.nextID
	r.nextID++
	cp := *txn
	r.byOrderRef[txn.OrderRef] = &cp
	return nil
}

func (r *fakePaymentRepo) GetByOrderRef(orderRef string) (*models.PaymentTransaction, error) {
	txn, ok := r.byOrderRef[orderRef]
	if !ok {
		return nil, repositories.ErrPaymentNotFound
	}
	cp := *txn
	return &cp, nil
}

func (r *fakePaymentRepo) GetByOrderRefForUpdate(orderRef string) (*models.PaymentTransaction, error) {
	return r.GetByOrderRef(orderRef)
}

func (r *fakePaymentRepo) Update(txn *models.PaymentTransaction) error {
	cp := *txn
	r.byOrderRef[txn.OrderRef] = &cp
	return nil
}

func (r *fakePaymentRepo) ListByStatus(status string) ([]models.PaymentTransaction, error) {
	var out []models.PaymentTransaction
	for _, txn := range r.byOrderRef {
		if txn.Status == status {
			out = append(out, *txn)
		}
	}
	return out, nil
}

func (r *fakePaymentRepo) ListByUser(userID uint, limit, offset int) ([]models.PaymentTransaction, int64, error) {
	var out []models.PaymentTransaction
	for _, txn := range r.byOrderRef {
		if txn.UserID == userID {
			out = append(out, *txn)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakePaymentRepo) ExecuteInTransaction(fn func(repositories.PaymentRepository) error) error {
	return fn(r)
}

type fakeAppointmentRepo struct {
	appointments map[uint]*models.Appointment
}

func (r *fakeAppointmentRepo) Create(a *models.Appointment) error {
	cp := *a
	r.appointments[a.ID] = &cp
	return nil
}

func (r *fakeAppointmentRepo) GetByID(id uint) (*models.Appointment, error) {
	a, ok := r.appointments[id]
	if !ok {
		return nil, repositories.ErrAppointmentNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *fakeAppointmentRepo) GetByIDForUpdate(id uint) (*models.Appointment, error) {
	return r.GetByID(id)
}

func (r *fakeAppointmentRepo) GetByDepositID(depositID uint) (*models.Appointment, error) {
	for _, a := range r.appointments {
		if a.DepositID == depositID {
			cp := *a
			return &cp, nil
		}
	}
	return nil, repositories.ErrAppointmentNotFound
}

func (r *fakeAppointmentRepo) Update(a *models.Appointment) error {
	cp := *a
	r.appointments[a.ID] = &cp
	return nil
}

func (r *fakeAppointmentRepo) ListAwaitingRemainingPayment() ([]models.Appointment, error) {
	return nil, nil
}

func (r *fakeAppointmentRepo) List(status string, limit, offset int) ([]models.Appointment, int64, error) {
	return nil, 0, nil
}

func (r *fakeAppointmentRepo) ExecuteInTransaction(fn func(repositories.AppointmentRepository) error) error {
	return fn(r)
}

type fakeDepositRepo struct {
	deposits map[uint]*models.Deposit
}

func (r *fakeDepositRepo) Create(d *models.Deposit) error { return nil }

func (r *fakeDepositRepo) GetByID(id uint) (*models.Deposit, error) {
	d, ok := r.deposits[id]
	if !ok {
		return nil, repositories.ErrDepositNotFound
	}
	cp := *d
	return &cp, nil
}

func (r *fakeDepositRepo) GetByIDForUpdate(id uint) (*models.Deposit, error) {
	return r.GetByID(id)
}

func (r *fakeDepositRepo) Update(d *models.Deposit) error { return nil }

func (r *fakeDepositRepo) HasLiveDeposit(buyerID, listingID uint) (bool, error) { return false, nil }

func (r *fakeDepositRepo) ListExpiredPending(now time.Time) ([]models.Deposit, error) {
	return nil, nil
}

func (r *fakeDepositRepo) List(status string, limit, offset int) ([]models.Deposit, int64, error) {
	return nil, 0, nil
}

func (r *fakeDepositRepo) ExecuteInTransaction(fn func(repositories.DepositRepository) error) error {
	return fn(r)
}

type fakeListingRepo struct {
	listings map[uint]*models.Listing
}

func (r *fakeListingRepo) GetByID(id uint) (*models.Listing, error) {
	l, ok := r.listings[id]
	if !ok {
		return nil, repositories.ErrListingNotFound
	}
	cp := *l
	return &cp, nil
}

func (r *fakeListingRepo) UpdateStatus(id uint, status string) error { return nil }

type mockSettlement struct {
	mock.Mock
}

func (m *mockSettlement) CompleteMilestone(ctx context.Context, appointmentID uint, kind string, amount int64) error {
	args := m.Called(ctx, appointmentID, kind, amount)
	return args.Error(0)
}

func (m *mockSettlement) CancelAndRefund(ctx context.Context, appointmentID uint) error {
	args := m.Called(ctx, appointmentID)
	return args.Error(0)
}

func (m *mockSettlement) SettleOverdue(ctx context.Context, appointmentID uint) error {
	args := m.Called(ctx, appointmentID)
	return args.Error(0)
}

func (m *mockSettlement) Reconcile(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

type gatewayFixture struct {
	svc          Service
	payments     *fakePaymentRepo
	appointments *fakeAppointmentRepo
	settlement   *mockSettlement
}

func newFixture(apptStatus string) *gatewayFixture {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	payments := newFakePaymentRepo()
	appointments := &fakeAppointmentRepo{appointments: map[uint]*models.Appointment{
		1: {ID: 1, DepositID: 5, BuyerID: 10, SellerID: 20, Status: apptStatus},
	}}
	deposits := &fakeDepositRepo{deposits: map[uint]*models.Deposit{
		5: {ID: 5, ListingID: 7, BuyerID: 10, SellerID: 20, Amount: 200_000, Status: models.DepositStatusInEscrow},
	}}
	listings := &fakeListingRepo{listings: map[uint]*models.Listing{
		7: {ID: 7, SellerID: 20, Price: 2_000_000, Status: models.ListingStatusInTransaction},
	}}
	stl := new(mockSettlement)

	cfg := Config{
		PayURL:       "https://pay.example/checkout",
		MerchantCode: "RELIST01",
		Secret:       testSecret,
		ReturnURL:    "https://relist.example/payments/return",
	}
	svc := NewService(cfg, payments, appointments, deposits, listings, stl, notification.NewService(log), log)
	return &gatewayFixture{svc: svc, payments: payments, appointments: appointments, settlement: stl}
}

func signedCallback(orderRef, code, txnID string) map[string]string {
	params := map[string]string{
		ParamOrderRef:     orderRef,
		ParamResponseCode: code,
		ParamGatewayTxnID: txnID,
	}
	params[ParamSignature] = Sign(params, testSecret)
	return params
}

func TestInstallmentAmount(t *testing.T) {
	tests := []struct {
		kind string
		want int64
	}{
		{models.PaymentKindDeposit, 200_000},
		{models.PaymentKindRemaining, 1_800_000},
		{models.PaymentKindFull, 2_000_000},
	}
	for _, tt := range tests {
		got, err := InstallmentAmount(2_000_000, tt.kind)
		assert.NoError(t, err)
		assert.Equal(t, tt.want, got, tt.kind)
	}

	_, err := InstallmentAmount(2_000_000, "bogus")
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestInstallmentsConservePrice(t *testing.T) {
	for _, price := range []int64{1, 99, 12_345, 2_000_001} {
		dep, _ := InstallmentAmount(price, models.PaymentKindDeposit)
		rem, _ := InstallmentAmount(price, models.PaymentKindRemaining)
		assert.Equal(t, price, dep+rem, "price %d", price)
	}
}

func TestBuildPaymentURLPreRegistersTransaction(t *testing.T) {
	f := newFixture(models.AppointmentStatusConfirmed)

	req, err := f.svc.BuildPaymentURL(context.Background(), 1, 10, models.PaymentKindDeposit)

	assert.NoError(t, err)
	assert.Equal(t, int64(200_000), req.Amount)
	assert.Contains(t, req.URL, "https://pay.example/checkout?")
	assert.Contains(t, req.URL, "order_ref="+req.OrderRef)
	assert.Contains(t, req.URL, "amount="+strconv.FormatInt(req.Amount, 10))

	txn, err := f.payments.GetByOrderRef(req.OrderRef)
	assert.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPending, txn.Status)
	assert.Equal(t, uint(1), txn.AppointmentID)

	appt, _ := f.appointments.GetByID(1)
	assert.NotNil(t, appt.Timeline.DepositRequestAt)
}

func TestBuildPaymentURLWrongState(t *testing.T) {
	f := newFixture(models.AppointmentStatusPending)

	_, err := f.svc.BuildPaymentURL(context.Background(), 1, 10, models.PaymentKindDeposit)

	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestBuildPaymentURLRemainingRequiresAwaiting(t *testing.T) {
	f := newFixture(models.AppointmentStatusAwaitingPayment)

	req, err := f.svc.BuildPaymentURL(context.Background(), 1, 10, models.PaymentKindRemaining)

	assert.NoError(t, err)
	assert.Equal(t, int64(1_800_000), req.Amount)
}

func TestBuildPaymentURLSellerCannotPay(t *testing.T) {
	f := newFixture(models.AppointmentStatusConfirmed)

	_, err := f.svc.BuildPaymentURL(context.Background(), 1, 20, models.PaymentKindDeposit)

	assert.ErrorIs(t, err, ErrNotParticipant)
}

func TestHandleCallbackSuccess(t *testing.T) {
	f := newFixture(models.AppointmentStatusConfirmed)
	req, err := f.svc.BuildPaymentURL(context.Background(), 1, 10, models.PaymentKindDeposit)
	assert.NoError(t, err)

	f.settlement.On("CompleteMilestone", mock.Anything, uint(1), models.PaymentKindDeposit, int64(200_000)).Return(nil)

	res, err := f.svc.HandleCallback(context.Background(), signedCallback(req.OrderRef, CodeSuccess, "GW-1"))

	assert.NoError(t, err)
	assert.True(t, res.Success)
	assert.False(t, res.Duplicate)
	assert.Equal(t, "GW-1", res.GatewayTxnID)

	txn, _ := f.payments.GetByOrderRef(req.OrderRef)
	assert.Equal(t, models.PaymentStatusSuccess, txn.Status)
	assert.NotNil(t, txn.ProcessedAt)
	f.settlement.AssertExpectations(t)
}

func TestHandleCallbackDuplicateDelivery(t *testing.T) {
	f := newFixture(models.AppointmentStatusConfirmed)
	req, err := f.svc.BuildPaymentURL(context.Background(), 1, 10, models.PaymentKindDeposit)
	assert.NoError(t, err)

	f.settlement.On("CompleteMilestone", mock.Anything, uint(1), models.PaymentKindDeposit, int64(200_000)).Return(nil).Once()

	params := signedCallback(req.OrderRef, CodeSuccess, "GW-1")
	first, err := f.svc.HandleCallback(context.Background(), params)
	assert.NoError(t, err)
	second, err := f.svc.HandleCallback(context.Background(), params)
	assert.NoError(t, err)

	assert.False(t, first.Duplicate)
	assert.True(t, second.Duplicate)
	assert.Equal(t, first.OrderRef, second.OrderRef)
	assert.Equal(t, first.Success, second.Success)
	// Milestone applied exactly once despite two deliveries.
	f.settlement.AssertNumberOfCalls(t, "CompleteMilestone", 1)
}

func TestHandleCallbackFailureCode(t *testing.T) {
	f := newFixture(models.AppointmentStatusConfirmed)
	req, err := f.svc.BuildPaymentURL(context.Background(), 1, 10, models.PaymentKindDeposit)
	assert.NoError(t, err)

	res, err := f.svc.HandleCallback(context.Background(), signedCallback(req.OrderRef, "05", "GW-1"))

	assert.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "Insufficient funds at provider", res.Message)

	txn, _ := f.payments.GetByOrderRef(req.OrderRef)
	assert.Equal(t, models.PaymentStatusFailed, txn.Status)
	f.settlement.AssertNotCalled(t, "CompleteMilestone", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleCallbackInvalidSignature(t *testing.T) {
	f := newFixture(models.AppointmentStatusConfirmed)
	req, err := f.svc.BuildPaymentURL(context.Background(), 1, 10, models.PaymentKindDeposit)
	assert.NoError(t, err)

	params := signedCallback(req.OrderRef, CodeSuccess, "GW-1")
	params[ParamAmount] = "tampered"

	_, err = f.svc.HandleCallback(context.Background(), params)

	assert.ErrorIs(t, err, ErrInvalidSignature)
	txn, _ := f.payments.GetByOrderRef(req.OrderRef)
	assert.Equal(t, models.PaymentStatusPending, txn.Status)
}

func TestHandleCallbackUnknownOrderRef(t *testing.T) {
	f := newFixture(models.AppointmentStatusConfirmed)

	_, err := f.svc.HandleCallback(context.Background(), signedCallback("RL-missing", CodeSuccess, "GW-1"))

	assert.ErrorIs(t, err, ErrUnknownTransaction)
}
