package appointment

import (
	"context"
	"testing"
	"time"

	"relist/internal/models"
	"relist/internal/repositories"
	"relist/internal/services/notification"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type fakeAppointmentRepo struct {
	appointments map[uint]*models.Appointment
	nextID       uint
}

func newFakeAppointmentRepo() *fakeAppointmentRepo {
	return &fakeAppointmentRepo{appointments: make(map[uint]*models.Appointment), nextID: 1}
}

func (r *fakeAppointmentRepo) Create(a *models.Appointment) error {
	a.ID = r.nextID
	r.nextID++
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
	var out []models.Appointment
	for _, a := range r.appointments {
		if a.Status == models.AppointmentStatusAwaitingPayment && a.Timeline.DepositPaidAt != nil {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (r *fakeAppointmentRepo) List(status string, limit, offset int) ([]models.Appointment, int64, error) {
	var out []models.Appointment
	for _, a := range r.appointments {
		if status == "" || a.Status == status {
			out = append(out, *a)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeAppointmentRepo) ExecuteInTransaction(fn func(repositories.AppointmentRepository) error) error {
	return fn(r)
}

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

func newTestService(repo *fakeAppointmentRepo, stl *mockSettlement) Service {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return NewService(repo, stl, notification.NewService(log), log)
}

func seedAppointment(repo *fakeAppointmentRepo, status string) *models.Appointment {
	a := &models.Appointment{
		DepositID:      1,
		BuyerID:        10,
		SellerID:       20,
		ScheduledDate:  time.Date(2026, 9, 10, 14, 0, 0, 0, time.UTC),
		Status:         status,
		MaxReschedules: models.DefaultMaxReschedules,
	}
	_ = repo.Create(a)
	return a
}

func TestConfirmSingleParty(t *testing.T) {
	repo := newFakeAppointmentRepo()
	svc := newTestService(repo, new(mockSettlement))
	seeded := seedAppointment(repo, models.AppointmentStatusPending)

	got, err := svc.Confirm(context.Background(), seeded.ID, seeded.BuyerID)

	assert.NoError(t, err)
	assert.True(t, got.BuyerConfirmed)
	assert.NotNil(t, got.BuyerConfirmedAt)
	assert.False(t, got.SellerConfirmed)
	assert.Equal(t, models.AppointmentStatusPending, got.Status)
}

func TestConfirmBothPartiesTransitions(t *testing.T) {
	repo := newFakeAppointmentRepo()
	svc := newTestService(repo, new(mockSettlement))
	seeded := seedAppointment(repo, models.AppointmentStatusPending)

	_, err := svc.Confirm(context.Background(), seeded.ID, seeded.BuyerID)
	assert.NoError(t, err)
	got, err := svc.Confirm(context.Background(), seeded.ID, seeded.SellerID)

	assert.NoError(t, err)
	assert.Equal(t, models.AppointmentStatusConfirmed, got.Status)
	assert.True(t, got.BothConfirmed())
}

func TestConfirmIsIdempotentPerParty(t *testing.T) {
	repo := newFakeAppointmentRepo()
	svc := newTestService(repo, new(mockSettlement))
	seeded := seedAppointment(repo, models.AppointmentStatusPending)

	first, err := svc.Confirm(context.Background(), seeded.ID, seeded.BuyerID)
	assert.NoError(t, err)
	second, err := svc.Confirm(context.Background(), seeded.ID, seeded.BuyerID)

	assert.NoError(t, err)
	assert.Equal(t, first.BuyerConfirmedAt, second.BuyerConfirmedAt)
	assert.Equal(t, models.AppointmentStatusPending, second.Status)
}

func TestConfirmRejectsOutsiders(t *testing.T) {
	repo := newFakeAppointmentRepo()
	svc := newTestService(repo, new(mockSettlement))
	seeded := seedAppointment(repo, models.AppointmentStatusPending)

	_, err := svc.Confirm(context.Background(), seeded.ID, 999)

	assert.ErrorIs(t, err, ErrNotParticipant)
}

func TestConfirmTerminalState(t *testing.T) {
	repo := newFakeAppointmentRepo()
	svc := newTestService(repo, new(mockSettlement))
	seeded := seedAppointment(repo, models.AppointmentStatusCancelled)

	_, err := svc.Confirm(context.Background(), seeded.ID, seeded.BuyerID)

	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestRejectReschedules(t *testing.T) {
	repo := newFakeAppointmentRepo()
	svc := newTestService(repo, new(mockSettlement))
	seeded := seedAppointment(repo, models.AppointmentStatusPending)
	_, err := svc.Confirm(context.Background(), seeded.ID, seeded.BuyerID)
	assert.NoError(t, err)

	got, err := svc.Reject(context.Background(), seeded.ID, seeded.SellerID)

	assert.NoError(t, err)
	assert.Equal(t, models.AppointmentStatusRescheduled, got.Status)
	assert.Equal(t, 1, got.RescheduledCount)
	assert.Equal(t, seeded.ScheduledDate.Add(RescheduleStep), got.ScheduledDate)
	// A reject resets both confirmations, including the buyer's.
	assert.False(t, got.BuyerConfirmed)
	assert.False(t, got.SellerConfirmed)
	assert.Nil(t, got.BuyerConfirmedAt)
}

func TestRejectBudgetExhaustedForcesCancel(t *testing.T) {
	repo := newFakeAppointmentRepo()
	stl := new(mockSettlement)
	svc := newTestService(repo, stl)
	seeded := seedAppointment(repo, models.AppointmentStatusRescheduled)
	seeded.RescheduledCount = models.DefaultMaxReschedules
	assert.NoError(t, repo.Update(seeded))

	stl.On("CancelAndRefund", mock.Anything, seeded.ID).Run(func(args mock.Arguments) {
		a, _ := repo.GetByID(seeded.ID)
		a.Status = models.AppointmentStatusCancelled
		_ = repo.Update(a)
	}).Return(nil)

	got, err := svc.Reject(context.Background(), seeded.ID, seeded.BuyerID)

	assert.NoError(t, err)
	assert.Equal(t, models.AppointmentStatusCancelled, got.Status)
	stl.AssertExpectations(t)
}

func TestCancelDelegatesToSettlement(t *testing.T) {
	repo := newFakeAppointmentRepo()
	stl := new(mockSettlement)
	svc := newTestService(repo, stl)
	seeded := seedAppointment(repo, models.AppointmentStatusAwaitingPayment)

	stl.On("CancelAndRefund", mock.Anything, seeded.ID).Return(nil)

	err := svc.Cancel(context.Background(), seeded.ID, seeded.SellerID)

	assert.NoError(t, err)
	stl.AssertExpectations(t)
}

func TestCancelTerminalState(t *testing.T) {
	repo := newFakeAppointmentRepo()
	stl := new(mockSettlement)
	svc := newTestService(repo, stl)
	seeded := seedAppointment(repo, models.AppointmentStatusCompleted)

	err := svc.Cancel(context.Background(), seeded.ID, seeded.BuyerID)

	assert.ErrorIs(t, err, ErrInvalidState)
	stl.AssertNotCalled(t, "CancelAndRefund", mock.Anything, mock.Anything)
}
