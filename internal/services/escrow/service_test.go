package escrow

import (
	"context"
	"testing"

	"relist/internal/models"
	"relist/internal/repositories"

	"github.com/stretchr/testify/assert"
)

type fakeEscrowRepo struct {
	holds  map[uint]*models.EscrowHold
	nextID uint
}

func newFakeEscrowRepo() *fakeEscrowRepo {
	return &fakeEscrowRepo{holds: make(map[uint]*models.EscrowHold), nextID: 1}
}

func (r *fakeEscrowRepo) Create(h *models.EscrowHold) error {
	h.ID = r.nextID
	r.nextID++
	cp := *h
	r.holds[h.ID] = &cp
	return nil
}

func (r *fakeEscrowRepo) GetByID(id uint) (*models.EscrowHold, error) {
	h, ok := r.holds[id]
	if !ok {
		return nil, repositories.ErrEscrowNotFound
	}
	cp := *h
	return &cp, nil
}

func (r *fakeEscrowRepo) GetByIDForUpdate(id uint) (*models.EscrowHold, error) {
	return r.GetByID(id)
}

func (r *fakeEscrowRepo) GetByDepositID(depositID uint) (*models.EscrowHold, error) {
	for _, h := range r.holds {
		if h.DepositID == depositID {
			cp := *h
			return &cp, nil
		}
	}
	return nil, repositories.ErrEscrowNotFound
}

func (r *fakeEscrowRepo) Update(h *models.EscrowHold) error {
	cp := *h
	r.holds[h.ID] = &cp
	return nil
}

func (r *fakeEscrowRepo) ExecuteInTransaction(fn func(repositories.EscrowRepository) error) error {
	return fn(r)
}

func openHold(t *testing.T, svc Service) *models.EscrowHold {
	t.Helper()
	hold, err := svc.Open(context.Background(), &models.Deposit{
		ID: 5, ListingID: 7, BuyerID: 10, SellerID: 20, Amount: 200_000,
	})
	assert.NoError(t, err)
	return hold
}

func TestOpenCopiesDepositFields(t *testing.T) {
	svc := NewService(newFakeEscrowRepo())

	hold := openHold(t, svc)

	assert.Equal(t, models.EscrowStatusActive, hold.Status)
	assert.Equal(t, uint(5), hold.DepositID)
	assert.Equal(t, uint(10), hold.BuyerID)
	assert.Equal(t, uint(20), hold.SellerID)
	assert.Equal(t, int64(200_000), hold.Amount)
}

func TestReleaseIsTerminalExactlyOnce(t *testing.T) {
	svc := NewService(newFakeEscrowRepo())
	hold := openHold(t, svc)

	released, err := svc.Release(context.Background(), hold.ID)
	assert.NoError(t, err)
	assert.Equal(t, models.EscrowStatusReleased, released.Status)
	assert.NotNil(t, released.ReleasedAt)

	// The second of two racing terminal transitions fails cleanly.
	_, err = svc.Release(context.Background(), hold.ID)
	assert.ErrorIs(t, err, ErrInvalidState)
	_, err = svc.Refund(context.Background(), hold.ID)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestRefundIsTerminalExactlyOnce(t *testing.T) {
	svc := NewService(newFakeEscrowRepo())
	hold := openHold(t, svc)

	refunded, err := svc.Refund(context.Background(), hold.ID)
	assert.NoError(t, err)
	assert.Equal(t, models.EscrowStatusRefunded, refunded.Status)
	assert.NotNil(t, refunded.RefundedAt)

	_, err = svc.Release(context.Background(), hold.ID)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestGetByDepositIDMissing(t *testing.T) {
	svc := NewService(newFakeEscrowRepo())

	_, err := svc.GetByDepositID(context.Background(), 99)

	assert.ErrorIs(t, err, ErrNotFound)
}
