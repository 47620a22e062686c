package ledger

import (
	"context"
	"testing"
	"time"

	"relist/internal/models"
	"relist/internal/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeWalletRepo is an in-memory WalletRepository. Transactions are not
// isolated; tests only exercise the ledger arithmetic and error paths.
type fakeWalletRepo struct {
	wallets  map[uint]*models.Wallet
	platform *models.PlatformWallet
	audits   []models.PlatformTransaction
}

func newFakeWalletRepo() *fakeWalletRepo {
	return &fakeWalletRepo{
		wallets:  make(map[uint]*models.Wallet),
		platform: &models.PlatformWallet{ID: models.PlatformWalletID},
	}
}

func (f *fakeWalletRepo) Create(w *models.Wallet) error {
	cp := *w
	f.wallets[w.UserID] = &cp
	return nil
}

func (f *fakeWalletRepo) GetByUserID(userID uint) (*models.Wallet, error) {
	w, ok := f.wallets[userID]
	if !ok {
		return nil, repositories.ErrWalletNotFound
	}
	cp := *w
	return &cp, nil
}

func (f *fakeWalletRepo) GetByUserIDForUpdate(userID uint) (*models.Wallet, error) {
	return f.GetByUserID(userID)
}

func (f *fakeWalletRepo) GetOrCreate(userID uint) (*models.Wallet, error) {
	if w, err := f.GetByUserID(userID); err == nil {
		return w, nil
	}
	w := &models.Wallet{UserID: userID, Status: models.WalletStatusActive}
	f.wallets[userID] = w
	cp := *w
	return &cp, nil
}

func (f *fakeWalletRepo) Update(w *models.Wallet) error {
	cp := *w
	f.wallets[w.UserID] = &cp
	return nil
}

func (f *fakeWalletRepo) GetPlatform() (*models.PlatformWallet, error) {
	cp := *f.platform
	return &cp, nil
}

func (f *fakeWalletRepo) GetPlatformForUpdate() (*models.PlatformWallet, error) {
	return f.GetPlatform()
}

func (f *fakeWalletRepo) UpdatePlatform(pw *models.PlatformWallet) error {
	cp := *pw
	f.platform = &cp
	return nil
}

func (f *fakeWalletRepo) CreatePlatformTransaction(txn *models.PlatformTransaction) error {
	f.audits = append(f.audits, *txn)
	return nil
}

func (f *fakeWalletRepo) ListPlatformTransactions(kind string, from, to *time.Time, limit, offset int) ([]models.PlatformTransaction, int64, error) {
	return f.audits, int64(len(f.audits)), nil
}

func (f *fakeWalletRepo) ExecuteInTransaction(fn func(repositories.WalletRepository) error) error {
	return fn(f)
}

func seedWallet(repo *fakeWalletRepo, userID uint, balance, frozen int64) {
	repo.wallets[userID] = &models.Wallet{
		UserID:       userID,
		Balance:      balance,
		FrozenAmount: frozen,
		Status:       models.WalletStatusActive,
	}
}

func TestFreeze(t *testing.T) {
	tests := []struct {
		name       string
		balance    int64
		amount     int64
		wantErr    error
		wantBal    int64
		wantFrozen int64
	}{
		{name: "sufficient balance", balance: 1_000_000, amount: 200_000, wantBal: 800_000, wantFrozen: 200_000},
		{name: "exact balance", balance: 200_000, amount: 200_000, wantBal: 0, wantFrozen: 200_000},
		{name: "insufficient balance", balance: 100_000, amount: 200_000, wantErr: ErrInsufficientFunds, wantBal: 100_000},
		{name: "zero amount", balance: 100_000, amount: 0, wantErr: ErrInvalidAmount, wantBal: 100_000},
		{name: "negative amount", balance: 100_000, amount: -5, wantErr: ErrInvalidAmount, wantBal: 100_000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newFakeWalletRepo()
			seedWallet(repo, 1, tt.balance, 0)
			svc := NewService(repo, nil, nil)

			err := svc.Freeze(context.Background(), 1, tt.amount)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}

			w := repo.wallets[1]
			assert.Equal(t, tt.wantBal, w.Balance)
			assert.Equal(t, tt.wantFrozen, w.FrozenAmount)
		})
	}
}

func TestFreezeUnfreezeConservesTotal(t *testing.T) {
	repo := newFakeWalletRepo()
	seedWallet(repo, 7, 1_000_000, 0)
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	before := repo.wallets[7].Balance + repo.wallets[7].FrozenAmount

	require.NoError(t, svc.Freeze(ctx, 7, 300_000))
	after := repo.wallets[7].Balance + repo.wallets[7].FrozenAmount
	assert.Equal(t, before, after)

	require.NoError(t, svc.Unfreeze(ctx, 7, 300_000))
	after = repo.wallets[7].Balance + repo.wallets[7].FrozenAmount
	assert.Equal(t, before, after)
	assert.Equal(t, int64(1_000_000), repo.wallets[7].Balance)
	assert.Zero(t, repo.wallets[7].FrozenAmount)
}

func TestUnfreezeInvariantViolation(t *testing.T) {
	repo := newFakeWalletRepo()
	seedWallet(repo, 2, 0, 50_000)
	svc := NewService(repo, nil, nil)

	err := svc.Unfreeze(context.Background(), 2, 60_000)
	assert.ErrorIs(t, err, ErrInvariantViolation)
	assert.Equal(t, int64(50_000), repo.wallets[2].FrozenAmount)
	assert.Zero(t, repo.wallets[2].Balance)
}

func TestDebitFrozenDoesNotCreditBalance(t *testing.T) {
	repo := newFakeWalletRepo()
	seedWallet(repo, 3, 800_000, 200_000)
	svc := NewService(repo, nil, nil)

	require.NoError(t, svc.DebitFrozen(context.Background(), 3, 200_000))

	w := repo.wallets[3]
	assert.Equal(t, int64(800_000), w.Balance, "balance must not receive the frozen funds")
	assert.Zero(t, w.FrozenAmount)
}

func TestDebit(t *testing.T) {
	repo := newFakeWalletRepo()
	seedWallet(repo, 4, 100_000, 0)
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	assert.ErrorIs(t, svc.Debit(ctx, 4, 150_000), ErrInsufficientFunds)

	require.NoError(t, svc.Debit(ctx, 4, 40_000))
	w := repo.wallets[4]
	assert.Equal(t, int64(60_000), w.Balance)
	assert.Equal(t, int64(40_000), w.TotalWithdrawn)
	assert.NotNil(t, w.LastTransactionAt)
}

func TestCreditCreatesWalletLazily(t *testing.T) {
	repo := newFakeWalletRepo()
	svc := NewService(repo, nil, nil)

	require.NoError(t, svc.Credit(context.Background(), 9, 25_000))

	w := repo.wallets[9]
	require.NotNil(t, w)
	assert.Equal(t, int64(25_000), w.Balance)
	assert.Equal(t, int64(25_000), w.TotalDeposited)
}

func TestFreezeSuspendedWallet(t *testing.T) {
	repo := newFakeWalletRepo()
	seedWallet(repo, 5, 500_000, 0)
	repo.wallets[5].Status = models.WalletStatusSuspended
	svc := NewService(repo, nil, nil)

	assert.ErrorIs(t, svc.Freeze(context.Background(), 5, 100_000), ErrWalletSuspended)
}

func TestCreditPlatform(t *testing.T) {
	repo := newFakeWalletRepo()
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	require.NoError(t, svc.CreditPlatform(ctx, 200_000, models.PlatformTxnSaleRevenue, 12))
	require.NoError(t, svc.CreditPlatform(ctx, 40_000, models.PlatformTxnOverdueShare, 13))

	pw, err := svc.GetPlatform(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(240_000), pw.Balance)
	assert.Equal(t, int64(240_000), pw.TotalEarned)
	assert.Equal(t, int64(2), pw.TotalTransactions)
	require.Len(t, repo.audits, 2)
	assert.Equal(t, models.PlatformTxnSaleRevenue, repo.audits[0].Kind)
	assert.Equal(t, uint(12), repo.audits[0].RefID)
}
