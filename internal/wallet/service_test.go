package wallet_test

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"fortune_system/internal/domain"
	"fortune_system/internal/wallet"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var dbSeq int64 // unique shared-cache DB name per test

// newTestDB opens an isolated in-memory database with the full schema
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:wallettest%d?mode=memory&cache=shared", atomic.AddInt64(&dbSeq, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// Shared-cache sqlite needs a single connection to serialize writers
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&domain.User{}, &domain.Wallet{}, &domain.Order{}, &domain.Reading{}, &domain.AdminLog{}))
	return db
}

func newTestService(t *testing.T) (*wallet.Service, *gorm.DB) {
	db := newTestDB(t)
	return wallet.New(db), db
}

func TestGetOrCreate_Idempotent(t *testing.T) {
	svc, _ := newTestService(t)

	w1, err := svc.GetOrCreate(1)
	require.NoError(t, err)
	assert.Equal(t, 0, w1.Balance, "new wallet starts at zero")

	w2, err := svc.GetOrCreate(1)
	require.NoError(t, err)
	assert.Equal(t, w1.ID, w2.ID, "repeated calls return the same wallet")
}

func TestCredit_CreatesWalletIfAbsent(t *testing.T) {
	svc, _ := newTestService(t)

	w, err := svc.Credit(7, 5)
	require.NoError(t, err)
	assert.Equal(t, 5, w.Balance)
}

func TestCredit_RejectsNonPositiveAmount(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Credit(1, 0)
	assert.ErrorIs(t, err, wallet.ErrInvalidAmount)
	_, err = svc.Credit(1, -3)
	assert.ErrorIs(t, err, wallet.ErrInvalidAmount)
}

func TestDebitIfAvailable_Success(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Credit(1, 3)
	require.NoError(t, err)

	newBal, err := svc.DebitIfAvailable(1, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, newBal)
}

func TestDebitIfAvailable_Insufficient(t *testing.T) {
	// GIVEN: a wallet with balance 1
	// WHEN: debiting 2
	// THEN: insufficient balance, wallet untouched
	svc, _ := newTestService(t)

	_, err := svc.Credit(1, 1)
	require.NoError(t, err)

	bal, err := svc.DebitIfAvailable(1, 2)
	assert.ErrorIs(t, err, wallet.ErrInsufficientBalance)
	assert.Equal(t, 1, bal, "balance is reported but unchanged")

	w, err := svc.GetOrCreate(1)
	require.NoError(t, err)
	assert.Equal(t, 1, w.Balance)
}

func TestDebitIfAvailable_MissingWallet(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.DebitIfAvailable(99, 1)
	assert.ErrorIs(t, err, wallet.ErrNotFound)
}

func TestDebitIfAvailable_ConcurrentRace(t *testing.T) {
	// GIVEN: a wallet with balance 1
	// WHEN: two concurrent debits of 1
	// THEN: exactly one succeeds, final balance is 0
	svc, _ := newTestService(t)

	_, err := svc.Credit(1, 1)
	require.NoError(t, err)

	var wg sync.WaitGroup
	var successes, insufficient int64
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.DebitIfAvailable(1, 1)
			switch {
			case err == nil:
				atomic.AddInt64(&successes, 1)
			case errors.Is(err, wallet.ErrInsufficientBalance):
				atomic.AddInt64(&insufficient, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), successes, "exactly one debit wins")
	assert.Equal(t, int64(1), insufficient, "the other sees insufficient balance")

	w, err := svc.GetOrCreate(1)
	require.NoError(t, err)
	assert.Equal(t, 0, w.Balance)
}

func TestBalance_NeverNegative(t *testing.T) {
	// Arbitrary mixed sequence of operations; balance must stay >= 0 throughout
	svc, _ := newTestService(t)

	check := func() {
		w, err := svc.GetOrCreate(1)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, w.Balance, 0)
	}

	_, _ = svc.DebitIfAvailable(1, 1)
	check()
	_, err := svc.Credit(1, 2)
	require.NoError(t, err)
	check()
	_, err = svc.DebitIfAvailable(1, 1)
	require.NoError(t, err)
	check()
	_, _, err = svc.Adjust(1, wallet.ActionSubtract, 5)
	assert.ErrorIs(t, err, wallet.ErrInsufficientBalance)
	check()
	_, err = svc.DebitIfAvailable(1, 1)
	require.NoError(t, err)
	check()
	_, err = svc.DebitIfAvailable(1, 1)
	assert.ErrorIs(t, err, wallet.ErrInsufficientBalance)
	check()
}

func TestAdjust_Add(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Credit(1, 3)
	require.NoError(t, err)

	prev, newBal, err := svc.Adjust(1, wallet.ActionAdd, 10)
	require.NoError(t, err)
	assert.Equal(t, 3, prev)
	assert.Equal(t, 13, newBal)
}

func TestAdjust_SubtractFloor(t *testing.T) {
	// Subtract beyond the balance must reject and leave the balance unchanged
	svc, _ := newTestService(t)

	_, err := svc.Credit(1, 4)
	require.NoError(t, err)

	prev, newBal, err := svc.Adjust(1, wallet.ActionSubtract, 9)
	assert.ErrorIs(t, err, wallet.ErrInsufficientBalance)
	assert.Equal(t, 4, prev)
	assert.Equal(t, 4, newBal)

	w, err := svc.GetOrCreate(1)
	require.NoError(t, err)
	assert.Equal(t, 4, w.Balance)
}

func TestAdjust_Subtract(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Credit(1, 4)
	require.NoError(t, err)

	prev, newBal, err := svc.Adjust(1, wallet.ActionSubtract, 3)
	require.NoError(t, err)
	assert.Equal(t, 4, prev)
	assert.Equal(t, 1, newBal)
}

func TestAdjust_SetSemantics(t *testing.T) {
	// Set always lands on the exact value, whatever the prior balance
	svc, _ := newTestService(t)

	_, err := svc.Credit(1, 13)
	require.NoError(t, err)

	prev, newBal, err := svc.Adjust(1, wallet.ActionSet, 0)
	require.NoError(t, err)
	assert.Equal(t, 13, prev)
	assert.Equal(t, 0, newBal)

	prev, newBal, err = svc.Adjust(1, wallet.ActionSet, 42)
	require.NoError(t, err)
	assert.Equal(t, 0, prev)
	assert.Equal(t, 42, newBal)
}

func TestAdjust_NegativeAmountRejected(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Credit(1, 2)
	require.NoError(t, err)

	_, _, err = svc.Adjust(1, wallet.ActionAdd, -1)
	assert.ErrorIs(t, err, wallet.ErrInvalidAmount)
}

func TestAdjust_UnknownAction(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Credit(1, 2)
	require.NoError(t, err)

	_, _, err = svc.Adjust(1, wallet.Action("multiply"), 2)
	assert.ErrorIs(t, err, wallet.ErrInvalidAction)
}

func TestAdjust_MissingWallet(t *testing.T) {
	svc, _ := newTestService(t)

	_, _, err := svc.Adjust(5, wallet.ActionAdd, 1)
	assert.ErrorIs(t, err, wallet.ErrNotFound)
}
