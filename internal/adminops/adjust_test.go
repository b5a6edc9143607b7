package adminops_test

import (
	"fmt"
	"sync/atomic"
	"testing"

	"fortune_system/internal/adminops"
	"fortune_system/internal/domain"
	"fortune_system/internal/wallet"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var dbSeq int64 // unique shared-cache DB name per test

func newTestAdminops(t *testing.T) (*adminops.Service, *wallet.Service, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:admintest%d?mode=memory&cache=shared", atomic.AddInt64(&dbSeq, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&domain.User{}, &domain.Wallet{}, &domain.AdminLog{}))
	wallets := wallet.New(db)
	return adminops.New(db, wallets), wallets, db
}

// seedUsers creates an admin and a customer with the given starting balance
func seedUsers(t *testing.T, db *gorm.DB, wallets *wallet.Service, balance int) (admin, target domain.User) {
	t.Helper()
	admin = domain.User{Email: "staff@example.com", Role: "admin"}
	require.NoError(t, db.Create(&admin).Error)
	target = domain.User{Email: "customer@example.com"}
	require.NoError(t, db.Create(&target).Error)
	if balance > 0 {
		_, err := wallets.Credit(target.ID, balance)
		require.NoError(t, err)
	}
	return admin, target
}

func TestAdjustBalance_AddWritesPairedLog(t *testing.T) {
	// GIVEN: a customer with balance 3
	// WHEN: an admin adds 10
	// THEN: balance is 13 and exactly one log row records 3 -> 13 as "+10"
	svc, wallets, db := newTestAdminops(t)
	admin, target := seedUsers(t, db, wallets, 3)

	newBal, err := svc.AdjustBalance(adminops.AdjustInput{
		AdminID:      admin.ID,
		TargetUserID: target.ID,
		Action:       wallet.ActionAdd,
		Amount:       10,
		Note:         "goodwill credit",
	})
	require.NoError(t, err)
	assert.Equal(t, 13, newBal)

	var logs []domain.AdminLog
	require.NoError(t, db.Find(&logs).Error)
	require.Len(t, logs, 1, "exactly one audit row per adjustment")
	entry := logs[0]
	assert.Equal(t, admin.ID, entry.AdminID)
	assert.Equal(t, "staff@example.com", entry.AdminEmail)
	assert.Equal(t, target.ID, entry.TargetUserID)
	assert.Equal(t, "customer@example.com", entry.TargetUserEmail)
	assert.Equal(t, "+10", entry.Action)
	assert.Equal(t, 3, entry.PrevBalance)
	assert.Equal(t, 13, entry.NewBalance)
	assert.Equal(t, "goodwill credit", entry.Note)
}

func TestAdjustBalance_ThenSetZero(t *testing.T) {
	// Continuation of the add scenario: set=0 records 13 -> 0
	svc, wallets, db := newTestAdminops(t)
	admin, target := seedUsers(t, db, wallets, 3)

	_, err := svc.AdjustBalance(adminops.AdjustInput{
		AdminID: admin.ID, TargetUserID: target.ID, Action: wallet.ActionAdd, Amount: 10,
	})
	require.NoError(t, err)

	newBal, err := svc.AdjustBalance(adminops.AdjustInput{
		AdminID: admin.ID, TargetUserID: target.ID, Action: wallet.ActionSet, Amount: 0,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, newBal)

	var entry domain.AdminLog
	require.NoError(t, db.Order("id desc").First(&entry).Error)
	assert.Equal(t, "set=0", entry.Action)
	assert.Equal(t, 13, entry.PrevBalance)
	assert.Equal(t, 0, entry.NewBalance)
}

func TestAdjustBalance_SubtractFloorLeavesNoLog(t *testing.T) {
	// An overdrawing subtract mutates nothing and logs nothing
	svc, wallets, db := newTestAdminops(t)
	admin, target := seedUsers(t, db, wallets, 4)

	_, err := svc.AdjustBalance(adminops.AdjustInput{
		AdminID: admin.ID, TargetUserID: target.ID, Action: wallet.ActionSubtract, Amount: 9,
	})
	assert.ErrorIs(t, err, wallet.ErrInsufficientBalance)

	w, err := wallets.GetOrCreate(target.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, w.Balance, "balance unchanged")

	var logs int64
	require.NoError(t, db.Model(&domain.AdminLog{}).Count(&logs).Error)
	assert.Equal(t, int64(0), logs, "rejected adjustment leaves no audit row")
}

func TestAdjustBalance_Subtract(t *testing.T) {
	svc, wallets, db := newTestAdminops(t)
	admin, target := seedUsers(t, db, wallets, 5)

	newBal, err := svc.AdjustBalance(adminops.AdjustInput{
		AdminID: admin.ID, TargetUserID: target.ID, Action: wallet.ActionSubtract, Amount: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, newBal)

	var entry domain.AdminLog
	require.NoError(t, db.First(&entry).Error)
	assert.Equal(t, "-2", entry.Action)
	assert.Equal(t, 5, entry.PrevBalance)
	assert.Equal(t, 3, entry.NewBalance)
}

func TestAdjustBalance_NegativeAmountRejected(t *testing.T) {
	svc, wallets, db := newTestAdminops(t)
	admin, target := seedUsers(t, db, wallets, 5)

	_, err := svc.AdjustBalance(adminops.AdjustInput{
		AdminID: admin.ID, TargetUserID: target.ID, Action: wallet.ActionAdd, Amount: -1,
	})
	assert.ErrorIs(t, err, wallet.ErrInvalidAmount)

	var logs int64
	require.NoError(t, db.Model(&domain.AdminLog{}).Count(&logs).Error)
	assert.Equal(t, int64(0), logs)
}

func TestAdjustBalance_UnknownTarget(t *testing.T) {
	svc, wallets, db := newTestAdminops(t)
	admin, _ := seedUsers(t, db, wallets, 0)

	_, err := svc.AdjustBalance(adminops.AdjustInput{
		AdminID: admin.ID, TargetUserID: 999, Action: wallet.ActionAdd, Amount: 1,
	})
	assert.ErrorIs(t, err, adminops.ErrUserNotFound)
}

func TestAdjustBalance_WalletlessTargetGetsWallet(t *testing.T) {
	// Adjusting an account that never purchased creates its wallet at zero first
	svc, wallets, db := newTestAdminops(t)
	admin, target := seedUsers(t, db, wallets, 0)

	newBal, err := svc.AdjustBalance(adminops.AdjustInput{
		AdminID: admin.ID, TargetUserID: target.ID, Action: wallet.ActionAdd, Amount: 6,
	})
	require.NoError(t, err)
	assert.Equal(t, 6, newBal)

	var entry domain.AdminLog
	require.NoError(t, db.First(&entry).Error)
	assert.Equal(t, 0, entry.PrevBalance)
	assert.Equal(t, 6, entry.NewBalance)
}
