package identity_test

import (
	"fmt"
	"sync/atomic"
	"testing"

	"fortune_system/internal/domain"
	"fortune_system/internal/identity"
	"fortune_system/internal/wallet"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var dbSeq int64 // unique shared-cache DB name per test

func newTestResolver(t *testing.T) (*identity.Resolver, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:identitytest%d?mode=memory&cache=shared", atomic.AddInt64(&dbSeq, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&domain.User{}, &domain.Wallet{}))
	return identity.New(db, wallet.New(db)), db
}

func TestEnsureUserByEmail_CreatesUserAndWallet(t *testing.T) {
	ids, db := newTestResolver(t)

	userID, err := ids.EnsureUserByEmail("Casper@Example.com")
	require.NoError(t, err)

	var user domain.User
	require.NoError(t, db.First(&user, userID).Error)
	assert.Equal(t, "casper@example.com", user.Email, "email is normalized before storage")

	var w domain.Wallet
	require.NoError(t, db.Where("user_id = ?", userID).First(&w).Error)
	assert.Equal(t, 0, w.Balance, "paired wallet starts at zero")
}

func TestEnsureUserByEmail_Idempotent(t *testing.T) {
	ids, db := newTestResolver(t)

	first, err := ids.EnsureUserByEmail("luna@example.com")
	require.NoError(t, err)

	// Same email with different casing and whitespace resolves to the same account
	second, err := ids.EnsureUserByEmail("  LUNA@example.com ")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	var count int64
	require.NoError(t, db.Model(&domain.User{}).Count(&count).Error)
	assert.Equal(t, int64(1), count, "no duplicate users")
}

func TestEnsureUserByEmail_RejectsInvalid(t *testing.T) {
	ids, _ := newTestResolver(t)

	for _, email := range []string{"", "notanemail", "a b@c.d", "x@y"} {
		_, err := ids.EnsureUserByEmail(email)
		assert.ErrorIs(t, err, identity.ErrInvalidEmail, "email %q", email)
	}
}

func TestRegister_And_Authenticate(t *testing.T) {
	ids, _ := newTestResolver(t)

	userID, err := ids.Register("mira@example.com", "opensesame1")
	require.NoError(t, err)

	user, err := ids.Authenticate("MIRA@example.com", "opensesame1")
	require.NoError(t, err)
	assert.Equal(t, userID, user.ID)

	_, err = ids.Authenticate("mira@example.com", "wrongpassword")
	assert.ErrorIs(t, err, identity.ErrInvalidCredentials)
}

func TestRegister_ClaimsWebhookCreatedAccount(t *testing.T) {
	// A purchase webhook can create the account first; registering with the
	// same email claims it instead of failing
	ids, db := newTestResolver(t)

	ensured, err := ids.EnsureUserByEmail("pat@example.com")
	require.NoError(t, err)

	// The passwordless account cannot log in yet
	_, err = ids.Authenticate("pat@example.com", "whatever123")
	assert.ErrorIs(t, err, identity.ErrInvalidCredentials)

	registered, err := ids.Register("pat@example.com", "finallyhere1")
	require.NoError(t, err)
	assert.Equal(t, ensured, registered, "registration claims the existing account")

	var count int64
	require.NoError(t, db.Model(&domain.User{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	user, err := ids.Authenticate("pat@example.com", "finallyhere1")
	require.NoError(t, err)
	assert.Equal(t, ensured, user.ID)
}

func TestRegister_DuplicateEmailRejected(t *testing.T) {
	ids, _ := newTestResolver(t)

	_, err := ids.Register("taken@example.com", "password123")
	require.NoError(t, err)

	_, err = ids.Register("taken@example.com", "password456")
	assert.ErrorIs(t, err, identity.ErrEmailTaken)
}

func TestRegister_PasswordBounds(t *testing.T) {
	ids, _ := newTestResolver(t)

	_, err := ids.Register("short@example.com", "tiny")
	assert.ErrorIs(t, err, identity.ErrInvalidPassword)
}
