package identity

import (
	"errors"  // Sentinel errors
	"regexp"  // Email shape check
	"strings" // Normalization

	"fortune_system/internal/domain" // Importing domain models
	"fortune_system/internal/wallet" // Wallet creation

	"golang.org/x/crypto/bcrypt" // Password hashing
	"gorm.io/gorm"               // GORM ORM library
)

// Sentinel errors for identity operations
var (
	ErrInvalidEmail       = errors.New("invalid email")
	ErrInvalidPassword    = errors.New("password must be 8-72 characters")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// emailPattern is a permissive shape check; the mail provider is the real authority
var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Resolver maps external identities (emails) to internal accounts, creating
// the account and its paired zero-balance wallet on first sight
type Resolver struct {
	db      *gorm.DB        // Database handle
	wallets *wallet.Service // Wallet service for paired wallet creation
}

// New creates an identity resolver
func New(db *gorm.DB, wallets *wallet.Service) *Resolver {
	return &Resolver{db: db, wallets: wallets}
}

// Normalize lowercases and trims an email address
func Normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// EnsureUserByEmail returns the user id for an email, creating the user and
// its wallet if absent. Idempotent: repeated calls with the same email never
// create duplicates, including under concurrent webhook and signup races.
// The wallet is created before returning so a subsequent credit never targets
// a missing wallet; wallet.GetOrCreate is the safety net either way.
func (r *Resolver) EnsureUserByEmail(email string) (uint, error) {
	email = Normalize(email) // Lowercase and trim
	// Validate the email shape
	if !emailPattern.MatchString(email) {
		return 0, ErrInvalidEmail
	}
	var user domain.User // User struct to hold data
	err := r.db.Where("email = ?", email).First(&user).Error
	if err == nil {
		// Known email: make sure the paired wallet exists, then return
		if _, werr := r.wallets.GetOrCreate(user.ID); werr != nil {
			return 0, werr
		}
		return user.ID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, err // Unexpected store error
	}
	user = domain.User{Email: email} // New account, no password until claimed
	if err := r.db.Create(&user).Error; err != nil {
		// Lost a concurrent creation race for the same email; reuse the winner
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			if err := r.db.Where("email = ?", email).First(&user).Error; err != nil {
				return 0, err
			}
		} else {
			return 0, err
		}
	}
	// Pair the account with its zero-balance wallet
	if _, err := r.wallets.GetOrCreate(user.ID); err != nil {
		return 0, err
	}
	return user.ID, nil
}

// Register creates an account with a password, or claims a passwordless
// account that purchase fulfillment created for the same email earlier
func (r *Resolver) Register(email, password string) (uint, error) {
	email = Normalize(email) // Lowercase and trim
	// Validate the email shape
	if !emailPattern.MatchString(email) {
		return 0, ErrInvalidEmail
	}
	// Validate password length (bcrypt caps input at 72 bytes)
	if len(password) < 8 || len(password) > 72 {
		return 0, ErrInvalidPassword
	}
	// Hash the password
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return 0, err // Return error if hashing fails
	}
	var existing domain.User
	err = r.db.Where("email = ?", email).First(&existing).Error
	if err == nil {
		// Account exists: only claimable if it has no password yet
		if existing.Password != "" {
			return 0, ErrEmailTaken
		}
		if err := r.db.Model(&existing).Update("password", string(hash)).Error; err != nil {
			return 0, err
		}
		return existing.ID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, err // Unexpected store error
	}
	user := domain.User{Email: email, Password: string(hash)} // New account
	if err := r.db.Create(&user).Error; err != nil {
		// Duplicate email (e.g., double-submitted form) maps to ErrEmailTaken
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return 0, ErrEmailTaken
		}
		return 0, err
	}
	// Pair the account with its zero-balance wallet
	if _, err := r.wallets.GetOrCreate(user.ID); err != nil {
		return 0, err
	}
	return user.ID, nil
}

// Authenticate checks an email/password pair and returns the account
func (r *Resolver) Authenticate(email, password string) (*domain.User, error) {
	var user domain.User // Fetch user from database
	if err := r.db.Where("email = ?", Normalize(email)).First(&user).Error; err != nil {
		return nil, ErrInvalidCredentials // Unknown email
	}
	// Passwordless accounts cannot log in until claimed via Register
	if user.Password == "" {
		return nil, ErrInvalidCredentials
	}
	// Compare provided password with stored hash
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return &user, nil
}
