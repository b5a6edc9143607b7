package wallet

import (
	"errors" // Sentinel errors

	"fortune_system/internal/domain" // Importing domain models

	"gorm.io/gorm" // GORM ORM library
)

// Sentinel errors returned by wallet operations. ErrInsufficientBalance is an
// expected business outcome, not a fault.
var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrNotFound            = errors.New("wallet not found")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInvalidAction       = errors.New("invalid adjustment action")
)

// Action is a manual adjustment kind applied by Adjust
type Action string

// Supported adjustment actions
const (
	ActionAdd      Action = "add"      // balance += amount
	ActionSubtract Action = "subtract" // balance -= amount, floored at zero
	ActionSet      Action = "set"      // balance = amount
)

// Service owns the balance invariants. Every balance mutation in the system
// funnels through here; all writes are conditional single-statement UPDATEs so
// concurrent callers can never produce a lost update or a negative balance.
type Service struct {
	db *gorm.DB // Database handle (or transaction handle, see WithTx)
}

// New creates a wallet service on the given database handle
func New(db *gorm.DB) *Service {
	return &Service{db: db}
}

// WithTx returns a copy of the service bound to an open transaction, so
// callers can compose a wallet mutation with their own writes atomically
func (s *Service) WithTx(tx *gorm.DB) *Service {
	return &Service{db: tx}
}

// GetOrCreate returns the user's wallet, creating a zero-balance one if
// absent. Idempotent; safe under concurrent creation races.
func (s *Service) GetOrCreate(userID uint) (*domain.Wallet, error) {
	var w domain.Wallet // Wallet struct to hold data
	err := s.db.Where("user_id = ?", userID).First(&w).Error
	if err == nil {
		return &w, nil // Wallet already exists
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err // Unexpected store error
	}
	w = domain.Wallet{UserID: userID, Balance: 0} // New wallet with zero balance
	if err := s.db.Create(&w).Error; err != nil {
		// Lost a concurrent creation race; the other writer's row wins
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			if err := s.db.Where("user_id = ?", userID).First(&w).Error; err != nil {
				return nil, err
			}
			return &w, nil
		}
		return nil, err
	}
	return &w, nil
}

// Credit adds a positive amount to the user's balance, creating the wallet if
// absent. The increment is a single atomic UPDATE expression.
func (s *Service) Credit(userID uint, amount int) (*domain.Wallet, error) {
	// Reject non-positive amounts
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	// Make sure the wallet row exists before incrementing it
	if _, err := s.GetOrCreate(userID); err != nil {
		return nil, err
	}
	// Increment the balance atomically in the database
	res := s.db.Model(&domain.Wallet{}).
		Where("user_id = ?", userID).
		Update("balance", gorm.Expr("balance + ?", amount))
	if res.Error != nil {
		return nil, res.Error // Return error on failure
	}
	return s.get(userID) // Return the wallet with its new balance
}

// DebitIfAvailable atomically checks balance >= amount and decrements if so.
// The check and the decrement are one conditional UPDATE; two concurrent
// debits against a balance of 1 resolve to exactly one success. Returns the
// balance after the call and ErrInsufficientBalance when the funds were not
// there, which callers treat as a normal business outcome.
func (s *Service) DebitIfAvailable(userID uint, amount int) (int, error) {
	// Reject non-positive amounts
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	// Conditional decrement: only applies when the balance covers the amount
	res := s.db.Model(&domain.Wallet{}).
		Where("user_id = ? AND balance >= ?", userID, amount).
		Update("balance", gorm.Expr("balance - ?", amount))
	if res.Error != nil {
		return 0, res.Error // Return error on failure
	}
	// No row matched: either the wallet is missing or the balance was short
	if res.RowsAffected == 0 {
		w, err := s.get(userID)
		if err != nil {
			return 0, err // Missing wallet surfaces as ErrNotFound
		}
		return w.Balance, ErrInsufficientBalance
	}
	w, err := s.get(userID) // Read back the post-debit balance
	if err != nil {
		return 0, err
	}
	return w.Balance, nil
}

// Adjust applies a manual add/subtract/set action and reports the balance
// before and after. Subtract is floored at zero: an overdraw rejects with
// ErrInsufficientBalance and mutates nothing. Meant to run inside the caller's
// transaction so the audit row commits together with the mutation.
func (s *Service) Adjust(userID uint, action Action, amount int) (prev int, newBal int, err error) {
	// Reject negative amounts for every action
	if amount < 0 {
		return 0, 0, ErrInvalidAmount
	}
	w, err := s.get(userID) // Current wallet state
	if err != nil {
		return 0, 0, err // NotFound when the wallet is absent
	}
	prev = w.Balance // Balance before the adjustment
	switch action {
	case ActionAdd:
		// Atomic increment, same expression as Credit
		res := s.db.Model(&domain.Wallet{}).
			Where("user_id = ?", userID).
			Update("balance", gorm.Expr("balance + ?", amount))
		if res.Error != nil {
			return 0, 0, res.Error
		}
		after, err := s.get(userID) // Read back the committed balance
		if err != nil {
			return 0, 0, err
		}
		newBal = after.Balance
		prev = newBal - amount // Derive prev from the atomic result
	case ActionSubtract:
		// Conditional decrement guards the non-negative invariant
		res := s.db.Model(&domain.Wallet{}).
			Where("user_id = ? AND balance >= ?", userID, amount).
			Update("balance", gorm.Expr("balance - ?", amount))
		if res.Error != nil {
			return 0, 0, res.Error
		}
		// Overdraw: reject without mutating
		if res.RowsAffected == 0 {
			return prev, prev, ErrInsufficientBalance
		}
		after, err := s.get(userID) // Read back the committed balance
		if err != nil {
			return 0, 0, err
		}
		newBal = after.Balance
		prev = newBal + amount // Derive prev from the atomic result
	case ActionSet:
		// Overwrite the balance with the exact value
		if err := s.db.Model(&w).Update("balance", amount).Error; err != nil {
			return 0, 0, err
		}
		newBal = amount
	default:
		return 0, 0, ErrInvalidAction // Unknown action
	}
	return prev, newBal, nil
}

// get fetches the wallet row, mapping a missing row to ErrNotFound
func (s *Service) get(userID uint) (*domain.Wallet, error) {
	var w domain.Wallet
	if err := s.db.Where("user_id = ?", userID).First(&w).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound // Wallet does not exist
		}
		return nil, err // Other store error
	}
	return &w, nil
}
