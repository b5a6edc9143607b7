package adminops

import (
	"errors"  // Sentinel errors
	"strconv" // Action string rendering

	"fortune_system/internal/domain" // Importing domain models
	"fortune_system/internal/wallet" // Wallet service

	"github.com/sirupsen/logrus" // Logging library
	"gorm.io/gorm"               // GORM ORM library
)

// ErrUserNotFound is returned when the target or acting user does not exist
var ErrUserNotFound = errors.New("user not found")

// AdjustInput carries one manual balance adjustment
type AdjustInput struct {
	AdminID      uint          // Acting admin's user id
	TargetUserID uint          // Account being adjusted
	Action       wallet.Action // add, subtract or set
	Amount       int           // Non-negative adjustment amount
	Note         string        // Optional reason for the audit trail
}

// Service applies manual balance adjustments. The wallet mutation and its
// AdminLog audit row commit in one transaction; a rejected adjustment leaves
// neither.
type Service struct {
	db      *gorm.DB        // Database handle
	wallets *wallet.Service // Wallet service
}

// New creates an admin adjustment service
func New(db *gorm.DB, wallets *wallet.Service) *Service {
	return &Service{db: db, wallets: wallets}
}

// AdjustBalance applies one adjustment and returns the new balance. Subtract
// rejects with wallet.ErrInsufficientBalance if it would drive the balance
// negative; negative amounts reject with wallet.ErrInvalidAmount. Either way
// no mutation and no log row are written.
func (s *Service) AdjustBalance(in AdjustInput) (int, error) {
	// Resolve the acting admin for the audit row
	var admin domain.User
	if err := s.db.First(&admin, in.AdminID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrUserNotFound
		}
		return 0, err
	}
	// Resolve the target account; NotFound if absent
	var target domain.User
	if err := s.db.First(&target, in.TargetUserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrUserNotFound
		}
		return 0, err
	}
	var newBalance int // Balance after the adjustment
	// Wallet mutation and audit row are one atomic unit
	err := s.db.Transaction(func(tx *gorm.DB) error {
		ws := s.wallets.WithTx(tx) // Wallet service bound to this transaction
		// The target exists, so wallet creation is implied for accounts that
		// never purchased; adjusting a fresh zero wallet is legitimate
		if _, err := ws.GetOrCreate(in.TargetUserID); err != nil {
			return err
		}
		prev, newBal, err := ws.Adjust(in.TargetUserID, in.Action, in.Amount)
		if err != nil {
			return err // Rolls back; rejected adjustments log nothing
		}
		entry := domain.AdminLog{
			AdminID:         admin.ID,                        // Acting admin
			AdminEmail:      admin.Email,                     // Actor email by value
			TargetUserID:    target.ID,                       // Adjusted account
			TargetUserEmail: target.Email,                    // Target email by value
			Action:          renderAction(in.Action, in.Amount), // "+N", "-N" or "set=N"
			PrevBalance:     prev,                            // Balance before
			NewBalance:      newBal,                          // Balance after
			Note:            in.Note,                         // Optional reason
		}
		// The audit row commits with the mutation or not at all
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}
		newBalance = newBal
		return nil
	})
	// Handle transaction result
	if err != nil {
		return 0, err
	}
	// Log the applied adjustment
	logrus.WithFields(logrus.Fields{
		"admin_id":       in.AdminID,                         // Acting admin
		"target_user_id": in.TargetUserID,                    // Adjusted account
		"action":         renderAction(in.Action, in.Amount), // Rendered action
		"new_balance":    newBalance,                         // Balance after
	}).Info("Balance adjusted")
	return newBalance, nil
}

// renderAction formats the audit action string
func renderAction(action wallet.Action, amount int) string {
	switch action {
	case wallet.ActionAdd:
		return "+" + strconv.Itoa(amount)
	case wallet.ActionSubtract:
		return "-" + strconv.Itoa(amount)
	case wallet.ActionSet:
		return "set=" + strconv.Itoa(amount)
	}
	return string(action) // Unreachable for validated input
}
