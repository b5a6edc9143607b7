package purchase

import (
	"errors" // Sentinel errors
	"fmt"    // Error wrapping

	"fortune_system/internal/domain"   // Importing domain models
	"fortune_system/internal/identity" // Identity resolver
	"fortune_system/internal/wallet"   // Wallet service

	"github.com/sirupsen/logrus" // Logging library
	"gorm.io/gorm"               // GORM ORM library
)

// Sentinel errors for purchase fulfillment
var (
	ErrInvalidEvent    = errors.New("invalid payment event")
	ErrInvalidQuantity = errors.New("quantity not in catalog")
)

// Packages is the credit package catalog: permitted quantity -> price in
// minor currency units. Quantity is not a free integer; events outside the
// catalog are rejected.
var Packages = map[int]int{
	1:  199,  // single credit
	5:  899,  // starter pack
	10: 1599, // regular pack
	25: 3499, // value pack
	50: 5999, // bulk pack
}

// PaymentEvent is a completed-payment notification from the payment provider.
// Delivery is at-least-once; the same event may arrive more than once.
type PaymentEvent struct {
	ExternalPaymentID string // Provider's unique id for the payment
	PayerEmail        string // Email the payer checked out with
	Quantity          int    // Credits purchased
	Amount            int    // Amount paid, minor currency units
	UserID            uint   // Optional buyer-provided account id from checkout metadata
}

// Result reports the outcome of fulfilling one payment event
type Result struct {
	OrderID          uint // The order for this payment event
	UserID           uint // The credited account
	AlreadyFulfilled bool // True when the event was a redelivery and nothing was credited
}

// Service consumes completed-payment events and credits wallets exactly once
// per event. The Order row, unique on ExternalPaymentID, is the
// de-duplication gate: credit happens only in the transaction that creates it.
type Service struct {
	db       *gorm.DB           // Database handle
	wallets  *wallet.Service    // Wallet service
	identity *identity.Resolver // Identity resolver for payer emails
}

// New creates a purchase fulfillment service
func New(db *gorm.DB, wallets *wallet.Service, ids *identity.Resolver) *Service {
	return &Service{db: db, wallets: wallets, identity: ids}
}

// Fulfill processes one completed-payment event. Safe to invoke repeatedly
// for the same ExternalPaymentID: redeliveries return the existing order with
// AlreadyFulfilled set and credit nothing.
func (s *Service) Fulfill(evt PaymentEvent) (*Result, error) {
	// An event without a payment id cannot be de-duplicated; reject it
	if evt.ExternalPaymentID == "" {
		return nil, fmt.Errorf("%w: missing external payment id", ErrInvalidEvent)
	}
	// Validate the quantity against the catalog
	if _, ok := Packages[evt.Quantity]; !ok {
		return nil, fmt.Errorf("%w: %d", ErrInvalidQuantity, evt.Quantity)
	}
	userID, err := s.resolveUser(evt) // Resolve or create the target account
	if err != nil {
		return nil, err
	}
	var result Result // Outcome of the transaction
	// Order creation and wallet credit are one atomic unit
	err = s.db.Transaction(func(tx *gorm.DB) error {
		var existing domain.Order
		err := tx.Where("external_payment_id = ?", evt.ExternalPaymentID).First(&existing).Error
		if err == nil {
			// Redelivered event: already fulfilled, credit nothing
			result = Result{OrderID: existing.ID, UserID: existing.UserID, AlreadyFulfilled: true}
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err // Unexpected store error
		}
		order := domain.Order{
			UserID:            userID,                // Credited account
			Quantity:          evt.Quantity,          // Credits purchased
			Amount:            evt.Amount,            // Amount paid
			ExternalPaymentID: evt.ExternalPaymentID, // De-duplication key
		}
		// Creating the order claims the payment event
		if err := tx.Create(&order).Error; err != nil {
			return err
		}
		// Credit the wallet in the same transaction
		if _, err := s.wallets.WithTx(tx).Credit(userID, evt.Quantity); err != nil {
			return err
		}
		result = Result{OrderID: order.ID, UserID: userID}
		return nil // Commit order + credit together
	})
	// Two concurrent deliveries can both pass the existence check; the unique
	// index breaks the tie and the loser reports already-fulfilled
	if err != nil && errors.Is(err, gorm.ErrDuplicatedKey) {
		var existing domain.Order
		if ferr := s.db.Where("external_payment_id = ?", evt.ExternalPaymentID).First(&existing).Error; ferr != nil {
			return nil, ferr
		}
		result = Result{OrderID: existing.ID, UserID: existing.UserID, AlreadyFulfilled: true}
		err = nil
	}
	if err != nil {
		// Log the failed fulfillment with context
		logrus.WithFields(logrus.Fields{
			"external_payment_id": evt.ExternalPaymentID, // Payment event id
			"user_id":             userID,                // Target account
			"quantity":            evt.Quantity,          // Credits purchased
			"error":               err.Error(),           // Error message
		}).Error("Purchase fulfillment failed")
		return nil, err
	}
	// Log the outcome; redeliveries are routine, not errors
	logrus.WithFields(logrus.Fields{
		"external_payment_id": evt.ExternalPaymentID,   // Payment event id
		"order_id":            result.OrderID,          // Order row
		"user_id":             result.UserID,           // Credited account
		"quantity":            evt.Quantity,            // Credits purchased
		"already_fulfilled":   result.AlreadyFulfilled, // Redelivery flag
	}).Info("Purchase fulfilled")
	return &result, nil
}

// resolveUser picks the target account: a valid buyer-provided user id wins,
// otherwise the payer email is resolved (creating the account if needed)
func (s *Service) resolveUser(evt PaymentEvent) (uint, error) {
	if evt.UserID != 0 {
		var u domain.User
		err := s.db.First(&u, evt.UserID).Error
		if err == nil {
			return u.ID, nil // Buyer-provided id refers to a real account
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, err // Unexpected store error
		}
		// Stale or bogus metadata id: fall through to the payer email
	}
	if evt.PayerEmail == "" {
		return 0, fmt.Errorf("%w: no resolvable user", ErrInvalidEvent)
	}
	userID, err := s.identity.EnsureUserByEmail(evt.PayerEmail)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidEmail) {
			return 0, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
		}
		return 0, err
	}
	return userID, nil
}
