package fortune

import (
	"context" // Cancellation for the generation call
	"errors"  // Sentinel errors
	"fmt"     // Error wrapping

	"fortune_system/internal/domain"    // Importing domain models
	"fortune_system/internal/generator" // Generation collaborator
	"fortune_system/internal/wallet"    // Wallet service

	"github.com/sirupsen/logrus" // Logging library
	"gorm.io/gorm"               // GORM ORM library
)

// Sentinel errors for fortune fulfillment
var (
	ErrValidation       = errors.New("invalid fortune request")
	ErrGenerationFailed = errors.New("generation failed")
)

// Question and name bounds. The minimum keeps the prompt usable; the maximum
// bounds generation cost and abuse.
const (
	questionMinLen = 10
	questionMaxLen = 500
	personNameMax  = 100
)

// Categories is the current category set accepted on submission
var Categories = []string{"love", "career", "health", "money", "family", "travel"}

// legacyCategories are values written by the old flow. Stored readings using
// them must render normally, but new submissions are rejected.
var legacyCategories = []string{"love", "work", "luck", "general"}

// ValidCategory reports whether a category is accepted for new submissions
func ValidCategory(category string) bool {
	for _, c := range Categories {
		if c == category {
			return true
		}
	}
	return false
}

// KnownCategory reports whether a category is valid for display, covering
// both the current and the legacy set
func KnownCategory(category string) bool {
	if ValidCategory(category) {
		return true
	}
	for _, c := range legacyCategories {
		if c == category {
			return true
		}
	}
	return false
}

// SubmitInput carries one fortune request
type SubmitInput struct {
	UserID     uint   // Requesting user
	PersonName string // Who the fortune is about
	Category   string // Fortune category
	Question   string // The question asked
}

// Service fulfills fortune requests: validate, pre-check balance, generate,
// then record the Reading and debit the wallet in one transaction
type Service struct {
	db      *gorm.DB            // Database handle
	wallets *wallet.Service     // Wallet service
	gen     generator.Generator // Generation collaborator
}

// New creates a fortune fulfillment service
func New(db *gorm.DB, wallets *wallet.Service, gen generator.Generator) *Service {
	return &Service{db: db, wallets: wallets, gen: gen}
}

// Submit fulfills one fortune request. The balance is checked twice: an
// optimistic pre-check avoids paying for generation when the wallet is
// already empty, and the final debit inside the transaction is the one that
// counts. If a concurrent spend drains the wallet between the two, the
// generated answer is discarded and the whole call fails with
// wallet.ErrInsufficientBalance; a Reading is never recorded without its
// debit.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (*domain.Reading, error) {
	// Validate the request before touching anything
	if err := validate(in); err != nil {
		return nil, err
	}
	// Optimistic balance pre-check; do not invoke the generator on empty wallets
	w, err := s.wallets.GetOrCreate(in.UserID)
	if err != nil {
		return nil, err
	}
	if w.Balance < 1 {
		return nil, wallet.ErrInsufficientBalance
	}
	// Invoke the generation collaborator; on failure nothing is persisted
	answer, err := s.gen.Generate(ctx, generator.Request{
		PersonName: in.PersonName, // Who the fortune is about
		Category:   in.Category,   // Fortune category
		Question:   in.Question,   // The question asked
	})
	if err != nil {
		// Log the collaborator failure with context
		logrus.WithFields(logrus.Fields{
			"user_id":  in.UserID,   // Requesting user
			"category": in.Category, // Fortune category
			"error":    err.Error(), // Error message
		}).Error("Fortune generation failed")
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	var reading domain.Reading // The row created inside the transaction
	// Atomically debit one credit and record the completed Reading
	err = s.db.Transaction(func(tx *gorm.DB) error {
		// The conditional debit is the authoritative balance check
		if _, err := s.wallets.WithTx(tx).DebitIfAvailable(in.UserID, 1); err != nil {
			return err // Rolls back; insufficient balance discards the answer
		}
		reading = domain.Reading{
			UserID:     in.UserID,                      // Requesting user
			PersonName: in.PersonName,                  // Who the fortune is about
			Category:   in.Category,                    // Fortune category
			Question:   in.Question,                    // The question asked
			Status:     domain.ReadingStatusCompleted,  // Synchronous fulfillment
			Answer:     answer,                         // Generated answer
		}
		return tx.Create(&reading).Error // Save the reading
	})
	// Handle transaction result
	if err != nil {
		return nil, err // ErrInsufficientBalance passes through via errors.Is
	}
	// Log the fulfilled reading
	logrus.WithFields(logrus.Fields{
		"user_id":    in.UserID,   // Requesting user
		"reading_id": reading.ID,  // Created reading
		"category":   in.Category, // Fortune category
	}).Info("Fortune fulfilled")
	return &reading, nil
}

// validate checks the request shape and bounds
func validate(in SubmitInput) error {
	if in.UserID == 0 {
		return fmt.Errorf("%w: missing user", ErrValidation)
	}
	if in.PersonName == "" || len(in.PersonName) > personNameMax {
		return fmt.Errorf("%w: person name must be 1-%d characters", ErrValidation, personNameMax)
	}
	if !ValidCategory(in.Category) {
		return fmt.Errorf("%w: unknown category %q", ErrValidation, in.Category)
	}
	if len(in.Question) < questionMinLen {
		return fmt.Errorf("%w: question must be at least %d characters", ErrValidation, questionMinLen)
	}
	if len(in.Question) > questionMaxLen {
		return fmt.Errorf("%w: question must be at most %d characters", ErrValidation, questionMaxLen)
	}
	return nil
}
