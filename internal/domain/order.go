package domain

import "time"

// Order Model
// One row per completed payment event. Immutable once created; the unique
// index on ExternalPaymentID is the de-duplication gate for webhook redelivery.
type Order struct {
	ID                uint      `gorm:"primaryKey" json:"id"`                          // Primary key
	UserID            uint      `gorm:"index;not null" json:"user_id"`                 // Foreign key to User
	Quantity          int       `gorm:"not null" json:"quantity"`                      // Credits purchased
	Amount            int       `gorm:"not null" json:"amount"`                        // Price paid, minor currency units
	ExternalPaymentID string    `gorm:"uniqueIndex;not null" json:"external_payment_id"` // Payment provider's event id
	CreatedAt         time.Time `json:"created_at"`                                    // Timestamp of creation
}
