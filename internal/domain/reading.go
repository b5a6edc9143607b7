package domain

import "time"

// Reading statuses. Fulfillment is synchronous, so new rows are written as
// completed; received and processing still appear on rows from the old
// queue-based flow and must render normally.
const (
	ReadingStatusReceived   = "received"
	ReadingStatusProcessing = "processing"
	ReadingStatusCompleted  = "completed"
)

// Reading Model
// One row per fulfilled fortune request, written in the same transaction as
// the wallet debit that pays for it.
type Reading struct {
	ID         uint      `gorm:"primaryKey" json:"id"`          // Primary key
	UserID     uint      `gorm:"index;not null" json:"user_id"` // Foreign key to User
	PersonName string    `gorm:"not null" json:"person_name"`   // Who the fortune is about
	Category   string    `gorm:"not null" json:"category"`      // Fortune category
	Question   string    `gorm:"type:text;not null" json:"question"` // The question asked
	Status     string    `gorm:"not null" json:"status"`        // received, processing or completed
	Answer     string    `gorm:"type:text" json:"answer"`       // Generated answer, present iff completed
	CreatedAt  time.Time `json:"created_at"`                    // Timestamp of creation
}
