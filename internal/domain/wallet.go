package domain

import "time"

// Wallet Model
type Wallet struct {
	ID        uint      `gorm:"primaryKey" json:"id"`          // Primary key
	UserID    uint      `gorm:"uniqueIndex" json:"user_id"`    // Foreign key to User
	Balance   int       `gorm:"not null;default:0" json:"balance"` // Credit balance, never negative
	UpdatedAt time.Time `json:"updated_at"`                    // Timestamp of last mutation
}
