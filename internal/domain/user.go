package domain

import "time"

// User Model
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`              // Primary key
	Email     string    `gorm:"uniqueIndex;not null" json:"email"` // Unique email, stored lowercased
	Password  string    `json:"-"`                                 // Hashed password (empty until the account is claimed)
	Role      string    `gorm:"default:user" json:"role"`          // Role: user or admin
	Wallet    Wallet    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"wallet"` // One-to-one relationship with Wallet
	CreatedAt time.Time `json:"created_at"`                        // Timestamp of creation
}
