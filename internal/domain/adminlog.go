package domain

import "time"

// AdminLog Model
// Append-only audit row for a manual balance adjustment. Written in the same
// transaction as the wallet mutation it describes; never updated or deleted.
// Actor and target emails are copied by value so the row stays readable even
// if the referenced accounts change.
type AdminLog struct {
	ID              uint      `gorm:"primaryKey" json:"id"`                 // Primary key
	AdminID         uint      `gorm:"index;not null" json:"admin_id"`       // Acting admin's user id
	AdminEmail      string    `gorm:"not null" json:"admin_email"`          // Acting admin's email at time of action
	TargetUserID    uint      `gorm:"index;not null" json:"target_user_id"` // Adjusted user's id
	TargetUserEmail string    `gorm:"not null" json:"target_user_email"`    // Adjusted user's email at time of action
	Action          string    `gorm:"not null" json:"action"`               // Rendered action: "+N", "-N" or "set=N"
	PrevBalance     int       `gorm:"not null" json:"prev_balance"`         // Balance before the adjustment
	NewBalance      int       `gorm:"not null" json:"new_balance"`          // Balance after the adjustment
	Note            string    `json:"note"`                                 // Optional reason supplied by the admin
	CreatedAt       time.Time `json:"created_at"`                           // Timestamp of creation
}
