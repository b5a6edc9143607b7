package report

import (
	"errors" // Sentinel errors

	"fortune_system/internal/domain" // Importing domain models

	"gorm.io/gorm" // GORM ORM library
)

// ErrUserNotFound is returned by UserDetail for an unknown user id
var ErrUserNotFound = errors.New("user not found")

// recentLimit bounds the orders/readings embedded in a user detail view
const recentLimit = 20

// Service is the read-only reporting layer. It never writes, and it
// tolerates missing related rows (a user with no wallet yet gets a
// zero-balance default rather than an error).
type Service struct {
	db *gorm.DB // Database handle
}

// New creates a reporting service
func New(db *gorm.DB) *Service {
	return &Service{db: db}
}

// UserDetail is one customer's profile with wallet and recent activity
type UserDetail struct {
	User     domain.User      `json:"user"`     // Profile
	Wallet   domain.Wallet    `json:"wallet"`   // Balance (zero default if absent)
	Orders   []domain.Order   `json:"orders"`   // Recent purchases, newest first
	Readings []domain.Reading `json:"readings"` // Recent readings, newest first
}

// GetUserDetail fetches one user's profile, wallet, recent orders and recent readings
func (s *Service) GetUserDetail(userID uint) (*UserDetail, error) {
	var detail UserDetail // Response under construction
	// Fetch the profile; unknown ids are a NotFound, not a validation error
	if err := s.db.First(&detail.User, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	// Fetch the wallet, substituting a zero-balance default if absent
	if err := s.db.Where("user_id = ?", userID).First(&detail.Wallet).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		detail.Wallet = domain.Wallet{UserID: userID, Balance: 0} // Zero default
	}
	// Recent orders, newest first
	if err := s.db.Where("user_id = ?", userID).
		Order("created_at desc").Limit(recentLimit).
		Find(&detail.Orders).Error; err != nil {
		return nil, err
	}
	// Recent readings, newest first
	if err := s.db.Where("user_id = ?", userID).
		Order("created_at desc").Limit(recentLimit).
		Find(&detail.Readings).Error; err != nil {
		return nil, err
	}
	return &detail, nil
}

// UserPage is one page of a user listing
type UserPage struct {
	Users      []domain.User `json:"users"`       // Users with wallets preloaded
	Page       int           `json:"page"`        // Current page
	PageSize   int           `json:"page_size"`   // Page size
	Total      int64         `json:"total"`       // Total matching users
	TotalPages int           `json:"total_pages"` // Total pages
}

// ListUsers returns a page of all users with their wallet info
func (s *Service) ListUsers(page, pageSize int) (*UserPage, error) {
	return s.userPage(s.db.Model(&domain.User{}), page, pageSize)
}

// SearchUsers returns a page of users whose email contains the term
func (s *Service) SearchUsers(term string, page, pageSize int) (*UserPage, error) {
	q := s.db.Model(&domain.User{}).Where("email LIKE ?", "%"+term+"%")
	return s.userPage(q, page, pageSize)
}

// userPage runs a paginated user query with wallets preloaded
func (s *Service) userPage(q *gorm.DB, page, pageSize int) (*UserPage, error) {
	// Clamp pagination inputs to sane defaults
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	var total int64 // Total matching users
	if err := q.Count(&total).Error; err != nil {
		return nil, err
	}
	offset := (page - 1) * pageSize // Calculate offset for pagination
	var users []domain.User         // Slice to hold users
	// Preload Wallet relation, apply offset and limit for pagination
	if err := q.Preload("Wallet").Order("id").Offset(offset).Limit(pageSize).Find(&users).Error; err != nil {
		return nil, err
	}
	totalPages := (int(total) + pageSize - 1) / pageSize // Calculate total pages
	return &UserPage{
		Users:      users,      // List of users
		Page:       page,       // Current page
		PageSize:   pageSize,   // Page size
		Total:      total,      // Total matching users
		TotalPages: totalPages, // Total pages
	}, nil
}

// ReadingPage is one page of a user's reading history
type ReadingPage struct {
	Readings   []domain.Reading `json:"readings"`    // Readings, newest first
	Page       int              `json:"page"`        // Current page
	PageSize   int              `json:"page_size"`   // Page size
	Total      int64            `json:"total"`       // Total readings
	TotalPages int              `json:"total_pages"` // Total pages
}

// ListReadings returns a page of one user's readings, newest first
func (s *Service) ListReadings(userID uint, page, pageSize int) (*ReadingPage, error) {
	// Clamp pagination inputs to sane defaults
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	q := s.db.Model(&domain.Reading{}).Where("user_id = ?", userID)
	var total int64 // Total readings for this user
	if err := q.Count(&total).Error; err != nil {
		return nil, err
	}
	offset := (page - 1) * pageSize // Calculate offset for pagination
	var readings []domain.Reading   // Slice to hold readings
	if err := q.Order("created_at desc").Offset(offset).Limit(pageSize).Find(&readings).Error; err != nil {
		return nil, err
	}
	totalPages := (int(total) + pageSize - 1) / pageSize // Calculate total pages
	return &ReadingPage{
		Readings:   readings,   // List of readings
		Page:       page,       // Current page
		PageSize:   pageSize,   // Page size
		Total:      total,      // Total readings
		TotalPages: totalPages, // Total pages
	}, nil
}

// Stats is the global dashboard snapshot
type Stats struct {
	TotalUsers    int64          `json:"total_users"`    // Total registered users
	TotalOrders   int64          `json:"total_orders"`   // Total completed orders
	TotalReadings int64          `json:"total_readings"` // Total fulfilled readings
	TotalBalance  int64          `json:"total_balance"`  // Sum of all wallet balances
	RecentOrders  []domain.Order `json:"recent_orders"`  // Most recent orders
}

// GetStats aggregates the global dashboard numbers
func (s *Service) GetStats() (*Stats, error) {
	var stats Stats // Response under construction
	// Count users
	if err := s.db.Model(&domain.User{}).Count(&stats.TotalUsers).Error; err != nil {
		return nil, err
	}
	// Count orders
	if err := s.db.Model(&domain.Order{}).Count(&stats.TotalOrders).Error; err != nil {
		return nil, err
	}
	// Count readings
	if err := s.db.Model(&domain.Reading{}).Count(&stats.TotalReadings).Error; err != nil {
		return nil, err
	}
	// Sum wallet balances; COALESCE keeps an empty table at zero
	if err := s.db.Model(&domain.Wallet{}).
		Select("COALESCE(SUM(balance), 0)").
		Scan(&stats.TotalBalance).Error; err != nil {
		return nil, err
	}
	// Most recent orders
	if err := s.db.Order("created_at desc").Limit(10).Find(&stats.RecentOrders).Error; err != nil {
		return nil, err
	}
	return &stats, nil
}

// ListAdminLogs returns the most recent balance adjustment audit rows,
// newest first, bounded by limit
func (s *Service) ListAdminLogs(limit int) ([]domain.AdminLog, error) {
	// Clamp the bound to a sane range
	if limit < 1 || limit > 200 {
		limit = 50
	}
	var logs []domain.AdminLog // Slice to hold log entries
	if err := s.db.Order("created_at desc").Limit(limit).Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}
