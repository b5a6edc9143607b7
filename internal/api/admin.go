package api

import (
	"context"  // Context for Redis operations
	"errors"   // Sentinel error matching
	"net/http" // HTTP status codes
	"strconv"  // String conversion
	"time"     // Time durations

	"fortune_system/internal/adminops" // Admin adjustment service
	"fortune_system/internal/report"   // Reporting layer
	"fortune_system/internal/utils"    // Utility functions
	"fortune_system/internal/wallet"   // Sentinel errors and actions

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
)

// AdminListUsersHandler returns all users with their wallet info
func AdminListUsersHandler(reports *report.Service, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := context.Background() // Use background context for Redis
		// Create a cache key based on pagination parameters
		cacheKey := "admin:users:page=" + c.DefaultQuery("page", "1") + ":size=" + c.DefaultQuery("page_size", "20")
		var cached report.UserPage
		// If cached data found, return it
		found, err := utils.GetCache(ctx, rdb, cacheKey, &cached)
		if err == nil && found {
			c.JSON(http.StatusOK, gin.H{
				"users":       cached.Users,      // List of users
				"page":        cached.Page,       // Current page
				"page_size":   cached.PageSize,   // Page size
				"total":       cached.Total,      // Total number of users
				"total_pages": cached.TotalPages, // Total pages
				"cached":      true,              // Indicate response is from cache
			})
			return
		}
		page, pageSize := pagination(c) // Parse pagination query params
		// Fetch the page from the reporting layer
		pageData, err := reports.ListUsers(page, pageSize)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch users"}) // Return on error
			return
		}
		// Cache the response for future requests
		_ = utils.SetCache(ctx, rdb, cacheKey, pageData, 60*time.Second)
		c.JSON(http.StatusOK, gin.H{
			"users":       pageData.Users,      // List of users
			"page":        pageData.Page,       // Current page
			"page_size":   pageData.PageSize,   // Page size
			"total":       pageData.Total,      // Total number of users
			"total_pages": pageData.TotalPages, // Total pages
			"cached":      false,               // Indicate response is not from cache
		})
	}
}

// AdminSearchUsersHandler returns users whose email contains the search term
func AdminSearchUsersHandler(reports *report.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		term := c.Query("q") // Search term
		// An empty term would just be ListUsers; make the caller pick one
		if term == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Missing search term"})
			return
		}
		page, pageSize := pagination(c) // Parse pagination query params
		// Search via the reporting layer; no caching, terms are too varied
		pageData, err := reports.SearchUsers(term, page, pageSize)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to search users"}) // Return on error
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"users":       pageData.Users,      // Matching users
			"page":        pageData.Page,       // Current page
			"page_size":   pageData.PageSize,   // Page size
			"total":       pageData.Total,      // Total matches
			"total_pages": pageData.TotalPages, // Total pages
		})
	}
}

// AdminUserDetailHandler returns one user's profile, wallet and recent activity
func AdminUserDetailHandler(reports *report.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Parse the target user id from the path
		targetID, err := strconv.Atoi(c.Param("id"))
		if err != nil || targetID <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user id"})
			return
		}
		// Fetch the detail view
		detail, err := reports.GetUserDetail(uint(targetID))
		if err != nil {
			if errors.Is(err, report.ErrUserNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "User not found"}) // Unknown user
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch user"}) // Return on error
			return
		}
		c.JSON(http.StatusOK, detail) // Return the detail view
	}
}

// AdjustBalanceRequest represents a manual balance adjustment
type AdjustBalanceRequest struct {
	Action string `json:"action" binding:"required"` // add, subtract or set
	Amount int    `json:"amount" binding:"gte=0"`    // Non-negative amount
	Note   string `json:"note"`                      // Optional reason
}

// AdminAdjustBalanceHandler applies a manual balance change with an audit row
func AdminAdjustBalanceHandler(admins *adminops.Service, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		adminID, exists := c.Get("userID") // Acting admin from the JWT
		// Check if userID exists in context
		if !exists {
			// If not, return unauthorized
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		// Parse the target user id from the path
		targetID, err := strconv.Atoi(c.Param("id"))
		if err != nil || targetID <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user id"})
			return
		}
		var req AdjustBalanceRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			// If binding fails, return bad request
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		// Apply through the core
		newBalance, err := admins.AdjustBalance(adminops.AdjustInput{
			AdminID:      adminID.(uint),            // Acting admin
			TargetUserID: uint(targetID),            // Adjusted account
			Action:       wallet.Action(req.Action), // add, subtract or set
			Amount:       req.Amount,                // Adjustment amount
			Note:         req.Note,                  // Optional reason
		})
		// Map core outcomes to HTTP statuses
		if err != nil {
			switch {
			case errors.Is(err, adminops.ErrUserNotFound), errors.Is(err, wallet.ErrNotFound):
				c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			case errors.Is(err, wallet.ErrInvalidAction), errors.Is(err, wallet.ErrInvalidAmount):
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			case errors.Is(err, wallet.ErrInsufficientBalance):
				// Subtract would drive the balance negative
				c.JSON(http.StatusBadRequest, gin.H{"error": "Subtract would drive balance negative"})
			default:
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Adjustment failed"})
			}
			return
		}
		// Invalidate the adjusted user's wallet cache
		utils.InvalidateUserCaches(context.Background(), rdb, uint(targetID))
		// Return the new balance
		c.JSON(http.StatusOK, gin.H{"new_balance": newBalance})
	}
}

// AdminLogsHandler returns the most recent balance adjustment audit rows
func AdminLogsHandler(reports *report.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := 50 // Default bound
		// If limit exists in query
		if l := c.Query("limit"); l != "" {
			// Convert limit to integer
			if v, err := strconv.Atoi(l); err == nil && v > 0 && v <= 200 {
				limit = v // Set limit if valid
			}
		}
		// Fetch newest-first audit rows
		logs, err := reports.ListAdminLogs(limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch logs"}) // Return on error
			return
		}
		c.JSON(http.StatusOK, gin.H{"logs": logs}) // Return the audit rows
	}
}

// AdminStatsHandler returns the global dashboard numbers
func AdminStatsHandler(reports *report.Service, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := context.Background() // Use background context for Redis
		cacheKey := "admin:stats"   // Single cache entry for the dashboard
		var cached report.Stats
		// If cached data found, return it
		found, err := utils.GetCache(ctx, rdb, cacheKey, &cached)
		if err == nil && found {
			c.JSON(http.StatusOK, gin.H{"stats": cached, "cached": true})
			return
		}
		// Aggregate via the reporting layer
		stats, err := reports.GetStats()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch stats"}) // Return on error
			return
		}
		// Cache the response for future requests
		_ = utils.SetCache(ctx, rdb, cacheKey, stats, 60*time.Second)
		c.JSON(http.StatusOK, gin.H{"stats": stats, "cached": false})
	}
}

// pagination parses the page/page_size query params with bounded defaults
func pagination(c *gin.Context) (int, int) {
	page := 1      // Default page number
	pageSize := 20 // Default page size
	if p := c.Query("page"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			page = v // Set page if valid
		}
	}
	// Check and set page size within limits
	if ps := c.Query("page_size"); ps != "" {
		// If valid, set page size
		if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= 100 {
			pageSize = v // Set page size
		}
	}
	return page, pageSize
}
