package api

import (
	"context"  // Context for Redis operations
	"errors"   // Sentinel error matching
	"net/http" // HTTP status codes
	"strconv"  // String conversion
	"time"     // Time durations

	"fortune_system/internal/fortune" // Fortune fulfillment
	"fortune_system/internal/report"  // Reading history queries
	"fortune_system/internal/utils"   // Utility functions
	"fortune_system/internal/wallet"  // Sentinel errors

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
)

// SubmitFortuneRequest represents one fortune submission
type SubmitFortuneRequest struct {
	PersonName string `json:"person_name" binding:"required"` // Who the fortune is about
	Category   string `json:"category" binding:"required"`    // Fortune category
	Question   string `json:"question" binding:"required"`    // The question asked
}

// SubmitFortuneHandler spends one credit to answer a fortune question
func SubmitFortuneHandler(fortunes *fortune.Service, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get("userID") // Get userID from context
		// Check if userID exists in context
		if !exists {
			// If not, return unauthorized
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		var req SubmitFortuneRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			// If binding fails, return bad request
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		// Fulfill through the core; the request context carries cancellation
		reading, err := fortunes.Submit(c.Request.Context(), fortune.SubmitInput{
			UserID:     userID.(uint),  // Requesting user
			PersonName: req.PersonName, // Who the fortune is about
			Category:   req.Category,   // Fortune category
			Question:   req.Question,   // The question asked
		})
		// Map core outcomes to HTTP statuses
		if err != nil {
			switch {
			case errors.Is(err, fortune.ErrValidation):
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			case errors.Is(err, wallet.ErrInsufficientBalance):
				// Expected business outcome: point the user at the catalog
				c.JSON(http.StatusPaymentRequired, gin.H{"error": "Insufficient balance", "hint": "Buy more credits"})
			case errors.Is(err, fortune.ErrGenerationFailed):
				c.JSON(http.StatusBadGateway, gin.H{"error": "Fortune generation failed, please retry"})
			default:
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to submit fortune"})
			}
			return
		}
		// Invalidate wallet and reading-history cache after the debit
		utils.InvalidateUserCaches(context.Background(), rdb, userID.(uint))
		// Return the completed reading
		c.JSON(http.StatusCreated, gin.H{"reading_id": reading.ID, "answer": reading.Answer, "status": reading.Status})
	}
}

// ListReadingsHandler returns the authenticated user's reading history
func ListReadingsHandler(reports *report.Service, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get("userID") // Get userID from context
		// Check if userID exists in context
		if !exists {
			// If not, return unauthorized
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		page := 1      // Default page
		pageSize := 20 // Default page size
		// If page exists in query
		if p := c.Query("page"); p != "" {
			// Convert page to integer
			if v, err := strconv.Atoi(p); err == nil && v > 0 {
				page = v // Set page if valid
			}
		}
		// If page_size exists in query
		if ps := c.Query("page_size"); ps != "" {
			// Convert page_size to integer
			if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= 100 {
				pageSize = v // Set page size if valid
			}
		}
		ctx := context.Background()                                      // Context for Redis operations
		cacheKey := utils.ReadingsCacheKey(userID.(uint), page, pageSize) // Redis cache key
		var cached report.ReadingPage
		// Try to get from cache
		found, err := utils.GetCache(ctx, rdb, cacheKey, &cached)
		if err == nil && found {
			c.JSON(http.StatusOK, gin.H{
				"readings":    cached.Readings,   // Cached readings
				"page":        cached.Page,       // Current page
				"page_size":   cached.PageSize,   // Page size
				"total":       cached.Total,      // Total readings
				"total_pages": cached.TotalPages, // Total pages
				"cached":      true,              // Indicate response is from cache
			})
			return
		}
		// Fetch from the reporting layer
		pageData, err := reports.ListReadings(userID.(uint), page, pageSize)
		if err != nil {
			// If fetching fails, return error
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch readings"})
			return
		}
		// Cache the result for 60 seconds
		_ = utils.SetCache(ctx, rdb, cacheKey, pageData, 60*time.Second)
		c.JSON(http.StatusOK, gin.H{
			"readings":    pageData.Readings,   // List of readings
			"page":        pageData.Page,       // Current page
			"page_size":   pageData.PageSize,   // Page size
			"total":       pageData.Total,      // Total readings
			"total_pages": pageData.TotalPages, // Total pages
			"cached":      false,               // Not from cache
		})
	}
}
