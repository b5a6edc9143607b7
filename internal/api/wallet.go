package api

import (
	"context"  // Context for Redis operations
	"net/http" // HTTP status codes
	"time"     // Time durations

	"fortune_system/internal/purchase" // Package catalog
	"fortune_system/internal/utils"    // Utility functions
	"fortune_system/internal/wallet"   // Wallet service

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
)

// GetWalletHandler returns the credit balance for the authenticated user
func GetWalletHandler(wallets *wallet.Service, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get("userID") // Get userID from context
		// Check if userID exists in context
		if !exists {
			// If not, return unauthorized
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		ctx := context.Background()                        // Context for Redis operations
		cacheKey := utils.WalletCacheKey(userID.(uint))    // Cache key for wallet
		var cached struct {
			Balance   int       `json:"balance"`    // Credit balance
			UpdatedAt time.Time `json:"updated_at"` // Last mutation time
		}
		found, err := utils.GetCache(ctx, rdb, cacheKey, &cached) // Try to get from cache
		// If found in cache, return it
		if err == nil && found {
			c.JSON(http.StatusOK, gin.H{"balance": cached.Balance, "updated_at": cached.UpdatedAt, "cached": true})
			return
		}
		// If not in cache, fetch via the wallet service (creates at zero if absent)
		w, err := wallets.GetOrCreate(userID.(uint))
		if err != nil {
			// Return internal server error on store failure
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch wallet"})
			return
		}
		cached.Balance = w.Balance      // Credit balance
		cached.UpdatedAt = w.UpdatedAt  // Last mutation time
		_ = utils.SetCache(ctx, rdb, cacheKey, cached, 60*time.Second) // Cache for 60 seconds
		c.JSON(http.StatusOK, gin.H{"balance": w.Balance, "updated_at": w.UpdatedAt, "cached": false})
	}
}

// PackagesHandler returns the credit package catalog
func PackagesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		type pkg struct {
			Quantity int `json:"quantity"` // Credits in the package
			Amount   int `json:"amount"`   // Price, minor currency units
		}
		var packages []pkg // Catalog response
		// The catalog order is not significant; clients sort by quantity
		for quantity, amount := range purchase.Packages {
			packages = append(packages, pkg{Quantity: quantity, Amount: amount})
		}
		c.JSON(http.StatusOK, gin.H{"packages": packages}) // Return the catalog
	}
}
