package api

import (
	"errors"   // Sentinel error matching
	"net/http" // HTTP status codes

	"fortune_system/internal/identity" // Identity resolver
	"fortune_system/internal/utils"    // Utility functions

	"github.com/gin-gonic/gin" // Gin web framework
)

// Request struct for registration
type RegisterRequest struct {
	Email    string `json:"email" binding:"required"`    // Email must be provided
	Password string `json:"password" binding:"required"` // Password must be provided
}

// Request struct for login
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`    // Email must be provided
	Password string `json:"password" binding:"required"` // Password must be provided
}

// Response struct for authentication
type AuthResponse struct {
	Token string `json:"token"` // JWT token
}

// RegisterHandler creates an account with its zero-balance wallet
func RegisterHandler(ids *identity.Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RegisterRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			// If binding fails, return bad request
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		// Create (or claim) the account
		_, err := ids.Register(req.Email, req.Password)
		if err != nil {
			switch {
			case errors.Is(err, identity.ErrInvalidEmail):
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid email address"})
			case errors.Is(err, identity.ErrInvalidPassword):
				c.JSON(http.StatusBadRequest, gin.H{"error": "Password must be 8-72 characters"})
			case errors.Is(err, identity.ErrEmailTaken):
				c.JSON(http.StatusBadRequest, gin.H{"error": "Email already registered"})
			default:
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to register"})
			}
			return
		}
		// Return success response
		c.JSON(http.StatusCreated, gin.H{"message": "User registered successfully"})
	}
}

// LoginHandler authenticates a user and returns a JWT token
func LoginHandler(ids *identity.Resolver, jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			// If binding fails, return bad request
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		// Check the credentials
		user, err := ids.Authenticate(req.Email, req.Password)
		if err != nil {
			// Unknown email, unclaimed account or wrong password all look alike
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}
		// Generate JWT token
		token, err := utils.GenerateJWT(user.ID, jwtSecret)
		if err != nil {
			// If token generation fails, return internal server error
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
			return
		}
		// Return the token in the response
		c.JSON(http.StatusOK, AuthResponse{Token: token})
	}
}
