package main

import (
	"context" // context package is needed for Redis operations
	"log"     // log package is needed for logging

	"fortune_system/internal/adminops"   // Admin balance adjustments
	"fortune_system/internal/api"        // Custom package for API handlers
	"fortune_system/internal/config"     // Custom package for configuration
	"fortune_system/internal/fortune"    // Fortune fulfillment
	"fortune_system/internal/generator"  // Generation collaborator
	"fortune_system/internal/identity"   // Identity resolver
	"fortune_system/internal/middleware" // Custom package for middleware
	"fortune_system/internal/purchase"   // Purchase fulfillment
	"fortune_system/internal/report"     // Read-only reporting
	"fortune_system/internal/wallet"     // Wallet service

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logrus for structured logging
	"gorm.io/driver/mysql"         // MySQL driver for GORM
	"gorm.io/gorm"                 // GORM ORM library
)

// Main function to set up and run the server
func main() {
	cfg := config.LoadConfig() // Load configuration

	// Setup logger
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	// Setup Data Source Name (DSN) and connect to the database
	dsn := cfg.DBUser + ":" + cfg.DBPassword + "@tcp(" + cfg.DBHost + ":" + cfg.DBPort + ")/" + cfg.DBName + "?parseTime=true"
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err) // Fatal error if DB connection fails
	}

	// Setup Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr, // Redis server address
		Password: cfg.RedisPass, // Redis password
		DB:       cfg.RedisDB,   // Redis database number
	})

	// Test Redis connection
	_, err = redisClient.Ping(context.Background()).Result()
	if err != nil {
		logrus.Fatalf("failed to connect to Redis: %v", err)
	}

	// Resolve the generation provider once at startup: primary if its key is
	// configured, otherwise the compatible fallback vendor, otherwise disabled
	var gen generator.Generator = generator.Disabled{}
	switch {
	case cfg.OpenAIKey != "":
		gen = generator.NewOpenAI(cfg.OpenAIKey, "", cfg.OpenAIModel) // Primary provider
	case cfg.GroqKey != "":
		gen = generator.NewOpenAI(cfg.GroqKey, "https://api.groq.com/openai/v1", cfg.GroqModel) // Fallback provider
	default:
		logrus.Warn("no generation provider configured; fortune submissions will fail")
	}

	// Wire the core services; they receive their store and collaborator
	// handles here and own no process-wide state themselves
	wallets := wallet.New(db)                   // Balance invariants
	ids := identity.New(db, wallets)            // Email -> account resolution
	purchases := purchase.New(db, wallets, ids) // Payment event fulfillment
	fortunes := fortune.New(db, wallets, gen)   // Fortune fulfillment
	admins := adminops.New(db, wallets)         // Audited adjustments
	reports := report.New(db)                   // Read-only queries

	// Set Mode to Release if in production
	if cfg.IsProd {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup Gin
	r := gin.Default() // Gin router instance

	// Set trusted proxies for Gin
	if err := r.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		logrus.Fatalf("failed to set trusted proxies: %v", err)
	}

	// Auth routes
	r.POST("/user", api.RegisterHandler(ids))              // Registration endpoint
	r.GET("/user", api.LoginHandler(ids, cfg.JWTSecret))   // Login endpoint

	// Payment provider webhook (HMAC-authenticated, no session)
	r.POST("/webhook/payment", api.PaymentWebhookHandler(purchases, cfg.WebhookSecret, redisClient))

	// Public catalog
	r.GET("/wallet/packages", api.PackagesHandler()) // Credit package catalog

	// Wallet routes (protected by JWT)
	walletGroup := r.Group("/wallet")
	walletGroup.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret))            // Protect wallet routes with JWT middleware
	walletGroup.GET("", api.GetWalletHandler(wallets, redisClient))         // Balance endpoint

	// Fortune routes (protected by JWT)
	fortuneGroup := r.Group("/fortunes")
	fortuneGroup.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret))           // Protect fortune routes with JWT middleware
	fortuneGroup.POST("", api.SubmitFortuneHandler(fortunes, redisClient))  // Submit endpoint
	fortuneGroup.GET("", api.ListReadingsHandler(reports, redisClient))     // Reading history endpoint

	// Admin routes (protected, admin only)
	adminGroup := r.Group("/admin")
	// Protect admin routes with JWT and AdminOnly middleware
	adminGroup.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret), middleware.AdminOnlyMiddleware(db))
	adminGroup.GET("/users", api.AdminListUsersHandler(reports, redisClient))           // List users endpoint
	adminGroup.GET("/users/search", api.AdminSearchUsersHandler(reports))               // Search users endpoint
	adminGroup.GET("/users/:id", api.AdminUserDetailHandler(reports))                   // User detail endpoint
	adminGroup.POST("/users/:id/balance", api.AdminAdjustBalanceHandler(admins, redisClient)) // Balance adjustment endpoint
	adminGroup.GET("/logs", api.AdminLogsHandler(reports))                              // Adjustment audit endpoint
	adminGroup.GET("/stats", api.AdminStatsHandler(reports, redisClient))               // Dashboard stats endpoint

	log.Println("Server running on " + cfg.AppPort) // Log server start
	r.Run(":" + cfg.AppPort)                        // Start the server on port cfg.AppPort
}
