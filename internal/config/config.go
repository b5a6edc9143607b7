package config

import (
	"os"      // For environment variables
	"strconv" // For string to int conversion

	"github.com/joho/godotenv" // For loading .env files
)

// Config holds the application configuration
type Config struct {
	AppPort       string // Application port
	DBUser        string // Database user
	DBPassword    string // Database password
	DBHost        string // Database host
	DBPort        string // Database port
	DBName        string // Database name
	JWTSecret     string // JWT secret key
	RedisAddr     string // Redis server address
	RedisPass     string // Redis password
	RedisDB       int    // Redis database number
	IsProd        bool   // Is production environment
	OpenAIKey     string // Primary generation provider API key
	OpenAIModel   string // Primary generation provider model
	GroqKey       string // Fallback generation provider API key
	GroqModel     string // Fallback generation provider model
	WebhookSecret string // Shared secret for payment webhook signatures
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	_ = godotenv.Load() // Load .env file if present
	redisDB, _ := strconv.Atoi(os.Getenv("REDIS_DB"))
	return &Config{
		AppPort:       os.Getenv("APP_PORT"),               // Application port
		DBUser:        os.Getenv("DB_USER"),                // Database user
		DBPassword:    os.Getenv("DB_PASSWORD"),            // Database password
		DBHost:        os.Getenv("DB_HOST"),                // Database host
		DBPort:        os.Getenv("DB_PORT"),                // Database port
		DBName:        os.Getenv("DB_NAME"),                // Database name
		JWTSecret:     os.Getenv("JWT_SECRET"),             // JWT secret key
		RedisAddr:     os.Getenv("REDIS_ADDR"),             // Redis server address
		RedisPass:     os.Getenv("REDIS_PASS"),             // Redis password
		RedisDB:       redisDB,                             // Redis database number
		IsProd:        os.Getenv("IS_PROD") == "true",      // Is production environment
		OpenAIKey:     os.Getenv("OPENAI_API_KEY"),         // Primary provider key
		OpenAIModel:   envOr("OPENAI_MODEL", "gpt-4o-mini"), // Primary provider model
		GroqKey:       os.Getenv("GROQ_API_KEY"),           // Fallback provider key
		GroqModel:     envOr("GROQ_MODEL", "llama-3.1-70b-versatile"), // Fallback provider model
		WebhookSecret: os.Getenv("PAYMENT_WEBHOOK_SECRET"), // Payment webhook shared secret
	}
}

// envOr returns the environment variable value or a default if unset
func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v // Use the configured value
	}
	return def // Fall back to the default
}
