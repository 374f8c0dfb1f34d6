package config

import (
	"os"      // For environment variables
	"strconv" // For string to int conversion
	"time"    // Rate cache TTL

	"github.com/joho/godotenv" // For loading .env files
)

// Config holds the application configuration
type Config struct {
	AppPort      string        // Application port
	DBUser       string        // Database user
	DBPassword   string        // Database password
	DBHost       string        // Database host
	DBPort       string        // Database port
	DBName       string        // Database name
	JWTSecret    string        // JWT secret key
	RedisAddr    string        // Redis server address
	RedisPass    string        // Redis password
	RedisDB      int           // Redis database number
	RateAPIURL   string        // Live price API endpoint (empty disables live rates)
	RateCacheTTL time.Duration // How long fetched prices stay valid
	IsProd       bool          // Is production environment
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	_ = godotenv.Load() // Load .env file if present
	redisDB, _ := strconv.Atoi(os.Getenv("REDIS_DB"))
	rateTTL := 5 * time.Minute // Default price cache lifetime
	if v, err := strconv.Atoi(os.Getenv("RATE_CACHE_TTL_SECONDS")); err == nil && v > 0 {
		rateTTL = time.Duration(v) * time.Second
	}
	return &Config{
		AppPort:      os.Getenv("APP_PORT"),          // Application port
		DBUser:       os.Getenv("DB_USER"),           // Database user
		DBPassword:   os.Getenv("DB_PASSWORD"),       // Database password
		DBHost:       os.Getenv("DB_HOST"),           // Database host
		DBPort:       os.Getenv("DB_PORT"),           // Database port
		DBName:       os.Getenv("DB_NAME"),           // Database name
		JWTSecret:    os.Getenv("JWT_SECRET"),        // JWT secret key
		RedisAddr:    os.Getenv("REDIS_ADDR"),        // Redis server address
		RedisPass:    os.Getenv("REDIS_PASS"),        // Redis password
		RedisDB:      redisDB,                        // Redis database number
		RateAPIURL:   os.Getenv("RATE_API_URL"),      // Live price API endpoint
		RateCacheTTL: rateTTL,                        // Price cache lifetime
		IsProd:       os.Getenv("IS_PROD") == "true", // Is production environment
	}
}
