package main

import (
	"context" // context package is needed for Redis operations
	"log"     // log package is needed for logging

	"fxwallet/internal/api"        // Custom package for API handlers
	"fxwallet/internal/config"     // Custom package for configuration
	"fxwallet/internal/domain"     // Transaction type constants
	"fxwallet/internal/engine"     // Deposit/transfer orchestration
	"fxwallet/internal/ledger"     // Balance and transaction storage
	"fxwallet/internal/middleware" // Custom package for middleware
	"fxwallet/internal/rates"      // Conversion rate providers

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
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
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

	// Static rate table, always available as the fallback
	static, err := rates.NewStaticProvider(nil)
	if err != nil {
		logrus.Fatalf("failed to load static rate table: %v", err)
	}
	// Use the live price source when configured, the static table otherwise
	var provider rates.Provider = static
	if cfg.RateAPIURL != "" {
		provider = rates.NewLiveProvider(cfg.RateAPIURL, &rates.RedisCache{Client: redisClient}, cfg.RateCacheTTL, static)
	}

	// Wire the ledger store and the engine explicitly; nothing is ambient
	store := ledger.NewStore(db)
	eng := engine.NewEngine(db, store, provider)

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
	r.POST("/user", api.RegisterHandler(db))            // Registration endpoint
	r.GET("/user", api.LoginHandler(db, cfg.JWTSecret)) // Login endpoint

	// Wallet routes (protected by JWT)
	walletGroup := r.Group("/wallet")
	walletGroup.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret))
	walletGroup.GET("/balances", api.GetBalancesHandler(eng, redisClient))                             // Balance endpoint
	walletGroup.POST("/deposit", api.DepositHandler(eng, redisClient))                                 // Deposit endpoint
	walletGroup.POST("/transfer", api.TransferHandler(eng, redisClient, domain.TypeTransfer))          // Transfer endpoint
	walletGroup.POST("/pay", api.TransferHandler(eng, redisClient, domain.TypePayment))                // Payment alias endpoint
	walletGroup.GET("/preview", api.PreviewHandler(eng))                                               // Conversion preview endpoint
	walletGroup.GET("/rate", api.RateHandler(eng))                                                     // Rate lookup endpoint
	walletGroup.GET("/transactions", api.GetTransactionHistoryHandler(eng, redisClient))               // Transaction history endpoint
	walletGroup.GET("/transactions/:id", api.GetTransactionHandler(eng))                               // Single transaction endpoint
	walletGroup.GET("/stats", api.GetStatsHandler(eng))                                                // Per-type counts endpoint

	// Admin routes (protected, admin only)
	adminGroup := r.Group("/admin")
	// Protect admin routes with JWT and AdminOnly middleware
	adminGroup.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret), middleware.AdminOnlyMiddleware(db))
	adminGroup.GET("/users", api.ListUsersHandler(db, redisClient))               // List users endpoint
	adminGroup.GET("/transactions", api.ListTransactionsHandler(db, redisClient)) // List transactions endpoint
	adminGroup.GET("/supply", api.SupplyHandler(store))                           // Per-currency supply endpoint

	log.Println("Server running on " + cfg.AppPort) // Log server start
	r.Run(":" + cfg.AppPort)                        // Start the server on port cfg.AppPort
}
