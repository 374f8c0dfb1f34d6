package api

import (
	"context"  // Context for Redis operations
	"net/http" // HTTP status codes
	"strconv"  // String conversion
	"time"     // Time durations

	"fxwallet/internal/engine" // Deposit/transfer orchestration
	"fxwallet/internal/utils"  // Utility functions

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
)

// cacheTTL is how long read responses stay cached
const cacheTTL = 60 * time.Second

// currentUserID extracts the authenticated user id set by the JWT middleware
func currentUserID(c *gin.Context) (uint, bool) {
	userID, exists := c.Get("userID")
	if !exists {
		// Reject requests that skipped the middleware
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return 0, false
	}
	return userID.(uint), true
}

// invalidateWalletCaches drops a user's cached balances and transaction
// history after a balance mutation (simple version: delete first 5 pages)
func invalidateWalletCaches(ctx context.Context, rdb *redis.Client, userID uint) {
	id := strconv.Itoa(int(userID))
	_ = utils.DeleteCache(ctx, rdb, "balances:user:"+id) // Invalidate balance cache
	for i := 0; i < 5; i++ {
		// Delete cache entries for the default page size
		offset := i * 20
		_ = utils.DeleteCache(ctx, rdb, "txhistory:user:"+id+":limit:20:offset:"+strconv.Itoa(offset)+":type:")
	}
}

// DepositRequest represents a deposit request
type DepositRequest struct {
	Currency string  `json:"currency" binding:"required"`    // Currency to deposit
	Amount   float64 `json:"amount" binding:"required,gt=0"` // Deposit amount in decimal units
}

// DepositHandler credits the user's balance in one currency
func DepositHandler(eng *engine.Engine, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}
		var req DepositRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			// If invalid, return bad request
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		// The engine validates, credits and records atomically
		result, err := eng.Deposit(c.Request.Context(), userID, req.Currency, req.Amount)
		if err != nil {
			writeDomainError(c, err)
			return
		}
		// Invalidate balance and history cache after the mutation
		invalidateWalletCaches(context.Background(), rdb, userID)
		// Return the record and the new balance
		c.JSON(http.StatusOK, gin.H{
			"message":     "Deposit successful",
			"transaction": result.Transaction,
			"new_balance": result.NewBalance,
		})
	}
}

// TransferRequest represents a transfer request
type TransferRequest struct {
	Recipient    string  `json:"recipient" binding:"required"`     // Recipient email or username
	FromCurrency string  `json:"from_currency" binding:"required"` // Currency debited from the sender
	ToCurrency   string  `json:"to_currency" binding:"required"`   // Currency credited to the recipient
	Amount       float64 `json:"amount" binding:"required,gt=0"`   // Amount in the sender's currency
}

// TransferHandler moves funds to another user, converting currency when the
// legs differ. txType distinguishes the transfer route from its payment alias.
func TransferHandler(eng *engine.Engine, rdb *redis.Client, txType string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}
		var req TransferRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			// If invalid, return bad request
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		// The engine resolves the recipient, converts and settles atomically
		result, err := eng.Transfer(c.Request.Context(), userID, req.Recipient, req.FromCurrency, req.ToCurrency, req.Amount, txType)
		if err != nil {
			writeDomainError(c, err)
			return
		}
		// Invalidate caches for both sides of the transfer
		ctx := context.Background()
		invalidateWalletCaches(ctx, rdb, userID)
		invalidateWalletCaches(ctx, rdb, result.Transaction.ReceiverID)
		// Return the record, the sender's new balance and what arrived
		c.JSON(http.StatusOK, gin.H{
			"message":            "Transfer successful",
			"transaction":        result.Transaction,
			"sender_balance":     result.SenderBalance,
			"recipient_username": result.RecipientUsername,
			"recipient_received": result.RecipientReceived,
			"received_formatted": result.ReceivedFormatted,
		})
	}
}

// GetBalancesHandler returns every balance the user holds
func GetBalancesHandler(eng *engine.Engine, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}
		ctx := context.Background()                                    // Context for Redis operations
		cacheKey := "balances:user:" + strconv.Itoa(int(userID))       // Cache key for balances
		var cached []engine.BalanceInfo                                // Balance list to hold data
		if found, err := utils.GetCache(ctx, rdb, cacheKey, &cached); err == nil && found {
			// Return cached balances
			c.JSON(http.StatusOK, gin.H{"balances": cached, "cached": true})
			return
		}
		balances, err := eng.GetAllBalances(userID)
		if err != nil {
			writeDomainError(c, err)
			return
		}
		_ = utils.SetCache(ctx, rdb, cacheKey, balances, cacheTTL)          // Cache the balances
		c.JSON(http.StatusOK, gin.H{"balances": balances, "cached": false}) // Return balance info
	}
}

// PreviewHandler quotes a conversion without touching any balance
func PreviewHandler(eng *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		amount, err := strconv.ParseFloat(c.Query("amount"), 64)
		if err != nil {
			// Malformed amount, return bad request
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid amount"})
			return
		}
		preview, perr := eng.PreviewConversion(c.Request.Context(), c.Query("from"), c.Query("to"), amount)
		if perr != nil {
			writeDomainError(c, perr)
			return
		}
		c.JSON(http.StatusOK, preview) // Return the quote
	}
}

// RateHandler returns the current conversion rate for a pair
func RateHandler(eng *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		rate, err := eng.GetRate(c.Request.Context(), c.Query("from"), c.Query("to"))
		if err != nil {
			writeDomainError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"from": c.Query("from"),
			"to":   c.Query("to"),
			"rate": rate,
		})
	}
}

// GetTransactionHistoryHandler returns a page of the user's transactions
func GetTransactionHistoryHandler(eng *engine.Engine, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}
		limit := 20 // Default page size
		offset := 0 // Default offset
		// If limit exists in query
		if l := c.Query("limit"); l != "" {
			// Convert limit to integer
			if v, err := strconv.Atoi(l); err == nil && v > 0 && v <= 100 {
				limit = v // Set limit if valid
			}
		}
		// If offset exists in query
		if o := c.Query("offset"); o != "" {
			// Convert offset to integer
			if v, err := strconv.Atoi(o); err == nil && v >= 0 {
				offset = v // Set offset if valid
			}
		}
		txType := c.Query("type") // Optional type filter
		// Redis cache key
		cacheKey := "txhistory:user:" + strconv.Itoa(int(userID)) +
			":limit:" + strconv.Itoa(limit) + ":offset:" + strconv.Itoa(offset) + ":type:" + txType
		ctx := context.Background() // Context for Redis operations
		var cached engine.HistoryResult
		// Try to get from cache
		if found, err := utils.GetCache(ctx, rdb, cacheKey, &cached); err == nil && found {
			c.JSON(http.StatusOK, gin.H{
				"transactions": cached.Transactions, // Cached transactions
				"pagination":   cached.Pagination,   // Page bookkeeping
				"cached":       true,
			})
			return
		}
		result, err := eng.GetHistory(userID, limit, offset, txType)
		if err != nil {
			writeDomainError(c, err)
			return
		}
		// Cache the result
		_ = utils.SetCache(ctx, rdb, cacheKey, result, cacheTTL)
		c.JSON(http.StatusOK, gin.H{
			"transactions": result.Transactions, // List of transactions
			"pagination":   result.Pagination,   // Page bookkeeping
			"cached":       false,
		})
	}
}

// GetTransactionHandler returns one transaction the user took part in
func GetTransactionHandler(eng *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil || id <= 0 {
			// Malformed id, return bad request
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid transaction id"})
			return
		}
		t, terr := eng.GetTransaction(uint(id), userID)
		if terr != nil {
			writeDomainError(c, terr)
			return
		}
		c.JSON(http.StatusOK, gin.H{"transaction": t})
	}
}

// GetStatsHandler returns the user's transaction counts by type
func GetStatsHandler(eng *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}
		stats, err := eng.GetStats(userID)
		if err != nil {
			writeDomainError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"stats": stats})
	}
}
