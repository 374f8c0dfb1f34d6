package api

import (
	"errors"   // errors.As matching
	"net/http" // HTTP status codes

	"github.com/gin-gonic/gin" // Gin web framework

	"fxwallet/internal/currency" // Display of carried amounts
	"fxwallet/internal/domain"   // Error taxonomy
)

// writeDomainError maps a domain error onto an HTTP response. This is the
// only place status codes are chosen; handlers never inspect error text.
func writeDomainError(c *gin.Context, err error) {
	var (
		validation   *domain.ValidationError
		notFound     *domain.NotFoundError
		conflict     *domain.ConflictError
		insufficient *domain.InsufficientBalanceError
		rule         *domain.BusinessRuleError
		pair         *domain.UnsupportedPairError
	)
	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"error": validation.Message})
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, gin.H{"error": notFound.Error()})
	case errors.As(err, &conflict):
		c.JSON(http.StatusConflict, gin.H{"error": conflict.Message})
	case errors.As(err, &insufficient):
		// The carried amounts let clients render a balance-specific message
		cur, _ := currency.Get(insufficient.Currency)
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":     "Insufficient balance",
			"currency":  insufficient.Currency,
			"required":  insufficient.Required.String(),
			"available": insufficient.Available.String(),
			"formatted": currency.FormatAmount(currency.FromBaseUnits(insufficient.Available, cur), cur, true),
		})
	case errors.As(err, &rule):
		c.JSON(http.StatusForbidden, gin.H{"error": rule.Message})
	case errors.As(err, &pair):
		c.JSON(http.StatusBadRequest, gin.H{"error": pair.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
