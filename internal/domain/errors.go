package domain

import (
	"fmt" // Error message formatting

	"fxwallet/internal/currency" // BaseUnits amounts carried by balance errors
)

// Domain error taxonomy. Every ledger and engine operation fails with one of
// these types; the HTTP layer matches them with errors.As to pick a status
// code. None of them wrap infrastructure errors — a failed atomic unit
// surfaces the storage error as-is so nothing masks a rollback.

// ValidationError reports malformed or out-of-range input
type ValidationError struct {
	Message string // Human-readable reason
}

func (e *ValidationError) Error() string { return e.Message }

// NewValidationError builds a ValidationError from a format string
func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// NotFoundError reports an absent user, balance row or transaction
type NotFoundError struct {
	Resource string // What was looked up: "user", "balance", "transaction"
}

func (e *NotFoundError) Error() string { return e.Resource + " not found" }

// ConflictError reports a duplicate creation attempt, e.g. initializing
// balances twice for the same user
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

// InsufficientBalanceError reports a debit that exceeds the available
// balance. It carries the amounts so callers can render a balance-specific
// message instead of a generic validation failure.
type InsufficientBalanceError struct {
	Currency  string             // Currency of the debited balance
	Required  currency.BaseUnits // Amount the debit needed
	Available currency.BaseUnits // Amount actually held
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient %s balance: required %s, available %s",
		e.Currency, e.Required.String(), e.Available.String())
}

// BusinessRuleError reports a well-formed request the rules forbid, such as
// a self-transfer or reading someone else's transaction
type BusinessRuleError struct {
	Message string
}

func (e *BusinessRuleError) Error() string { return e.Message }

// UnsupportedPairError reports a currency pair no rate is available for,
// after the fallback table has been consulted
type UnsupportedPairError struct {
	From string // Source currency code
	To   string // Target currency code
}

func (e *UnsupportedPairError) Error() string {
	return fmt.Sprintf("no conversion rate for %s/%s", e.From, e.To)
}
