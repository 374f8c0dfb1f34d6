package engine

import (
	"context" // Rate fetches carry the request context
	"errors"  // gorm.ErrRecordNotFound matching
	"strings" // Case-insensitive recipient resolution
	"time"    // Log timestamps

	"github.com/shopspring/decimal" // Conversion arithmetic
	"github.com/sirupsen/logrus"    // Structured logs around every mutation
	"gorm.io/gorm"                  // User lookups

	"fxwallet/internal/currency" // Unit conversion and validation
	"fxwallet/internal/domain"   // Models and error taxonomy
	"fxwallet/internal/ledger"   // Balance and transaction storage
	"fxwallet/internal/rates"    // Conversion rates
)

// Engine orchestrates deposits, transfers and conversion previews. It owns
// no storage itself: balances and transactions go through the ledger store,
// rates through the provider, and every multi-row mutation runs inside one
// store.Atomic unit so a failure at any step leaves the ledger untouched.
// Instances are constructed explicitly and injected, never ambient.
type Engine struct {
	db       *gorm.DB       // User lookups only; balances are never touched directly
	store    *ledger.Store  // Balance and transaction operations
	provider rates.Provider // Conversion rates with fallback
}

// NewEngine wires an engine from its collaborators
func NewEngine(db *gorm.DB, store *ledger.Store, provider rates.Provider) *Engine {
	return &Engine{db: db, store: store, provider: provider}
}

// BalanceInfo is one currency balance shaped for a response payload
type BalanceInfo struct {
	Currency  string             `json:"currency"`   // Currency code
	Amount    decimal.Decimal    `json:"amount"`     // Decimal amount at storage precision
	Formatted string             `json:"formatted"`  // Display string with symbol
	BaseUnits currency.BaseUnits `json:"base_units"` // Exact integer amount, as a string
}

// DepositResult is returned by a successful deposit
type DepositResult struct {
	Transaction *domain.Transaction `json:"transaction"` // The immutable record written
	NewBalance  BalanceInfo         `json:"new_balance"` // Balance after the credit
}

// TransferResult is returned by a successful transfer
type TransferResult struct {
	Transaction       *domain.Transaction `json:"transaction"`        // The immutable record written
	SenderBalance     BalanceInfo         `json:"sender_balance"`     // Sender's balance after the debit
	RecipientUsername string              `json:"recipient_username"` // Who received the funds
	RecipientReceived decimal.Decimal     `json:"recipient_received"` // Credited amount, post-quantization
	ReceivedFormatted string              `json:"received_formatted"` // Credited amount with symbol
}

// Preview is a conversion quote with no side effects
type Preview struct {
	FromCurrency    string          `json:"from_currency"`    // Source currency
	ToCurrency      string          `json:"to_currency"`      // Target currency
	Amount          decimal.Decimal `json:"amount"`           // Source amount
	ToAmount        decimal.Decimal `json:"to_amount"`        // Converted amount, unquantized
	Rate            decimal.Decimal `json:"rate"`             // Forward rate used
	InverseRate     decimal.Decimal `json:"inverse_rate"`     // 1/rate, display only
	FormattedAmount string          `json:"formatted_amount"` // Source amount with symbol
	FormattedResult string          `json:"formatted_result"` // Converted amount with symbol
}

// ShapeBalance shapes a base-unit balance for a response payload
func ShapeBalance(code string, amount currency.BaseUnits) BalanceInfo {
	cur, _ := currency.Get(code)
	dec := currency.FromBaseUnits(amount, cur)
	return BalanceInfo{
		Currency:  cur.Code,
		Amount:    dec,
		Formatted: currency.FormatAmount(dec, cur, true),
		BaseUnits: amount,
	}
}

// userByID verifies a user exists
func (e *Engine) userByID(id uint) (*domain.User, error) {
	var user domain.User
	if err := e.db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &domain.NotFoundError{Resource: "user"}
		}
		return nil, err
	}
	return &user, nil
}

// resolveRecipient finds a user by email or username, case-insensitive
func (e *Engine) resolveRecipient(identifier string) (*domain.User, error) {
	ident := strings.ToLower(strings.TrimSpace(identifier))
	if ident == "" {
		return nil, domain.NewValidationError("recipient is required")
	}
	var user domain.User
	if err := e.db.Where("LOWER(username) = ? OR LOWER(email) = ?", ident, ident).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &domain.NotFoundError{Resource: "user"}
		}
		return nil, err
	}
	return &user, nil
}

// Deposit credits a user's balance and writes the deposit record as one
// atomic unit. A deposit is the degenerate transfer: sender equals receiver,
// both legs share the currency, and the rate is exactly 1.
func (e *Engine) Deposit(ctx context.Context, userID uint, code string, amount float64) (*DepositResult, error) {
	cur, ok := currency.Get(code)
	if !ok {
		return nil, domain.NewValidationError("unsupported currency %q", code)
	}
	if !currency.IsValidAmount(amount) {
		return nil, domain.NewValidationError("amount must be a positive number")
	}
	if _, err := e.userByID(userID); err != nil {
		return nil, err
	}
	base := currency.ToBaseUnits(decimal.NewFromFloat(amount), cur)
	if !base.IsPositive() {
		return nil, domain.NewValidationError("amount is below the smallest %s unit", cur.Code)
	}

	var newBalance currency.BaseUnits
	var record *domain.Transaction
	err := e.store.Atomic(func(tx *ledger.Store) error {
		var err error
		if newBalance, err = tx.Credit(userID, cur.Code, base); err != nil {
			return err
		}
		record, err = tx.CreateTransaction(&domain.Transaction{
			SenderID:     userID,
			ReceiverID:   userID,
			FromCurrency: cur.Code,
			ToCurrency:   cur.Code,
			FromAmount:   base,
			ToAmount:     base,
			Rate:         decimal.New(1, 0),
			Status:       domain.StatusCompleted,
			Type:         domain.TypeDeposit,
		})
		return err
	})
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"user_id":  userID,
			"currency": cur.Code,
			"amount":   base.String(),
			"error":    err.Error(),
		}).Error("Deposit failed")
		return nil, err
	}
	logrus.WithFields(logrus.Fields{
		"user_id":   userID,
		"currency":  cur.Code,
		"amount":    base.String(),
		"type":      domain.TypeDeposit,
		"timestamp": time.Now().Format(time.RFC3339),
	}).Info("Deposit transaction")
	return &DepositResult{
		Transaction: record,
		NewBalance:  ShapeBalance(cur.Code, newBalance),
	}, nil
}

// Transfer moves funds from a sender to a recipient, converting between
// currencies when they differ. Inside the atomic unit the debit runs first,
// then the credit, then the record insert: a rejected debit aborts the whole
// transfer before any credit exists, and any later failure rolls everything
// back. txType is transfer or its payment alias.
func (e *Engine) Transfer(ctx context.Context, senderID uint, recipientIdentifier, fromCode, toCode string, amount float64, txType string) (*TransferResult, error) {
	if txType == "" {
		txType = domain.TypeTransfer
	}
	if txType != domain.TypeTransfer && txType != domain.TypePayment {
		return nil, domain.NewValidationError("invalid transaction type %q", txType)
	}
	fromCur, ok := currency.Get(fromCode)
	if !ok {
		return nil, domain.NewValidationError("unsupported currency %q", fromCode)
	}
	toCur, ok := currency.Get(toCode)
	if !ok {
		return nil, domain.NewValidationError("unsupported currency %q", toCode)
	}
	if !currency.IsValidAmount(amount) {
		return nil, domain.NewValidationError("amount must be a positive number")
	}
	if _, err := e.userByID(senderID); err != nil {
		return nil, err
	}
	recipient, err := e.resolveRecipient(recipientIdentifier)
	if err != nil {
		return nil, err
	}
	if recipient.ID == senderID {
		return nil, &domain.BusinessRuleError{Message: "cannot transfer to yourself"}
	}

	// Rate lookup happens before the atomic unit; the provider's fallback
	// guarantees it never blocks on a slow price source
	rate, err := e.provider.GetRate(ctx, fromCur.Code, toCur.Code)
	if err != nil {
		return nil, err
	}

	// Each leg is quantized exactly once, here
	dec := decimal.NewFromFloat(amount)
	fromBase := currency.ToBaseUnits(dec, fromCur)
	toBase := currency.ToBaseUnits(dec.Mul(rate), toCur)
	if !fromBase.IsPositive() || !toBase.IsPositive() {
		return nil, domain.NewValidationError("amount is below the smallest transferable unit")
	}

	var senderBalance currency.BaseUnits
	var record *domain.Transaction
	err = e.store.Atomic(func(tx *ledger.Store) error {
		var err error
		// Debit first: a failed debit must never leave an orphaned credit
		if senderBalance, err = tx.Debit(senderID, fromCur.Code, fromBase); err != nil {
			return err
		}
		if _, err = tx.Credit(recipient.ID, toCur.Code, toBase); err != nil {
			return err
		}
		record, err = tx.CreateTransaction(&domain.Transaction{
			SenderID:     senderID,
			ReceiverID:   recipient.ID,
			FromCurrency: fromCur.Code,
			ToCurrency:   toCur.Code,
			FromAmount:   fromBase,
			ToAmount:     toBase,
			Rate:         rate,
			Status:       domain.StatusCompleted,
			Type:         txType,
		})
		return err
	})
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"sender_id":   senderID,
			"receiver_id": recipient.ID,
			"from":        fromCur.Code,
			"to":          toCur.Code,
			"from_amount": fromBase.String(),
			"to_amount":   toBase.String(),
			"error":       err.Error(),
		}).Error("Transfer failed")
		return nil, err
	}
	logrus.WithFields(logrus.Fields{
		"sender_id":   senderID,
		"receiver_id": recipient.ID,
		"from":        fromCur.Code,
		"to":          toCur.Code,
		"from_amount": fromBase.String(),
		"to_amount":   toBase.String(),
		"rate":        rate.String(),
		"type":        txType,
		"timestamp":   time.Now().Format(time.RFC3339),
	}).Info("Transfer transaction")

	received := currency.FromBaseUnits(toBase, toCur)
	return &TransferResult{
		Transaction:       record,
		SenderBalance:     ShapeBalance(fromCur.Code, senderBalance),
		RecipientUsername: recipient.Username,
		RecipientReceived: received,
		ReceivedFormatted: currency.FormatAmount(received, toCur, true),
	}, nil
}

// PreviewConversion quotes a conversion without touching the ledger. The
// result stays in decimal arithmetic; quantization only ever happens inside
// Transfer.
func (e *Engine) PreviewConversion(ctx context.Context, fromCode, toCode string, amount float64) (*Preview, error) {
	fromCur, ok := currency.Get(fromCode)
	if !ok {
		return nil, domain.NewValidationError("unsupported currency %q", fromCode)
	}
	toCur, ok := currency.Get(toCode)
	if !ok {
		return nil, domain.NewValidationError("unsupported currency %q", toCode)
	}
	if !currency.IsValidAmount(amount) {
		return nil, domain.NewValidationError("amount must be a positive number")
	}
	rate, err := e.provider.GetRate(ctx, fromCur.Code, toCur.Code)
	if err != nil {
		return nil, err
	}
	dec := decimal.NewFromFloat(amount)
	toAmount := dec.Mul(rate)
	return &Preview{
		FromCurrency:    fromCur.Code,
		ToCurrency:      toCur.Code,
		Amount:          dec,
		ToAmount:        toAmount,
		Rate:            rate,
		InverseRate:     rates.Inverse(rate),
		FormattedAmount: currency.FormatAmount(dec, fromCur, true),
		FormattedResult: currency.FormatAmount(toAmount, toCur, true),
	}, nil
}

// GetRate validates the pair and returns the current conversion rate
func (e *Engine) GetRate(ctx context.Context, fromCode, toCode string) (decimal.Decimal, error) {
	if !currency.IsSupported(fromCode) {
		return decimal.Zero, domain.NewValidationError("unsupported currency %q", fromCode)
	}
	if !currency.IsSupported(toCode) {
		return decimal.Zero, domain.NewValidationError("unsupported currency %q", toCode)
	}
	return e.provider.GetRate(ctx, fromCode, toCode)
}

// GetAllBalances returns every balance the user holds, one entry per
// supported currency, in display order
func (e *Engine) GetAllBalances(userID uint) ([]BalanceInfo, error) {
	rows, err := e.store.GetAllBalances(userID)
	if err != nil {
		return nil, err
	}
	out := make([]BalanceInfo, len(rows))
	for i, row := range rows {
		out[i] = ShapeBalance(row.Currency, row.Amount)
	}
	return out, nil
}
