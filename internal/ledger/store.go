package ledger

import (
	"errors" // gorm.ErrRecordNotFound matching

	"gorm.io/gorm" // ORM and atomic units

	"fxwallet/internal/currency" // Supported currencies and BaseUnits
	"fxwallet/internal/domain"   // Models and error taxonomy
)

// Store owns Balance and Transaction persistence. No other component writes
// those tables; balances change only through Credit and Debit, and
// transaction rows are insert-only. A Store wraps one *gorm.DB handle, which
// may itself be an open transaction (see Atomic), so every method composes
// inside a single all-or-nothing unit of work.
type Store struct {
	db *gorm.DB // Database handle or open transaction
}

// NewStore creates a Store around a database handle
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Atomic runs fn inside one database transaction. Every store call made
// through the Store passed to fn commits or rolls back together; any error
// from fn forces a full rollback.
func (s *Store) Atomic(fn func(tx *Store) error) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

// InitializeBalances creates a zero balance row for every supported currency
// for a new user. It is intentionally not idempotent: a second call for the
// same user fails with ConflictError. Callers invoke it exactly once, at
// registration.
func (s *Store) InitializeBalances(userID uint) error {
	return s.Atomic(func(tx *Store) error {
		var existing int64
		if err := tx.db.Model(&domain.Balance{}).Where("user_id = ?", userID).Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return &domain.ConflictError{Message: "balances already initialized for user"}
		}
		for _, code := range currency.Codes() {
			row := domain.Balance{UserID: userID, Currency: code, Amount: currency.NewBaseUnits(0)}
			if err := tx.db.Create(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// GetBalance returns the balance row for a (user, currency) pair
func (s *Store) GetBalance(userID uint, code string) (*domain.Balance, error) {
	var balance domain.Balance
	if err := s.db.Where("user_id = ? AND currency = ?", userID, code).First(&balance).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &domain.NotFoundError{Resource: "balance"}
		}
		return nil, err
	}
	return &balance, nil
}

// GetAllBalances returns the user's balance rows in currency display order
func (s *Store) GetAllBalances(userID uint) ([]domain.Balance, error) {
	var rows []domain.Balance
	if err := s.db.Where("user_id = ?", userID).Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &domain.NotFoundError{Resource: "balance"}
	}
	byCode := make(map[string]domain.Balance, len(rows))
	for _, row := range rows {
		byCode[row.Currency] = row
	}
	ordered := make([]domain.Balance, 0, len(rows))
	for _, code := range currency.Codes() {
		if row, ok := byCode[code]; ok {
			ordered = append(ordered, row)
		}
	}
	return ordered, nil
}

// Credit atomically adds a positive amount to a balance and returns the new
// balance. Credits are unconditional: they cannot overdraw, so a single
// UPDATE suffices. The CAST keeps the arithmetic in exact decimal — binding
// the amount as a bare string would coerce the expression to a float.
func (s *Store) Credit(userID uint, code string, amount currency.BaseUnits) (currency.BaseUnits, error) {
	if !amount.IsPositive() {
		return currency.BaseUnits{}, domain.NewValidationError("credit amount must be positive")
	}
	res := s.db.Model(&domain.Balance{}).
		Where("user_id = ? AND currency = ?", userID, code).
		Update("amount", gorm.Expr("amount + CAST(? AS DECIMAL(65,0))", amount))
	if res.Error != nil {
		return currency.BaseUnits{}, res.Error
	}
	if res.RowsAffected == 0 {
		return currency.BaseUnits{}, &domain.NotFoundError{Resource: "balance"}
	}
	balance, err := s.GetBalance(userID, code)
	if err != nil {
		return currency.BaseUnits{}, err
	}
	return balance.Amount, nil
}

// Debit atomically subtracts a positive amount from a balance, but only when
// the balance covers it. The check and the subtraction are one conditional
// UPDATE guarded by amount >= ?, which is the sole concurrency-control point
// preventing overdraft: two concurrent debits that jointly overdraw can never
// both pass the guard. On rejection the row is re-read to tell a missing
// balance from an insufficient one.
func (s *Store) Debit(userID uint, code string, amount currency.BaseUnits) (currency.BaseUnits, error) {
	if !amount.IsPositive() {
		return currency.BaseUnits{}, domain.NewValidationError("debit amount must be positive")
	}
	res := s.db.Model(&domain.Balance{}).
		Where("user_id = ? AND currency = ? AND amount >= CAST(? AS DECIMAL(65,0))", userID, code, amount).
		Update("amount", gorm.Expr("amount - CAST(? AS DECIMAL(65,0))", amount))
	if res.Error != nil {
		return currency.BaseUnits{}, res.Error
	}
	if res.RowsAffected == 0 {
		balance, err := s.GetBalance(userID, code)
		if err != nil {
			return currency.BaseUnits{}, err // NotFoundError when the row is missing
		}
		return currency.BaseUnits{}, &domain.InsufficientBalanceError{
			Currency:  code,
			Required:  amount,
			Available: balance.Amount,
		}
	}
	balance, err := s.GetBalance(userID, code)
	if err != nil {
		return currency.BaseUnits{}, err
	}
	return balance.Amount, nil
}

// CreateTransaction inserts the immutable ledger record and returns it with
// its generated id and timestamp. Rows written here are never updated or
// deleted: they are the permanent audit trail justifying balance mutations.
func (s *Store) CreateTransaction(t *domain.Transaction) (*domain.Transaction, error) {
	if !t.FromAmount.IsPositive() || !t.ToAmount.IsPositive() {
		return nil, domain.NewValidationError("transaction amounts must be positive")
	}
	if err := s.db.Create(t).Error; err != nil {
		return nil, err
	}
	return t, nil
}
