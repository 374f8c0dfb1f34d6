package domain

import "fxwallet/internal/currency" // BaseUnits amount type

// Balance Model: one row per (user, currency), amount in base units.
// Rows are created at registration, mutated only through the ledger store's
// Credit/Debit, and never deleted.
type Balance struct {
	ID       uint               `gorm:"primaryKey"`                                    // Primary key
	UserID   uint               `gorm:"not null;uniqueIndex:idx_user_currency"`        // Foreign key to User
	Currency string             `gorm:"size:8;not null;uniqueIndex:idx_user_currency"` // Currency code
	Amount   currency.BaseUnits `gorm:"not null"`                                      // Balance in the currency's smallest unit
}
