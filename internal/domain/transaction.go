package domain

import (
	"time" // Creation timestamps

	"github.com/shopspring/decimal" // Exact rate storage

	"fxwallet/internal/currency" // BaseUnits amount type
)

// Transaction types
const (
	TypeDeposit  = "deposit"  // Self-credit, same currency both legs
	TypeTransfer = "transfer" // Between two users, optional conversion
	TypePayment  = "payment"  // Alias of transfer, counted separately in stats
)

// Transaction statuses
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Transaction Model: the immutable ledger entry. One row is written as the
// terminal step of every successful deposit or transfer; rows are never
// updated or deleted. Amounts are in each currency's base units and the
// conversion rate is stored as an exact decimal, never a binary float.
type Transaction struct {
	ID           uint               `gorm:"primaryKey"`          // Primary key, monotonically increasing
	SenderID     uint               `gorm:"not null;index"`      // User the funds left (equals ReceiverID for deposits)
	ReceiverID   uint               `gorm:"not null;index"`      // User the funds arrived at
	FromCurrency string             `gorm:"size:8;not null"`     // Currency debited from the sender
	ToCurrency   string             `gorm:"size:8;not null"`     // Currency credited to the receiver
	FromAmount   currency.BaseUnits `gorm:"not null"`            // Debited amount in FromCurrency base units
	ToAmount     currency.BaseUnits `gorm:"not null"`            // Credited amount in ToCurrency base units
	Rate         decimal.Decimal    `gorm:"type:decimal(36,18)"` // Conversion rate used (1 for deposits)
	Status       string             `gorm:"size:16;not null"`    // pending, completed or failed
	Type         string             `gorm:"size:16;not null"`    // deposit, transfer or payment
	CreatedAt    time.Time          `gorm:"autoCreateTime"`      // Timestamp of creation
}
