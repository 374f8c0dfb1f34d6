package currency

import (
	"database/sql/driver" // Valuer interface for GORM persistence
	"fmt"                 // Error formatting
	"math/big"            // Arbitrary-precision integers (wei needs more than int64)
)

// BaseUnits is an exact integer amount in a currency's smallest unit (cents,
// satoshi, wei). It is arbitrary precision: ETH balances in wei overflow
// int64 above ~9.2 ETH. BaseUnits is the only representation balances and
// transaction amounts are stored or computed in; decimal display amounts are
// produced from it but never written back without re-quantization.
type BaseUnits struct {
	v big.Int
}

// NewBaseUnits returns a BaseUnits holding n
func NewBaseUnits(n int64) BaseUnits {
	var b BaseUnits
	b.v.SetInt64(n)
	return b
}

// ParseBaseUnits parses a base-10 integer string into BaseUnits
func ParseBaseUnits(s string) (BaseUnits, error) {
	var b BaseUnits
	if _, ok := b.v.SetString(s, 10); !ok {
		return BaseUnits{}, fmt.Errorf("invalid base unit amount %q", s)
	}
	return b, nil
}

// BaseUnitsFromBig copies a big.Int into BaseUnits
func BaseUnitsFromBig(n *big.Int) BaseUnits {
	var b BaseUnits
	b.v.Set(n)
	return b
}

// Add returns b + other
func (b BaseUnits) Add(other BaseUnits) BaseUnits {
	var out BaseUnits
	out.v.Add(&b.v, &other.v)
	return out
}

// Sub returns b - other
func (b BaseUnits) Sub(other BaseUnits) BaseUnits {
	var out BaseUnits
	out.v.Sub(&b.v, &other.v)
	return out
}

// Cmp compares b to other: -1 if less, 0 if equal, +1 if greater
func (b BaseUnits) Cmp(other BaseUnits) int {
	return b.v.Cmp(&other.v)
}

// IsPositive reports whether b > 0
func (b BaseUnits) IsPositive() bool {
	return b.v.Sign() > 0
}

// Sign returns -1, 0 or +1 for negative, zero or positive amounts
func (b BaseUnits) Sign() int {
	return b.v.Sign()
}

// BigInt returns a copy of the underlying integer
func (b BaseUnits) BigInt() *big.Int {
	return new(big.Int).Set(&b.v)
}

// String returns the base-10 representation
func (b BaseUnits) String() string {
	return b.v.String()
}

// Value implements driver.Valuer; amounts are stored as exact decimal strings
func (b BaseUnits) Value() (driver.Value, error) {
	return b.v.String(), nil
}

// Scan implements sql.Scanner for the DECIMAL(65,0) column type
func (b *BaseUnits) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		b.v.SetInt64(0)
		return nil
	case int64:
		b.v.SetInt64(v)
		return nil
	case []byte:
		return b.setString(string(v))
	case string:
		return b.setString(v)
	default:
		return fmt.Errorf("cannot scan %T into BaseUnits", src)
	}
}

// setString parses a base-10 integer, the only wire form we accept
func (b *BaseUnits) setString(s string) error {
	if _, ok := b.v.SetString(s, 10); !ok {
		return fmt.Errorf("invalid base unit amount %q", s)
	}
	return nil
}

// GormDataType tells GORM the column type for BaseUnits fields.
// DECIMAL(65,0) is MySQL's widest exact integer, enough for any wei balance.
func (BaseUnits) GormDataType() string {
	return "decimal(65,0)"
}

// MarshalJSON renders base units as a JSON string: 10^18-scale values do not
// survive a round trip through a JSON number
func (b BaseUnits) MarshalJSON() ([]byte, error) {
	return []byte(`"` + b.v.String() + `"`), nil
}

// UnmarshalJSON accepts both quoted and bare integer forms
func (b *BaseUnits) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	return b.setString(s)
}
