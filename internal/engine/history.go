package engine

import (
	"fxwallet/internal/domain" // Models and error taxonomy
	"fxwallet/internal/ledger" // Transaction queries
)

// History pagination bounds
const (
	defaultHistoryLimit = 20  // Page size when the caller gives none
	maxHistoryLimit     = 100 // Hard cap on page size
)

// Pagination describes a history page
type Pagination struct {
	Limit   int   `json:"limit"`    // Page size used
	Offset  int   `json:"offset"`   // Rows skipped
	Total   int64 `json:"total"`    // Total matching rows
	HasMore bool  `json:"has_more"` // Whether rows remain past this page
}

// HistoryResult is one page of a user's transaction history
type HistoryResult struct {
	Transactions []domain.Transaction `json:"transactions"` // Newest first
	Pagination   Pagination           `json:"pagination"`   // Page bookkeeping
}

// Stats counts a user's transactions by type, zero-defaulted
type Stats struct {
	Deposit  int64 `json:"deposit"`
	Transfer int64 `json:"transfer"`
	Payment  int64 `json:"payment"`
}

// GetHistory returns transactions where the user is sender or receiver,
// newest first, optionally filtered by type
func (e *Engine) GetHistory(userID uint, limit, offset int, txType string) (*HistoryResult, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	if offset < 0 {
		offset = 0
	}
	switch txType {
	case "", domain.TypeDeposit, domain.TypeTransfer, domain.TypePayment:
	default:
		return nil, domain.NewValidationError("invalid transaction type %q", txType)
	}
	txs, total, err := e.store.ListByUser(userID, ledger.HistoryFilter{
		Limit:  limit,
		Offset: offset,
		Type:   txType,
	})
	if err != nil {
		return nil, err
	}
	return &HistoryResult{
		Transactions: txs,
		Pagination: Pagination{
			Limit:   limit,
			Offset:  offset,
			Total:   total,
			HasMore: int64(offset+len(txs)) < total,
		},
	}, nil
}

// GetTransaction fetches one transaction the user took part in. A row that
// exists but names a different sender and receiver is a rule violation, not
// a missing record: callers learn the id is real but off limits.
func (e *Engine) GetTransaction(id, userID uint) (*domain.Transaction, error) {
	t, err := e.store.GetTransaction(id)
	if err != nil {
		return nil, err
	}
	if t.SenderID != userID && t.ReceiverID != userID {
		return nil, &domain.BusinessRuleError{Message: "no access to this transaction"}
	}
	return t, nil
}

// GetStats returns per-type transaction counts for the user, with zero for
// types that have no rows
func (e *Engine) GetStats(userID uint) (*Stats, error) {
	counts, err := e.store.CountsByType(userID)
	if err != nil {
		return nil, err
	}
	return &Stats{
		Deposit:  counts[domain.TypeDeposit],
		Transfer: counts[domain.TypeTransfer],
		Payment:  counts[domain.TypePayment],
	}, nil
}
