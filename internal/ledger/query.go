package ledger

import (
	"errors" // gorm.ErrRecordNotFound matching

	"gorm.io/gorm" // Query building

	"fxwallet/internal/currency" // BaseUnits totals
	"fxwallet/internal/domain"   // Models and error taxonomy
)

// HistoryFilter narrows a per-user transaction listing
type HistoryFilter struct {
	Limit  int    // Page size, defaulted by the caller
	Offset int    // Rows to skip
	Type   string // Optional type filter: deposit, transfer, payment
	Status string // Optional status filter
}

// GetTransaction fetches one transaction by id
func (s *Store) GetTransaction(id uint) (*domain.Transaction, error) {
	var t domain.Transaction
	if err := s.db.First(&t, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &domain.NotFoundError{Resource: "transaction"}
		}
		return nil, err
	}
	return &t, nil
}

// ListByUser returns transactions where the user is sender or receiver,
// newest first, with the total row count for pagination
func (s *Store) ListByUser(userID uint, f HistoryFilter) ([]domain.Transaction, int64, error) {
	query := s.db.Model(&domain.Transaction{}).Where("sender_id = ? OR receiver_id = ?", userID, userID)
	if f.Type != "" {
		query = query.Where("type = ?", f.Type)
	}
	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var txs []domain.Transaction
	// id breaks ties between rows created in the same instant
	if err := query.Order("created_at desc, id desc").Offset(f.Offset).Limit(f.Limit).Find(&txs).Error; err != nil {
		return nil, 0, err
	}
	return txs, total, nil
}

// ListBySender returns transactions the user sent, newest first
func (s *Store) ListBySender(senderID uint, limit, offset int) ([]domain.Transaction, error) {
	var txs []domain.Transaction
	err := s.db.Where("sender_id = ?", senderID).
		Order("created_at desc, id desc").Offset(offset).Limit(limit).Find(&txs).Error
	return txs, err
}

// ListByReceiver returns transactions the user received, newest first
func (s *Store) ListByReceiver(receiverID uint, limit, offset int) ([]domain.Transaction, error) {
	var txs []domain.Transaction
	err := s.db.Where("receiver_id = ?", receiverID).
		Order("created_at desc, id desc").Offset(offset).Limit(limit).Find(&txs).Error
	return txs, err
}

// ListBetween returns transactions between two users in either direction,
// newest first
func (s *Store) ListBetween(userA, userB uint, limit, offset int) ([]domain.Transaction, error) {
	var txs []domain.Transaction
	err := s.db.Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)",
		userA, userB, userB, userA).
		Order("created_at desc, id desc").Offset(offset).Limit(limit).Find(&txs).Error
	return txs, err
}

// CountsByType returns how many transactions of each type involve the user.
// Types with no rows are absent from the map; callers default them to zero.
func (s *Store) CountsByType(userID uint) (map[string]int64, error) {
	var rows []struct {
		Type  string
		Count int64
	}
	err := s.db.Model(&domain.Transaction{}).
		Select("type, COUNT(*) as count").
		Where("sender_id = ? OR receiver_id = ?", userID, userID).
		Group("type").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Type] = row.Count
	}
	return counts, nil
}

// TotalSupply sums a currency's balance across every user, a system metric
// for the admin surface
func (s *Store) TotalSupply(code string) (currency.BaseUnits, error) {
	if !currency.IsSupported(code) {
		return currency.BaseUnits{}, domain.NewValidationError("unsupported currency %q", code)
	}
	var total currency.BaseUnits
	row := s.db.Model(&domain.Balance{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("currency = ?", code).
		Row()
	if err := row.Scan(&total); err != nil {
		return currency.BaseUnits{}, err
	}
	return total, nil
}
