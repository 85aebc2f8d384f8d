// internal/store/trade_store.go
package store

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/capdex/capdex-backend/internal/models"
)

// TradeStore reads and writes trade headers through whatever handle it was
// built with, usually a transaction.
type TradeStore struct {
	db *gorm.DB
}

type TradeFilter struct {
	TraderID *uint64
	Status   *models.TradeStatus
}

func NewTradeStore(db *gorm.DB) *TradeStore {
	return &TradeStore{db: db}
}

func (s *TradeStore) Create(trade *models.Trade) error {
	if err := s.db.Create(trade).Error; err != nil {
		return fmt.Errorf("failed to create trade: %w", err)
	}
	return nil
}

// Get returns gorm.ErrRecordNotFound (wrapped) when the trade does not exist.
func (s *TradeStore) Get(id uint64) (*models.Trade, error) {
	var trade models.Trade
	if err := s.db.First(&trade, id).Error; err != nil {
		return nil, fmt.Errorf("failed to load trade %d: %w", id, err)
	}
	return &trade, nil
}

// ClaimPending touches a pending trade so that concurrent transitions on the
// same trade serialise on its row. It reports false when the trade is
// missing or no longer pending.
func (s *TradeStore) ClaimPending(id uint64, now time.Time) (bool, error) {
	res := s.db.Model(&models.Trade{}).
		Where("id = ? AND status = ?", id, models.TradeStatusPending).
		Update("updated_at", now)
	if res.Error != nil {
		return false, fmt.Errorf("failed to claim trade %d: %w", id, res.Error)
	}
	return res.RowsAffected == 1, nil
}

// Close moves a pending trade to a terminal status and stamps the matching
// date. It reports false when the trade is missing or not pending.
func (s *TradeStore) Close(id uint64, to models.TradeStatus, at time.Time) (bool, error) {
	updates := map[string]interface{}{
		"status":     to,
		"updated_at": at,
	}
	switch to {
	case models.TradeStatusCanceled:
		updates["date_canceled"] = at
	case models.TradeStatusCompleted:
		updates["date_completed"] = at
	default:
		return false, fmt.Errorf("trade %d cannot be closed as %q", id, to)
	}

	res := s.db.Model(&models.Trade{}).
		Where("id = ? AND status = ?", id, models.TradeStatusPending).
		Updates(updates)
	if res.Error != nil {
		return false, fmt.Errorf("failed to close trade %d: %w", id, res.Error)
	}
	return res.RowsAffected == 1, nil
}

// Query builds the filtered trade listing; callers add ordering and paging.
func (s *TradeStore) Query(filter TradeFilter) *gorm.DB {
	query := s.db.Model(&models.Trade{})
	if filter.TraderID != nil {
		query = query.Where("trader_id = ?", *filter.TraderID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	return query
}

func (s *TradeStore) CountByTrader(traderID uint64) (int64, error) {
	var count int64
	if err := s.db.Model(&models.Trade{}).Where("trader_id = ?", traderID).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count trades for trader %d: %w", traderID, err)
	}
	return count, nil
}
