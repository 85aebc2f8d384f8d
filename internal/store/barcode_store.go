// internal/store/barcode_store.go
package store

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/capdex/capdex-backend/internal/models"
)

// BarcodeStore applies conditional control_bar updates to barcode instances.
// Every mutating method returns the number of rows it actually changed;
// callers compare that with what they asked for.
type BarcodeStore struct {
	db *gorm.DB
}

func NewBarcodeStore(db *gorm.DB) *BarcodeStore {
	return &BarcodeStore{db: db}
}

func (s *BarcodeStore) CreateBatch(instances []models.BarcodeInstance) error {
	if len(instances) == 0 {
		return nil
	}
	if err := s.db.Create(&instances).Error; err != nil {
		return fmt.Errorf("failed to create barcode instances: %w", err)
	}
	return nil
}

// CountExisting counts how many of ids are present at all.
func (s *BarcodeStore) CountExisting(ids []uint64) (int64, error) {
	var count int64
	if err := s.db.Model(&models.BarcodeInstance{}).Where("id IN ?", ids).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count barcode instances: %w", err)
	}
	return count, nil
}

func (s *BarcodeStore) CountByBarcodes(codes []string) (int64, error) {
	var count int64
	if err := s.db.Model(&models.BarcodeInstance{}).Where("barcode IN ?", codes).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count barcodes: %w", err)
	}
	return count, nil
}

// Reserve moves available instances (control_bar 2, unreserved) to trade.
func (s *BarcodeStore) Reserve(ids []uint64, tradeID uint64, now time.Time) (int64, error) {
	res := s.db.Model(&models.BarcodeInstance{}).
		Where("id IN ?", ids).
		Where("control_bar = ? AND reserved_trade_id IS NULL", models.ControlBarAvailable).
		Updates(map[string]interface{}{
			"control_bar":       models.ControlBarReserved,
			"reserved_trade_id": tradeID,
			"updated_at":        now,
		})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to reserve barcode instances for trade %d: %w", tradeID, res.Error)
	}
	return res.RowsAffected, nil
}

// Release returns every instance held by trade to the available pool.
func (s *BarcodeStore) Release(tradeID uint64, now time.Time) (int64, error) {
	res := s.db.Model(&models.BarcodeInstance{}).
		Where("reserved_trade_id = ? AND control_bar = ?", tradeID, models.ControlBarReserved).
		Updates(map[string]interface{}{
			"control_bar":       models.ControlBarAvailable,
			"reserved_trade_id": nil,
			"updated_at":        now,
		})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to release barcode instances of trade %d: %w", tradeID, res.Error)
	}
	return res.RowsAffected, nil
}

// Consume marks every instance held by trade as traded away.
func (s *BarcodeStore) Consume(tradeID uint64, now time.Time) (int64, error) {
	res := s.db.Model(&models.BarcodeInstance{}).
		Where("reserved_trade_id = ? AND control_bar = ?", tradeID, models.ControlBarReserved).
		Updates(map[string]interface{}{
			"control_bar":       models.ControlBarTraded,
			"reserved_trade_id": nil,
			"traded_trade_id":   tradeID,
			"updated_at":        now,
		})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to consume barcode instances of trade %d: %w", tradeID, res.Error)
	}
	return res.RowsAffected, nil
}

// MarkPrinted moves unprinted instances into the available pool.
func (s *BarcodeStore) MarkPrinted(ids []uint64, now time.Time) (int64, error) {
	res := s.db.Model(&models.BarcodeInstance{}).
		Where("id IN ? AND control_bar = ?", ids, models.ControlBarUnprinted).
		Updates(map[string]interface{}{
			"control_bar": models.ControlBarAvailable,
			"updated_at":  now,
		})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to mark barcode instances printed: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (s *BarcodeStore) ListAvailableForCap(capID uint64, limit int) ([]models.BarcodeInstance, error) {
	var instances []models.BarcodeInstance
	if err := s.db.
		Where("cap_id = ? AND control_bar = ? AND reserved_trade_id IS NULL", capID, models.ControlBarAvailable).
		Order("id ASC").
		Limit(limit).
		Find(&instances).Error; err != nil {
		return nil, fmt.Errorf("failed to list available instances for cap %d: %w", capID, err)
	}
	return instances, nil
}

func (s *BarcodeStore) ListReservedForTrade(tradeID uint64) ([]models.BarcodeInstance, error) {
	var instances []models.BarcodeInstance
	if err := s.db.
		Where("reserved_trade_id = ? AND control_bar = ?", tradeID, models.ControlBarReserved).
		Order("id ASC").
		Find(&instances).Error; err != nil {
		return nil, fmt.Errorf("failed to list reserved instances for trade %d: %w", tradeID, err)
	}
	return instances, nil
}

func (s *BarcodeStore) CountReservedForTrade(tradeID uint64) (int64, error) {
	var count int64
	if err := s.db.Model(&models.BarcodeInstance{}).
		Where("reserved_trade_id = ? AND control_bar = ?", tradeID, models.ControlBarReserved).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count reserved instances for trade %d: %w", tradeID, err)
	}
	return count, nil
}
