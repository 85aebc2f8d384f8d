// internal/services/trader_service.go
package services

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/capdex/capdex-backend/internal/models"
	"github.com/capdex/capdex-backend/internal/store"
)

type TraderService struct {
	db *gorm.DB
}

type CreateTraderRequest struct {
	Name      string  `json:"name" validate:"required,min=1,max=255"`
	CountryID *uint64 `json:"country_id,omitempty" validate:"omitempty,gt=0"`
	Details   string  `json:"details,omitempty" validate:"max=4000"`
}

func NewTraderService(db *gorm.DB) *TraderService {
	return &TraderService{db: db}
}

func (s *TraderService) CreateTrader(ctx context.Context, req *CreateTraderRequest) (*models.Trader, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	trader := &models.Trader{
		Name:      req.Name,
		CountryID: req.CountryID,
		Details:   req.Details,
	}

	if err := s.db.WithContext(ctx).Create(trader).Error; err != nil {
		if isForeignKeyViolation(err) && req.CountryID != nil {
			return nil, notFound("country %d not found", *req.CountryID)
		}
		return nil, storeError("failed to create trader", err)
	}

	logrus.WithField("trader_id", trader.ID).Info("Trader created")
	return trader, nil
}

func (s *TraderService) GetTrader(ctx context.Context, id uint64) (*models.Trader, error) {
	if id == 0 {
		return nil, invalidArgument("trader id must be a positive integer")
	}

	var trader models.Trader
	if err := s.db.WithContext(ctx).Preload("Country").First(&trader, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("trader %d not found", id)
		}
		return nil, storeError("failed to load trader", err)
	}

	return &trader, nil
}

// DeleteTrader refuses while any trade, whatever its status, still names the
// trader.
func (s *TraderService) DeleteTrader(ctx context.Context, id uint64) error {
	if id == 0 {
		return invalidArgument("trader id must be a positive integer")
	}

	return inTransaction(ctx, s.db, func(tx *gorm.DB) error {
		trades, err := store.NewTradeStore(tx).CountByTrader(id)
		if err != nil {
			return storeError("failed to count trades", err)
		}
		if trades > 0 {
			return conflict("trader %d is referenced by %d trades", id, trades)
		}

		res := tx.Delete(&models.Trader{}, id)
		if res.Error != nil {
			if isForeignKeyViolation(res.Error) {
				return conflict("trader %d is still referenced", id)
			}
			return storeError("failed to delete trader", res.Error)
		}
		if res.RowsAffected == 0 {
			return notFound("trader %d not found", id)
		}

		logrus.WithField("trader_id", id).Info("Trader deleted")
		return nil
	})
}
