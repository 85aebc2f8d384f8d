// internal/services/reservation_service.go
package services

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/capdex/capdex-backend/internal/config"
	"github.com/capdex/capdex-backend/internal/models"
	"github.com/capdex/capdex-backend/internal/store"
	"github.com/capdex/capdex-backend/internal/utils"
)

// ReservationService owns the trade lifecycle and the barcode instances a
// trade holds. Every mutating call is a single transaction.
type ReservationService struct {
	db     *gorm.DB
	cfg    config.TradeConfig
	now    func() time.Time
	tracer trace.Tracer
}

type CreateTradeRequest struct {
	TraderID  uint64 `json:"trader_id" validate:"required,gt=0"`
	TradeType string `json:"trade_type" validate:"required,oneof=blind scan_based"`
	Notes     string `json:"notes,omitempty" validate:"max=4000"`
}

type ReserveInstancesRequest struct {
	InstanceIDs []uint64 `json:"instance_ids" validate:"required,min=1,dive,gt=0"`
}

type ReservationResult struct {
	ReservedCount int64 `json:"reserved_count"`
}

type TradeDetails struct {
	models.Trade
	ReservedCount int64 `json:"reserved_count"`
}

type TradeListParams struct {
	utils.PaginationParams
	TraderID *uint64             `json:"trader_id,omitempty"`
	Status   *models.TradeStatus `json:"status,omitempty"`
}

func NewReservationService(db *gorm.DB, cfg config.TradeConfig) *ReservationService {
	return &ReservationService{
		db:     db,
		cfg:    cfg,
		now:    func() time.Time { return time.Now().UTC() },
		tracer: otel.Tracer("github.com/capdex/capdex-backend/internal/services"),
	}
}

// WithClock replaces the time source, for tests.
func (s *ReservationService) WithClock(now func() time.Time) *ReservationService {
	s.now = now
	return s
}

func (s *ReservationService) CreateTrade(ctx context.Context, req *CreateTradeRequest) (*models.Trade, error) {
	ctx, span := s.tracer.Start(ctx, "reservation.CreateTrade",
		trace.WithAttributes(attribute.Int64("trader.id", int64(req.TraderID))))
	defer span.End()

	if err := validateRequest(req); err != nil {
		return nil, endSpan(span, err)
	}

	trade := &models.Trade{
		TraderID:    req.TraderID,
		TradeType:   models.TradeType(req.TradeType),
		Status:      models.TradeStatusPending,
		DateStarted: s.now(),
		Notes:       req.Notes,
	}

	err := inTransaction(ctx, s.db, func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Trader{}).Where("id = ?", req.TraderID).Count(&count).Error; err != nil {
			return storeError("failed to look up trader", err)
		}
		if count == 0 {
			return notFound("trader %d not found", req.TraderID)
		}

		return storeError("failed to create trade", store.NewTradeStore(tx).Create(trade))
	})
	if err != nil {
		return nil, endSpan(span, err)
	}

	span.SetAttributes(attribute.Int64("trade.id", int64(trade.ID)))
	logrus.WithFields(logrus.Fields{
		"trade_id":   trade.ID,
		"trader_id":  trade.TraderID,
		"trade_type": trade.TradeType,
	}).Info("Trade created")

	return trade, nil
}

// ReserveInstances binds every listed instance to the trade or none of them.
func (s *ReservationService) ReserveInstances(ctx context.Context, tradeID uint64, req *ReserveInstancesRequest) (*ReservationResult, error) {
	ctx, span := s.tracer.Start(ctx, "reservation.ReserveInstances",
		trace.WithAttributes(attribute.Int64("trade.id", int64(tradeID))))
	defer span.End()

	if tradeID == 0 {
		return nil, endSpan(span, invalidArgument("trade id must be a positive integer"))
	}
	if err := validateRequest(req); err != nil {
		return nil, endSpan(span, err)
	}

	ids := uniqueIDs(req.InstanceIDs)
	if len(ids) > s.cfg.MaxReservation {
		return nil, endSpan(span, invalidArgument("at most %d instances can be reserved at once", s.cfg.MaxReservation))
	}
	span.SetAttributes(attribute.Int("instances.requested", len(ids)))

	var reserved int64
	err := inTransaction(ctx, s.db, func(tx *gorm.DB) error {
		trades := store.NewTradeStore(tx)
		barcodes := store.NewBarcodeStore(tx)
		now := s.now()

		claimed, err := trades.ClaimPending(tradeID, now)
		if err != nil {
			return storeError("failed to claim trade", err)
		}
		if !claimed {
			return pendingTradeError(trades, tradeID)
		}

		n, err := barcodes.Reserve(ids, tradeID, now)
		if err != nil {
			return storeError("failed to reserve instances", err)
		}
		if n == int64(len(ids)) {
			reserved = n
			return nil
		}

		existing, err := barcodes.CountExisting(ids)
		if err != nil {
			return storeError("failed to check instances", err)
		}
		if existing < int64(len(ids)) {
			return notFound("%d of %d barcode instances not found", int64(len(ids))-existing, len(ids))
		}
		return conflict("%d of %d barcode instances are not available", int64(len(ids))-n, len(ids))
	})
	if err != nil {
		return nil, endSpan(span, err)
	}

	logrus.WithFields(logrus.Fields{
		"trade_id": tradeID,
		"reserved": reserved,
	}).Info("Barcode instances reserved")

	return &ReservationResult{ReservedCount: reserved}, nil
}

// CancelTrade returns the trade's instances to the available pool. A trade
// that is not pending yields Conflict.
func (s *ReservationService) CancelTrade(ctx context.Context, tradeID uint64) (*models.Trade, error) {
	return s.closeTrade(ctx, tradeID, models.TradeStatusCanceled)
}

// CompleteTrade consumes the trade's instances. A trade that is not pending
// yields Conflict.
func (s *ReservationService) CompleteTrade(ctx context.Context, tradeID uint64) (*models.Trade, error) {
	return s.closeTrade(ctx, tradeID, models.TradeStatusCompleted)
}

func (s *ReservationService) closeTrade(ctx context.Context, tradeID uint64, to models.TradeStatus) (*models.Trade, error) {
	ctx, span := s.tracer.Start(ctx, "reservation.CloseTrade",
		trace.WithAttributes(
			attribute.Int64("trade.id", int64(tradeID)),
			attribute.String("trade.status", string(to)),
		))
	defer span.End()

	if tradeID == 0 {
		return nil, endSpan(span, invalidArgument("trade id must be a positive integer"))
	}

	var (
		trade    *models.Trade
		affected int64
	)
	err := inTransaction(ctx, s.db, func(tx *gorm.DB) error {
		trades := store.NewTradeStore(tx)
		barcodes := store.NewBarcodeStore(tx)
		now := s.now()

		closed, err := trades.Close(tradeID, to, now)
		if err != nil {
			return storeError("failed to close trade", err)
		}
		if !closed {
			return pendingTradeError(trades, tradeID)
		}

		if to == models.TradeStatusCanceled {
			affected, err = barcodes.Release(tradeID, now)
		} else {
			affected, err = barcodes.Consume(tradeID, now)
		}
		if err != nil {
			return storeError("failed to update reserved instances", err)
		}

		trade, err = trades.Get(tradeID)
		return storeError("failed to reload trade", err)
	})
	if err != nil {
		return nil, endSpan(span, err)
	}

	logrus.WithFields(logrus.Fields{
		"trade_id":  tradeID,
		"status":    to,
		"instances": affected,
	}).Info("Trade closed")

	return trade, nil
}

func (s *ReservationService) ListAvailableForCap(ctx context.Context, capID uint64, limit int) ([]models.BarcodeInstance, error) {
	if capID == 0 {
		return nil, invalidArgument("cap id must be a positive integer")
	}
	if limit == 0 {
		limit = s.cfg.DefaultListLimit
	}
	if limit < 1 || limit > s.cfg.MaxListLimit {
		return nil, invalidArgument("limit must be between 1 and %d", s.cfg.MaxListLimit)
	}

	db := s.db.WithContext(ctx)

	var count int64
	if err := db.Model(&models.Cap{}).Where("id = ?", capID).Count(&count).Error; err != nil {
		return nil, storeError("failed to look up cap", err)
	}
	if count == 0 {
		return nil, notFound("cap %d not found", capID)
	}

	instances, err := store.NewBarcodeStore(db).ListAvailableForCap(capID, limit)
	if err != nil {
		return nil, storeError("failed to list available instances", err)
	}
	return instances, nil
}

func (s *ReservationService) ListReservedForTrade(ctx context.Context, tradeID uint64) ([]models.BarcodeInstance, error) {
	if tradeID == 0 {
		return nil, invalidArgument("trade id must be a positive integer")
	}

	instances, err := store.NewBarcodeStore(s.db.WithContext(ctx)).ListReservedForTrade(tradeID)
	if err != nil {
		return nil, storeError("failed to list reserved instances", err)
	}
	return instances, nil
}

func (s *ReservationService) GetTrade(ctx context.Context, tradeID uint64) (*TradeDetails, error) {
	if tradeID == 0 {
		return nil, invalidArgument("trade id must be a positive integer")
	}

	db := s.db.WithContext(ctx)
	trade, err := store.NewTradeStore(db).Get(tradeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("trade %d not found", tradeID)
		}
		return nil, storeError("failed to load trade", err)
	}

	reserved, err := store.NewBarcodeStore(db).CountReservedForTrade(tradeID)
	if err != nil {
		return nil, storeError("failed to count reserved instances", err)
	}

	return &TradeDetails{Trade: *trade, ReservedCount: reserved}, nil
}

func (s *ReservationService) ListTrades(ctx context.Context, params TradeListParams) ([]models.Trade, int64, error) {
	if params.Status != nil && !params.Status.Valid() {
		return nil, 0, invalidArgument("unknown trade status %q", *params.Status)
	}

	query := store.NewTradeStore(s.db.WithContext(ctx)).Query(store.TradeFilter{
		TraderID: params.TraderID,
		Status:   params.Status,
	})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, storeError("failed to count trades", err)
	}

	allowedSortFields := []string{"id", "date_started", "date_canceled", "date_completed", "status"}
	query = utils.ApplySort(query, params.PaginationParams, allowedSortFields)
	query = utils.ApplyPagination(query, params.PaginationParams)

	var trades []models.Trade
	if err := query.Find(&trades).Error; err != nil {
		return nil, 0, storeError("failed to fetch trades", err)
	}

	return trades, total, nil
}

// pendingTradeError explains why a status-guarded update on the trade
// matched nothing.
func pendingTradeError(trades *store.TradeStore, tradeID uint64) error {
	trade, err := trades.Get(tradeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound("trade %d not found", tradeID)
		}
		return storeError("failed to load trade", err)
	}
	return conflict("trade %d is %s, not pending", tradeID, trade.Status)
}

func uniqueIDs(ids []uint64) []uint64 {
	seen := make(map[uint64]struct{}, len(ids))
	out := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func validateRequest(req interface{}) error {
	if err := utils.ValidateStruct(req); err != nil {
		return &Error{Kind: KindInvalidArgument, Message: "validation failed", Err: err}
	}
	return nil
}

func endSpan(span trace.Span, err error) error {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(KindOf(err)))
	}
	return err
}
