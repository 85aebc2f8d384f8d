// internal/services/catalog_service.go
package services

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/capdex/capdex-backend/internal/config"
	"github.com/capdex/capdex-backend/internal/models"
	"github.com/capdex/capdex-backend/internal/store"
	"github.com/capdex/capdex-backend/internal/utils"
)

// CatalogService manages cap designs and the lifecycle of their barcode
// instances up to the point where they become tradable.
type CatalogService struct {
	db  *gorm.DB
	cfg config.TradeConfig
	now func() time.Time
}

type CreateCapRequest struct {
	Name        string   `json:"name" validate:"required,min=1,max=255"`
	CountryID   *uint64  `json:"country_id,omitempty" validate:"omitempty,gt=0"`
	Description string   `json:"description,omitempty" validate:"max=4000"`
	Tags        []string `json:"tags,omitempty" validate:"max=20,dive,required,max=50"`
}

// RegisterInstancesRequest takes either explicit barcodes or a count of codes
// to generate, never both.
type RegisterInstancesRequest struct {
	SheetRef string   `json:"sheet_ref,omitempty" validate:"max=64"`
	Barcodes []string `json:"barcodes,omitempty" validate:"omitempty,dive,barcode"`
	Count    int      `json:"count,omitempty" validate:"omitempty,min=1"`
}

type MarkPrintedRequest struct {
	InstanceIDs []uint64 `json:"instance_ids" validate:"required,min=1,dive,gt=0"`
}

type MarkPrintedResult struct {
	PrintedCount int64 `json:"printed_count"`
}

type CapDetails struct {
	models.Cap
	AvailableCount int64 `json:"available_count"`
}

func NewCatalogService(db *gorm.DB, cfg config.TradeConfig) *CatalogService {
	return &CatalogService{
		db:  db,
		cfg: cfg,
		now: func() time.Time { return time.Now().UTC() },
	}
}

func (s *CatalogService) WithClock(now func() time.Time) *CatalogService {
	s.now = now
	return s
}

func (s *CatalogService) CreateCap(ctx context.Context, req *CreateCapRequest) (*models.Cap, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	capDesign := &models.Cap{
		Name:        req.Name,
		CountryID:   req.CountryID,
		Description: req.Description,
		Tags:        models.TagList(req.Tags),
	}

	if err := s.db.WithContext(ctx).Create(capDesign).Error; err != nil {
		if isForeignKeyViolation(err) && req.CountryID != nil {
			return nil, notFound("country %d not found", *req.CountryID)
		}
		return nil, storeError("failed to create cap", err)
	}

	logrus.WithField("cap_id", capDesign.ID).Info("Cap created")
	return capDesign, nil
}

func (s *CatalogService) GetCap(ctx context.Context, id uint64) (*CapDetails, error) {
	if id == 0 {
		return nil, invalidArgument("cap id must be a positive integer")
	}

	db := s.db.WithContext(ctx)

	var capDesign models.Cap
	if err := db.Preload("Country").First(&capDesign, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("cap %d not found", id)
		}
		return nil, storeError("failed to load cap", err)
	}

	var available int64
	if err := db.Model(&models.BarcodeInstance{}).
		Where("cap_id = ? AND control_bar = ? AND reserved_trade_id IS NULL", id, models.ControlBarAvailable).
		Count(&available).Error; err != nil {
		return nil, storeError("failed to count available instances", err)
	}

	return &CapDetails{Cap: capDesign, AvailableCount: available}, nil
}

// RegisterInstances records freshly generated barcodes for a cap. They start
// unprinted and cannot be reserved until MarkPrinted.
func (s *CatalogService) RegisterInstances(ctx context.Context, capID uint64, req *RegisterInstancesRequest) ([]models.BarcodeInstance, error) {
	if capID == 0 {
		return nil, invalidArgument("cap id must be a positive integer")
	}
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if (len(req.Barcodes) == 0) == (req.Count == 0) {
		return nil, invalidArgument("provide either barcodes or count")
	}

	if len(req.Barcodes) > s.cfg.MaxReservation || req.Count > s.cfg.MaxReservation {
		return nil, invalidArgument("at most %d barcodes can be registered at once", s.cfg.MaxReservation)
	}

	codes := req.Barcodes
	if req.Count > 0 {
		codes = make([]string, 0, req.Count)
		for i := 0; i < req.Count; i++ {
			code, err := utils.GenerateBarcode(capID)
			if err != nil {
				return nil, &Error{Kind: KindStoreFailure, Message: "failed to generate barcodes", Err: err}
			}
			codes = append(codes, code)
		}
	}

	seen := make(map[string]struct{}, len(codes))
	instances := make([]models.BarcodeInstance, 0, len(codes))
	for _, code := range codes {
		if _, dup := seen[code]; dup {
			return nil, invalidArgument("barcode %q appears more than once", code)
		}
		seen[code] = struct{}{}
		instances = append(instances, models.BarcodeInstance{
			Barcode:    code,
			SheetRef:   req.SheetRef,
			CapID:      capID,
			ControlBar: models.ControlBarUnprinted,
		})
	}

	err := inTransaction(ctx, s.db, func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Cap{}).Where("id = ?", capID).Count(&count).Error; err != nil {
			return storeError("failed to look up cap", err)
		}
		if count == 0 {
			return notFound("cap %d not found", capID)
		}

		barcodes := store.NewBarcodeStore(tx)
		taken, err := barcodes.CountByBarcodes(codes)
		if err != nil {
			return storeError("failed to check barcodes", err)
		}
		if taken > 0 {
			return conflict("%d of %d barcodes are already registered", taken, len(codes))
		}

		if err := barcodes.CreateBatch(instances); err != nil {
			if errors.Is(storeError("", err), ErrConflict) {
				return conflict("one or more barcodes are already registered")
			}
			return storeError("failed to register barcodes", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"cap_id":    capID,
		"sheet_ref": req.SheetRef,
		"count":     len(instances),
	}).Info("Barcode instances registered")

	return instances, nil
}

// MarkPrinted moves unprinted instances into the available pool, all of them
// or none.
func (s *CatalogService) MarkPrinted(ctx context.Context, req *MarkPrintedRequest) (*MarkPrintedResult, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	ids := uniqueIDs(req.InstanceIDs)
	if len(ids) > s.cfg.MaxReservation {
		return nil, invalidArgument("at most %d instances can be marked at once", s.cfg.MaxReservation)
	}

	var printed int64
	err := inTransaction(ctx, s.db, func(tx *gorm.DB) error {
		barcodes := store.NewBarcodeStore(tx)

		n, err := barcodes.MarkPrinted(ids, s.now())
		if err != nil {
			return storeError("failed to mark instances printed", err)
		}
		if n == int64(len(ids)) {
			printed = n
			return nil
		}

		existing, err := barcodes.CountExisting(ids)
		if err != nil {
			return storeError("failed to check instances", err)
		}
		if existing < int64(len(ids)) {
			return notFound("%d of %d barcode instances not found", int64(len(ids))-existing, len(ids))
		}
		return conflict("%d of %d barcode instances are already printed", int64(len(ids))-n, len(ids))
	})
	if err != nil {
		return nil, err
	}

	logrus.WithField("printed", printed).Info("Barcode instances marked printed")
	return &MarkPrintedResult{PrintedCount: printed}, nil
}
