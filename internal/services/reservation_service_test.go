// internal/services/reservation_service_test.go
package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/capdex/capdex-backend/internal/models"
	"github.com/capdex/capdex-backend/internal/testutil"
	"github.com/capdex/capdex-backend/internal/utils"
)

var fixedNow = time.Date(2024, 5, 17, 12, 0, 0, 0, time.UTC)

type ReservationTestSuite struct {
	suite.Suite
	db      *gorm.DB
	service *ReservationService
	ctx     context.Context
	trader  *models.Trader
	capA    *models.Cap
}

func (suite *ReservationTestSuite) SetupTest() {
	suite.db = testutil.NewTestDB(suite.T())
	suite.service = NewReservationService(suite.db, testutil.TradeConfig()).
		WithClock(func() time.Time { return fixedNow })
	suite.ctx = context.Background()
	suite.trader = testutil.CreateTrader(suite.T(), suite.db, "Jan")
	suite.capA = testutil.CreateCap(suite.T(), suite.db, "Pilsner Urquell 2019")
}

func (suite *ReservationTestSuite) newTrade() *models.Trade {
	trade, err := suite.service.CreateTrade(suite.ctx, &CreateTradeRequest{
		TraderID:  suite.trader.ID,
		TradeType: string(models.TradeTypeScanBased),
	})
	suite.Require().NoError(err)
	return trade
}

func (suite *ReservationTestSuite) available(n int) []uint64 {
	return testutil.CreateInstances(suite.T(), suite.db, suite.capA.ID, n, models.ControlBarAvailable)
}

func (suite *ReservationTestSuite) reserve(tradeID uint64, ids ...uint64) (*ReservationResult, error) {
	return suite.service.ReserveInstances(suite.ctx, tradeID, &ReserveInstancesRequest{InstanceIDs: ids})
}

func (suite *ReservationTestSuite) assertAvailable(ids ...uint64) {
	for _, id := range ids {
		inst := testutil.LoadInstance(suite.T(), suite.db, id)
		assert.Equal(suite.T(), models.ControlBarAvailable, inst.ControlBar, "instance %d", id)
		assert.Nil(suite.T(), inst.ReservedTradeID, "instance %d", id)
	}
}

func (suite *ReservationTestSuite) TestCreateTrade() {
	trade := suite.newTrade()

	assert.NotZero(suite.T(), trade.ID)
	assert.Equal(suite.T(), models.TradeStatusPending, trade.Status)
	assert.Equal(suite.T(), models.TradeTypeScanBased, trade.TradeType)
	assert.True(suite.T(), fixedNow.Equal(trade.DateStarted))
	assert.Nil(suite.T(), trade.DateCanceled)
	assert.Nil(suite.T(), trade.DateCompleted)
}

func (suite *ReservationTestSuite) TestCreateTradeValidation() {
	tests := []struct {
		name string
		req  CreateTradeRequest
		kind ErrorKind
	}{
		{"missing trader", CreateTradeRequest{TradeType: "blind"}, KindInvalidArgument},
		{"unknown trade type", CreateTradeRequest{TraderID: suite.trader.ID, TradeType: "swap"}, KindInvalidArgument},
		{"unknown trader", CreateTradeRequest{TraderID: 9999, TradeType: "blind"}, KindNotFound},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			req := tt.req
			_, err := suite.service.CreateTrade(suite.ctx, &req)
			suite.Require().Error(err)
			assert.Equal(suite.T(), tt.kind, KindOf(err))
		})
	}

	var count int64
	suite.Require().NoError(suite.db.Model(&models.Trade{}).Count(&count).Error)
	assert.Zero(suite.T(), count)
}

func (suite *ReservationTestSuite) TestReserveInstances() {
	trade := suite.newTrade()
	ids := suite.available(3)

	result, err := suite.reserve(trade.ID, ids...)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), int64(3), result.ReservedCount)

	for _, id := range ids {
		inst := testutil.LoadInstance(suite.T(), suite.db, id)
		assert.Equal(suite.T(), models.ControlBarReserved, inst.ControlBar)
		suite.Require().NotNil(inst.ReservedTradeID)
		assert.Equal(suite.T(), trade.ID, *inst.ReservedTradeID)
	}
}

func (suite *ReservationTestSuite) TestReserveCollapsesDuplicates() {
	trade := suite.newTrade()
	ids := suite.available(2)

	result, err := suite.reserve(trade.ID, ids[0], ids[1], ids[0], ids[1])
	suite.Require().NoError(err)
	assert.Equal(suite.T(), int64(2), result.ReservedCount)
}

func (suite *ReservationTestSuite) TestReserveIsAllOrNothing() {
	other := suite.newTrade()
	trade := suite.newTrade()
	ids := suite.available(3)

	// B already belongs to another trade.
	_, err := suite.reserve(other.ID, ids[1])
	suite.Require().NoError(err)

	_, err = suite.reserve(trade.ID, ids...)
	suite.Require().Error(err)
	assert.True(suite.T(), errors.Is(err, ErrConflict))

	suite.assertAvailable(ids[0], ids[2])
	inst := testutil.LoadInstance(suite.T(), suite.db, ids[1])
	suite.Require().NotNil(inst.ReservedTradeID)
	assert.Equal(suite.T(), other.ID, *inst.ReservedTradeID)
}

func (suite *ReservationTestSuite) TestReserveRejectsUnprintedAndTraded() {
	trade := suite.newTrade()
	ids := suite.available(1)
	unprinted := testutil.CreateInstances(suite.T(), suite.db, suite.capA.ID, 1, models.ControlBarUnprinted)
	traded := testutil.CreateInstances(suite.T(), suite.db, suite.capA.ID, 1, models.ControlBarTraded)

	_, err := suite.reserve(trade.ID, ids[0], unprinted[0])
	assert.Equal(suite.T(), KindConflict, KindOf(err))

	_, err = suite.reserve(trade.ID, ids[0], traded[0])
	assert.Equal(suite.T(), KindConflict, KindOf(err))

	suite.assertAvailable(ids[0])
}

func (suite *ReservationTestSuite) TestReserveUnknownInstance() {
	trade := suite.newTrade()
	ids := suite.available(2)

	_, err := suite.reserve(trade.ID, ids[0], ids[1], 424242)
	suite.Require().Error(err)
	assert.Equal(suite.T(), KindNotFound, KindOf(err))

	suite.assertAvailable(ids...)
}

func (suite *ReservationTestSuite) TestReserveUnknownTrade() {
	ids := suite.available(1)

	_, err := suite.reserve(777, ids...)
	assert.Equal(suite.T(), KindNotFound, KindOf(err))
	suite.assertAvailable(ids...)
}

func (suite *ReservationTestSuite) TestReserveValidation() {
	trade := suite.newTrade()

	_, err := suite.reserve(trade.ID)
	assert.Equal(suite.T(), KindInvalidArgument, KindOf(err))

	_, err = suite.reserve(0, 1)
	assert.Equal(suite.T(), KindInvalidArgument, KindOf(err))

	_, err = suite.reserve(trade.ID, 0)
	assert.Equal(suite.T(), KindInvalidArgument, KindOf(err))

	small := NewReservationService(suite.db, testutil.TradeConfig())
	small.cfg.MaxReservation = 2
	_, err = small.ReserveInstances(suite.ctx, trade.ID, &ReserveInstancesRequest{InstanceIDs: []uint64{1, 2, 3}})
	assert.Equal(suite.T(), KindInvalidArgument, KindOf(err))
}

func (suite *ReservationTestSuite) TestCancelTradeReleasesInstances() {
	trade := suite.newTrade()
	ids := suite.available(2)
	_, err := suite.reserve(trade.ID, ids...)
	suite.Require().NoError(err)

	canceled, err := suite.service.CancelTrade(suite.ctx, trade.ID)
	suite.Require().NoError(err)

	assert.Equal(suite.T(), models.TradeStatusCanceled, canceled.Status)
	suite.Require().NotNil(canceled.DateCanceled)
	assert.True(suite.T(), fixedNow.Equal(*canceled.DateCanceled))
	assert.Nil(suite.T(), canceled.DateCompleted)
	suite.assertAvailable(ids...)

	reserved, err := suite.service.ListReservedForTrade(suite.ctx, trade.ID)
	suite.Require().NoError(err)
	assert.Empty(suite.T(), reserved)
}

func (suite *ReservationTestSuite) TestCompleteTradeConsumesInstances() {
	trade := suite.newTrade()
	ids := suite.available(3)
	_, err := suite.reserve(trade.ID, ids[0], ids[1])
	suite.Require().NoError(err)

	completed, err := suite.service.CompleteTrade(suite.ctx, trade.ID)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), models.TradeStatusCompleted, completed.Status)
	suite.Require().NotNil(completed.DateCompleted)
	assert.Nil(suite.T(), completed.DateCanceled)

	for _, id := range ids[:2] {
		inst := testutil.LoadInstance(suite.T(), suite.db, id)
		assert.Equal(suite.T(), models.ControlBarTraded, inst.ControlBar)
		assert.Nil(suite.T(), inst.ReservedTradeID)
		suite.Require().NotNil(inst.TradedTradeID)
		assert.Equal(suite.T(), trade.ID, *inst.TradedTradeID)
	}

	available, err := suite.service.ListAvailableForCap(suite.ctx, suite.capA.ID, 0)
	suite.Require().NoError(err)
	suite.Require().Len(available, 1)
	assert.Equal(suite.T(), ids[2], available[0].ID)
}

func (suite *ReservationTestSuite) TestClosedTradeRejectsTransitions() {
	trade := suite.newTrade()
	ids := suite.available(1)

	_, err := suite.service.CancelTrade(suite.ctx, trade.ID)
	suite.Require().NoError(err)

	_, err = suite.service.CancelTrade(suite.ctx, trade.ID)
	assert.Equal(suite.T(), KindConflict, KindOf(err))

	_, err = suite.service.CompleteTrade(suite.ctx, trade.ID)
	assert.Equal(suite.T(), KindConflict, KindOf(err))

	_, err = suite.reserve(trade.ID, ids...)
	assert.Equal(suite.T(), KindConflict, KindOf(err))
	suite.assertAvailable(ids...)

	// The first cancellation date is kept.
	details, err := suite.service.GetTrade(suite.ctx, trade.ID)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), models.TradeStatusCanceled, details.Status)
	assert.Nil(suite.T(), details.DateCompleted)
}

func (suite *ReservationTestSuite) TestCloseUnknownTrade() {
	_, err := suite.service.CancelTrade(suite.ctx, 31337)
	assert.Equal(suite.T(), KindNotFound, KindOf(err))

	_, err = suite.service.CompleteTrade(suite.ctx, 31337)
	assert.Equal(suite.T(), KindNotFound, KindOf(err))

	_, err = suite.service.CompleteTrade(suite.ctx, 0)
	assert.Equal(suite.T(), KindInvalidArgument, KindOf(err))
}

func (suite *ReservationTestSuite) TestListAvailableForCap() {
	ids := suite.available(5)
	testutil.CreateInstances(suite.T(), suite.db, suite.capA.ID, 2, models.ControlBarUnprinted)
	otherCap := testutil.CreateCap(suite.T(), suite.db, "Guinness")
	testutil.CreateInstances(suite.T(), suite.db, otherCap.ID, 2, models.ControlBarAvailable)

	trade := suite.newTrade()
	_, err := suite.reserve(trade.ID, ids[1])
	suite.Require().NoError(err)

	all, err := suite.service.ListAvailableForCap(suite.ctx, suite.capA.ID, 0)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), []uint64{ids[0], ids[2], ids[3], ids[4]}, instanceIDs(all))

	limited, err := suite.service.ListAvailableForCap(suite.ctx, suite.capA.ID, 2)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), []uint64{ids[0], ids[2]}, instanceIDs(limited))
}

func (suite *ReservationTestSuite) TestListAvailableForCapErrors() {
	tests := []struct {
		name  string
		capID uint64
		limit int
		kind  ErrorKind
	}{
		{"zero cap id", 0, 10, KindInvalidArgument},
		{"negative limit", suite.capA.ID, -1, KindInvalidArgument},
		{"limit above max", suite.capA.ID, 501, KindInvalidArgument},
		{"unknown cap", 9999, 10, KindNotFound},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			_, err := suite.service.ListAvailableForCap(suite.ctx, tt.capID, tt.limit)
			assert.Equal(suite.T(), tt.kind, KindOf(err))
		})
	}
}

func (suite *ReservationTestSuite) TestListReservedForTrade() {
	trade := suite.newTrade()
	ids := suite.available(4)
	_, err := suite.reserve(trade.ID, ids[3], ids[0], ids[2])
	suite.Require().NoError(err)

	reserved, err := suite.service.ListReservedForTrade(suite.ctx, trade.ID)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), []uint64{ids[0], ids[2], ids[3]}, instanceIDs(reserved))

	none, err := suite.service.ListReservedForTrade(suite.ctx, 5555)
	suite.Require().NoError(err)
	assert.Empty(suite.T(), none)
}

func (suite *ReservationTestSuite) TestGetTrade() {
	trade := suite.newTrade()
	_, err := suite.reserve(trade.ID, suite.available(2)...)
	suite.Require().NoError(err)

	details, err := suite.service.GetTrade(suite.ctx, trade.ID)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), trade.ID, details.ID)
	assert.Equal(suite.T(), int64(2), details.ReservedCount)

	_, err = suite.service.GetTrade(suite.ctx, 8888)
	assert.Equal(suite.T(), KindNotFound, KindOf(err))
}

func (suite *ReservationTestSuite) TestListTrades() {
	first := suite.newTrade()
	second := suite.newTrade()
	other := testutil.CreateTrader(suite.T(), suite.db, "Piet")
	_, err := suite.service.CreateTrade(suite.ctx, &CreateTradeRequest{TraderID: other.ID, TradeType: "blind"})
	suite.Require().NoError(err)
	_, err = suite.service.CancelTrade(suite.ctx, second.ID)
	suite.Require().NoError(err)

	pending := models.TradeStatusPending
	trades, total, err := suite.service.ListTrades(suite.ctx, TradeListParams{
		PaginationParams: utils.PaginationParams{Page: 1, Limit: 10, Sort: "id", Order: "asc"},
		TraderID:         &suite.trader.ID,
		Status:           &pending,
	})
	suite.Require().NoError(err)
	assert.Equal(suite.T(), int64(1), total)
	suite.Require().Len(trades, 1)
	assert.Equal(suite.T(), first.ID, trades[0].ID)

	_, total, err = suite.service.ListTrades(suite.ctx, TradeListParams{
		PaginationParams: utils.PaginationParams{Page: 1, Limit: 10},
	})
	suite.Require().NoError(err)
	assert.Equal(suite.T(), int64(3), total)

	bogus := models.TradeStatus("lost")
	_, _, err = suite.service.ListTrades(suite.ctx, TradeListParams{Status: &bogus})
	assert.Equal(suite.T(), KindInvalidArgument, KindOf(err))
}

// The sqlite pool holds a single connection, so these two calls run one
// after the other. TestContendedReservationsPostgres races real writers.
func (suite *ReservationTestSuite) TestConcurrentReservationsOfOneInstance() {
	tradeA := suite.newTrade()
	tradeB := suite.newTrade()
	ids := suite.available(1)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, tradeID := range []uint64{tradeA.ID, tradeB.ID} {
		wg.Add(1)
		go func(i int, tradeID uint64) {
			defer wg.Done()
			_, errs[i] = suite.reserve(tradeID, ids[0])
		}(i, tradeID)
	}
	wg.Wait()

	var succeeded, conflicted int
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ErrConflict):
			conflicted++
		default:
			suite.T().Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(suite.T(), 1, succeeded)
	assert.Equal(suite.T(), 1, conflicted)

	inst := testutil.LoadInstance(suite.T(), suite.db, ids[0])
	assert.Equal(suite.T(), models.ControlBarReserved, inst.ControlBar)
}

func (suite *ReservationTestSuite) TestReservationInvariantHolds() {
	tradeA := suite.newTrade()
	tradeB := suite.newTrade()
	ids := suite.available(6)

	_, err := suite.reserve(tradeA.ID, ids[0], ids[1])
	suite.Require().NoError(err)
	_, err = suite.reserve(tradeB.ID, ids[2], ids[3])
	suite.Require().NoError(err)
	_, err = suite.service.CancelTrade(suite.ctx, tradeA.ID)
	suite.Require().NoError(err)
	_, err = suite.service.CompleteTrade(suite.ctx, tradeB.ID)
	suite.Require().NoError(err)

	var instances []models.BarcodeInstance
	suite.Require().NoError(suite.db.Find(&instances).Error)
	for _, inst := range instances {
		if inst.ControlBar != models.ControlBarReserved {
			assert.Nil(suite.T(), inst.ReservedTradeID, "instance %d", inst.ID)
			continue
		}
		suite.Require().NotNil(inst.ReservedTradeID)
		var trade models.Trade
		suite.Require().NoError(suite.db.First(&trade, *inst.ReservedTradeID).Error)
		assert.True(suite.T(), trade.IsPending())
	}
}

func TestReservationSuite(t *testing.T) {
	suite.Run(t, new(ReservationTestSuite))
}

func TestTradeLifecycleScenario(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	service := NewReservationService(db, testutil.TradeConfig()).
		WithClock(func() time.Time { return fixedNow })

	require.NoError(t, db.Create(&models.Trader{BaseModel: models.BaseModel{ID: 5}, Name: "Trader five"}).Error)
	capDesign := testutil.CreateCap(t, db, "Heineken 1998")
	for _, id := range []uint64{101, 102} {
		require.NoError(t, db.Create(&models.BarcodeInstance{
			BaseModel:  models.BaseModel{ID: id},
			Barcode:    fmt.Sprintf("SCN-%d", id),
			CapID:      capDesign.ID,
			ControlBar: models.ControlBarAvailable,
		}).Error)
	}

	trade, err := service.CreateTrade(ctx, &CreateTradeRequest{TraderID: 5, TradeType: "scan_based"})
	require.NoError(t, err)
	assert.Equal(t, models.TradeStatusPending, trade.Status)
	assert.True(t, fixedNow.Equal(trade.DateStarted))

	result, err := service.ReserveInstances(ctx, trade.ID, &ReserveInstancesRequest{InstanceIDs: []uint64{101, 102}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.ReservedCount)

	for _, id := range []uint64{101, 102} {
		inst := testutil.LoadInstance(t, db, id)
		assert.Equal(t, models.ControlBarReserved, inst.ControlBar)
		require.NotNil(t, inst.ReservedTradeID)
		assert.Equal(t, trade.ID, *inst.ReservedTradeID)
	}

	canceled, err := service.CancelTrade(ctx, trade.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TradeStatusCanceled, canceled.Status)

	for _, id := range []uint64{101, 102} {
		inst := testutil.LoadInstance(t, db, id)
		assert.Equal(t, models.ControlBarAvailable, inst.ControlBar)
		assert.Nil(t, inst.ReservedTradeID)
	}
}

func instanceIDs(instances []models.BarcodeInstance) []uint64 {
	ids := make([]uint64, len(instances))
	for i, inst := range instances {
		ids[i] = inst.ID
	}
	return ids
}
