// internal/services/reservation_contention_test.go
package services

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/capdex/capdex-backend/internal/config"
	"github.com/capdex/capdex-backend/internal/database"
	"github.com/capdex/capdex-backend/internal/models"
	"github.com/capdex/capdex-backend/internal/testutil"
)

const contenders = 16

// TestContendedReservationsPostgres runs only when CAPDEX_TEST_POSTGRES_DSN
// points at a scratch database. Each contender gets its own connection.
func TestContendedReservationsPostgres(t *testing.T) {
	dsn := os.Getenv("CAPDEX_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("CAPDEX_TEST_POSTGRES_DSN not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(contenders)
	t.Cleanup(func() { database.Close(db) })
	require.NoError(t, database.RunMigrations(db))

	service := NewReservationService(db, config.TradeConfig{
		DefaultListLimit: 100,
		MaxListLimit:     500,
		MaxReservation:   500,
	})
	ctx := context.Background()

	trader := testutil.CreateTrader(t, db, "Contender")
	capDesign := testutil.CreateCap(t, db, "Contended cap")
	ids := testutil.CreateInstances(t, db, capDesign.ID, 1, models.ControlBarAvailable)

	trades := make([]uint64, contenders)
	for i := range trades {
		trade, err := service.CreateTrade(ctx, &CreateTradeRequest{TraderID: trader.ID, TradeType: string(models.TradeTypeBlind)})
		require.NoError(t, err)
		trades[i] = trade.ID
	}

	var wg sync.WaitGroup
	errs := make([]error, contenders)
	start := make(chan struct{})
	for i, tradeID := range trades {
		wg.Add(1)
		go func(i int, tradeID uint64) {
			defer wg.Done()
			<-start
			_, errs[i] = service.ReserveInstances(ctx, tradeID, &ReserveInstancesRequest{InstanceIDs: ids})
		}(i, tradeID)
	}
	close(start)
	wg.Wait()

	var succeeded int
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ErrConflict):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded)

	inst := testutil.LoadInstance(t, db, ids[0])
	require.NotNil(t, inst.ReservedTradeID)
	assert.Equal(t, models.ControlBarReserved, inst.ControlBar)

	held, err := service.ListReservedForTrade(ctx, *inst.ReservedTradeID)
	require.NoError(t, err)
	assert.Len(t, held, 1)
}
