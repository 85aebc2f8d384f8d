// internal/testutil/db.go
package testutil

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/capdex/capdex-backend/internal/config"
	"github.com/capdex/capdex-backend/internal/database"
	"github.com/capdex/capdex-backend/internal/models"
)

// NewTestDB returns a migrated in-memory sqlite database closed on cleanup.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := database.Initialize(config.DatabaseConfig{
		Driver:   "sqlite",
		Path:     ":memory:",
		LogLevel: "silent",
	})
	require.NoError(t, err)
	require.NoError(t, database.RunMigrations(db))

	t.Cleanup(func() {
		database.Close(db)
	})

	return db
}

func TradeConfig() config.TradeConfig {
	return config.TradeConfig{
		DefaultListLimit: 100,
		MaxListLimit:     500,
		MaxReservation:   500,
	}
}

func CreateTrader(t *testing.T, db *gorm.DB, name string) *models.Trader {
	t.Helper()

	trader := &models.Trader{Name: name}
	require.NoError(t, db.Create(trader).Error)
	return trader
}

func CreateCap(t *testing.T, db *gorm.DB, name string) *models.Cap {
	t.Helper()

	capDesign := &models.Cap{Name: name}
	require.NoError(t, db.Create(capDesign).Error)
	return capDesign
}

// CreateInstances inserts n instances of capID with the given control bar
// and returns their ids in ascending order.
func CreateInstances(t *testing.T, db *gorm.DB, capID uint64, n int, controlBar models.ControlBar) []uint64 {
	t.Helper()

	var count int64
	require.NoError(t, db.Model(&models.BarcodeInstance{}).Count(&count).Error)

	instances := make([]models.BarcodeInstance, n)
	for i := range instances {
		instances[i] = models.BarcodeInstance{
			Barcode:    barcodeFor(capID, int(count)+i),
			CapID:      capID,
			ControlBar: controlBar,
		}
	}
	require.NoError(t, db.Create(&instances).Error)

	ids := make([]uint64, n)
	for i, inst := range instances {
		ids[i] = inst.ID
	}
	return ids
}

func LoadInstance(t *testing.T, db *gorm.DB, id uint64) models.BarcodeInstance {
	t.Helper()

	var inst models.BarcodeInstance
	require.NoError(t, db.First(&inst, id).Error)
	return inst
}

func barcodeFor(capID uint64, seq int) string {
	return fmt.Sprintf("TEST-%d-%04d", capID, seq)
}
