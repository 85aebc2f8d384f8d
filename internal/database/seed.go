// internal/database/seed.go
package database

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/capdex/capdex-backend/internal/models"
)

var defaultCountries = []models.Country{
	{Name: "Belgium", ISOCode: "BEL"},
	{Name: "Czech Republic", ISOCode: "CZE"},
	{Name: "Germany", ISOCode: "DEU"},
	{Name: "Ireland", ISOCode: "IRL"},
	{Name: "Mexico", ISOCode: "MEX"},
	{Name: "Netherlands", ISOCode: "NLD"},
	{Name: "Poland", ISOCode: "POL"},
	{Name: "United Kingdom", ISOCode: "GBR"},
	{Name: "United States", ISOCode: "USA"},
}

// SeedInitialData inserts the reference countries. Existing rows are kept.
func SeedInitialData(db *gorm.DB) error {
	logrus.Info("Seeding initial data...")

	countries := make([]models.Country, len(defaultCountries))
	copy(countries, defaultCountries)

	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoNothing: true,
	}).Create(&countries).Error; err != nil {
		return fmt.Errorf("failed to seed countries: %w", err)
	}

	logrus.WithField("countries", len(countries)).Info("Initial data seeding completed")
	return nil
}
