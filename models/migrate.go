package models

import (
	"gorm.io/gorm"
)

// Migrate runs database migrations for all models.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Ticker{},
		&ChartData{},
		&Prediction{},
		&Explanation{},
		&News{},
	)
}
