package config

import (
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/bellapacxx/bingo-live/game"
	"github.com/bellapacxx/bingo-live/models"
	"github.com/bellapacxx/bingo-live/utils/logger"
)

// Migrate creates or updates every table and seeds the default patterns.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Balance{},
		&models.Transaction{},
		&models.Pattern{},
		&models.Event{},
		&models.Card{},
		&models.CalledNumber{},
		&models.Purchase{},
		&models.Deposit{},
		&models.PaymentMethod{},
		&models.RatesConfig{},
		&models.AdvisoryLock{},
	)
	if err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	if err := SeedPatterns(db); err != nil {
		return err
	}
	logger.Infof("✅ Database migration completed")
	return nil
}

// SeedPatterns inserts the built-in patterns that are not stored yet.
// Existing rows, including deactivated ones, are left alone.
func SeedPatterns(db *gorm.DB) error {
	defaults := game.DefaultPatterns()
	rows := make([]models.Pattern, 0, len(defaults))
	for _, p := range defaults {
		rows = append(rows, models.Pattern{
			Name:        p.Name,
			DisplayName: p.DisplayName,
			Positions:   p.Positions,
			IsActive:    true,
		})
	}
	res := db.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name"}}, DoNothing: true}).Create(&rows)
	if res.Error != nil {
		return fmt.Errorf("seed patterns: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		logger.Infof("Seeded %d default patterns", res.RowsAffected)
	}
	return nil
}
