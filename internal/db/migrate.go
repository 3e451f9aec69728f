package db

import (
	"fmt"

	"github.com/exact3design/soundcard/internal/models"
	"gorm.io/gorm"
)

// Migrate creates or updates the orders, cards, and admins tables.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db: nil connection")
	}
	if errMigrate := conn.AutoMigrate(&models.Order{}, &models.Card{}, &models.Admin{}); errMigrate != nil {
		return fmt.Errorf("db: migrate: %w", errMigrate)
	}
	return nil
}
