package repository

import (
	"gorm.io/gorm"

	"cash-posting-backend/internal/models"
)

// AutoMigrate creates or updates every table the service uses.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Invoice{},
		&models.Payment{},
		&models.PostingRun{},
		&models.MatchResult{},
		&models.MatchAuditLog{},
	)
}
