package database

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"lawdesk_backend/internal/config"
	"lawdesk_backend/internal/models"
	chatmodels "lawdesk_backend/internal/models/chat"
)

var gormDB *gorm.DB

// ConnectGorm opens (or reuses) the GORM connection from config.
func ConnectGorm() (*gorm.DB, error) {
	if gormDB != nil {
		return gormDB, nil
	}

	cfg := config.GetConfig()
	db, err := gorm.Open(postgres.Open(cfg.Database.DSN), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to GORM: %w", err)
	}

	gormDB = db
	return db, nil
}

// AutoMigrate migrates every model. Tests run it against sqlite, the
// server against postgres; models must stay portable across both.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Case{},
		&models.CaseUpdate{},
		&models.Notification{},
		// chat
		&chatmodels.ChatRoom{},
		&chatmodels.Message{},
		&chatmodels.MessageStatus{},
	)
}
