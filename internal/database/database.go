package database

import (
	"fmt"

	"cakeday-bot/internal/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects to the sqlite database at path and runs migrations.
// Using glebarez/sqlite which is a pure Go implementation (no CGO required).
func Open(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	// Auto-migrate the schema (creates tables if they don't exist)
	if err := db.AutoMigrate(
		&models.WishedUser{},
		&models.Subreddit{},
	); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	return db, nil
}
