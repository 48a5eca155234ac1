// Package ledger is the durable layer of the bot: the append-only record
// of users already wished and the per-subreddit scan cursors. It is the
// only state that must survive restarts.
package ledger

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"cakeday-bot/internal/models"
)

// ErrDuplicateWish reports that a user already has a ledger row. Callers
// treat it as "already handled", not as a failure.
var ErrDuplicateWish = errors.New("user has already been wished")

// WishLedger enforces at-most-once-ever wishes through the primary key on
// wished_users.username. The constraint lives in the database, not in
// memory, so overlapping scans across subreddits cannot double-wish.
type WishLedger struct {
	db *gorm.DB
}

// NewWishLedger wraps an opened database.
func NewWishLedger(db *gorm.DB) *WishLedger {
	return &WishLedger{db: db}
}

// HasWished reports whether a user already has a ledger row.
func (l *WishLedger) HasWished(username string) (bool, error) {
	var count int64
	err := l.db.Model(&models.WishedUser{}).
		Where("username = ?", username).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("query wished_users: %w", err)
	}
	return count > 0, nil
}

// RecordWish inserts the ledger row for a freshly wished user. A second
// insert for the same username fails with ErrDuplicateWish regardless of
// the date; rows are never updated or deleted.
func (l *WishLedger) RecordWish(username string, date time.Time) error {
	record := models.WishedUser{Username: username, WishedDate: date}
	if err := l.db.Create(&record).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateWish
		}
		return fmt.Errorf("insert wish record: %w", err)
	}
	return nil
}

// WishedCount returns the total number of ledger rows.
func (l *WishLedger) WishedCount() (int64, error) {
	var count int64
	if err := l.db.Model(&models.WishedUser{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count wished_users: %w", err)
	}
	return count, nil
}

// Recent returns the most recently wished users, newest first.
func (l *WishLedger) Recent(limit int) ([]models.WishedUser, error) {
	var users []models.WishedUser
	err := l.db.Order("wished_date desc").Limit(limit).Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("list wished_users: %w", err)
	}
	return users, nil
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// The sqlite driver does not always translate constraint errors.
	return strings.Contains(err.Error(), "UNIQUE constraint")
}
