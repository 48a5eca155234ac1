package ledger

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"cakeday-bot/internal/models"
)

// SubredditStore persists the per-subreddit scan cursors.
type SubredditStore struct {
	db *gorm.DB
}

// NewSubredditStore wraps an opened database.
func NewSubredditStore(db *gorm.DB) *SubredditStore {
	return &SubredditStore{db: db}
}

// Ensure creates rows for any listed subreddit not yet tracked. Existing
// cursors are left alone.
func (s *SubredditStore) Ensure(names []string) error {
	for _, name := range names {
		var existing models.Subreddit
		err := s.db.First(&existing, "subreddit_name = ?", name).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("lookup subreddit %s: %w", name, err)
		}
		if err := s.db.Create(&models.Subreddit{Name: name}).Error; err != nil {
			return fmt.Errorf("seed subreddit %s: %w", name, err)
		}
	}
	return nil
}

// States returns every tracked subreddit with its cursor.
func (s *SubredditStore) States() ([]models.Subreddit, error) {
	var subs []models.Subreddit
	if err := s.db.Order("subreddit_name").Find(&subs).Error; err != nil {
		return nil, fmt.Errorf("list subreddits: %w", err)
	}
	return subs, nil
}

// AdvanceCursor records the newest post id seen during a pass so the next
// pass can stop there.
func (s *SubredditStore) AdvanceCursor(name, lastPostChecked string) error {
	err := s.db.Model(&models.Subreddit{}).
		Where("subreddit_name = ?", name).
		Update("last_post_checked", lastPostChecked).Error
	if err != nil {
		return fmt.Errorf("advance cursor for %s: %w", name, err)
	}
	return nil
}

// TouchScanTime stamps the completion time of a pass.
func (s *SubredditStore) TouchScanTime(name string, at time.Time) error {
	err := s.db.Model(&models.Subreddit{}).
		Where("subreddit_name = ?", name).
		Update("last_scan_time", at).Error
	if err != nil {
		return fmt.Errorf("touch scan time for %s: %w", name, err)
	}
	return nil
}
