package models

import "time"

// Subreddit tracks the scan cursor for one monitored forum. It is read at
// the start of each pass and advanced after the pass completes.
type Subreddit struct {
	Name            string    `json:"name" gorm:"primaryKey;column:subreddit_name"`
	LastPostChecked string    `json:"last_post_checked" gorm:"column:last_post_checked"`
	LastScanTime    time.Time `json:"last_scan_time" gorm:"column:last_scan_time"`
}

// TableName specifies the table name for the Subreddit model.
func (Subreddit) TableName() string {
	return "subreddits"
}
