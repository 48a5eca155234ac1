package models

import "time"

// WishedUser is one row of the append-only wish ledger. The primary key is
// the username alone, so a user is wished at most once ever: only the first
// cake day the bot sees gets a message.
type WishedUser struct {
	Username   string    `json:"username" gorm:"primaryKey"`
	WishedDate time.Time `json:"wished_date" gorm:"column:wished_date;not null"`
}

// TableName specifies the table name for the WishedUser model.
func (WishedUser) TableName() string {
	return "wished_users"
}
