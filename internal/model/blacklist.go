package model

import "time"

// BlacklistEntry suppresses scheduling and sending for an address
type BlacklistEntry struct {
	ID        uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	Email     string    `json:"email" gorm:"type:varchar(255);not null;uniqueIndex"`
	Reason    string    `json:"reason" gorm:"type:varchar(255)"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for BlacklistEntry
func (BlacklistEntry) TableName() string {
	return "blacklist"
}
