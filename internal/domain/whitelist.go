package domain

import "time"

// WhitelistEntry overrides the default submission quota for an IP.
// Limit <= 0 means unlimited.
type WhitelistEntry struct {
	ID        uint      `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	IP        string    `gorm:"column:ip;size:45;uniqueIndex;not null" json:"ip"`
	Limit     int       `gorm:"column:quota_limit" json:"limit"`
	Notes     string    `gorm:"column:notes;size:255" json:"notes,omitempty"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (WhitelistEntry) TableName() string {
	return "whitelist_entries"
}
