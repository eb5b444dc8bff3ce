package domain

import "time"

// BannedIdentity blocks submissions from a matching ip or uuid. At least one
// of the two fields is present; matching is OR semantics.
type BannedIdentity struct {
	ID        uint      `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	IP        string    `gorm:"column:ip;size:45;index" json:"ip,omitempty"`
	UUID      string    `gorm:"column:uuid;size:36;index" json:"uuid,omitempty"`
	Country   string    `gorm:"column:country;size:60" json:"country,omitempty"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (BannedIdentity) TableName() string {
	return "banned_identities"
}
