package domain

import "time"

// Announcement is a time-boxed site-wide banner. At most one active row is
// intended; creating a new one deletes all existing ones first.
type Announcement struct {
	ID        uint      `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Message   string    `gorm:"column:message;size:500;not null" json:"message"`
	ExpiresAt time.Time `gorm:"column:expires_at" json:"expires_at"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (Announcement) TableName() string {
	return "announcements"
}

// MaintenanceFlagID is the fixed key of the singleton maintenance row
const MaintenanceFlagID = 1

// MaintenanceFlag gates access to the whole site when active. Singleton row
// keyed by MaintenanceFlagID; clients poll it.
type MaintenanceFlag struct {
	ID       int    `gorm:"column:id;primaryKey" json:"id"`
	IsActive bool   `gorm:"column:is_active" json:"is_active"`
	Message  string `gorm:"column:message;size:500" json:"message"`
}

func (MaintenanceFlag) TableName() string {
	return "maintenance_flags"
}

// QuotaStateID is the fixed key of the singleton quota-state row
const QuotaStateID = 1

// QuotaState holds the global "quota temporarily disabled until T" override.
type QuotaState struct {
	ID            int        `gorm:"column:id;primaryKey" json:"id"`
	DisabledUntil *time.Time `gorm:"column:disabled_until" json:"disabled_until,omitempty"`
}

func (QuotaState) TableName() string {
	return "quota_states"
}
