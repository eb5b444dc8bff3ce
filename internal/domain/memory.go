package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Memory status values. Banned memories are deleted, not flagged, so there
// is no "banned" status.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
)

// Memory is a submitted unsent-message card. A memory physically resides in
// exactly one of the two backing stores once successfully inserted.
type Memory struct {
	ID          string     `gorm:"column:id;primaryKey;size:36" json:"id"`
	Recipient   string     `gorm:"column:recipient;size:100;not null" json:"recipient"`
	Message     string     `gorm:"column:message;size:5000;not null" json:"message"`
	Sender      string     `gorm:"column:sender;size:50" json:"sender,omitempty"`
	Status      string     `gorm:"column:status;size:10;index;default:pending" json:"status"`
	Color       string     `gorm:"column:color;size:20" json:"color"`
	Animation   string     `gorm:"column:animation;size:20" json:"animation"`
	Tag         string     `gorm:"column:tag;size:30" json:"tag,omitempty"`
	SubTag      string     `gorm:"column:sub_tag;size:30" json:"sub_tag,omitempty"`
	IP          string     `gorm:"column:ip;size:45;index" json:"-"`
	UUID        string     `gorm:"column:uuid;size:36;index" json:"-"`
	Country     string     `gorm:"column:country;size:60" json:"-"`
	Pinned      bool       `gorm:"column:pinned" json:"pinned"`
	PinnedUntil *time.Time `gorm:"column:pinned_until" json:"pinned_until,omitempty"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime;index" json:"created_at"`
}

func (Memory) TableName() string {
	return "memories"
}

// BeforeCreate assigns the opaque id at insert time
func (m *Memory) BeforeCreate(*gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

// IsPinnedNow reports whether the pin is live: pinned with pinned_until in
// the future. Expired pins are treated as unpinned everywhere and lazily
// cleared by the sweep.
func (m *Memory) IsPinnedNow(now time.Time) bool {
	return m.Pinned && m.PinnedUntil != nil && m.PinnedUntil.After(now)
}
