package migration

import (
	"gorm.io/gorm"

	"github.com/unsentboard/unsent-backend/internal/domain"
)

// RunStore executes AutoMigrate for the tables every backing store carries.
// Both stores hold memories; everything else lives on the primary only.
func RunStore(db *gorm.DB) error {
	return db.AutoMigrate(&domain.Memory{})
}

// RunPrimary migrates the ancillary tables that exist on the primary store
// only: bans, whitelist, announcements, maintenance and quota state.
func RunPrimary(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&domain.BannedIdentity{},
		&domain.WhitelistEntry{},
		&domain.Announcement{},
		&domain.MaintenanceFlag{},
		&domain.QuotaState{},
	); err != nil {
		return err
	}
	return seedSingletons(db)
}

// seedSingletons creates the fixed-key maintenance and quota-state rows when
// the tables are empty, so later reads never have to special-case a missing
// row on the write path.
func seedSingletons(db *gorm.DB) error {
	var count int64
	db.Model(&domain.MaintenanceFlag{}).Count(&count)
	if count == 0 {
		if err := db.Create(&domain.MaintenanceFlag{ID: domain.MaintenanceFlagID}).Error; err != nil {
			return err
		}
	}

	db.Model(&domain.QuotaState{}).Count(&count)
	if count == 0 {
		if err := db.Create(&domain.QuotaState{ID: domain.QuotaStateID}).Error; err != nil {
			return err
		}
	}
	return nil
}
