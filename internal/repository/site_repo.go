package repository

import (
	"context"
	"errors"
	"time"

	"github.com/unsentboard/unsent-backend/internal/domain"
	"gorm.io/gorm"
)

// SiteRepository handles the low-volume administrative singletons
// (announcement, maintenance flag, quota state) on the primary store.
// These deliberately skip the dual-store fan-out: simplicity over write
// availability for admin-owned tables.
type SiteRepository interface {
	ActiveAnnouncement(ctx context.Context, now time.Time) (*domain.Announcement, error)
	ReplaceAnnouncement(ctx context.Context, a *domain.Announcement) error
	ClearAnnouncements(ctx context.Context) error

	MaintenanceFlag(ctx context.Context) (*domain.MaintenanceFlag, error)
	SetMaintenance(ctx context.Context, active bool, message string) error

	QuotaState(ctx context.Context) (*domain.QuotaState, error)
	SetQuotaDisabledUntil(ctx context.Context, until *time.Time) error
}

type siteRepository struct {
	db *gorm.DB
}

// NewSiteRepository creates a new SiteRepository
func NewSiteRepository(db *gorm.DB) SiteRepository {
	return &siteRepository{db: db}
}

// ActiveAnnouncement returns nil, nil when there is no unexpired announcement
func (r *siteRepository) ActiveAnnouncement(ctx context.Context, now time.Time) (*domain.Announcement, error) {
	var a domain.Announcement
	err := r.db.WithContext(ctx).
		Where("expires_at > ?", now).
		Order("id DESC").
		First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// ReplaceAnnouncement deletes all existing announcements, then inserts the
// new one. No historical log is kept.
func (r *siteRepository) ReplaceAnnouncement(ctx context.Context, a *domain.Announcement) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&domain.Announcement{}).Error; err != nil {
			return err
		}
		return tx.Create(a).Error
	})
}

func (r *siteRepository) ClearAnnouncements(ctx context.Context) error {
	return r.db.WithContext(ctx).Where("1 = 1").Delete(&domain.Announcement{}).Error
}

func (r *siteRepository) MaintenanceFlag(ctx context.Context) (*domain.MaintenanceFlag, error) {
	var flag domain.MaintenanceFlag
	err := r.db.WithContext(ctx).Where("id = ?", domain.MaintenanceFlagID).First(&flag).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &domain.MaintenanceFlag{ID: domain.MaintenanceFlagID}, nil
	}
	if err != nil {
		return nil, err
	}
	return &flag, nil
}

func (r *siteRepository) SetMaintenance(ctx context.Context, active bool, message string) error {
	flag := domain.MaintenanceFlag{ID: domain.MaintenanceFlagID, IsActive: active, Message: message}
	return r.db.WithContext(ctx).Save(&flag).Error
}

func (r *siteRepository) QuotaState(ctx context.Context) (*domain.QuotaState, error) {
	var state domain.QuotaState
	err := r.db.WithContext(ctx).Where("id = ?", domain.QuotaStateID).First(&state).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &domain.QuotaState{ID: domain.QuotaStateID}, nil
	}
	if err != nil {
		return nil, err
	}
	return &state, nil
}

func (r *siteRepository) SetQuotaDisabledUntil(ctx context.Context, until *time.Time) error {
	state := domain.QuotaState{ID: domain.QuotaStateID, DisabledUntil: until}
	return r.db.WithContext(ctx).Save(&state).Error
}
