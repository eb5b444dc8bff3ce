package repository

import (
	"context"
	"errors"

	"github.com/unsentboard/unsent-backend/internal/domain"
	"gorm.io/gorm"
)

// WhitelistRepository stores per-IP quota overrides on the primary store
type WhitelistRepository interface {
	Upsert(ctx context.Context, entry *domain.WhitelistEntry) error
	FindByIP(ctx context.Context, ip string) (*domain.WhitelistEntry, error)
	Delete(ctx context.Context, ip string) (int64, error)
	List(ctx context.Context) ([]domain.WhitelistEntry, error)
}

type whitelistRepository struct {
	db *gorm.DB
}

// NewWhitelistRepository creates a new WhitelistRepository
func NewWhitelistRepository(db *gorm.DB) WhitelistRepository {
	return &whitelistRepository{db: db}
}

func (r *whitelistRepository) Upsert(ctx context.Context, entry *domain.WhitelistEntry) error {
	var existing domain.WhitelistEntry
	err := r.db.WithContext(ctx).Where("ip = ?", entry.IP).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return r.db.WithContext(ctx).Create(entry).Error
	}
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Model(&existing).
		Updates(map[string]interface{}{"quota_limit": entry.Limit, "notes": entry.Notes}).Error
}

// FindByIP returns nil, nil when the IP is not whitelisted
func (r *whitelistRepository) FindByIP(ctx context.Context, ip string) (*domain.WhitelistEntry, error) {
	var entry domain.WhitelistEntry
	err := r.db.WithContext(ctx).Where("ip = ?", ip).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *whitelistRepository) Delete(ctx context.Context, ip string) (int64, error) {
	result := r.db.WithContext(ctx).Where("ip = ?", ip).Delete(&domain.WhitelistEntry{})
	return result.RowsAffected, result.Error
}

func (r *whitelistRepository) List(ctx context.Context) ([]domain.WhitelistEntry, error) {
	var entries []domain.WhitelistEntry
	err := r.db.WithContext(ctx).Order("id DESC").Find(&entries).Error
	return entries, err
}
