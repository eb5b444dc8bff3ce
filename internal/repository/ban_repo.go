package repository

import (
	"context"
	"fmt"

	"github.com/unsentboard/unsent-backend/internal/domain"
	"gorm.io/gorm"
)

// BanRepository stores banned identities on the designated primary store
type BanRepository interface {
	Create(ctx context.Context, ban *domain.BannedIdentity) error
	Matches(ctx context.Context, id domain.Identity) (bool, error)
	DeleteByIdentity(ctx context.Context, id domain.Identity) (int64, error)
	List(ctx context.Context) ([]domain.BannedIdentity, error)
}

type banRepository struct {
	db *gorm.DB
}

// NewBanRepository creates a new BanRepository
func NewBanRepository(db *gorm.DB) BanRepository {
	return &banRepository{db: db}
}

func (r *banRepository) Create(ctx context.Context, ban *domain.BannedIdentity) error {
	if ban.IP == "" && ban.UUID == "" {
		return fmt.Errorf("ban requires at least one of ip or uuid")
	}
	return r.db.WithContext(ctx).Create(ban).Error
}

// Matches checks for a ban record matching the identity's ip OR uuid
func (r *banRepository) Matches(ctx context.Context, id domain.Identity) (bool, error) {
	if !id.Known() {
		return false, nil
	}
	var count int64
	q := r.db.WithContext(ctx).Model(&domain.BannedIdentity{})
	if id.IP != "" && id.UUID != "" {
		q = q.Where("ip = ? OR uuid = ?", id.IP, id.UUID)
	} else if id.IP != "" {
		q = q.Where("ip = ?", id.IP)
	} else {
		q = q.Where("uuid = ?", id.UUID)
	}
	err := q.Count(&count).Error
	return count > 0, err
}

func (r *banRepository) DeleteByIdentity(ctx context.Context, id domain.Identity) (int64, error) {
	if !id.Known() {
		return 0, fmt.Errorf("unban requires at least one of ip or uuid")
	}
	q := r.db.WithContext(ctx)
	if id.IP != "" && id.UUID != "" {
		q = q.Where("ip = ? OR uuid = ?", id.IP, id.UUID)
	} else if id.IP != "" {
		q = q.Where("ip = ?", id.IP)
	} else {
		q = q.Where("uuid = ?", id.UUID)
	}
	result := q.Delete(&domain.BannedIdentity{})
	return result.RowsAffected, result.Error
}

func (r *banRepository) List(ctx context.Context) ([]domain.BannedIdentity, error) {
	var bans []domain.BannedIdentity
	err := r.db.WithContext(ctx).Order("id DESC").Find(&bans).Error
	return bans, err
}
