package repository

import (
	"context"

	"github.com/unsentboard/unsent-backend/internal/domain"
	"gorm.io/gorm"
)

// MemoryFilter narrows memory queries. Zero fields are ignored. IP and UUID
// match with OR semantics when both are set (identity attribution).
type MemoryFilter struct {
	ID     string
	Status string
	IP     string
	UUID   string
	// PinnedExpired selects rows whose pin has lapsed (pin sweep)
	PinnedExpired bool
}

// MemoryRepository is the single-store data access the dual-store gateway
// fans out over. Each backing store gets its own instance.
type MemoryRepository interface {
	Label() string
	Insert(ctx context.Context, m *domain.Memory) error
	Find(ctx context.Context, f MemoryFilter) ([]domain.Memory, error)
	Update(ctx context.Context, id string, fields map[string]interface{}) (int64, error)
	Delete(ctx context.Context, id string) (int64, error)
	Count(ctx context.Context, f MemoryFilter) (int64, error)
	Probe(ctx context.Context) error
}

type memoryRepository struct {
	db    *gorm.DB
	label string
}

// NewMemoryRepository creates a MemoryRepository bound to one store.
// The label ("A" or "B") identifies the store in results and logs.
func NewMemoryRepository(db *gorm.DB, label string) MemoryRepository {
	return &memoryRepository{db: db, label: label}
}

func (r *memoryRepository) Label() string {
	return r.label
}

func (r *memoryRepository) scope(ctx context.Context, f MemoryFilter) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&domain.Memory{})
	if f.ID != "" {
		q = q.Where("id = ?", f.ID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.IP != "" && f.UUID != "" {
		q = q.Where("ip = ? OR uuid = ?", f.IP, f.UUID)
	} else if f.IP != "" {
		q = q.Where("ip = ?", f.IP)
	} else if f.UUID != "" {
		q = q.Where("uuid = ?", f.UUID)
	}
	if f.PinnedExpired {
		q = q.Where("pinned = ? AND pinned_until IS NOT NULL AND pinned_until < CURRENT_TIMESTAMP", true)
	}
	return q
}

func (r *memoryRepository) Insert(ctx context.Context, m *domain.Memory) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *memoryRepository) Find(ctx context.Context, f MemoryFilter) ([]domain.Memory, error) {
	var memories []domain.Memory
	err := r.scope(ctx, f).Find(&memories).Error
	return memories, err
}

func (r *memoryRepository) Update(ctx context.Context, id string, fields map[string]interface{}) (int64, error) {
	result := r.db.WithContext(ctx).Model(&domain.Memory{}).
		Where("id = ?", id).
		Updates(fields)
	return result.RowsAffected, result.Error
}

func (r *memoryRepository) Delete(ctx context.Context, id string) (int64, error) {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Memory{})
	return result.RowsAffected, result.Error
}

func (r *memoryRepository) Count(ctx context.Context, f MemoryFilter) (int64, error) {
	var count int64
	err := r.scope(ctx, f).Count(&count).Error
	return count, err
}

// Probe is a lightweight health check that never mutates state
func (r *memoryRepository) Probe(ctx context.Context) error {
	var id string
	err := r.db.WithContext(ctx).Model(&domain.Memory{}).
		Select("id").Limit(1).Scan(&id).Error
	return err
}
