package service

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/unsentboard/unsent-backend/internal/domain"
	"github.com/unsentboard/unsent-backend/internal/dualstore"
	"github.com/unsentboard/unsent-backend/internal/repository"
)

// --- Mock MemoryGateway ---

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) Insert(ctx context.Context, mem *domain.Memory, prefer string) (string, error) {
	args := m.Called(mem, prefer)
	return args.String(0), args.Error(1)
}

func (m *mockGateway) Fetch(ctx context.Context, q dualstore.FetchQuery) ([]domain.Memory, error) {
	args := m.Called(q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Memory), args.Error(1)
}

func (m *mockGateway) Update(ctx context.Context, id string, fields map[string]interface{}) error {
	return m.Called(id, fields).Error(0)
}

func (m *mockGateway) Delete(ctx context.Context, id string) error {
	return m.Called(id).Error(0)
}

func (m *mockGateway) Count(ctx context.Context, f repository.MemoryFilter) (int64, error) {
	args := m.Called(f)
	return args.Get(0).(int64), args.Error(1)
}

// --- Mock BanRepository ---

type mockBanRepo struct {
	mock.Mock
}

func (m *mockBanRepo) Create(ctx context.Context, ban *domain.BannedIdentity) error {
	return m.Called(ban).Error(0)
}

func (m *mockBanRepo) Matches(ctx context.Context, id domain.Identity) (bool, error) {
	args := m.Called(id)
	return args.Bool(0), args.Error(1)
}

func (m *mockBanRepo) DeleteByIdentity(ctx context.Context, id domain.Identity) (int64, error) {
	args := m.Called(id)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockBanRepo) List(ctx context.Context) ([]domain.BannedIdentity, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.BannedIdentity), args.Error(1)
}

// --- Mock WhitelistRepository ---

type mockWhitelistRepo struct {
	mock.Mock
}

func (m *mockWhitelistRepo) Upsert(ctx context.Context, entry *domain.WhitelistEntry) error {
	return m.Called(entry).Error(0)
}

func (m *mockWhitelistRepo) FindByIP(ctx context.Context, ip string) (*domain.WhitelistEntry, error) {
	args := m.Called(ip)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.WhitelistEntry), args.Error(1)
}

func (m *mockWhitelistRepo) Delete(ctx context.Context, ip string) (int64, error) {
	args := m.Called(ip)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockWhitelistRepo) List(ctx context.Context) ([]domain.WhitelistEntry, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.WhitelistEntry), args.Error(1)
}

// --- Mock SiteRepository ---

type mockSiteRepo struct {
	mock.Mock
}

func (m *mockSiteRepo) ActiveAnnouncement(ctx context.Context, now time.Time) (*domain.Announcement, error) {
	args := m.Called(now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Announcement), args.Error(1)
}

func (m *mockSiteRepo) ReplaceAnnouncement(ctx context.Context, a *domain.Announcement) error {
	return m.Called(a).Error(0)
}

func (m *mockSiteRepo) ClearAnnouncements(ctx context.Context) error {
	return m.Called().Error(0)
}

func (m *mockSiteRepo) MaintenanceFlag(ctx context.Context) (*domain.MaintenanceFlag, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MaintenanceFlag), args.Error(1)
}

func (m *mockSiteRepo) SetMaintenance(ctx context.Context, active bool, message string) error {
	return m.Called(active, message).Error(0)
}

func (m *mockSiteRepo) QuotaState(ctx context.Context) (*domain.QuotaState, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.QuotaState), args.Error(1)
}

func (m *mockSiteRepo) SetQuotaDisabledUntil(ctx context.Context, until *time.Time) error {
	return m.Called(until).Error(0)
}

// --- Mock CacheInvalidator ---

type mockInvalidator struct {
	mock.Mock
}

func (m *mockInvalidator) InvalidateAll() {
	m.Called()
}

func (m *mockInvalidator) InvalidateSearch(term string) {
	m.Called(term)
}
