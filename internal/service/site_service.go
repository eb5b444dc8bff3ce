package service

import (
	"context"
	"fmt"
	"time"

	"github.com/unsentboard/unsent-backend/internal/domain"
	"github.com/unsentboard/unsent-backend/internal/repository"
)

// SiteService covers the admin-owned site-wide state: whitelist entries,
// the maintenance flag, announcements and the global quota override. All of
// it lives on the designated primary store only.
type SiteService struct {
	site      repository.SiteRepository
	whitelist repository.WhitelistRepository
	now       func() time.Time
}

// NewSiteService creates a SiteService
func NewSiteService(site repository.SiteRepository, whitelist repository.WhitelistRepository) *SiteService {
	return &SiteService{site: site, whitelist: whitelist, now: time.Now}
}

// Whitelist adds or updates a quota override for an IP
func (s *SiteService) Whitelist(ctx context.Context, ip string, limit int, notes string) error {
	if ip == "" {
		return fmt.Errorf("ip is required")
	}
	return s.whitelist.Upsert(ctx, &domain.WhitelistEntry{IP: ip, Limit: limit, Notes: notes})
}

// Unwhitelist removes the quota override for an IP
func (s *SiteService) Unwhitelist(ctx context.Context, ip string) (int64, error) {
	return s.whitelist.Delete(ctx, ip)
}

// ListWhitelist returns all whitelist entries
func (s *SiteService) ListWhitelist(ctx context.Context) ([]domain.WhitelistEntry, error) {
	return s.whitelist.List(ctx)
}

// DisableQuotaUntil switches the global quota off until the given time.
// A nil until re-enables it immediately.
func (s *SiteService) DisableQuotaUntil(ctx context.Context, until *time.Time) error {
	return s.site.SetQuotaDisabledUntil(ctx, until)
}

// SetMaintenance toggles the site-wide maintenance flag
func (s *SiteService) SetMaintenance(ctx context.Context, active bool, message string) error {
	return s.site.SetMaintenance(ctx, active, message)
}

// Maintenance returns the current maintenance flag
func (s *SiteService) Maintenance(ctx context.Context) (*domain.MaintenanceFlag, error) {
	return s.site.MaintenanceFlag(ctx)
}

// Announce replaces any existing announcement with a new time-boxed one
func (s *SiteService) Announce(ctx context.Context, message string, expiresAt time.Time) (*domain.Announcement, error) {
	if message == "" {
		return nil, fmt.Errorf("message is required")
	}
	if !expiresAt.After(s.now()) {
		return nil, fmt.Errorf("expires_at must be in the future")
	}
	a := &domain.Announcement{Message: message, ExpiresAt: expiresAt}
	if err := s.site.ReplaceAnnouncement(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// ActiveAnnouncement returns the unexpired announcement, if any
func (s *SiteService) ActiveAnnouncement(ctx context.Context) (*domain.Announcement, error) {
	return s.site.ActiveAnnouncement(ctx, s.now())
}

// ClearAnnouncements removes every announcement
func (s *SiteService) ClearAnnouncements(ctx context.Context) error {
	return s.site.ClearAnnouncements(ctx)
}
