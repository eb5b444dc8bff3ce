package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/unsentboard/unsent-backend/internal/common"
	"github.com/unsentboard/unsent-backend/internal/domain"
	"github.com/unsentboard/unsent-backend/internal/dualstore"
	"github.com/unsentboard/unsent-backend/internal/repository"
	"github.com/unsentboard/unsent-backend/pkg/logger"
)

// ModerationService implements the admin actions on memories. Status moves
// pending -> approved (approve) or terminates in deletion (reject, ban);
// nothing ever returns to pending.
type ModerationService struct {
	gateway MemoryGateway
	banRepo repository.BanRepository
	cache   CacheInvalidator
	now     func() time.Time
	log     zerolog.Logger
}

// NewModerationService creates a ModerationService. cache may be nil.
func NewModerationService(gateway MemoryGateway, banRepo repository.BanRepository, cache CacheInvalidator) *ModerationService {
	return &ModerationService{
		gateway: gateway,
		banRepo: banRepo,
		cache:   cache,
		now:     time.Now,
		log:     logger.WithComponent("moderation"),
	}
}

// ListByStatus returns memories in either store with the given status
func (s *ModerationService) ListByStatus(ctx context.Context, status string) ([]domain.Memory, error) {
	return s.gateway.Fetch(ctx, dualstore.FetchQuery{
		Filter: repository.MemoryFilter{Status: status},
	})
}

// Approve transitions a pending memory to approved
func (s *ModerationService) Approve(ctx context.Context, id string) error {
	if err := s.gateway.Update(ctx, id, map[string]interface{}{"status": domain.StatusApproved}); err != nil {
		return err
	}
	s.invalidate("")
	return nil
}

// Reject deletes the memory from whichever store holds it
func (s *ModerationService) Reject(ctx context.Context, id string) error {
	if err := s.gateway.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate("")
	return nil
}

// Ban deletes the memory and records its identity as banned. Missing
// identity fields are simply omitted; the ban row is best-effort.
func (s *ModerationService) Ban(ctx context.Context, id string) error {
	memories, err := s.gateway.Fetch(ctx, dualstore.FetchQuery{
		Filter: repository.MemoryFilter{ID: id},
	})
	if err != nil {
		return err
	}
	if len(memories) == 0 {
		return common.ErrMemoryNotFound
	}
	m := memories[0]

	if err := s.gateway.Delete(ctx, id); err != nil {
		return err
	}

	if m.IP != "" || m.UUID != "" {
		ban := &domain.BannedIdentity{IP: m.IP, UUID: m.UUID, Country: m.Country}
		if err := s.banRepo.Create(ctx, ban); err != nil {
			s.log.Warn().Err(err).Str("memory_id", id).Msg("ban row insert failed after delete")
		}
	}

	s.invalidate("")
	return nil
}

// Unban deletes ban rows matching the identity's ip and/or uuid
func (s *ModerationService) Unban(ctx context.Context, id domain.Identity) (int64, error) {
	return s.banRepo.DeleteByIdentity(ctx, id)
}

// ListBans returns all ban rows
func (s *ModerationService) ListBans(ctx context.Context) ([]domain.BannedIdentity, error) {
	return s.banRepo.List(ctx)
}

// Pin promotes a memory to sort-first until now+duration
func (s *ModerationService) Pin(ctx context.Context, id string, duration time.Duration) error {
	if duration <= 0 {
		return fmt.Errorf("pin duration must be positive")
	}
	until := s.now().Add(duration)
	if err := s.gateway.Update(ctx, id, map[string]interface{}{
		"pinned":       true,
		"pinned_until": until,
	}); err != nil {
		return err
	}
	s.invalidate("")
	return nil
}

// Unpin clears both pin fields
func (s *ModerationService) Unpin(ctx context.Context, id string) error {
	if err := s.gateway.Update(ctx, id, map[string]interface{}{
		"pinned":       false,
		"pinned_until": nil,
	}); err != nil {
		return err
	}
	s.invalidate("")
	return nil
}

// SweepExpiredPins clears pinned-but-expired memories across both stores.
// Returns how many were cleared.
func (s *ModerationService) SweepExpiredPins(ctx context.Context) (int, error) {
	expired, err := s.gateway.Fetch(ctx, dualstore.FetchQuery{
		Filter: repository.MemoryFilter{PinnedExpired: true},
	})
	if err != nil {
		return 0, err
	}

	cleared := 0
	for _, m := range expired {
		err := s.gateway.Update(ctx, m.ID, map[string]interface{}{
			"pinned":       false,
			"pinned_until": nil,
		})
		if err != nil {
			s.log.Warn().Err(err).Str("memory_id", m.ID).Msg("pin sweep update failed")
			continue
		}
		cleared++
	}

	if cleared > 0 {
		s.log.Info().Int("cleared", cleared).Msg("cleared expired pins")
		s.invalidate("")
	}
	return cleared, nil
}

// StartPinSweeper polls for expired pins every interval until ctx is
// cancelled. Polling, not event-driven, is the accepted design here.
func (s *ModerationService) StartPinSweeper(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := s.SweepExpiredPins(ctx); err != nil {
					s.log.Warn().Err(err).Msg("pin sweep failed")
				}
			}
		}
	}()
}

func (s *ModerationService) invalidate(term string) {
	if s.cache == nil {
		return
	}
	if term == "" {
		s.cache.InvalidateAll()
		return
	}
	s.cache.InvalidateSearch(term)
}
