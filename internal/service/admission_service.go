package service

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/rs/zerolog"

	"github.com/unsentboard/unsent-backend/internal/common"
	"github.com/unsentboard/unsent-backend/internal/domain"
	"github.com/unsentboard/unsent-backend/internal/repository"
	"github.com/unsentboard/unsent-backend/internal/sanitize"
	"github.com/unsentboard/unsent-backend/pkg/logger"
)

// quotaMessages is the pool of user-facing flavor texts for a quota
// rejection. Purely cosmetic; any one string is an acceptable substitute.
var quotaMessages = []string{
	"You've poured out enough unsent words for now. Let them breathe.",
	"The mailbox for unsent letters is full. Come back another day.",
	"Some messages need time before the next one. Yours are waiting here.",
	"Two unsent letters is already a lot of heart. Rest a while.",
	"The ink needs to dry on what you've already left behind.",
}

// AdmissionConfig tunes the admission-control gate
type AdmissionConfig struct {
	DefaultQuota int
	// OwnerIPs always pass every check. Configured via secrets, never a
	// source constant.
	OwnerIPs []string
}

// AdmissionService decides whether a submission is allowed and performs the
// insert. Checks run in order, short-circuiting on the first rejection:
// owner exemption, ban, quota, validation.
type AdmissionService struct {
	gateway   MemoryGateway
	banRepo   repository.BanRepository
	whitelist repository.WhitelistRepository
	site      repository.SiteRepository
	geo       CountryLookup
	cfg       AdmissionConfig
	ownerIPs  map[string]bool
	now       func() time.Time
	log       zerolog.Logger
}

// NewAdmissionService creates an AdmissionService
func NewAdmissionService(
	gateway MemoryGateway,
	banRepo repository.BanRepository,
	whitelist repository.WhitelistRepository,
	site repository.SiteRepository,
	geo CountryLookup,
	cfg AdmissionConfig,
) *AdmissionService {
	if cfg.DefaultQuota <= 0 {
		cfg.DefaultQuota = 2
	}
	owners := make(map[string]bool, len(cfg.OwnerIPs))
	for _, ip := range cfg.OwnerIPs {
		owners[ip] = true
	}
	return &AdmissionService{
		gateway:   gateway,
		banRepo:   banRepo,
		whitelist: whitelist,
		site:      site,
		geo:       geo,
		cfg:       cfg,
		ownerIPs:  owners,
		now:       time.Now,
		log:       logger.WithComponent("admission"),
	}
}

// CheckStatus is the pre-flight ban/quota check for an identity
func (s *AdmissionService) CheckStatus(ctx context.Context, id domain.Identity) (*domain.UserStatusResponse, error) {
	if s.ownerIPs[id.IP] {
		return &domain.UserStatusResponse{CanSubmit: true, IsOwner: true}, nil
	}

	banned, err := s.banRepo.Matches(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("ban lookup: %w", err)
	}
	if banned {
		return &domain.UserStatusResponse{IsBanned: true, Reason: "banned"}, nil
	}

	count, err := s.countExisting(ctx, id)
	if err != nil {
		return nil, err
	}
	quota, unlimited, err := s.effectiveQuota(ctx, id.IP)
	if err != nil {
		return nil, err
	}

	reached := !unlimited && count >= int64(quota)
	return &domain.UserStatusResponse{
		CanSubmit:       !reached,
		MemoryCount:     count,
		HasReachedLimit: reached,
	}, nil
}

// Submit runs the admission gate and, if every check passes, inserts the
// memory and kicks off the fire-and-forget country enrichment. Returns the
// stored memory and the label of the store that accepted it.
func (s *AdmissionService) Submit(ctx context.Context, id domain.Identity, raw domain.SubmitMemoryRequest) (*domain.Memory, string, error) {
	isOwner := s.ownerIPs[id.IP]

	if !isOwner {
		banned, err := s.banRepo.Matches(ctx, id)
		if err != nil {
			return nil, "", fmt.Errorf("ban lookup: %w", err)
		}
		if banned {
			return nil, "", common.ErrBanned
		}

		count, err := s.countExisting(ctx, id)
		if err != nil {
			return nil, "", err
		}
		quota, unlimited, err := s.effectiveQuota(ctx, id.IP)
		if err != nil {
			return nil, "", err
		}
		if !unlimited && count >= int64(quota) {
			return nil, "", &QuotaError{Message: randomQuotaMessage()}
		}
	}

	result := sanitize.Sanitize(raw)
	if !result.Valid {
		return nil, "", &ValidationError{Errors: result.Errors}
	}
	clean := result.Sanitized

	m := &domain.Memory{
		Recipient: clean.Recipient,
		Message:   clean.Message,
		Sender:    clean.Sender,
		Status:    domain.StatusPending,
		Color:     clean.Color,
		Animation: clean.Animation,
		Tag:       clean.Tag,
		SubTag:    clean.SubTag,
		IP:        id.IP,
		UUID:      firstNonEmpty(clean.UserUUID, id.UUID),
	}

	store, err := s.gateway.Insert(ctx, m, "")
	if err != nil {
		return nil, "", err
	}

	// Enrichment must never block or fail the submission response.
	go s.enrichCountry(m.ID, id.IP)

	return m, store, nil
}

// countExisting counts the identity's memories across both stores,
// regardless of which store holds them
func (s *AdmissionService) countExisting(ctx context.Context, id domain.Identity) (int64, error) {
	if !id.Known() {
		return 0, nil
	}
	count, err := s.gateway.Count(ctx, repository.MemoryFilter{IP: id.IP, UUID: id.UUID})
	if err != nil {
		return 0, fmt.Errorf("quota count: %w", err)
	}
	return count, nil
}

// effectiveQuota resolves the applicable quota: the global disabled-until
// override, then a whitelist entry, then the default.
func (s *AdmissionService) effectiveQuota(ctx context.Context, ip string) (int, bool, error) {
	state, err := s.site.QuotaState(ctx)
	if err != nil {
		return 0, false, fmt.Errorf("quota state: %w", err)
	}
	if state.DisabledUntil != nil && state.DisabledUntil.After(s.now()) {
		return 0, true, nil
	}

	if ip != "" {
		entry, err := s.whitelist.FindByIP(ctx, ip)
		if err != nil {
			return 0, false, fmt.Errorf("whitelist lookup: %w", err)
		}
		if entry != nil {
			if entry.Limit <= 0 {
				return 0, true, nil
			}
			return entry.Limit, false, nil
		}
	}

	return s.cfg.DefaultQuota, false, nil
}

// enrichCountry best-effort fills in the country for a stored memory.
// Failures are swallowed and logged only.
func (s *AdmissionService) enrichCountry(memoryID, ip string) {
	if s.geo == nil || ip == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	country, err := s.geo.Country(ctx, ip)
	if err != nil || country == "" {
		s.log.Debug().Err(err).Str("ip", ip).Msg("country lookup failed")
		return
	}
	if err := s.gateway.Update(ctx, memoryID, map[string]interface{}{"country": country}); err != nil {
		s.log.Debug().Err(err).Str("memory_id", memoryID).Msg("country enrichment update failed")
	}
}

func randomQuotaMessage() string {
	return quotaMessages[rand.Intn(len(quotaMessages))]
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
