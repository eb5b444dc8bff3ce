package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/unsentboard/unsent-backend/internal/common"
	"github.com/unsentboard/unsent-backend/internal/domain"
	"github.com/unsentboard/unsent-backend/internal/dualstore"
	"github.com/unsentboard/unsent-backend/internal/repository"
)

// MemoryGateway is the dual-store surface the services depend on.
// *dualstore.Gateway satisfies it; tests substitute mocks.
type MemoryGateway interface {
	Insert(ctx context.Context, m *domain.Memory, prefer string) (string, error)
	Fetch(ctx context.Context, q dualstore.FetchQuery) ([]domain.Memory, error)
	Update(ctx context.Context, id string, fields map[string]interface{}) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context, f repository.MemoryFilter) (int64, error)
}

// CountryLookup resolves a country for an IP, best-effort
type CountryLookup interface {
	Country(ctx context.Context, ip string) (string, error)
}

// CacheInvalidator is the slice of the listing cache moderation needs
type CacheInvalidator interface {
	InvalidateAll()
	InvalidateSearch(term string)
}

// ValidationError carries the sanitizer's field errors
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s", strings.Join(e.Errors, "; "))
}

// QuotaError carries the user-facing flavor message for a quota rejection
type QuotaError struct {
	Message string
}

func (e *QuotaError) Error() string { return e.Message }

func (e *QuotaError) Unwrap() error { return common.ErrQuotaExceeded }
