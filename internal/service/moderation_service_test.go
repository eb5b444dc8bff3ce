package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/unsentboard/unsent-backend/internal/common"
	"github.com/unsentboard/unsent-backend/internal/domain"
	"github.com/unsentboard/unsent-backend/internal/dualstore"
	"github.com/unsentboard/unsent-backend/internal/repository"
)

func newModerationFixture() (*ModerationService, *mockGateway, *mockBanRepo, *mockInvalidator) {
	gw := new(mockGateway)
	bans := new(mockBanRepo)
	cache := new(mockInvalidator)
	return NewModerationService(gw, bans, cache), gw, bans, cache
}

func TestApprove_UpdatesStatusAndInvalidates(t *testing.T) {
	svc, gw, _, cache := newModerationFixture()

	gw.On("Update", "mem-1", map[string]interface{}{"status": domain.StatusApproved}).Return(nil)
	cache.On("InvalidateAll").Return()

	require.NoError(t, svc.Approve(context.Background(), "mem-1"))

	gw.AssertExpectations(t)
	cache.AssertExpectations(t)
}

func TestApprove_NotFoundSkipsInvalidation(t *testing.T) {
	svc, gw, _, cache := newModerationFixture()

	gw.On("Update", "ghost", mock.Anything).Return(common.ErrNotFound)

	err := svc.Approve(context.Background(), "ghost")

	assert.ErrorIs(t, err, common.ErrNotFound)
	cache.AssertNotCalled(t, "InvalidateAll")
}

func TestReject_DeletesMemory(t *testing.T) {
	svc, gw, _, cache := newModerationFixture()

	gw.On("Delete", "mem-1").Return(nil)
	cache.On("InvalidateAll").Return()

	require.NoError(t, svc.Reject(context.Background(), "mem-1"))
	gw.AssertExpectations(t)
}

func TestBan_DeletesAndRecordsIdentity(t *testing.T) {
	svc, gw, bans, cache := newModerationFixture()

	stored := []domain.Memory{{ID: "mem-1", IP: "9.9.9.9", UUID: "uuid-9", Country: "KR"}}
	gw.On("Fetch", dualstore.FetchQuery{Filter: repository.MemoryFilter{ID: "mem-1"}}).Return(stored, nil)
	gw.On("Delete", "mem-1").Return(nil)
	bans.On("Create", mock.MatchedBy(func(b *domain.BannedIdentity) bool {
		return b.IP == "9.9.9.9" && b.UUID == "uuid-9"
	})).Return(nil)
	cache.On("InvalidateAll").Return()

	require.NoError(t, svc.Ban(context.Background(), "mem-1"))

	bans.AssertExpectations(t)
}

func TestBan_MemoryMissing(t *testing.T) {
	svc, gw, bans, _ := newModerationFixture()

	gw.On("Fetch", mock.Anything).Return([]domain.Memory{}, nil)

	err := svc.Ban(context.Background(), "ghost")

	assert.ErrorIs(t, err, common.ErrMemoryNotFound)
	bans.AssertNotCalled(t, "Create", mock.Anything)
}

func TestBan_SurvivesBanRowFailure(t *testing.T) {
	// The delete already happened; a failed ban row must not fail the action.
	svc, gw, bans, cache := newModerationFixture()

	stored := []domain.Memory{{ID: "mem-1", IP: "9.9.9.9"}}
	gw.On("Fetch", mock.Anything).Return(stored, nil)
	gw.On("Delete", "mem-1").Return(nil)
	bans.On("Create", mock.Anything).Return(errors.New("primary store down"))
	cache.On("InvalidateAll").Return()

	assert.NoError(t, svc.Ban(context.Background(), "mem-1"))
}

func TestBan_AnonymousMemorySkipsBanRow(t *testing.T) {
	svc, gw, bans, cache := newModerationFixture()

	stored := []domain.Memory{{ID: "mem-1"}}
	gw.On("Fetch", mock.Anything).Return(stored, nil)
	gw.On("Delete", "mem-1").Return(nil)
	cache.On("InvalidateAll").Return()

	require.NoError(t, svc.Ban(context.Background(), "mem-1"))
	bans.AssertNotCalled(t, "Create", mock.Anything)
}

func TestPin_SetsDeadline(t *testing.T) {
	svc, gw, _, cache := newModerationFixture()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base }

	gw.On("Update", "mem-1", map[string]interface{}{
		"pinned":       true,
		"pinned_until": base.Add(30 * time.Minute),
	}).Return(nil)
	cache.On("InvalidateAll").Return()

	require.NoError(t, svc.Pin(context.Background(), "mem-1", 30*time.Minute))
	gw.AssertExpectations(t)
}

func TestPin_RejectsNonPositiveDuration(t *testing.T) {
	svc, gw, _, _ := newModerationFixture()

	err := svc.Pin(context.Background(), "mem-1", 0)

	assert.Error(t, err)
	gw.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestUnpin_ClearsBothFields(t *testing.T) {
	svc, gw, _, cache := newModerationFixture()

	gw.On("Update", "mem-1", map[string]interface{}{
		"pinned":       false,
		"pinned_until": nil,
	}).Return(nil)
	cache.On("InvalidateAll").Return()

	require.NoError(t, svc.Unpin(context.Background(), "mem-1"))
}

func TestSweepExpiredPins_ClearsLapsedOnly(t *testing.T) {
	svc, gw, _, cache := newModerationFixture()

	expired := []domain.Memory{{ID: "old-1"}, {ID: "old-2"}}
	gw.On("Fetch", dualstore.FetchQuery{Filter: repository.MemoryFilter{PinnedExpired: true}}).Return(expired, nil)
	gw.On("Update", "old-1", mock.Anything).Return(nil)
	gw.On("Update", "old-2", mock.Anything).Return(nil)
	cache.On("InvalidateAll").Return()

	cleared, err := svc.SweepExpiredPins(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, cleared)
	cache.AssertNumberOfCalls(t, "InvalidateAll", 1)
}

func TestSweepExpiredPins_NothingToDo(t *testing.T) {
	svc, gw, _, cache := newModerationFixture()

	gw.On("Fetch", mock.Anything).Return([]domain.Memory{}, nil)

	cleared, err := svc.SweepExpiredPins(context.Background())

	require.NoError(t, err)
	assert.Zero(t, cleared)
	cache.AssertNotCalled(t, "InvalidateAll")
}

func TestSweepExpiredPins_PartialFailureStillCounts(t *testing.T) {
	svc, gw, _, cache := newModerationFixture()

	expired := []domain.Memory{{ID: "old-1"}, {ID: "old-2"}}
	gw.On("Fetch", mock.Anything).Return(expired, nil)
	gw.On("Update", "old-1", mock.Anything).Return(errors.New("store down"))
	gw.On("Update", "old-2", mock.Anything).Return(nil)
	cache.On("InvalidateAll").Return()

	cleared, err := svc.SweepExpiredPins(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, cleared)
}

func TestUnban_Delegates(t *testing.T) {
	svc, _, bans, _ := newModerationFixture()
	id := domain.Identity{IP: "9.9.9.9"}

	bans.On("DeleteByIdentity", id).Return(int64(1), nil)

	removed, err := svc.Unban(context.Background(), id)

	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
}
