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
)

func newAdmissionFixture() (*AdmissionService, *mockGateway, *mockBanRepo, *mockWhitelistRepo, *mockSiteRepo) {
	gw := new(mockGateway)
	bans := new(mockBanRepo)
	wl := new(mockWhitelistRepo)
	site := new(mockSiteRepo)
	svc := NewAdmissionService(gw, bans, wl, site, nil, AdmissionConfig{
		DefaultQuota: 2,
		OwnerIPs:     []string{"10.0.0.1"},
	})
	return svc, gw, bans, wl, site
}

func submission() domain.SubmitMemoryRequest {
	return domain.SubmitMemoryRequest{
		Recipient: "someone",
		Message:   "words I kept to myself",
	}
}

func TestSubmit_Success(t *testing.T) {
	svc, gw, bans, wl, site := newAdmissionFixture()
	id := domain.Identity{IP: "1.2.3.4", UUID: "uuid-1"}

	bans.On("Matches", id).Return(false, nil)
	gw.On("Count", mock.Anything).Return(int64(0), nil)
	site.On("QuotaState").Return(&domain.QuotaState{}, nil)
	wl.On("FindByIP", "1.2.3.4").Return(nil, nil)
	gw.On("Insert", mock.Anything, "").Return("A", nil)

	m, store, err := svc.Submit(context.Background(), id, submission())

	require.NoError(t, err)
	assert.Equal(t, "A", store)
	assert.Equal(t, domain.StatusPending, m.Status)
	assert.Equal(t, "1.2.3.4", m.IP)
	assert.Equal(t, "uuid-1", m.UUID)
	gw.AssertExpectations(t)
}

func TestSubmit_BannedTakesPrecedenceOverQuota(t *testing.T) {
	svc, gw, bans, _, _ := newAdmissionFixture()
	id := domain.Identity{IP: "9.9.9.9"}

	bans.On("Matches", id).Return(true, nil)

	_, _, err := svc.Submit(context.Background(), id, submission())

	assert.ErrorIs(t, err, common.ErrBanned)
	gw.AssertNotCalled(t, "Count", mock.Anything)
	gw.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
}

func TestSubmit_QuotaExceeded(t *testing.T) {
	svc, gw, bans, wl, site := newAdmissionFixture()
	id := domain.Identity{IP: "9.9.9.9"}

	bans.On("Matches", id).Return(false, nil)
	gw.On("Count", mock.Anything).Return(int64(2), nil)
	site.On("QuotaState").Return(&domain.QuotaState{}, nil)
	wl.On("FindByIP", "9.9.9.9").Return(nil, nil)

	_, _, err := svc.Submit(context.Background(), id, submission())

	var qErr *QuotaError
	require.ErrorAs(t, err, &qErr)
	assert.ErrorIs(t, err, common.ErrQuotaExceeded)
	assert.NotEmpty(t, qErr.Message)
	gw.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
}

func TestSubmit_WhitelistRaisesQuota(t *testing.T) {
	svc, gw, bans, wl, site := newAdmissionFixture()
	id := domain.Identity{IP: "5.5.5.5"}

	bans.On("Matches", id).Return(false, nil)
	gw.On("Count", mock.Anything).Return(int64(2), nil)
	site.On("QuotaState").Return(&domain.QuotaState{}, nil)
	wl.On("FindByIP", "5.5.5.5").Return(&domain.WhitelistEntry{IP: "5.5.5.5", Limit: 10}, nil)
	gw.On("Insert", mock.Anything, "").Return("B", nil)

	_, store, err := svc.Submit(context.Background(), id, submission())

	require.NoError(t, err)
	assert.Equal(t, "B", store)
}

func TestSubmit_GlobalQuotaDisabled(t *testing.T) {
	svc, gw, bans, _, site := newAdmissionFixture()
	id := domain.Identity{IP: "9.9.9.9"}
	until := time.Now().Add(time.Hour)

	bans.On("Matches", id).Return(false, nil)
	gw.On("Count", mock.Anything).Return(int64(50), nil)
	site.On("QuotaState").Return(&domain.QuotaState{DisabledUntil: &until}, nil)
	gw.On("Insert", mock.Anything, "").Return("A", nil)

	_, _, err := svc.Submit(context.Background(), id, submission())

	assert.NoError(t, err)
}

func TestSubmit_ExpiredQuotaDisableFallsBack(t *testing.T) {
	svc, gw, bans, wl, site := newAdmissionFixture()
	id := domain.Identity{IP: "9.9.9.9"}
	until := time.Now().Add(-time.Hour)

	bans.On("Matches", id).Return(false, nil)
	gw.On("Count", mock.Anything).Return(int64(2), nil)
	site.On("QuotaState").Return(&domain.QuotaState{DisabledUntil: &until}, nil)
	wl.On("FindByIP", "9.9.9.9").Return(nil, nil)

	_, _, err := svc.Submit(context.Background(), id, submission())

	var qErr *QuotaError
	assert.ErrorAs(t, err, &qErr)
}

func TestSubmit_OwnerSkipsChecksButNotValidation(t *testing.T) {
	svc, gw, bans, _, _ := newAdmissionFixture()
	id := domain.Identity{IP: "10.0.0.1"}

	// Invalid payload still fails even for an owner.
	_, _, err := svc.Submit(context.Background(), id, domain.SubmitMemoryRequest{})
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)

	// Valid payload goes straight to insert without ban/quota lookups.
	gw.On("Insert", mock.Anything, "").Return("A", nil)
	_, _, err = svc.Submit(context.Background(), id, submission())
	require.NoError(t, err)
	bans.AssertNotCalled(t, "Matches", mock.Anything)
	gw.AssertNotCalled(t, "Count", mock.Anything)
}

func TestSubmit_ValidationFailure(t *testing.T) {
	svc, gw, bans, wl, site := newAdmissionFixture()
	id := domain.Identity{IP: "1.2.3.4"}

	bans.On("Matches", id).Return(false, nil)
	gw.On("Count", mock.Anything).Return(int64(0), nil)
	site.On("QuotaState").Return(&domain.QuotaState{}, nil)
	wl.On("FindByIP", "1.2.3.4").Return(nil, nil)

	req := submission()
	req.Message = "<script>alert(1)</script>"
	_, _, err := svc.Submit(context.Background(), id, req)

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.NotEmpty(t, vErr.Errors)
	gw.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
}

func TestSubmit_BodyUUIDWinsOverIdentity(t *testing.T) {
	svc, gw, bans, wl, site := newAdmissionFixture()
	id := domain.Identity{IP: "1.2.3.4", UUID: "cookie-uuid"}

	bans.On("Matches", id).Return(false, nil)
	gw.On("Count", mock.Anything).Return(int64(0), nil)
	site.On("QuotaState").Return(&domain.QuotaState{}, nil)
	wl.On("FindByIP", "1.2.3.4").Return(nil, nil)
	gw.On("Insert", mock.Anything, "").Return("A", nil)

	req := submission()
	req.UserUUID = "body-uuid"
	m, _, err := svc.Submit(context.Background(), id, req)

	require.NoError(t, err)
	assert.Equal(t, "body-uuid", m.UUID)
}

func TestCheckStatus_Owner(t *testing.T) {
	svc, _, _, _, _ := newAdmissionFixture()

	status, err := svc.CheckStatus(context.Background(), domain.Identity{IP: "10.0.0.1"})

	require.NoError(t, err)
	assert.True(t, status.CanSubmit)
	assert.True(t, status.IsOwner)
}

func TestCheckStatus_Banned(t *testing.T) {
	svc, _, bans, _, _ := newAdmissionFixture()
	id := domain.Identity{IP: "9.9.9.9"}

	bans.On("Matches", id).Return(true, nil)

	status, err := svc.CheckStatus(context.Background(), id)

	require.NoError(t, err)
	assert.True(t, status.IsBanned)
	assert.False(t, status.CanSubmit)
}

func TestCheckStatus_AtLimit(t *testing.T) {
	svc, gw, bans, wl, site := newAdmissionFixture()
	id := domain.Identity{IP: "1.2.3.4"}

	bans.On("Matches", id).Return(false, nil)
	gw.On("Count", mock.Anything).Return(int64(2), nil)
	site.On("QuotaState").Return(&domain.QuotaState{}, nil)
	wl.On("FindByIP", "1.2.3.4").Return(nil, nil)

	status, err := svc.CheckStatus(context.Background(), id)

	require.NoError(t, err)
	assert.False(t, status.CanSubmit)
	assert.True(t, status.HasReachedLimit)
	assert.Equal(t, int64(2), status.MemoryCount)
}

func TestCheckStatus_BanLookupError(t *testing.T) {
	svc, _, bans, _, _ := newAdmissionFixture()
	id := domain.Identity{IP: "1.2.3.4"}

	bans.On("Matches", id).Return(false, errors.New("primary store down"))

	_, err := svc.CheckStatus(context.Background(), id)

	assert.Error(t, err)
}
