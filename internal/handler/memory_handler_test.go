package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/unsentboard/unsent-backend/internal/domain"
	"github.com/unsentboard/unsent-backend/internal/dualstore"
	"github.com/unsentboard/unsent-backend/internal/listing"
	"github.com/unsentboard/unsent-backend/internal/repository"
	"github.com/unsentboard/unsent-backend/internal/service"
)

// testApp wires the public endpoints over two in-memory stores
type testApp struct {
	router  *gin.Engine
	repoA   repository.MemoryRepository
	repoB   repository.MemoryRepository
	banRepo repository.BanRepository
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	open := func() *gorm.DB {
		db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			Logger: gormlogger.Default.LogMode(gormlogger.Silent),
		})
		require.NoError(t, err)
		require.NoError(t, db.AutoMigrate(&domain.Memory{}))
		return db
	}
	dbA := open()
	require.NoError(t, dbA.AutoMigrate(
		&domain.BannedIdentity{},
		&domain.WhitelistEntry{},
		&domain.Announcement{},
		&domain.MaintenanceFlag{},
		&domain.QuotaState{},
	))
	dbB := open()

	repoA := repository.NewMemoryRepository(dbA, "A")
	repoB := repository.NewMemoryRepository(dbB, "B")
	banRepo := repository.NewBanRepository(dbA)
	gateway := dualstore.NewGateway(repoA, repoB, time.Second)
	cache := listing.NewCache(gateway, listing.Config{}, nil)

	admission := service.NewAdmissionService(
		gateway, banRepo,
		repository.NewWhitelistRepository(dbA),
		repository.NewSiteRepository(dbA),
		nil,
		service.AdmissionConfig{DefaultQuota: 2},
	)

	h := NewMemoryHandler(admission, cache, 30)
	router := gin.New()
	router.POST("/api/submit-memory", h.Submit)
	router.GET("/api/memories", h.List)
	router.POST("/api/check-user-status", h.CheckUserStatus)

	return &testApp{router: router, repoA: repoA, repoB: repoB, banRepo: banRepo}
}

func (a *testApp) do(t *testing.T, method, path string, body interface{}, ip string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if ip != "" {
		req.Header.Set("X-Forwarded-For", ip)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func submitBody(msg string) map[string]string {
	return map[string]string{"recipient": "someone", "message": msg}
}

func TestSubmitEndpoint_Created(t *testing.T) {
	app := newTestApp(t)

	w := app.do(t, http.MethodPost, "/api/submit-memory", submitBody("a message never sent"), "1.2.3.4")

	require.Equal(t, http.StatusCreated, w.Code)
	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			ID       string `json:"id"`
			Database string `json:"database"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.NotEmpty(t, resp.Data.ID)
	assert.Contains(t, []string{"A", "B"}, resp.Data.Database)
}

func TestSubmitEndpoint_ValidationErrors(t *testing.T) {
	app := newTestApp(t)

	w := app.do(t, http.MethodPost, "/api/submit-memory", map[string]string{}, "1.2.3.4")

	require.Equal(t, http.StatusBadRequest, w.Code)
	var resp struct {
		Success bool     `json:"success"`
		Errors  []string `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.NotEmpty(t, resp.Errors)
}

func TestSubmitEndpoint_Banned(t *testing.T) {
	app := newTestApp(t)
	require.NoError(t, app.banRepo.Create(context.Background(), &domain.BannedIdentity{IP: "9.9.9.9"}))

	w := app.do(t, http.MethodPost, "/api/submit-memory", submitBody("hello"), "9.9.9.9")

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestSubmitEndpoint_QuotaExceeded(t *testing.T) {
	app := newTestApp(t)

	for i := 0; i < 2; i++ {
		w := app.do(t, http.MethodPost, "/api/submit-memory", submitBody(fmt.Sprintf("memory %d", i)), "9.9.9.9")
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := app.do(t, http.MethodPost, "/api/submit-memory", submitBody("one too many"), "9.9.9.9")

	require.Equal(t, http.StatusTooManyRequests, w.Code)
	var resp struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "RATE_LIMITED", resp.Error.Code)
	assert.NotEmpty(t, resp.Error.Message)
}

func TestListEndpoint_ApprovedOnlyWithCacheHeaders(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()

	require.NoError(t, app.repoA.Insert(ctx, &domain.Memory{Recipient: "a", Message: "m", Status: domain.StatusApproved}))
	require.NoError(t, app.repoB.Insert(ctx, &domain.Memory{Recipient: "b", Message: "m", Status: domain.StatusApproved}))
	require.NoError(t, app.repoB.Insert(ctx, &domain.Memory{Recipient: "c", Message: "m", Status: domain.StatusPending}))

	w := app.do(t, http.MethodGet, "/api/memories?page=1&pageSize=20", nil, "")

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data       []domain.Memory `json:"data"`
		TotalCount int64           `json:"totalCount"`
		TotalPages int             `json:"totalPages"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Data, 2)
	assert.Equal(t, int64(2), resp.TotalCount)
	assert.Contains(t, w.Header().Get("Cache-Control"), "stale-while-revalidate")
}

func TestListEndpoint_InvalidPagination(t *testing.T) {
	app := newTestApp(t)

	assert.Equal(t, http.StatusBadRequest, app.do(t, http.MethodGet, "/api/memories?page=0", nil, "").Code)
	assert.Equal(t, http.StatusBadRequest, app.do(t, http.MethodGet, "/api/memories?pageSize=500", nil, "").Code)
}

func TestCheckUserStatusEndpoint(t *testing.T) {
	app := newTestApp(t)

	w := app.do(t, http.MethodPost, "/api/check-user-status", map[string]string{}, "1.2.3.4")

	require.Equal(t, http.StatusOK, w.Code)
	var resp domain.UserStatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.CanSubmit)
	assert.False(t, resp.IsBanned)
}
