package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"rudyprotect/internal/modules/blacklist"
	"rudyprotect/internal/modules/moderation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	testSecret = "bridge-secret"
	testGuild  = "111111111111111111"
	testUser   = "222222222222222222"
	testRole   = "333333333333333333"
)

type mockModerator struct {
	mock.Mock
}

func (m *mockModerator) KickMember(ctx context.Context, guildID, userID, reason string) error {
	return m.Called(guildID, userID, reason).Error(0)
}

func (m *mockModerator) BanMember(ctx context.Context, guildID, userID, reason string, deleteDays int) error {
	return m.Called(guildID, userID, reason, deleteDays).Error(0)
}

func (m *mockModerator) MuteMember(ctx context.Context, guildID, userID string, minutes int, reason string) (time.Time, error) {
	args := m.Called(guildID, userID, minutes, reason)
	return args.Get(0).(time.Time), args.Error(1)
}

func (m *mockModerator) AddRole(ctx context.Context, guildID, userID, roleID string) error {
	return m.Called("add", guildID, userID, roleID).Error(0)
}

func (m *mockModerator) RemoveRole(ctx context.Context, guildID, userID, roleID string) error {
	return m.Called("remove", guildID, userID, roleID).Error(0)
}

func (m *mockModerator) GuildCount() int       { return 3 }
func (m *mockModerator) Uptime() time.Duration { return 90 * time.Second }

type stubChecker struct {
	result blacklist.CheckResult
	err    error
}

func (s stubChecker) Check(context.Context, string, string) (blacklist.CheckResult, error) {
	return s.result, s.err
}

func newTestBridge(m *mockModerator, checker BlacklistChecker) http.Handler {
	return NewBridge(m, checker, testSecret, zap.NewNop()).Routes()
}

func bridgeRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+testSecret)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestBridge_HealthNeedsNoToken(t *testing.T) {
	h := newTestBridge(&mockModerator{}, stubChecker{})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok","guilds":3,"uptime_seconds":90}`, rr.Body.String())
}

func TestBridge_RejectsBadToken(t *testing.T) {
	h := newTestBridge(&mockModerator{}, stubChecker{})
	for _, header := range []string{"", "Bearer wrong", testSecret} {
		req := httptest.NewRequest(http.MethodPost, "/api/kick-user", strings.NewReader(`{}`))
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code, "header %q", header)
	}
}

func TestBridge_EmptySecretRejectsEverything(t *testing.T) {
	h := NewBridge(&mockModerator{}, stubChecker{}, "", zap.NewNop()).Routes()
	req := httptest.NewRequest(http.MethodPost, "/api/kick-user", strings.NewReader(`{}`))
	req.Header.Set("Authorization", "Bearer ")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestBridge_Kick(t *testing.T) {
	m := &mockModerator{}
	m.On("KickMember", testGuild, testUser, "spam").Return(nil)
	h := newTestBridge(m, stubChecker{})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, bridgeRequest(http.MethodPost, "/api/kick-user",
		fmt.Sprintf(`{"guild_id":%q,"user_id":%q,"reason":"spam"}`, testGuild, testUser)))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"success":true,"message":"member kicked"}`, rr.Body.String())
	m.AssertExpectations(t)
}

func TestBridge_ValidationErrors(t *testing.T) {
	h := newTestBridge(&mockModerator{}, stubChecker{})
	cases := map[string]string{
		"/api/kick-user":   `{"guild_id":"abc","user_id":"1"}`,
		"/api/ban-user":    fmt.Sprintf(`{"guild_id":%q,"user_id":%q,"delete_message_days":9}`, testGuild, testUser),
		"/api/mute-user":   fmt.Sprintf(`{"guild_id":%q,"user_id":%q,"duration_minutes":0}`, testGuild, testUser),
		"/api/add-role":    fmt.Sprintf(`{"guild_id":%q,"user_id":%q}`, testGuild, testUser),
		"/api/remove-role": `not json`,
	}
	for path, body := range cases {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, bridgeRequest(http.MethodPost, path, body))
		assert.Equal(t, http.StatusBadRequest, rr.Code, path)
	}
}

func TestBridge_UnknownFieldRejected(t *testing.T) {
	h := newTestBridge(&mockModerator{}, stubChecker{})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, bridgeRequest(http.MethodPost, "/api/kick-user",
		fmt.Sprintf(`{"guild_id":%q,"user_id":%q,"extra":true}`, testGuild, testUser)))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestBridge_BanAndMute(t *testing.T) {
	expires := time.Date(2024, 5, 1, 13, 0, 0, 0, time.UTC)
	m := &mockModerator{}
	m.On("BanMember", testGuild, testUser, "raid", 7).Return(nil)
	m.On("MuteMember", testGuild, testUser, 60, "").Return(expires, nil)
	h := newTestBridge(m, stubChecker{})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, bridgeRequest(http.MethodPost, "/api/ban-user",
		fmt.Sprintf(`{"guild_id":%q,"user_id":%q,"reason":"raid","delete_message_days":7}`, testGuild, testUser)))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, bridgeRequest(http.MethodPost, "/api/mute-user",
		fmt.Sprintf(`{"guild_id":%q,"user_id":%q,"duration_minutes":60}`, testGuild, testUser)))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"success":true,"expires_at":"2024-05-01T13:00:00Z"}`, rr.Body.String())
	m.AssertExpectations(t)
}

func TestBridge_RoleErrorsMapToStatus(t *testing.T) {
	m := &mockModerator{}
	m.On("AddRole", "add", testGuild, testUser, testRole).Return(fmt.Errorf("member: %w", moderation.ErrUnknownTarget))
	m.On("RemoveRole", "remove", testGuild, testUser, testRole).Return(errors.New("discord exploded"))
	h := newTestBridge(m, stubChecker{})
	body := fmt.Sprintf(`{"guild_id":%q,"user_id":%q,"role_id":%q}`, testGuild, testUser, testRole)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, bridgeRequest(http.MethodPost, "/api/add-role", body))
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, bridgeRequest(http.MethodPost, "/api/remove-role", body))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.JSONEq(t, `{"error":"internal server error"}`, rr.Body.String())
}

func TestBridge_BlacklistCheck(t *testing.T) {
	h := newTestBridge(&mockModerator{}, stubChecker{result: blacklist.CheckResult{UserBlacklisted: true}})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, bridgeRequest(http.MethodGet, "/api/blacklist/check?user_id="+testUser, ""))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"user_blacklisted":true,"mac_blacklisted":false}`, rr.Body.String())

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, bridgeRequest(http.MethodGet, "/api/blacklist/check", ""))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	bad := newTestBridge(&mockModerator{}, stubChecker{err: blacklist.ErrInvalidMAC})
	rr = httptest.NewRecorder()
	bad.ServeHTTP(rr, bridgeRequest(http.MethodGet, "/api/blacklist/check?mac=zz", ""))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHealthRoutes(t *testing.T) {
	rr := httptest.NewRecorder()
	HealthRoutes(&mockModerator{}).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}
