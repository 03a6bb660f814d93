package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"session-gateway/constant"
	"session-gateway/dto"
	"session-gateway/entities"
	"session-gateway/pkg/identity"
	"session-gateway/service"
)

const testSecret = "test-secret"

type stubSessions struct {
	session   *entities.Session
	deleted   bool
	err       error
	principal string
}

func (s *stubSessions) capture(ctx context.Context) {
	if id := identity.FromContext(ctx); id != nil {
		s.principal = id.Principal
	}
}

func (s *stubSessions) CreateSession(ctx context.Context, _ dto.CreateSessionInput) (*entities.Session, error) {
	s.capture(ctx)
	return s.session, s.err
}

func (s *stubSessions) GetSession(ctx context.Context, _ string) (*entities.Session, error) {
	s.capture(ctx)
	return s.session, s.err
}

func (s *stubSessions) ListSessions(ctx context.Context) ([]*entities.Session, error) {
	s.capture(ctx)
	if s.err != nil {
		return nil, s.err
	}
	return []*entities.Session{s.session}, nil
}

func (s *stubSessions) ListSessionsWithRetry(ctx context.Context, _ uint, _ time.Duration) ([]*entities.Session, error) {
	return s.ListSessions(ctx)
}

func (s *stubSessions) MySessions(ctx context.Context) ([]*entities.Session, error) {
	return s.ListSessions(ctx)
}

func (s *stubSessions) UpdateSession(ctx context.Context, _ string, _ dto.UpdateSessionInput) (*entities.Session, error) {
	s.capture(ctx)
	return s.session, s.err
}

func (s *stubSessions) DeleteSession(ctx context.Context, _ string) (bool, error) {
	s.capture(ctx)
	return s.deleted, s.err
}

func (s *stubSessions) JoinSession(ctx context.Context, _ string) (*dto.JoinResult, error) {
	s.capture(ctx)
	if s.err != nil {
		return nil, s.err
	}
	return &dto.JoinResult{Session: s.session, IsModerator: true}, nil
}

func (s *stubSessions) LeaveSession(ctx context.Context, _ string) (*entities.Session, error) {
	s.capture(ctx)
	return s.session, s.err
}

func (s *stubSessions) UpdateSessionStatus(ctx context.Context, _ string, _ constant.SessionStatus) (*entities.Session, error) {
	s.capture(ctx)
	return s.session, s.err
}

func (s *stubSessions) StartRecording(ctx context.Context, _ string) (*entities.Session, error) {
	s.capture(ctx)
	return s.session, s.err
}

func (s *stubSessions) StopRecording(ctx context.Context, _ string) (*entities.Session, error) {
	s.capture(ctx)
	return s.session, s.err
}

func (s *stubSessions) SessionsByStatus(ctx context.Context, _ constant.SessionStatus) ([]*entities.Session, error) {
	return s.ListSessions(ctx)
}

func (s *stubSessions) SessionsByType(ctx context.Context, _ constant.SessionType) ([]*entities.Session, error) {
	return s.ListSessions(ctx)
}

func (s *stubSessions) UpcomingSessions(ctx context.Context) ([]*entities.Session, error) {
	return s.ListSessions(ctx)
}

func (s *stubSessions) LiveSessions(ctx context.Context) ([]*entities.Session, error) {
	return s.ListSessions(ctx)
}

func (s *stubSessions) StatusLabel(status constant.SessionStatus) string { return "Scheduled" }
func (s *stubSessions) TypeLabel(t constant.SessionType) string          { return "Video Call" }

type stubProfiles struct {
	profile *entities.UserProfile
	saveErr error
}

func (s *stubProfiles) GetProfile(_ context.Context, _ string) (*entities.UserProfile, error) {
	return s.profile, nil
}

func (s *stubProfiles) SaveProfile(_ context.Context, _ *entities.UserProfile) error {
	return s.saveErr
}

func newRouter(sessions *stubSessions, profiles *stubProfiles) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(IdentityMiddleware(testSecret))
	NewSessionHandler(sessions, profiles).RegisterRoutes(r)
	return r
}

func bearer(t *testing.T) string {
	t.Helper()
	id := &identity.Identity{Principal: "caller-1", DisplayName: "Caller"}
	token, err := id.Token(testSecret, time.Minute)
	require.NoError(t, err)
	return "Bearer " + token
}

func TestGetSessionNotFound(t *testing.T) {
	r := newRouter(&stubSessions{}, &stubProfiles{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/sessions/s-1", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetSessionFound(t *testing.T) {
	sessions := &stubSessions{session: &entities.Session{ID: "s-1", Title: "Standup"}}
	r := newRouter(sessions, &stubProfiles{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/sessions/s-1", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status_label"`)
	assert.Contains(t, w.Body.String(), "Standup")
}

func TestAuthRequiredMapsTo401(t *testing.T) {
	sessions := &stubSessions{err: service.ErrAuthRequired}
	r := newRouter(sessions, &stubProfiles{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/api/sessions/s-1", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestBearerTokenReachesService(t *testing.T) {
	sessions := &stubSessions{session: &entities.Session{ID: "s-1"}, deleted: true}
	r := newRouter(sessions, &stubProfiles{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/api/sessions/s-1", nil)
	req.Header.Set("Authorization", bearer(t))
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "caller-1", sessions.principal)
	assert.Contains(t, w.Body.String(), `"deleted":true`)
}

func TestInvalidBearerTokenRejected(t *testing.T) {
	r := newRouter(&stubSessions{}, &stubProfiles{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/sessions", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreateSessionValidation(t *testing.T) {
	r := newRouter(&stubSessions{session: &entities.Session{ID: "s-1"}}, &stubProfiles{})

	// missing required title and scheduled_time
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/sessions", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateSessionCreated(t *testing.T) {
	r := newRouter(&stubSessions{session: &entities.Session{ID: "s-1"}}, &stubProfiles{})

	body := `{"title":"Planning","scheduled_time":"2026-01-02T15:04:05Z"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/sessions", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", bearer(t))
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestJoinSessionReturnsModeratorFlag(t *testing.T) {
	sessions := &stubSessions{session: &entities.Session{ID: "s-1"}}
	r := newRouter(sessions, &stubProfiles{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/sessions/s-1/join", nil)
	req.Header.Set("Authorization", bearer(t))
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"is_moderator":true`)
}

func TestSaveProfileRequiresAuth(t *testing.T) {
	r := newRouter(&stubSessions{}, &stubProfiles{saveErr: service.ErrAuthRequired})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/api/profiles/me", strings.NewReader(`{"display_name":"Me"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
