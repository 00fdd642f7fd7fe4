package handlers_test

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/akumi07/RoleMaster21/internal/auth"
	"github.com/akumi07/RoleMaster21/internal/handlers"
	"github.com/akumi07/RoleMaster21/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "handler-test-secret-32-characters"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newSessionHandler() (*handlers.SessionHandler, *auth.SessionManager) {
	sm := auth.NewSessionManager(testSecret, time.Hour, 30*24*time.Hour)
	audit := logger.NewAuditLogger(discardLogger())
	return handlers.NewSessionHandler(sm, auth.CookieConfig{SameSite: http.SameSiteLaxMode}, audit), sm
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == auth.SessionCookieName {
			return c
		}
	}
	t.Fatal("session cookie not set")
	return nil
}

func TestCreateSession_SessionScopedCookie(t *testing.T) {
	handler, sm := newSessionHandler()
	providerToken, err := auth.SignProviderToken(testSecret, "", "u1", "Ada@Example.com", time.Minute)
	require.NoError(t, err)

	req := handlers.NewTestRequest(t, "POST", "/session", handlers.CreateSessionRequest{Token: providerToken})
	w := httptest.NewRecorder()
	handler.Create(w, req)

	var resp handlers.SessionResponse
	handlers.AssertJSONResponse(t, w, http.StatusOK, &resp)
	assert.Equal(t, "ada@example.com", resp.Email)
	assert.NotEmpty(t, resp.SessionID)
	assert.False(t, resp.RememberMe)

	cookie := sessionCookie(t, w)
	assert.Equal(t, 0, cookie.MaxAge, "without remember-me the cookie ends with the browser session")
	assert.True(t, cookie.HttpOnly)

	claims, err := sm.Validate(cookie.Value)
	require.NoError(t, err)
	assert.Equal(t, resp.SessionID, claims.ID)
}

func TestCreateSession_RememberMe(t *testing.T) {
	handler, _ := newSessionHandler()
	providerToken, err := auth.SignProviderToken(testSecret, "", "u1", "ada@example.com", time.Minute)
	require.NoError(t, err)

	body := handlers.CreateSessionRequest{Token: providerToken, RememberMe: true}
	req := handlers.NewTestRequest(t, "POST", "/session", body)
	w := httptest.NewRecorder()
	handler.Create(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	cookie := sessionCookie(t, w)
	assert.Equal(t, int((30 * 24 * time.Hour).Seconds()), cookie.MaxAge)
}

func TestCreateSession_InvalidToken(t *testing.T) {
	handler, _ := newSessionHandler()

	forged, err := auth.SignProviderToken("another-secret-with-32-characters", "", "u1", "ada@example.com", time.Minute)
	require.NoError(t, err)

	req := handlers.NewTestRequest(t, "POST", "/session", handlers.CreateSessionRequest{Token: forged})
	w := httptest.NewRecorder()
	handler.Create(w, req)

	handlers.AssertErrorResponse(t, w, http.StatusUnauthorized, "unauthorized")
	assert.Empty(t, w.Result().Cookies())
}

func TestCreateSession_RejectsSessionToken(t *testing.T) {
	handler, sm := newSessionHandler()

	session, _, err := sm.Issue("u1", "ada@example.com", false)
	require.NoError(t, err)

	req := handlers.NewTestRequest(t, "POST", "/session", handlers.CreateSessionRequest{Token: session})
	w := httptest.NewRecorder()
	handler.Create(w, req)

	handlers.AssertErrorResponse(t, w, http.StatusUnauthorized, "unauthorized")
	assert.Empty(t, w.Result().Cookies())
}

func TestCreateSession_MissingToken(t *testing.T) {
	handler, _ := newSessionHandler()

	req := handlers.NewTestRequest(t, "POST", "/session", handlers.CreateSessionRequest{})
	w := httptest.NewRecorder()
	handler.Create(w, req)

	handlers.AssertErrorResponse(t, w, http.StatusBadRequest, "incomplete")
}

func TestGetSession(t *testing.T) {
	handler, _ := newSessionHandler()

	req := handlers.NewTestRequest(t, "GET", "/session", nil)
	req = handlers.WithAdminContext(req, "s1", "a1", "admin@example.com")
	w := httptest.NewRecorder()
	handler.Get(w, req)

	var resp handlers.SessionResponse
	handlers.AssertJSONResponse(t, w, http.StatusOK, &resp)
	assert.Equal(t, "s1", resp.SessionID)
	assert.True(t, resp.IsAdmin)
}

func TestGetSession_SignedOut(t *testing.T) {
	handler, _ := newSessionHandler()

	req := handlers.NewTestRequest(t, "GET", "/session", nil)
	w := httptest.NewRecorder()
	handler.Get(w, req)

	handlers.AssertErrorResponse(t, w, http.StatusUnauthorized, "unauthorized")
}

func TestDeleteSession_ClearsCookie(t *testing.T) {
	handler, _ := newSessionHandler()

	req := handlers.NewTestRequest(t, "DELETE", "/session", nil)
	w := httptest.NewRecorder()
	handler.Delete(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	cookie := sessionCookie(t, w)
	assert.Equal(t, "", cookie.Value)
	assert.Less(t, cookie.MaxAge, 0)
}
