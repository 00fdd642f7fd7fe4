package handlers

import (
	"net/http"
	"time"

	"github.com/akumi07/RoleMaster21/internal/auth"
	"github.com/akumi07/RoleMaster21/internal/models"
	pkghttp "github.com/akumi07/RoleMaster21/pkg/http"
	"github.com/akumi07/RoleMaster21/pkg/logger"
)

// SessionExchanger turns an identity provider token into a session token
type SessionExchanger interface {
	Exchange(providerToken string, rememberMe bool) (string, *models.SessionClaims, error)
	Expiry(rememberMe bool) time.Duration
}

// SessionHandler manages the signed-in state kept in the user cookie
type SessionHandler struct {
	sessions SessionExchanger
	cookies  auth.CookieConfig
	audit    *logger.AuditLogger
}

// NewSessionHandler creates a new SessionHandler
func NewSessionHandler(sessions SessionExchanger, cookies auth.CookieConfig, audit *logger.AuditLogger) *SessionHandler {
	return &SessionHandler{
		sessions: sessions,
		cookies:  cookies,
		audit:    audit,
	}
}

// CreateSessionRequest carries the provider token and the remember-me choice
type CreateSessionRequest struct {
	Token      string `json:"token" validate:"required"`
	RememberMe bool   `json:"remember_me"`
}

// SessionResponse describes the signed-in caller
type SessionResponse struct {
	UserID     string    `json:"user_id,omitempty"`
	Email      string    `json:"email"`
	SessionID  string    `json:"session_id"`
	RememberMe bool      `json:"remember_me"`
	IsAdmin    bool      `json:"is_admin"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// Create handles POST /session
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, err)
		return
	}

	token, claims, err := h.sessions.Exchange(req.Token, req.RememberMe)
	if err != nil {
		h.audit.Log(r.Context(), logger.AuditEvent{
			EventType:     logger.EventSessionStart,
			Success:       false,
			FailureReason: "invalid provider token",
		})
		pkghttp.WriteUnauthorized(w, "invalid or expired token")
		return
	}

	var lifetime time.Duration
	if req.RememberMe {
		lifetime = h.sessions.Expiry(true)
	}
	h.cookies.Write(w, token, lifetime)

	h.audit.Log(r.Context(), logger.AuditEvent{
		EventType:  logger.EventSessionStart,
		ActorEmail: claims.Email,
		SessionID:  claims.ID,
		Success:    true,
	})

	pkghttp.WriteJSON(w, http.StatusOK, SessionResponse{
		UserID:     claims.UserID,
		Email:      claims.Email,
		SessionID:  claims.ID,
		RememberMe: claims.RememberMe,
		ExpiresAt:  claims.ExpiresAt.Time,
	})
}

// Get handles GET /session
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "not signed in")
		return
	}

	resp := SessionResponse{
		UserID:     claims.UserID,
		Email:      claims.Email,
		SessionID:  auth.SessionID(r),
		RememberMe: claims.RememberMe,
		IsAdmin:    auth.IsAdmin(r),
	}
	if claims.ExpiresAt != nil {
		resp.ExpiresAt = claims.ExpiresAt.Time
	}

	pkghttp.WriteJSON(w, http.StatusOK, resp)
}

// Delete handles DELETE /session. Signing out always succeeds.
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	event := logger.AuditEvent{EventType: logger.EventSessionEnd, Success: true}
	if claims := auth.GetUserFromContext(r); claims != nil {
		event.ActorEmail = claims.Email
		event.SessionID = claims.ID
	}

	h.cookies.Clear(w)
	h.audit.Log(r.Context(), event)

	w.WriteHeader(http.StatusNoContent)
}
