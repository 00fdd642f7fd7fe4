package handlers

import (
	"context"
	"net/http"

	"github.com/akumi07/RoleMaster21/internal/auth"
	"github.com/akumi07/RoleMaster21/internal/models"
	pkghttp "github.com/akumi07/RoleMaster21/pkg/http"
	"github.com/google/uuid"
)

// AdmissionService issues and redeems the one-time codes gating new users
type AdmissionService interface {
	RequestOTP(ctx context.Context, sessionID, adminEmail string, pending models.PendingUser) error
	CompleteAddUser(ctx context.Context, sessionID, code string) (*models.User, error)
}

// AddUserHandler handles the two-step add-user flow
type AddUserHandler struct {
	service AdmissionService
}

// NewAddUserHandler creates a new AddUserHandler
func NewAddUserHandler(service AdmissionService) *AddUserHandler {
	return &AddUserHandler{
		service: service,
	}
}

// RequestOTPRequest is the add-user form. AdminEmail may be empty while
// the directory has no admin yet.
type RequestOTPRequest struct {
	AdminEmail string `json:"admin_email" validate:"omitempty,email"`
	Name       string `json:"name" validate:"required,max=255"`
	Email      string `json:"email" validate:"required,email"`
	Role       string `json:"role" validate:"omitempty,oneof=admin candidate user"`
}

// VerifyOTPRequest carries the code typed by the admin
type VerifyOTPRequest struct {
	Code string `json:"code" validate:"required,len=4,numeric"`
}

// RequestOTPResponse is returned once the code has been dispatched
type RequestOTPResponse struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

// RequestOTP handles POST /add-user/otp
func (h *AddUserHandler) RequestOTP(w http.ResponseWriter, r *http.Request) {
	var req RequestOTPRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, err)
		return
	}

	sessionID := admissionSession(w, r)

	pending := models.PendingUser{
		Name:  req.Name,
		Email: req.Email,
		Role:  models.Role(req.Role),
	}

	if err := h.service.RequestOTP(r.Context(), sessionID, req.AdminEmail, pending); err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusAccepted, RequestOTPResponse{
		SessionID: sessionID,
		Message:   "OTP sent to admin",
	})
}

// Verify handles POST /add-user/verify
func (h *AddUserHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req VerifyOTPRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, err)
		return
	}

	sessionID := auth.SessionID(r)
	if sessionID == "" {
		writeServiceError(w, models.ErrNoChallenge)
		return
	}

	user, err := h.service.CompleteAddUser(r.Context(), sessionID, req.Code)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusCreated, user)
}

// admissionSession resolves the session scoping the challenge, minting
// one when the caller has none, and echoes it back to the client
func admissionSession(w http.ResponseWriter, r *http.Request) string {
	sessionID := auth.SessionID(r)
	if sessionID == "" {
		sessionID = uuid.New().String()
	}
	w.Header().Set(auth.SessionIDHeader, sessionID)
	return sessionID
}
