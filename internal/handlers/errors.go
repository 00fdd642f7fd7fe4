package handlers

import (
	"net/http"

	"github.com/akumi07/RoleMaster21/internal/models"
	pkghttp "github.com/akumi07/RoleMaster21/pkg/http"
)

var serviceErrors = pkghttp.ErrorMapper{
	{Target: models.ErrIncomplete, Status: http.StatusBadRequest, Code: "incomplete", Message: "all fields are required", Details: true},
	{Target: models.ErrBadRequest, Status: http.StatusBadRequest, Code: "bad_request", Message: "invalid request", Details: true},
	{Target: models.ErrUnknownAdmin, Status: http.StatusNotFound, Code: "unknown_admin", Message: "admin email not found"},
	{Target: models.ErrNotAuthorized, Status: http.StatusForbidden, Code: "not_authorized", Message: "action not allowed"},
	{Target: models.ErrDispatchFailed, Status: http.StatusBadGateway, Code: "dispatch_failed", Message: "failed to send OTP"},
	{Target: models.ErrInvalidCode, Status: http.StatusUnauthorized, Code: "invalid_code", Message: "invalid OTP"},
	{Target: models.ErrNoChallenge, Status: http.StatusConflict, Code: "no_challenge", Message: "no OTP has been requested for this session"},
	{Target: models.ErrChallengeExpired, Status: http.StatusGone, Code: "challenge_expired", Message: "OTP expired, request a new one"},
	{Target: models.ErrChallengeExhausted, Status: http.StatusTooManyRequests, Code: "challenge_exhausted", Message: "too many invalid attempts, request a new OTP"},
	{Target: models.ErrConfirmationRequired, Status: http.StatusConflict, Code: "confirmation_required", Message: "delete must be confirmed"},
	{Target: models.ErrFetchFailed, Status: http.StatusServiceUnavailable, Code: "fetch_failed", Message: "failed to fetch users"},
	{Target: models.ErrWriteFailed, Status: http.StatusBadGateway, Code: "write_failed", Message: "failed to update user"},
	{Target: models.ErrNotFound, Status: http.StatusNotFound, Code: "not_found", Message: "user not found"},
	{Target: models.ErrConflict, Status: http.StatusConflict, Code: "conflict", Message: "user already exists"},
	{Target: models.ErrUnauthorized, Status: http.StatusUnauthorized, Code: "unauthorized", Message: "not signed in"},
}

// writeServiceError maps a service error onto the shared error response format
func writeServiceError(w http.ResponseWriter, err error) {
	serviceErrors.Write(w, err)
}
