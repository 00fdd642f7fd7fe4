package models

import "errors"

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	// Admission and directory errors
	ErrUnknownAdmin   = errors.New("admin email not found in directory")
	ErrNotAuthorized  = errors.New("action not allowed for this identity")
	ErrDispatchFailed = errors.New("failed to dispatch one-time code")
	ErrInvalidCode    = errors.New("invalid one-time code")
	ErrFetchFailed    = errors.New("failed to fetch users")
	ErrWriteFailed    = errors.New("failed to write user record")
	ErrIncomplete     = errors.New("required field missing")

	// ErrConfirmationRequired is returned when a destructive bulk action
	// has not been confirmed by the session
	ErrConfirmationRequired = errors.New("action requires confirmation")

	// Challenge lifecycle errors
	ErrNoChallenge        = errors.New("no outstanding one-time code")
	ErrChallengeExpired   = errors.New("one-time code expired")
	ErrChallengeExhausted = errors.New("too many invalid one-time code attempts")
)
