package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims is the signed identity payload stored under the "user" cookie
type SessionClaims struct {
	UserID     string `json:"user_id,omitempty"`
	Email      string `json:"email"`
	RememberMe bool   `json:"remember_me,omitempty"`
	jwt.RegisteredClaims
}

// Identity is the caller resolved from a valid session
type Identity struct {
	SessionID string
	UserID    string
	Email     string
}
