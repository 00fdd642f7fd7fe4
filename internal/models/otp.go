package models

import "time"

// PendingUser is the record collected by the add-user form and admitted
// once the one-time code is verified.
type PendingUser struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// OTPChallenge is the single outstanding one-time code of a session.
// Only the bcrypt hash of the code is held. Bootstrap challenges were
// issued while the directory had no admin and admit the first one.
type OTPChallenge struct {
	SessionID        string      `json:"session_id"`
	TargetAdminEmail string      `json:"target_admin_email"`
	CodeHash         string      `json:"-"`
	Pending          PendingUser `json:"pending"`
	AttemptsLeft     int         `json:"attempts_left"`
	Bootstrap        bool        `json:"bootstrap"`
	IssuedAt         time.Time   `json:"issued_at"`
	ExpiresAt        time.Time   `json:"expires_at"`
}

// IsExpired checks if the challenge is past its window
func (c *OTPChallenge) IsExpired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// IsExhausted checks if no verification attempts remain
func (c *OTPChallenge) IsExhausted() bool {
	return c.AttemptsLeft <= 0
}
