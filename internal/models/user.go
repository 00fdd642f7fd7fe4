package models

import (
	"strings"
	"time"
)

// Role is the directory role of a user record
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleCandidate Role = "candidate"
	RoleUser      Role = "user"
)

// Valid reports whether r is one of the known roles
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleCandidate, RoleUser:
		return true
	}
	return false
}

// User is a single record of the user directory.
// IsToggling is transient and only ever set on cached copies.
type User struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Role       Role      `json:"role"`
	Active     bool      `json:"active"`
	IsToggling bool      `json:"is_toggling"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// IsAdmin reports whether the record holds the admin role
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// UserFields is a partial update. Nil fields are left untouched.
type UserFields struct {
	Name   *string
	Email  *string
	Role   *Role
	Active *bool
}

// IsEmpty reports whether no field is set
func (f UserFields) IsEmpty() bool {
	return f.Name == nil && f.Email == nil && f.Role == nil && f.Active == nil
}

// Apply copies the set fields onto u
func (f UserFields) Apply(u *User) {
	if f.Name != nil {
		u.Name = *f.Name
	}
	if f.Email != nil {
		u.Email = *f.Email
	}
	if f.Role != nil {
		u.Role = *f.Role
	}
	if f.Active != nil {
		u.Active = *f.Active
	}
}

// NormalizeEmail lower-cases and trims an email used as a lookup key
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
