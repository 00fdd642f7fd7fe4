package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/akumi07/RoleMaster21/internal/models"
	pkghttp "github.com/akumi07/RoleMaster21/pkg/http"
)

// contextKey is a custom type for context keys
type contextKey string

const (
	// UserContextKey is the key for storing session claims in context
	UserContextKey contextKey = "user"
	// RequesterContextKey is the key for storing the caller's directory record
	RequesterContextKey contextKey = "requester"

	// SessionIDHeader lets clients scope one-time codes and selections explicitly
	SessionIDHeader = "X-Session-ID"
)

// RequesterLookup resolves the directory record of the signed-in caller
type RequesterLookup interface {
	QueryByEmail(ctx context.Context, email string) ([]*models.User, error)
}

// RequireSession validates the session token from the user cookie or a
// Bearer header and injects its claims into context
func RequireSession(sm *SessionManager) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := tokenFromRequest(r)
			if tokenString == "" {
				pkghttp.WriteUnauthorized(w, "not signed in")
				return
			}

			claims, err := sm.Validate(tokenString)
			if err != nil {
				pkghttp.WriteUnauthorized(w, "invalid or expired session")
				return
			}

			ctx := context.WithValue(r.Context(), UserContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalSession injects claims when a valid session is present and
// passes the request through unchanged otherwise
func OptionalSession(sm *SessionManager) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if tokenString := tokenFromRequest(r); tokenString != "" {
				if claims, err := sm.Validate(tokenString); err == nil {
					r = r.WithContext(context.WithValue(r.Context(), UserContextKey, claims))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// LoadRequester looks up the caller's directory record by email. Callers
// without a record continue as non-admins.
func LoadRequester(directory RequesterLookup, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := GetUserFromContext(r)
			if claims == nil {
				pkghttp.WriteUnauthorized(w, "not signed in")
				return
			}

			matches, err := directory.QueryByEmail(r.Context(), claims.Email)
			if err != nil {
				logger.Error("failed to resolve requester", slog.Any("error", err))
				pkghttp.WriteInternalError(w, "failed to resolve requester")
				return
			}

			if len(matches) > 0 {
				ctx := context.WithValue(r.Context(), RequesterContextKey, matches[0])
				r = r.WithContext(ctx)
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin rejects callers whose directory record is not an admin.
// It must run after LoadRequester.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !IsAdmin(r) {
			pkghttp.WriteForbidden(w, "action not allowed: admin role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetUserFromContext extracts session claims from request context
func GetUserFromContext(r *http.Request) *models.SessionClaims {
	claims, ok := r.Context().Value(UserContextKey).(*models.SessionClaims)
	if !ok {
		return nil
	}
	return claims
}

// GetRequester returns the caller's directory record, if any
func GetRequester(r *http.Request) *models.User {
	user, ok := r.Context().Value(RequesterContextKey).(*models.User)
	if !ok {
		return nil
	}
	return user
}

// IsAdmin reports whether the caller's directory record holds the admin role
func IsAdmin(r *http.Request) bool {
	return GetRequester(r).IsAdmin()
}

// SessionID returns the id scoping per-session state: the signed session
// token id, else the X-Session-ID header for anonymous callers. A signed-in
// caller cannot pick another session's id through the header.
func SessionID(r *http.Request) string {
	if claims := GetUserFromContext(r); claims != nil && claims.ID != "" {
		return claims.ID
	}
	return strings.TrimSpace(r.Header.Get(SessionIDHeader))
}

// CurrentIdentity returns the signed-in caller
func CurrentIdentity(r *http.Request) (models.Identity, bool) {
	claims := GetUserFromContext(r)
	if claims == nil {
		return models.Identity{}, false
	}
	return models.Identity{
		SessionID: SessionID(r),
		UserID:    claims.UserID,
		Email:     claims.Email,
	}, true
}

func tokenFromRequest(r *http.Request) string {
	if token, ok := SessionCookie(r); ok {
		return token
	}

	authHeader := r.Header.Get("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) == 2 && parts[0] == "Bearer" {
		return strings.TrimSpace(parts[1])
	}

	return ""
}
