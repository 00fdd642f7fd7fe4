package auth

import (
	"net/http"
	"strings"
	"time"
)

// SessionCookieName is the cookie holding the signed session token
const SessionCookieName = "user"

// CookieConfig describes how the session cookie is scoped
type CookieConfig struct {
	Domain   string
	Secure   bool
	SameSite http.SameSite
}

// ParseSameSite maps a config value onto http.SameSite, defaulting to Lax
func ParseSameSite(value string) http.SameSite {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

func (c CookieConfig) cookie(value string) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    value,
		Path:     "/",
		Domain:   c.Domain,
		HttpOnly: true,
		// Browsers reject SameSite=None without Secure
		Secure:   c.Secure || c.SameSite == http.SameSiteNoneMode,
		SameSite: c.SameSite,
	}
}

// Write stores the session token. A zero lifetime makes a browser-session
// cookie; remember-me sessions pass the token's lifetime.
func (c CookieConfig) Write(w http.ResponseWriter, token string, lifetime time.Duration) {
	cookie := c.cookie(token)
	if lifetime > 0 {
		cookie.MaxAge = int(lifetime.Seconds())
		cookie.Expires = time.Now().Add(lifetime)
	}
	http.SetCookie(w, cookie)
}

// Clear expires the session cookie
func (c CookieConfig) Clear(w http.ResponseWriter) {
	cookie := c.cookie("")
	cookie.MaxAge = -1
	http.SetCookie(w, cookie)
}

// SessionCookie returns the session token carried by r, if any
func SessionCookie(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return cookie.Value, true
}
