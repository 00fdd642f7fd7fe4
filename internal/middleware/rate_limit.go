package middleware

import (
	"net/http"
	"time"

	"github.com/akumi07/RoleMaster21/internal/auth"
	pkghttp "github.com/akumi07/RoleMaster21/pkg/http"
	"github.com/go-chi/httprate"
)

// RateLimitConfig bounds how many one-time codes a client may request
// within Window
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

// DefaultOTPRateLimit allows 5 code requests per minute
func DefaultOTPRateLimit() RateLimitConfig {
	return RateLimitConfig{Requests: 5, Window: time.Minute}
}

// RateLimitOTP applies the same budget twice: once per client IP and once
// per admission session, so rotating either one alone does not reset it.
func RateLimitOTP(config RateLimitConfig) func(next http.Handler) http.Handler {
	defaults := DefaultOTPRateLimit()
	if config.Requests <= 0 {
		config.Requests = defaults.Requests
	}
	if config.Window <= 0 {
		config.Window = defaults.Window
	}

	limited := httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
		pkghttp.WriteTooManyRequests(w, "too many code requests, try again later")
	})

	byIP := httprate.Limit(config.Requests, config.Window, httprate.WithKeyByRealIP(), limited)
	bySession := httprate.Limit(config.Requests, config.Window, httprate.WithKeyFuncs(sessionKey), limited)

	return func(next http.Handler) http.Handler {
		return byIP(bySession(next))
	}
}

// sessionKey keys on the admission session, falling back to the client IP
// when the request carries none
func sessionKey(r *http.Request) (string, error) {
	if id := auth.SessionID(r); id != "" {
		return "session:" + id, nil
	}
	return httprate.KeyByRealIP(r)
}
