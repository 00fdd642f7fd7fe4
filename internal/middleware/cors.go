package middleware

import (
	"net/http"

	"github.com/akumi07/RoleMaster21/internal/auth"
	"github.com/go-chi/cors"
)

// CORS allows the admin front end to call the API with the session cookie.
// Only explicitly configured origins are accepted.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", auth.SessionIDHeader},
		ExposedHeaders:   []string{auth.SessionIDHeader, "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           3600,
	})
}
