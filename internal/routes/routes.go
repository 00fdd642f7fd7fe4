package routes

import (
	"log/slog"
	"time"

	"github.com/akumi07/RoleMaster21/internal/auth"
	"github.com/akumi07/RoleMaster21/internal/handlers"
	"github.com/akumi07/RoleMaster21/internal/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handlers groups every HTTP handler mounted by RegisterRoutes
type Handlers struct {
	Health    *handlers.HealthHandler
	Session   *handlers.SessionHandler
	AddUser   *handlers.AddUserHandler
	Users     *handlers.UserHandler
	Stream    *handlers.StreamHandler
	Selection *handlers.SelectionHandler
	Bulk      *handlers.BulkHandler
}

// Options carries the collaborators the route middleware needs
type Options struct {
	Sessions        *auth.SessionManager
	Requesters      auth.RequesterLookup
	OTPRateLimit    middleware.RateLimitConfig
	VerifyRateLimit middleware.RateLimitConfig
	RequestTimeout  time.Duration
	Logger          *slog.Logger
}

// RegisterRoutes registers all application routes
func RegisterRoutes(router chi.Router, h Handlers, opts Options) {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 60 * time.Second
	}

	requireSession := auth.RequireSession(opts.Sessions)
	loadRequester := auth.LoadRequester(opts.Requesters, opts.Logger)

	// Public routes - no session required
	router.Get("/health", h.Health.Health)
	router.Handle("/metrics", promhttp.Handler())

	// The stream outlives the request timeout
	router.With(requireSession).Get("/users/stream", h.Stream.Stream)

	router.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(opts.RequestTimeout))

		r.Post("/session", h.Session.Create)
		r.With(auth.OptionalSession(opts.Sessions)).Delete("/session", h.Session.Delete)

		// Add-user flow, scoped by X-Session-ID or the signed-in session
		r.Group(func(r chi.Router) {
			r.Use(auth.OptionalSession(opts.Sessions))
			r.With(middleware.RateLimitOTP(opts.OTPRateLimit)).Post("/add-user/otp", h.AddUser.RequestOTP)
			r.With(middleware.RateLimitOTP(opts.VerifyRateLimit)).Post("/add-user/verify", h.AddUser.Verify)
		})

		// Signed-in routes
		r.Group(func(r chi.Router) {
			r.Use(requireSession)
			r.Use(loadRequester)

			r.Get("/session", h.Session.Get)

			r.Get("/users", h.Users.ListUsers)
			r.Get("/users/{id}", h.Users.GetUser)
			r.Post("/users/{id}/toggle-active", h.Users.ToggleActive)

			r.Get("/selection", h.Selection.GetSelection)
			r.Put("/selection", h.Selection.UpdateSelection)
			r.Delete("/selection", h.Selection.ClearSelection)

			// Activate and deactivate are open to any signed-in user
			r.Post("/bulk/activate", h.Bulk.Activate)
			r.Post("/bulk/deactivate", h.Bulk.Deactivate)
			r.Post("/bulk/delete/cancel", h.Bulk.CancelDelete)

			// Admin-only routes
			r.Group(func(r chi.Router) {
				r.Use(auth.RequireAdmin)
				r.Put("/users/{id}", h.Users.UpdateUser)
				r.Post("/bulk/delete", h.Bulk.RequestDelete)
				r.Post("/bulk/delete/confirm", h.Bulk.ConfirmDelete)
			})
		})
	})
}
