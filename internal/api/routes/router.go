package routes

import (
	"net/http"

	"github.com/krafta/backend/internal/api/handlers"
	"github.com/krafta/backend/internal/api/middleware"
	"github.com/krafta/backend/internal/domain/entities"
	"github.com/krafta/backend/internal/infrastructure/observability"
)

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	authHandler       *handlers.AuthHandler
	technicianHandler *handlers.TechnicianHandler
	bookingHandler    *handlers.BookingHandler
	dashboardHandler  *handlers.DashboardHandler
	adminHandler      *handlers.AdminHandler
	cronHandler       *handlers.CronHandler

	sessions        middleware.SessionParser
	cacheMiddleware *middleware.CacheMiddleware
	loginLimiter    *middleware.RateLimiter
	loaders         func(http.Handler) http.Handler
	metrics         *observability.Metrics
	corsOrigins     []string
}

// Options carries the cross-cutting pieces of the HTTP stack. Nil fields
// disable the corresponding middleware.
type Options struct {
	Sessions        middleware.SessionParser
	CacheMiddleware *middleware.CacheMiddleware
	LoginLimiter    *middleware.RateLimiter
	Loaders         func(http.Handler) http.Handler
	Metrics         *observability.Metrics
	CORSOrigins     []string
}

// NewRouter creates a new router
func NewRouter(
	authHandler *handlers.AuthHandler,
	technicianHandler *handlers.TechnicianHandler,
	bookingHandler *handlers.BookingHandler,
	dashboardHandler *handlers.DashboardHandler,
	adminHandler *handlers.AdminHandler,
	cronHandler *handlers.CronHandler,
	opts Options,
) *Router {
	return &Router{
		mux:               http.NewServeMux(),
		authHandler:       authHandler,
		technicianHandler: technicianHandler,
		bookingHandler:    bookingHandler,
		dashboardHandler:  dashboardHandler,
		adminHandler:      adminHandler,
		cronHandler:       cronHandler,
		sessions:          opts.Sessions,
		cacheMiddleware:   opts.CacheMiddleware,
		loginLimiter:      opts.LoginLimiter,
		loaders:           opts.Loaders,
		metrics:           opts.Metrics,
		corsOrigins:       opts.CORSOrigins,
	}
}

func (r *Router) throttled(h http.HandlerFunc) http.Handler {
	if r.loginLimiter == nil {
		return h
	}
	return r.loginLimiter.Middleware(h)
}

func session(h http.HandlerFunc) http.Handler {
	return middleware.RequireSession(h)
}

func withRole(want entities.Role, h http.HandlerFunc) http.Handler {
	return middleware.RequireRole(want)(h)
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	r.mux.HandleFunc("GET /health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			return
		}
	})

	r.mux.HandleFunc("GET /api/cron/keep-alive", r.cronHandler.KeepAlive)

	// Auth endpoints
	r.mux.Handle("POST /api/auth/signup", r.throttled(r.authHandler.Signup))
	r.mux.Handle("POST /api/auth/login", r.throttled(r.authHandler.Login))
	r.mux.HandleFunc("POST /api/auth/logout", r.authHandler.Logout)
	r.mux.Handle("GET /api/auth/me", session(r.authHandler.Me))

	// Public directory
	r.mux.HandleFunc("GET /api/technicians", r.technicianHandler.Directory)
	r.mux.HandleFunc("GET /api/technicians/search", r.technicianHandler.Search)
	r.mux.HandleFunc("GET /api/technicians/{id}", r.technicianHandler.GetTechnician)

	// Customer endpoints
	r.mux.Handle("GET /api/customer/dashboard", withRole(entities.RoleCustomer, r.dashboardHandler.Customer))
	r.mux.Handle("GET /api/customer/technicians", withRole(entities.RoleCustomer, r.technicianHandler.Browse))
	r.mux.Handle("POST /api/customer/bookings", withRole(entities.RoleCustomer, r.bookingHandler.CreateBooking))
	r.mux.Handle("POST /api/customer/bookings/{id}/pay", withRole(entities.RoleCustomer, r.bookingHandler.PayBooking))
	r.mux.Handle("POST /api/customer/bookings/{id}/cancel", withRole(entities.RoleCustomer, r.bookingHandler.CancelBooking))
	r.mux.Handle("POST /api/customer/bookings/{id}/review", withRole(entities.RoleCustomer, r.bookingHandler.SubmitReview))

	// Professional endpoints
	r.mux.Handle("GET /api/professional/dashboard", withRole(entities.RoleProfessional, r.dashboardHandler.Professional))
	r.mux.Handle("POST /api/professional/profile", withRole(entities.RoleProfessional, r.technicianHandler.CreateProfile))
	r.mux.Handle("POST /api/professional/bookings/{id}/accept", withRole(entities.RoleProfessional, r.bookingHandler.AcceptBooking))
	r.mux.Handle("POST /api/professional/bookings/{id}/reject", withRole(entities.RoleProfessional, r.bookingHandler.RejectBooking))
	r.mux.Handle("POST /api/professional/bookings/{id}/complete", withRole(entities.RoleProfessional, r.bookingHandler.CompleteBooking))

	// Shared booking reads; the service decides who is a party
	r.mux.Handle("GET /api/bookings/{id}", session(r.bookingHandler.GetBooking))
	r.mux.Handle("GET /api/bookings/{id}/receipt", session(r.bookingHandler.GetReceipt))

	// Admin endpoints
	r.mux.Handle("GET /api/admin/dashboard", withRole(entities.RoleAdmin, r.dashboardHandler.Admin))
	r.mux.Handle("GET /api/admin/users", withRole(entities.RoleAdmin, r.adminHandler.ListUsers))
	r.mux.Handle("POST /api/admin/technicians/{id}/verify", withRole(entities.RoleAdmin, r.adminHandler.VerifyTechnician))
	r.mux.Handle("DELETE /api/admin/users/{id}", withRole(entities.RoleAdmin, r.adminHandler.DeleteUser))

	// Apply middleware in reverse order (last middleware wraps first).
	// Observability sits closest to the mux so the matched pattern is known.
	var handler http.Handler = r.mux
	if r.loaders != nil {
		handler = r.loaders(handler)
	}
	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)

	// The cache keys per-user routes on the principal, so it runs after Authenticate
	if r.cacheMiddleware != nil {
		handler = r.cacheMiddleware.Middleware(handler)
	}
	if r.sessions != nil {
		handler = middleware.Authenticate(r.sessions)(handler)
	}

	handler = middleware.CacheControl(handler)
	handler = middleware.Compression(handler)
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.Recovery(handler)

	// CORS wraps everything so headers are set even on cache HITs
	handler = middleware.CORSMiddleware(r.corsOrigins)(handler)

	return handler
}
