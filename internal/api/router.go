package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/campuslink/chatd/internal/api/middleware"
	"github.com/campuslink/chatd/internal/config"
	"github.com/campuslink/chatd/internal/handlers"
)

// NewRouter creates the HTTP router with all routes and middleware. The rate
// limiter is optional; in-memory deployments run without one.
func NewRouter(cfg *config.Config, h *handlers.Handler, limiter *middleware.RateLimiter, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	// Metrics first so it observes everything, including rejected requests
	r.Use(middleware.Metrics)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.MaxBodySize(cfg.MaxBodyBytes))
	r.Use(middleware.RequireJSON)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(chimiddleware.Recoverer)

	if limiter != nil {
		r.Use(limiter.Middleware)
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-User-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", h.Health)
	r.Handle("/metrics", promhttp.Handler())

	// The websocket route stays outside the request timeout; connections
	// live until the client hangs up.
	r.Get("/ws", h.WebSocket)

	r.Group(func(r chi.Router) {
		r.Use(chimiddleware.Timeout(30 * time.Second))

		r.Route("/rooms", func(r chi.Router) {
			r.Get("/{key}/messages", h.GetRoomMessages)
			r.Get("/{key}/presence", h.GetRoomPresence)
		})

		r.Route("/groups", func(r chi.Router) {
			r.Get("/", h.ListGroups)
			r.Post("/", h.CreateGroup)
			r.Delete("/{id}", h.DeleteGroup)
			r.Post("/{id}/members", h.AddMember)
			r.Delete("/{id}/members/{userID}", h.RemoveMember)
		})

		r.Get("/users/{id}", h.GetUser)
		r.Get("/stats", h.Stats)

		r.Get("/unread", h.GetUnread)
		r.Get("/activity", h.GetActivity)
		r.Post("/read", h.MarkRead)
	})

	return r
}
