package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
)

// RouterConfig carries the knobs NewRouter needs beyond its handlers.
type RouterConfig struct {
	CORSOrigins []string
	// RateLimit is requests per minute per IP.
	RateLimit  int
	SessionTTL time.Duration
}

// NewRouter builds and returns the Chi router with all routes configured.
// The health endpoint needs no session; search routes run under Session.
func NewRouter(handlers *Handlers, store, backend Pinger, cfg RouterConfig, log *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(log))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(httprate.LimitByIP(cfg.RateLimit, time.Minute))

	r.Get("/api/health", HealthHandlerFunc(store, backend, log))

	r.Group(func(r chi.Router) {
		r.Use(Session(cfg.SessionTTL))
		r.Post("/api/explore", handlers.Explore)
		r.Get("/api/state", handlers.State)
	})

	return r
}

// Ensure chi.Mux implements http.Handler.
var _ http.Handler = (*chi.Mux)(nil)
