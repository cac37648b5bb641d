package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	httpmiddleware "github.com/wolfman30/soonest-slot/internal/http/middleware"
	"github.com/wolfman30/soonest-slot/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	FindSoonest        http.Handler
	Health             http.Handler
	Stats              http.Handler
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
	RateLimiter        *httpmiddleware.RateLimiter
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}

	// Operational endpoints are never rate limited.
	r.Group(func(public chi.Router) {
		if cfg.Health != nil {
			public.Method(http.MethodGet, "/health", cfg.Health)
		}
		if cfg.Stats != nil {
			public.Method(http.MethodGet, "/stats", cfg.Stats)
		}
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	r.Group(func(api chi.Router) {
		api.Use(httpmiddleware.RateLimit(cfg.RateLimiter, cfg.Logger))
		if cfg.FindSoonest != nil {
			api.Method(http.MethodPost, "/find-soonest", cfg.FindSoonest)
		}
	})

	return r
}
