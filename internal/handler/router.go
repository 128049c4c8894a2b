package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/linkhub/linkhub/internal/metrics"
	"github.com/linkhub/linkhub/internal/middleware"
)

// RouteLimit is the per-IP budget of one rate limited route.
type RouteLimit struct {
	PerMinute int
	Burst     int
}

// RouterConfig carries everything NewRouter wires together.
type RouterConfig struct {
	Logger  *slog.Logger
	Metrics metrics.Recorder

	Auth          *AuthHandler
	Health        *HealthHandler
	Authenticator middleware.Authenticator
	// MetricsHandler serves /metrics. The route is omitted when nil.
	MetricsHandler http.Handler

	// Limiter backs per-IP rate limiting. Limiting is off when nil.
	Limiter          middleware.Limiter
	RateLimitEnabled bool
	LoginLimit       RouteLimit
	RegisterLimit    RouteLimit

	IsDevelopment      bool
	AllowedOrigins     []string
	MaxRequestBodySize int64
}

// NewRouter configures the chi router with all routes and middleware.
func NewRouter(cfg RouterConfig) *chi.Mux {
	h := New()
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(cfg.Logger, cfg.Metrics))
	r.Use(middleware.Recoverer(cfg.Logger, cfg.IsDevelopment))
	r.Use(middleware.Security(middleware.SecurityConfig{IsDevelopment: cfg.IsDevelopment}))

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = cfg.AllowedOrigins
	r.Use(middleware.CORS(corsCfg))

	// Probes and metrics
	r.Get("/healthz", cfg.Health.Healthz)
	r.Get("/readyz", cfg.Health.Readyz)
	if cfg.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", cfg.MetricsHandler)
	}

	limit := func(scope string, l RouteLimit) func(http.Handler) http.Handler {
		return middleware.RateLimitIP(middleware.RateLimitConfig{
			Logger:    cfg.Logger,
			Limiter:   cfg.Limiter,
			Metrics:   cfg.Metrics,
			Enabled:   cfg.RateLimitEnabled,
			Scope:     scope,
			PerMinute: l.PerMinute,
			Burst:     l.Burst,
		})
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.MaxBodySize(cfg.MaxRequestBodySize))

		r.With(limit("register", cfg.RegisterLimit)).Post("/register", cfg.Auth.Register)
		r.With(limit("login", cfg.LoginLimit)).Post("/login", cfg.Auth.Login)

		r.With(middleware.Auth(middleware.AuthConfig{
			Logger:        cfg.Logger,
			Authenticator: cfg.Authenticator,
		})).Get("/me", cfg.Auth.Me)
	})

	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.MethodNotAllowed)

	return r
}
