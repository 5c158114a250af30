package main

import (
	"log/slog"
	"net/http"
	"net/netip"

	"github.com/go-chi/chi/v5"

	"github.com/letterbox/letterbox/internal/config"
	"github.com/letterbox/letterbox/internal/handler"
	"github.com/letterbox/letterbox/internal/metrics"
	"github.com/letterbox/letterbox/internal/middleware"
)

// Rate limit scopes. Each has its own bucket per client IP.
const (
	scopeSubscribe = "subscribe"
	scopeConfirm   = "confirm"
	scopePublish   = "publish"
)

type routerDeps struct {
	root          *handler.Handler
	health        *handler.HealthHandler
	subscriptions *handler.SubscriptionHandler
	newsletters   *handler.NewsletterHandler
	metrics       http.Handler
	limiter       middleware.IPRateLimiter
	recorder      metrics.Recorder

	// Peers allowed to set X-Forwarded-For / X-Real-IP.
	trustedProxies []netip.Prefix
}

// setupRouter configures the chi router with all routes and middleware.
func setupRouter(deps routerDeps, cfg *config.Config, logger *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RealIP(deps.trustedProxies))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Metrics(deps.recorder))
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.Security(middleware.SecurityConfig{IsDevelopment: cfg.IsDevelopment()}))
	r.Use(middleware.MaxBodySize(cfg.MaxRequestBodySize))

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = cfg.CORSAllowedOrigins
	r.Use(middleware.CORS(corsCfg))

	rl := middleware.RateLimitConfig{
		Logger:  logger,
		Limiter: deps.limiter,
		Enabled: cfg.RateLimitEnabled,
		RPS:     cfg.RateLimitRPS,
		Burst:   cfg.RateLimitBurst,
	}

	r.Get("/", deps.root.Root)
	r.Get("/healthz", deps.health.Healthz)
	r.Get("/health_check", deps.health.Healthz)
	r.Get("/readyz", deps.health.Readyz)
	if deps.metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.metrics)
	}

	r.Route("/subscriptions", func(r chi.Router) {
		r.With(middleware.RateLimitIP(rl, scopeSubscribe)).Post("/", deps.subscriptions.Subscribe)
		r.With(middleware.RateLimitIP(rl, scopeConfirm)).Get("/confirm", deps.subscriptions.Confirm)
	})

	publish := middleware.RateLimitIP(rl, scopePublish)
	r.With(publish).Post("/newsletters", deps.newsletters.Publish)
	r.With(publish).Post("/auth/newsletters", deps.newsletters.Publish)

	r.NotFound(deps.root.NotFound)
	r.MethodNotAllowed(deps.root.MethodNotAllowed)

	return r
}
