package webhook

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/coldroute/coldroute/internal/config"
	"github.com/coldroute/coldroute/internal/metrics"
)

// NewRouter assembles the full HTTP surface: webhooks, admin IP endpoints,
// health, and metrics. Mirrors the teacher's SetupRoutes (internal/api/
// routes.go): middleware stack first, route groups after.
func NewRouter(h *Handlers, cfg config.WebhookConfig, mc *metrics.Collector) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Webhook-Signature"},
		MaxAge:         300,
	}))

	rateLimit := cfg.RateLimitPerMin
	if rateLimit <= 0 {
		rateLimit = 200
	}
	r.Use(httprate.LimitByIP(rateLimit, time.Minute))

	r.Use(sourceIPAllowlistMiddleware(cfg.AllowedSourceIPs))

	r.Get("/healthz", h.HandleHealth)
	if mc != nil {
		r.Handle("/metrics", mc.Handler())
	}

	r.Route("/webhooks", func(wr chi.Router) {
		wr.Use(hmacSecretMiddleware(cfg.HMACSecret))
		wr.Post("/bounce", h.HandleBounce)
		wr.Post("/delivery", h.HandleDelivery)
		wr.Post("/mailwizz", h.HandleMailwizz)
		wr.Post("/powermta", h.HandlePowerMTA)
	})

	r.Route("/admin/ips", func(ar chi.Router) {
		ar.Post("/", h.HandleCreateIP)
		ar.Delete("/{id}", h.HandleDeleteIP)
	})

	return r
}
