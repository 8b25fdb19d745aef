package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sultanmr/aws-grocery/pkg/health"
	"github.com/sultanmr/aws-grocery/pkg/middleware"
)

// RouterConfig holds the HTTP surface settings.
type RouterConfig struct {
	ServiceName        string
	CORS               middleware.CORSConfig
	AvatarMaxBytes     int64
	AvatarCacheSeconds int
	// Metrics and Gatherer are optional; /metrics falls back to the
	// default gatherer.
	Metrics  *middleware.HTTPMetrics
	Gatherer prometheus.Gatherer
}

// NewRouter creates a chi router with all account routes registered.
func NewRouter(
	svc AccountService,
	validate middleware.TokenValidator,
	healthHandler *health.Handler,
	logger *slog.Logger,
	cfg RouterConfig,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.Tracing(cfg.ServiceName))
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware)
	}
	r.Use(middleware.CORS(cfg.CORS))

	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	h := NewAccountHandler(svc, logger, cfg.AvatarMaxBytes)

	// Public endpoints
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequestLogger(logger))

		r.Get("/api/config", h.StorageInfo)
		r.With(middleware.CacheControl(cfg.AvatarCacheSeconds)).
			Get("/api/me/avatar/{filename}", h.FetchAvatar)
	})

	// Authenticated endpoints
	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(validate))
		r.Use(middleware.RequestLogger(logger))

		r.Post("/api/me/avatar", h.UploadAvatar)

		r.Group(func(r chi.Router) {
			r.Use(ContentTypeJSON)

			r.Get("/api/users", h.ListUsers)
			r.Get("/api/me", h.GetProfile)

			r.Get("/api/me/favorites", h.ListFavorites)
			r.Post("/api/me/favorites", h.AddFavorite)
			r.Delete("/api/me/favorites/{productId}", h.RemoveFavorite)

			r.Get("/api/me/basket", h.GetBasket)
			r.Put("/api/me/basket", h.SyncBasket)
			r.Delete("/api/me/basket/{productId}", h.RemoveBasketItem)

			r.Post("/api/me/purchase", h.Purchase)
			r.Get("/api/me/purchased", h.ListPurchased)
		})
	})

	return r
}
