package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/relaydrop/relaydrop-backend/api/controllers"
	"github.com/relaydrop/relaydrop-backend/api/middleware"
	"github.com/relaydrop/relaydrop-backend/internal/notifications"
	"github.com/relaydrop/relaydrop-backend/internal/orders"
	"github.com/relaydrop/relaydrop-backend/pkg/config"
	"github.com/relaydrop/relaydrop-backend/pkg/enums"
	"github.com/relaydrop/relaydrop-backend/pkg/logger"
	"github.com/relaydrop/relaydrop-backend/pkg/metrics"
	"github.com/relaydrop/relaydrop-backend/pkg/redis"
)

// Deps bundles everything the HTTP surface needs. Readiness checks and the
// uploader may be nil; the affected endpoints degrade instead of panicking.
type Deps struct {
	Config        *config.Config
	Logger        *logger.Logger
	Metrics       *metrics.HTTPMetrics
	DBPinger      controllers.Pinger
	GCSPinger     controllers.Pinger
	Redis         *redis.Client
	Orders        orders.Service
	Notifications notifications.Service
	Uploader      controllers.ProofUploader
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Middleware)
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive())
		checks := map[string]controllers.Pinger{}
		if deps.DBPinger != nil {
			checks["database"] = deps.DBPinger
		}
		if deps.Redis != nil {
			checks["redis"] = deps.Redis
		}
		if deps.GCSPinger != nil {
			checks["gcs"] = deps.GCSPinger
		}
		r.Get("/ready", controllers.HealthReady(checks, logg))
	})

	r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())

	geoLimit := func(next http.Handler) http.Handler { return next }
	if deps.Redis != nil {
		geoLimit = middleware.GeoRateLimit(cfg.GeoLimit, deps.Redis, logg)
	}

	r.Route("/store", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(enums.ActorRoleStore, logg))

		r.Route("/orders", func(r chi.Router) {
			r.With(geoLimit).Post("/preview", controllers.PreviewOrder(deps.Orders, logg))
			r.With(geoLimit).Post("/", controllers.CreateOrder(deps.Orders, logg))
			r.Get("/", controllers.ListStoreOrders(deps.Orders, logg))
			r.Put("/{orderId}/status", controllers.UpdateStoreOrderStatus(deps.Orders, logg))
			r.Delete("/{orderId}", controllers.DeleteOrder(deps.Orders, logg))
		})
	})

	r.Route("/driver", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(enums.ActorRoleDriver, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.ListDriverOrders(deps.Orders, logg))
			r.Put("/{orderId}/status", controllers.UpdateDriverOrderStatus(deps.Orders, logg))
			r.Post("/{orderId}/proof", controllers.UploadProof(deps.Orders, deps.Uploader, logg))
		})
	})

	r.Route("/notifications", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Get("/", controllers.ListNotifications(deps.Notifications, logg))
		r.Post("/{notificationId}/read", controllers.MarkNotificationRead(deps.Notifications, logg))
		r.Post("/read-all", controllers.MarkAllNotificationsRead(deps.Notifications, logg))
	})

	return r
}
