package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/hwinventory-backend/api/controllers"
	"github.com/angelmondragon/hwinventory-backend/api/middleware"
	"github.com/angelmondragon/hwinventory-backend/internal/engine"
	"github.com/angelmondragon/hwinventory-backend/pkg/config"
	"github.com/angelmondragon/hwinventory-backend/pkg/db"
	"github.com/angelmondragon/hwinventory-backend/pkg/logger"
	"github.com/angelmondragon/hwinventory-backend/pkg/metrics"
	"github.com/angelmondragon/hwinventory-backend/pkg/redis"
)

// NewRouter mounts the inventory API. redisClient may be nil, in which case
// idempotency replays are disabled and readiness skips the cache.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	eng *engine.Engine,
	httpMetrics *metrics.HTTPMetrics,
	gatherer prometheus.Gatherer,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
		middleware.Metrics(httpMetrics),
	)

	deps := []controllers.Dependency{{Name: cfg.DB.DriverName(), Pinger: dbP}}
	var store redis.IdempotencyStore
	if redisClient != nil {
		deps = append(deps, controllers.Dependency{Name: "redis", Pinger: redisClient})
		store = redisClient
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps...))
	})

	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Actor(cfg.Inventory.DefaultActorID, logg))
		r.Use(middleware.Idempotency(store, middleware.IdempotencyOptions{
			TTL:        cfg.Redis.IdempotencyTTL,
			RequireKey: cfg.FeatureFlags.EnforceIdempotency,
		}, logg))

		r.Route("/parts", func(r chi.Router) {
			r.Get("/", controllers.PartsList(eng.Parts, logg))
			r.Post("/", controllers.PartsCreate(eng.Parts, logg))
			r.Get("/next-id", controllers.PartsNextID(eng.Parts, logg))
			r.Get("/{categoryId}", controllers.PartsGet(eng.Parts, logg))
			r.Put("/{categoryId}", controllers.PartsUpdate(eng.Parts, logg))
			r.Delete("/{categoryId}", controllers.PartsDelete(eng.Parts, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.OrdersList(eng.Orders, logg))
			r.Post("/", controllers.OrdersCreate(eng.Orders, logg))
			r.Get("/next-id", controllers.OrdersNextID(eng.Orders, logg))
			r.Get("/{orderId}", controllers.OrdersGet(eng.Orders, logg))
			r.Put("/{orderId}", controllers.OrdersUpdate(eng.Orders, logg))
			r.Delete("/{orderId}", controllers.OrdersDelete(eng.Orders, logg))
		})

		r.Route("/activity", func(r chi.Router) {
			r.Get("/", controllers.ActivityList(eng.Activity, logg))
			r.Post("/", controllers.ActivityAppend(eng.Activity, logg))
		})

		r.Route("/reports", func(r chi.Router) {
			r.Get("/summary", controllers.ReportsSummary(eng.Reports, logg))
			r.Get("/stock-alerts", controllers.ReportsStockAlerts(eng.Reports, logg))
			r.Get("/export", controllers.ReportsExport(eng.Reports, logg))
			r.Get("/backup", controllers.ReportsBackup(eng.Backup, logg))
			if cfg.FeatureFlags.AllowRestore {
				r.Post("/backup", controllers.ReportsRestore(eng.Backup, logg))
			}
		})
	})

	return r
}
