package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/plazagoods/plaza-backend/api/controllers"
	"github.com/plazagoods/plaza-backend/api/middleware"
	"github.com/plazagoods/plaza-backend/internal/depot"
	"github.com/plazagoods/plaza-backend/internal/disputes"
	"github.com/plazagoods/plaza-backend/internal/fulfillment"
	"github.com/plazagoods/plaza-backend/internal/orders"
	"github.com/plazagoods/plaza-backend/internal/payouts"
	"github.com/plazagoods/plaza-backend/pkg/auth/session"
	"github.com/plazagoods/plaza-backend/pkg/config"
	"github.com/plazagoods/plaza-backend/pkg/db"
	"github.com/plazagoods/plaza-backend/pkg/enums"
	"github.com/plazagoods/plaza-backend/pkg/logger"
	"github.com/plazagoods/plaza-backend/pkg/metrics"
	pkgredis "github.com/plazagoods/plaza-backend/pkg/redis"
)

// Dependencies carries everything the router wires into handlers.
type Dependencies struct {
	Config      *config.Config
	Logger      *logger.Logger
	DB          db.Pinger
	Redis       *pkgredis.Client
	Sessions    session.AccessSessionChecker
	HTTPMetrics *metrics.HTTPMetrics
	Gatherer    prometheus.Gatherer

	Orders   *orders.Service
	Disputes *disputes.Service
	Depot    *depot.Service
	Payouts  *payouts.Service
	Engine   *fulfillment.Engine
}

func NewRouter(deps Dependencies) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)
	if deps.HTTPMetrics != nil {
		r.Use(deps.HTTPMetrics.Middleware)
	}

	var redisPinger pkgredis.Pinger
	if deps.Redis != nil {
		redisPinger = deps.Redis
	}
	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DB, redisPinger))
	})
	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	var track http.Handler = controllers.TrackOrder(deps.Orders, logg)
	if deps.Redis != nil {
		trackingPolicy := middleware.NewRateLimitPolicy(
			"tracking",
			cfg.RateLimit.TrackingWindow,
			cfg.RateLimit.TrackingIPLimit,
		)
		track = middleware.RateLimit(trackingPolicy, deps.Redis, logg)(track)
	}
	r.Method(http.MethodGet, "/api/public/track/{trackingNumber}", track)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, deps.Sessions, logg))
		if deps.Redis != nil {
			r.Use(middleware.Idempotency(deps.Redis, logg))
		}

		r.Route("/orders", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, string(enums.ActorRoleCustomer)))
			r.Post("/", controllers.PlaceOrder(deps.Orders, logg))
			r.Get("/", controllers.ListOrders(deps.Orders, logg))
			r.Get("/{orderId}", controllers.OrderDetail(deps.Orders, logg))
			r.Post("/{orderId}/cancel", controllers.CancelOrder(deps.Orders, logg))
			r.Post("/{orderId}/refund-request", controllers.RequestRefund(deps.Disputes, logg))
		})

		// The dispute thread is shared: the customer, the selling stores and
		// admins all read and write it. The service authorizes per order.
		r.Route("/disputes/{orderId}/messages", func(r chi.Router) {
			r.Get("/", controllers.ListDisputeMessages(deps.Disputes, logg))
			r.Post("/", controllers.PostDisputeMessage(deps.Disputes, logg))
		})

		r.Route("/seller", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, string(enums.ActorRoleSeller)))
			r.Get("/orders", controllers.SellerOrders(deps.Orders, logg))
			r.Post("/orders/{orderId}/ready", controllers.SellerMarkReady(deps.Engine, logg))
			r.Get("/finances/balance", controllers.SellerBalance(deps.Payouts, logg))
			r.Get("/finances/payouts", controllers.SellerPayouts(deps.Payouts, logg))
		})

		r.Route("/delivery", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, string(enums.ActorRoleDeliveryAgent)))
			r.Get("/queue", controllers.DeliveryQueue(deps.Orders, logg))
			r.Get("/orders", controllers.DeliveryAssignedOrders(deps.Orders, logg))
			r.Route("/orders/{trackingNumber}", func(r chi.Router) {
				r.Post("/pickup", controllers.DeliveryPickup(deps.Engine, logg))
				r.Post("/out-for-delivery", controllers.DeliveryOutForDelivery(deps.Engine, logg))
				r.Post("/deliver", controllers.DeliveryDeliver(deps.Engine, logg))
				r.Post("/fail", controllers.DeliveryFail(deps.Engine, logg))
			})
		})

		// Couriers drop parcels at depot kiosks, so check-in accepts both
		// custody roles.
		r.Route("/depot", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg,
				string(enums.ActorRoleDepotAgent),
				string(enums.ActorRoleDeliveryAgent),
			))
			r.Post("/check-in", controllers.DepotCheckIn(deps.Depot, logg))
			r.With(middleware.RequireRole(logg, string(enums.ActorRoleDepotAgent))).
				Post("/departure", controllers.DepotDeparture(deps.Depot, logg))
			r.With(middleware.RequireRole(logg, string(enums.ActorRoleDepotAgent))).
				Post("/discrepancy", controllers.DepotDiscrepancy(deps.Depot, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, deps.Sessions, logg))
		r.Use(middleware.RequireRole(logg, string(enums.ActorRoleAdmin)))
		if deps.Redis != nil {
			r.Use(middleware.Idempotency(deps.Redis, logg))
		}

		r.Post("/disputes/{orderId}/resolve", controllers.AdminResolveDispute(deps.Disputes, logg))
		r.Post("/orders/{orderId}/transition", controllers.AdminForceTransition(deps.Engine, logg))
		r.Post("/payouts", controllers.AdminRecordPayout(deps.Payouts, logg))
		r.Get("/payouts", controllers.AdminListPayouts(deps.Payouts, logg))
		r.Get("/stores/{storeId}/balance", controllers.AdminStoreBalance(deps.Payouts, logg))
	})

	return r
}
