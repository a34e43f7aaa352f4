package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/storefront-backend/api/controllers"
	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/internal/notifications"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/pkg/auth/session"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/redis"
)

type sessionManager interface {
	session.AccessSessionChecker
	Revoke(context.Context, string) error
}

// Dependencies are the collaborators the HTTP surface is wired with.
type Dependencies struct {
	DB            controllers.Pinger
	Redis         controllers.Pinger
	Idempotency   redis.IdempotencyStore
	Sessions      sessionManager
	Cart          cart.Service
	Handoff       checkout.Handoff
	Sequencer     checkout.Sequencer
	Orders        orders.Service
	Notifications notifications.Service
	Gatherer      prometheus.Gatherer
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"db":    deps.DB,
			"redis": deps.Redis,
		}))
	})

	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, deps.Sessions, logg))
		r.Use(middleware.Idempotency(deps.Idempotency, logg))

		r.Post("/v1/auth/logout", controllers.AuthLogout(deps.Sessions, deps.Handoff, logg))

		r.Route("/v1/cart", func(r chi.Router) {
			r.Get("/", controllers.CartLoad(deps.Cart, logg))
			r.Delete("/", controllers.CartClear(deps.Cart, logg))
			r.Post("/items", controllers.CartAddItem(deps.Cart, logg))
			r.Post("/items/bulk-delete", controllers.CartBulkDelete(deps.Cart, logg))
			r.Patch("/items/{lineId}", controllers.CartUpdateQuantity(deps.Cart, logg))
			r.Delete("/items/{lineId}", controllers.CartRemoveItem(deps.Cart, logg))
			r.Post("/selection", controllers.CartSelection(deps.Cart, logg))
		})

		r.Route("/v1/checkout", func(r chi.Router) {
			r.Post("/", controllers.CheckoutBegin(deps.Cart, deps.Handoff, logg))
			r.Get("/{token}", controllers.CheckoutConsume(deps.Handoff, logg))
			r.Post("/{token}/orders", controllers.CheckoutPlace(deps.Sequencer, logg))
		})

		r.Route("/v1/orders", func(r chi.Router) {
			r.Get("/", controllers.ListOrders(deps.Orders, logg))
			r.Get("/{orderId}", controllers.GetOrder(deps.Orders, logg))
		})

		r.Route("/v1/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(deps.Notifications, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(deps.Notifications, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(deps.Notifications, logg))
		})
	})

	return r
}
