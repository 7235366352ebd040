package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/caraseli02/moldovadirect-checkout/internal/service"
	"github.com/caraseli02/moldovadirect-checkout/pkg/health"
	"github.com/caraseli02/moldovadirect-checkout/pkg/middleware"
)

// NewRouter creates a chi router with all checkout service routes registered.
func NewRouter(
	cartService *service.CartService,
	lockService *service.LockService,
	checkoutService *service.CheckoutService,
	healthHandler *health.Handler,
	corsCfg middleware.CORSConfig,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics("checkout"))
	r.Use(middleware.Tracing("checkout"))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.CORS(corsCfg))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	cartHandler := NewCartHandler(cartService, logger)
	lockHandler := NewLockHandler(lockService, logger)
	checkoutHandler := NewCheckoutHandler(checkoutService, logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Route("/carts/{cartID}", func(r chi.Router) {
			r.Get("/", cartHandler.GetCart)
			r.Put("/", cartHandler.ReplaceCart)
			r.Delete("/", cartHandler.DeleteCart)

			r.Post("/lock", lockHandler.AcquireLock)
			r.Delete("/lock", lockHandler.ReleaseLock)
			r.Get("/lock", lockHandler.LockStatus)
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Post("/quote", checkoutHandler.Quote)
			r.Get("/shipping-methods", checkoutHandler.ShippingMethods)
			r.Post("/payment-intent", checkoutHandler.PaymentIntent)
		})
	})

	return r
}
