package router

import (
	"net/http"

	"storefront/internal/handler"
	"storefront/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handlers groups the HTTP handlers the router mounts.
type Handlers struct {
	Cart     *handler.CartHandler
	Checkout *handler.CheckoutHandler
	Orders   *handler.OrderHandler
	Delivery *handler.DeliveryHandler
}

// Options configures authentication and throttling.
type Options struct {
	APIKey        string
	SessionSecret string
	CheckoutRate  float64
	CheckoutBurst int
}

// New creates a new HTTP router with all routes and middleware configured.
func New(h Handlers, opts Options, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logging(logger))
	r.Use(middleware.CORS)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"healthy"}`))
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/delivery-locations", h.Delivery.ListActive)

		r.Group(func(r chi.Router) {
			r.Use(middleware.SessionAuth(opts.SessionSecret, logger))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", h.Cart.Get)
				r.Delete("/", h.Cart.Clear)
				r.Get("/prices", h.Cart.Prices)
				r.Post("/items", h.Cart.AddItem)
				r.Put("/items/{productId}", h.Cart.SetQuantity)
				r.Delete("/items/{productId}", h.Cart.RemoveItem)
				r.Post("/coupon", h.Cart.ApplyCoupon)
				r.Delete("/coupon", h.Cart.RemoveCoupon)
				r.Put("/delivery", h.Cart.SetDelivery)
			})

			r.With(middleware.RateLimit(opts.CheckoutRate, opts.CheckoutBurst, middleware.SessionOrIP, logger)).
				Post("/checkout", h.Checkout.Checkout)

			r.Get("/orders/{id}", h.Orders.GetByID)
			r.Post("/orders/{id}/cancel", h.Orders.Cancel)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.APIKeyAuth(opts.APIKey, logger))

			r.Get("/orders/{id}", h.Orders.AdminGetByID)
			r.Patch("/orders/{id}/status", h.Orders.UpdateStatus)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"NOT_FOUND","message":"not found"}`))
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusMethodNotAllowed)
		_, _ = w.Write([]byte(`{"error":"METHOD_NOT_ALLOWED","message":"method not allowed"}`))
	})

	return r
}
