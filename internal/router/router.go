package router

import (
	"net/http"
	"time"

	"storefront/internal/auth"
	"storefront/internal/handler"
	"storefront/internal/middleware"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// Handlers groups the HTTP handlers served by the API.
type Handlers struct {
	Products *handler.ProductHandler
	Orders   *handler.OrderHandler
	Delivery *handler.DeliveryHandler
}

// Options configure authentication and timeouts.
type Options struct {
	APIKey         string
	Verifier       *auth.Verifier
	RequestTimeout time.Duration
}

// New creates a new HTTP router with all routes and middleware configured.
func New(h Handlers, opts Options, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	// Apply middleware in order: Recovery -> RequestID -> Logging -> CORS
	r.Use(middleware.Recovery(logger))
	r.Use(chimiddleware.RequestID)
	r.Use(middleware.Logging(logger))
	r.Use(middleware.CORS)
	if opts.RequestTimeout > 0 {
		r.Use(chimiddleware.Timeout(opts.RequestTimeout))
	}

	// Health check endpoint (no authentication required)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status": "healthy"}`))
	})

	r.Get("/products", h.Products.List)
	r.Get("/products/{id}", h.Products.Get)
	r.Get("/delivery-methods", h.Delivery.List)

	r.Route("/orders", func(r chi.Router) {
		r.Use(middleware.OptionalAuth(opts.Verifier, logger))
		r.Post("/", h.Orders.Create)
		r.Get("/{id}", h.Orders.GetByID)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(opts.APIKey, logger))
		r.Put("/orders/{id}/status", h.Orders.UpdateStatus)
	})

	return r
}
