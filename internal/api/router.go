package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/joao-fontenele/storefront/internal/cart"
	"github.com/joao-fontenele/storefront/internal/catalog"
	"github.com/joao-fontenele/storefront/internal/checkout"
	"github.com/joao-fontenele/storefront/internal/orders"
	"github.com/joao-fontenele/storefront/internal/session"
	"github.com/joao-fontenele/storefront/internal/telemetry"
)

const requestTimeout = 15 * time.Second

type Handlers struct {
	Checkout *checkout.Handler
	Cart     *cart.Handler
	Orders   *orders.Handler
	Catalog  *catalog.Handler
	// Metrics is optional.
	Metrics http.Handler
}

func NewRouter(h Handlers, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(accessLog(logger))
	r.Use(middleware.Recoverer)
	r.Use(telemetry.RouteAttributes)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	if h.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.Metrics)
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(requestTimeout))
		r.Use(session.Middleware)

		r.Post("/checkout", h.Checkout.HandlePlaceOrder)

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", h.Cart.HandleGet)
			r.Post("/quote", h.Cart.HandleQuote)
			r.Post("/items", h.Cart.HandleAddItem)
			r.Delete("/items/{variantID}", h.Cart.HandleRemoveItem)
			r.Post("/merge", h.Cart.HandleMerge)
		})

		r.Get("/orders", h.Orders.HandleList)
		r.Get("/orders/{id}", h.Orders.HandleGet)

		r.Get("/variants/{id}", h.Catalog.HandleGetVariant)
	})

	return r
}

func accessLog(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			level := slog.LevelInfo
			if ww.Status() >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			logger.Log(r.Context(), level, "http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}
