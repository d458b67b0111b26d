// Package router wires the gateway's HTTP surface.
package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/lakeshore-health/telehealth-gateway/internal/api/respond"
	"github.com/lakeshore-health/telehealth-gateway/internal/availability"
	"github.com/lakeshore-health/telehealth-gateway/internal/booking"
	"github.com/lakeshore-health/telehealth-gateway/internal/catalog"
	httpmiddleware "github.com/lakeshore-health/telehealth-gateway/internal/http/middleware"
	"github.com/lakeshore-health/telehealth-gateway/internal/payments"
	"github.com/lakeshore-health/telehealth-gateway/internal/provider"
	"github.com/lakeshore-health/telehealth-gateway/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger              *logging.Logger
	Environment         string
	CatalogHandler      *catalog.Handler
	AvailabilityHandler *availability.Handler
	BookingHandler      *booking.Handler
	PaymentsHandler     *payments.Handler
	ProviderHandler     *provider.Handler
	MetricsHandler      http.Handler
	CORSAllowedOrigins  []string
	RateLimitRPS        float64
	RateLimitBurst      int
}

// New creates a chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}
	if cfg.RateLimitRPS > 0 {
		r.Use(httpmiddleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))
	}

	r.Get("/health", healthCheck(cfg.Environment))
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Route("/api", func(api chi.Router) {
		api.Get("/services", cfg.CatalogHandler.ListServices)
		api.Post("/availability", cfg.AvailabilityHandler.GetAvailability)

		api.Post("/booking", cfg.BookingHandler.CreateBooking)
		// Older widget builds post to the plural path.
		api.Post("/bookings", cfg.BookingHandler.CreateBooking)

		if cfg.PaymentsHandler != nil {
			api.Post("/process-payment", cfg.PaymentsHandler.ProcessPayment)
		}

		api.Post("/provider/login", cfg.ProviderHandler.Login)
		api.Post("/provider-login", cfg.ProviderHandler.Login)
		api.With(provider.RequireSessionToken).Get("/provider/bookings", cfg.ProviderHandler.ListBookings)

		api.Post("/patient-login", cfg.ProviderHandler.PatientLogin)
	})

	return r
}

func healthCheck(environment string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respond.JSON(w, http.StatusOK, map[string]any{
			"status":      "healthy",
			"timestamp":   time.Now().UTC().Format(time.RFC3339),
			"environment": environment,
		})
	}
}
