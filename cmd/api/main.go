package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lakeshore-health/telehealth-gateway/internal/api/respond"
	"github.com/lakeshore-health/telehealth-gateway/internal/api/router"
	"github.com/lakeshore-health/telehealth-gateway/internal/availability"
	"github.com/lakeshore-health/telehealth-gateway/internal/booking"
	"github.com/lakeshore-health/telehealth-gateway/internal/catalog"
	"github.com/lakeshore-health/telehealth-gateway/internal/config"
	"github.com/lakeshore-health/telehealth-gateway/internal/notify"
	"github.com/lakeshore-health/telehealth-gateway/internal/observability/metrics"
	"github.com/lakeshore-health/telehealth-gateway/internal/payments"
	"github.com/lakeshore-health/telehealth-gateway/internal/provider"
	"github.com/lakeshore-health/telehealth-gateway/internal/square"
	"github.com/lakeshore-health/telehealth-gateway/pkg/logging"
)

func main() {
	// Local development convenience; production uses real env vars.
	_ = godotenv.Load()

	cfg := config.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting telehealth booking gateway",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	if cfg.SquareAccessToken == "" {
		logger.Warn("SQUARE_ACCESS_TOKEN is not set; upstream calls will fail")
	}
	rp := respond.Responder{SupportPhone: cfg.SupportPhone}

	gatewayMetrics := metrics.NewGatewayMetrics(nil)

	platform := square.NewClient(cfg.SquareAccessToken, cfg.SquareLocationID, cfg.Env, logger).
		WithObserver(gatewayMetrics)
	if cfg.SquareBaseURL != "" {
		platform = platform.WithBaseURL(cfg.SquareBaseURL)
	}

	catalogSvc := catalog.NewService(platform, cfg.ServiceKeyword)

	availabilitySvc, err := availability.NewService(platform, cfg.DisplayTimezone, cfg.FallbackSlots)
	if err != nil {
		logger.Error("invalid display timezone", "timezone", cfg.DisplayTimezone, "error", err)
		os.Exit(1)
	}
	displayLoc := availabilitySvc.DisplayLocation()

	var sender notify.EmailSender
	if sendgridSender := notify.NewSendGridSender(notify.SendGridConfig{
		APIKey:    cfg.SendGridAPIKey,
		FromEmail: cfg.SendGridFromEmail,
		FromName:  cfg.SendGridFromName,
	}, logger); sendgridSender != nil {
		sender = sendgridSender
	} else {
		logger.Info("email disabled; confirmations will be logged only")
		sender = notify.NewStubEmailSender(logger)
	}
	notifier := notify.NewConfirmationNotifier(sender, cfg.SendGridFromName)

	bookingSvc := booking.NewService(platform, catalogSvc, notifier, gatewayMetrics, booking.Options{
		RequirePayment:      cfg.RequirePayment,
		AppendCustomerNote:  cfg.AppendCustomerNote,
		VideoCallURL:        cfg.VideoCallURL,
		DefaultTeamMemberID: cfg.DefaultTeamMemberID(),
		DisplayLocation:     displayLoc,
	}, logger)

	providerBookings := provider.NewBookings(platform, cfg.TeamMemberIDs, displayLoc, logger)

	var auth provider.Authenticator = provider.NoAuth{}
	if len(cfg.ProviderPasswords) > 0 {
		auth = provider.NewStaticSecret(cfg.ProviderPasswords)
	} else {
		logger.Warn("PROVIDER_PASSWORDS is not set; provider login disabled")
	}

	r := router.New(&router.Config{
		Logger:              logger,
		Environment:         cfg.Env,
		CatalogHandler:      catalog.NewHandler(catalogSvc, logger, rp),
		AvailabilityHandler: availability.NewHandler(availabilitySvc, cfg.DefaultTeamMemberID(), logger, rp),
		BookingHandler:      booking.NewHandler(bookingSvc, logger, rp),
		PaymentsHandler:     payments.NewHandler(platform, catalogSvc, logger, rp),
		ProviderHandler:     provider.NewHandler(auth, providerBookings, logger, rp),
		MetricsHandler:      promhttp.Handler(),
		CORSAllowedOrigins:  cfg.CORSAllowedOrigins,
		RateLimitRPS:        cfg.RateLimitRPS,
		RateLimitBurst:      cfg.RateLimitBurst,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
