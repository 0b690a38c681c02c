package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wadtech/wad-calendar-service/internal/api/router"
	"github.com/wadtech/wad-calendar-service/internal/app/bootstrap"
	"github.com/wadtech/wad-calendar-service/internal/appointments"
	appconfig "github.com/wadtech/wad-calendar-service/internal/config"
	"github.com/wadtech/wad-calendar-service/internal/gcal"
	"github.com/wadtech/wad-calendar-service/internal/http/handlers"
	"github.com/wadtech/wad-calendar-service/internal/notify"
	"github.com/wadtech/wad-calendar-service/internal/observability/metrics"
	"github.com/wadtech/wad-calendar-service/internal/scheduler"
	"github.com/wadtech/wad-calendar-service/internal/webhookstate"
	"github.com/wadtech/wad-calendar-service/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting wad-calendar-service API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		logger.Error("database unreachable", "error", err)
		os.Exit(1)
	}

	m := metrics.NewAppointmentMetrics(nil)

	calendarGateway, err := gcal.New(ctx, gcal.Config{
		CredentialsFile: cfg.GoogleCredentialsFile,
		CalendarID:      cfg.GoogleCalendarID,
		TimeZone:        cfg.CalendarTimeZone,
		DurationMinutes: cfg.AppointmentDurationMinutes,
	}, m, logger)
	if err != nil {
		logger.Error("failed to initialize calendar gateway", "error", err)
		os.Exit(1)
	}

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
	}

	repo := appointments.NewRepository(pool)
	notifier := notify.New(cfg.NotificationServiceURL, logger)
	resolver := appointments.NewResolver(calendarGateway, cfg.AvailabilityLookaheadDays, logger)
	service := appointments.NewService(repo, calendarGateway, notifier, resolver, m, logger)

	zone, err := time.LoadLocation(cfg.CalendarTimeZone)
	if err != nil {
		logger.Error("invalid time zone", "zone", cfg.CalendarTimeZone, "error", err)
		os.Exit(1)
	}
	trigger, err := scheduler.NewDailyTrigger(service, cfg.ConfirmationSweepTime, zone, logger)
	if err != nil {
		logger.Error("invalid confirmation sweep time", "error", err)
		os.Exit(1)
	}
	go trigger.Run(ctx)

	dedupe := webhookstate.NewStore(redisClient, logger)

	r := router.New(&router.Config{
		Logger:             logger,
		Appointments:       handlers.NewAppointmentsHandler(service, logger),
		CalendarWebhook:    handlers.NewCalendarWebhookHandler(service, dedupe, m, logger),
		Diagnostics:        handlers.NewDiagnosticsHandler(calendarGateway, logger),
		MetricsHandler:     promhttp.Handler(),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
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
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
