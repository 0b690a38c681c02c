package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wadtech/wad-calendar-service/internal/http/handlers"
	httpmiddleware "github.com/wadtech/wad-calendar-service/internal/http/middleware"
	"github.com/wadtech/wad-calendar-service/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	Appointments       *handlers.AppointmentsHandler
	CalendarWebhook    *handlers.CalendarWebhookHandler
	Diagnostics        *handlers.DiagnosticsHandler
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
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

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Route("/api", func(api chi.Router) {
		api.Route("/appointments", func(ap chi.Router) {
			ap.Get("/availability", cfg.Appointments.Availability)
			ap.Get("/", cfg.Appointments.Get)
			ap.Post("/", cfg.Appointments.Create)
			ap.Post("/cancel", cfg.Appointments.Cancel)
			ap.Post("/reschedule", cfg.Appointments.Reschedule)
		})
		api.Post("/confirmations", cfg.Appointments.Confirm)
		if cfg.CalendarWebhook != nil {
			api.Post("/webhooks/google-calendar", cfg.CalendarWebhook.Handle)
		}
		if cfg.Diagnostics != nil {
			api.Get("/diagnostics/calendars", cfg.Diagnostics.ListCalendars)
		}
	})

	return r
}
