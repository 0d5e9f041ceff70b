package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/janjeevan/telehealth/internal/appointments"
	"github.com/janjeevan/telehealth/internal/followups"
	httpmiddleware "github.com/janjeevan/telehealth/internal/http/middleware"
	"github.com/janjeevan/telehealth/internal/inventory"
	"github.com/janjeevan/telehealth/internal/prescriptions"
	"github.com/janjeevan/telehealth/internal/realtime"
	"github.com/janjeevan/telehealth/internal/triage"
	"github.com/janjeevan/telehealth/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger               *logging.Logger
	TriageHandler        *triage.Handler
	AppointmentsHandler  *appointments.Handler
	PrescriptionsHandler *prescriptions.Handler
	InventoryHandler     *inventory.Handler
	FollowUpsHandler     *followups.Handler
	Hub                  *realtime.Hub
	MetricsHandler       http.Handler
	JWTSecret            string
	CORSAllowedOrigins   []string
	TriageRateLimiter    *httpmiddleware.RateLimiter
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

	// Public endpoints (health, metrics, triage, realtime)
	r.Group(func(public chi.Router) {
		public.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"status":"ok"}`))
		})
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
		if cfg.TriageHandler != nil {
			analyze := http.HandlerFunc(cfg.TriageHandler.AnalyzeSymptoms)
			if cfg.TriageRateLimiter != nil {
				public.Method(http.MethodPost, "/ai/analyze-symptoms", cfg.TriageRateLimiter.Limit(analyze))
			} else {
				public.Post("/ai/analyze-symptoms", analyze)
			}
		}
		if cfg.Hub != nil {
			public.Get("/ws", cfg.Hub.ServeWS)
		}
	})

	// Authenticated API surface
	r.Group(func(api chi.Router) {
		api.Use(httpmiddleware.BearerAuth(cfg.JWTSecret))

		if cfg.AppointmentsHandler != nil {
			api.Route("/appointments", func(r chi.Router) {
				r.Post("/", cfg.AppointmentsHandler.Create)
				r.Get("/", cfg.AppointmentsHandler.List)
				r.Post("/urgent-notification", cfg.AppointmentsHandler.SendUrgentNotification)
				r.Get("/{id}", cfg.AppointmentsHandler.Get)
				r.Put("/{id}", cfg.AppointmentsHandler.Update)
			})
		}

		if cfg.PrescriptionsHandler != nil {
			api.Route("/prescriptions", func(r chi.Router) {
				r.Post("/", cfg.PrescriptionsHandler.Create)
				r.Get("/", cfg.PrescriptionsHandler.List)
				r.Get("/{id}", cfg.PrescriptionsHandler.Get)
				r.Put("/{id}/fulfill", cfg.PrescriptionsHandler.Fulfill)
			})
		}

		if cfg.InventoryHandler != nil {
			api.Route("/inventory", func(r chi.Router) {
				r.Get("/", cfg.InventoryHandler.List)
				r.Post("/update", cfg.InventoryHandler.Upsert)
				r.Get("/low-stock", cfg.InventoryHandler.LowStock)
				r.Post("/reorder", cfg.InventoryHandler.CreateReorder)
				r.Put("/reorder/{id}", cfg.InventoryHandler.AdvanceReorder)
				r.Get("/reorders", cfg.InventoryHandler.ListReorders)
			})
		}

		if cfg.FollowUpsHandler != nil {
			api.Route("/followups", func(r chi.Router) {
				r.Post("/", cfg.FollowUpsHandler.Create)
				r.Get("/", cfg.FollowUpsHandler.List)
				r.Put("/{id}", cfg.FollowUpsHandler.Update)
			})
		}
	})

	return r
}
