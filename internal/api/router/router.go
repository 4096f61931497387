package router

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/wolfman30/patient-intake/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/patient-intake/internal/http/middleware"
	"github.com/wolfman30/patient-intake/internal/intake"
	"github.com/wolfman30/patient-intake/internal/webchat"
	"github.com/wolfman30/patient-intake/pkg/logging"
)

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

// Config holds router configuration
type Config struct {
	Logger        *logging.Logger
	Intake        *intake.Handler
	WebChat       *webchat.Handler
	AdminPatients *handlers.AdminPatientsHandler

	AdminAuthSecret    string
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
	MessageRatePerSec  float64
	MessageRateBurst   int

	// HealthChecks are run by GET /health, keyed by dependency name.
	HealthChecks map[string]HealthCheck
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	r.Use(httpmiddleware.RequestLogger(cfg.Logger))

	r.Group(func(public chi.Router) {
		public.Get("/health", health(cfg.HealthChecks))
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	limit := httpmiddleware.RateLimit(cfg.MessageRatePerSec, cfg.MessageRateBurst, httpmiddleware.SessionOrIP)
	r.Route("/v1/intake", func(api chi.Router) {
		if cfg.Intake != nil {
			api.Group(func(rest chi.Router) {
				rest.Use(middleware.Compress(5))
				cfg.Intake.Routes(rest, limit)
			})
		}
		if cfg.WebChat != nil {
			api.Get("/ws", cfg.WebChat.HandleWebSocket)
			api.With(limit).Post("/chat/message", cfg.WebChat.HandleMessage)
			api.Get("/chat/history", cfg.WebChat.HandleHistory)
		}
	})

	if cfg.AdminAuthSecret != "" && cfg.AdminPatients != nil {
		r.Route("/admin", func(admin chi.Router) {
			admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
			cfg.AdminPatients.Routes(admin)
		})
	}

	return r
}

func health(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		resp := map[string]string{"status": "ok"}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				status = http.StatusServiceUnavailable
				resp["status"] = "degraded"
				resp[name] = err.Error()
				continue
			}
			resp[name] = "ok"
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(resp)
	}
}
