// Package router assembles the HTTP surface: the Telegram webhook, health
// check and Prometheus metrics.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	httpmiddleware "github.com/booklinehq/bookline/internal/http/middleware"
	"github.com/booklinehq/bookline/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger         *logging.Logger
	WebhookHandler http.Handler
	MetricsHandler http.Handler
}

// New creates a Chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	if cfg.WebhookHandler != nil {
		r.Post("/telegram/webhook", cfg.WebhookHandler.ServeHTTP)
	}
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	return r
}
