package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/leadflow-ai/leadflow/internal/conversation"
	httpmiddleware "github.com/leadflow-ai/leadflow/internal/http/middleware"
	"github.com/leadflow-ai/leadflow/internal/messaging"
	"github.com/leadflow-ai/leadflow/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger              *logging.Logger
	MessagingHandler    *messaging.Handler
	ConversationHandler *conversation.Handler
	MetricsHandler      http.Handler
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", cfg.MessagingHandler.HealthCheck)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Route("/api", func(api chi.Router) {
		api.Route("/whatsapp", func(wa chi.Router) {
			wa.Get("/webhook", cfg.MessagingHandler.WhatsAppVerify)
			wa.Post("/webhook", cfg.MessagingHandler.WhatsAppWebhook)
			wa.Post("/send", cfg.MessagingHandler.SendMessage)
		})
		api.Post("/twilio/webhook", cfg.MessagingHandler.TwilioWebhook)
		if cfg.ConversationHandler != nil {
			api.Get("/leads/{leadID}/history", cfg.ConversationHandler.LeadHistory)
		}
	})

	return r
}
