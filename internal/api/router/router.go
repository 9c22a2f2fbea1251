package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/tomerlevy/claimdesk/internal/attachments"
	"github.com/tomerlevy/claimdesk/internal/documents"
	httpmiddleware "github.com/tomerlevy/claimdesk/internal/http/middleware"
	"github.com/tomerlevy/claimdesk/internal/intake"
	"github.com/tomerlevy/claimdesk/internal/payments"
	"github.com/tomerlevy/claimdesk/internal/pricing"
	"github.com/tomerlevy/claimdesk/internal/session"
	"github.com/tomerlevy/claimdesk/internal/webchat"
	"github.com/tomerlevy/claimdesk/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger             *logging.Logger
	SessionHandler     *session.Handler
	IntakeHandler      *intake.Handler
	PricingHandler     *pricing.Handler
	PaymentsHandler    *payments.Handler
	PaymentWebhook     *payments.WebhookHandler
	DocumentsHandler   *documents.Handler
	UploadHandler      *attachments.Handler
	WebchatHandler     *webchat.Handler
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
}

// New creates the Chi router with all routes configured.
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

	r.Get("/health", handleHealth)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	if cfg.PaymentWebhook != nil {
		r.Post("/payment/webhook", cfg.PaymentWebhook.Handle)
	}

	if cfg.SessionHandler != nil {
		r.Post("/sessions", cfg.SessionHandler.Create)
		r.Get("/session/{id}", cfg.SessionHandler.Get)
		r.Put("/session/{id}", cfg.SessionHandler.Update)
	}

	if cfg.IntakeHandler != nil {
		r.With(httpmiddleware.RateLimit(2, 5)).Post("/conversation", cfg.IntakeHandler.Converse)
	}

	if cfg.WebchatHandler != nil {
		r.Get("/ws/chat", cfg.WebchatHandler.HandleWebSocket)
	}

	if cfg.PricingHandler != nil {
		r.Post("/coupon", cfg.PricingHandler.ValidateCoupon)
	}

	if cfg.PaymentsHandler != nil {
		r.Post("/payment/create", cfg.PaymentsHandler.Create)
		r.Post("/payment/confirm", cfg.PaymentsHandler.Confirm)
		r.Get("/payment/status/{sessionId}", cfg.PaymentsHandler.Status)
	}

	if cfg.UploadHandler != nil {
		r.Post("/upload", cfg.UploadHandler.Upload)
	}

	if cfg.DocumentsHandler != nil {
		r.Post("/generate-pdf", cfg.DocumentsHandler.Generate)
	}

	return r
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
