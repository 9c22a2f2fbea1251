package payments

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/tomerlevy/claimdesk/pkg/logging"
)

const webhookProvider = "gateway"

type processedTracker interface {
	AlreadyProcessed(ctx context.Context, provider, eventID string) (bool, error)
	MarkProcessed(ctx context.Context, provider, eventID string) (bool, error)
}

type confirmer interface {
	Confirm(ctx context.Context, sessionID uuid.UUID, channel string) (bool, error)
}

// WebhookHandler receives payment events from the provider. Signature is
// verified against the raw body, and event ids are tracked so provider
// retries stay harmless.
type WebhookHandler struct {
	signatureKey string
	processed    processedTracker
	orchestrator confirmer
	logger       *logging.Logger
}

// NewWebhookHandler creates a payment webhook handler.
func NewWebhookHandler(sigKey string, processed processedTracker, orchestrator confirmer, logger *logging.Logger) *WebhookHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &WebhookHandler{
		signatureKey: sigKey,
		processed:    processed,
		orchestrator: orchestrator,
		logger:       logger,
	}
}

type gatewayEvent struct {
	ID        string    `json:"id"`
	EventID   string    `json:"event_id"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"created_at"`
	Data      struct {
		Object struct {
			Payment struct {
				ID       string            `json:"id"`
				Status   string            `json:"status"`
				Metadata map[string]string `json:"metadata"`
			} `json:"payment"`
		} `json:"object"`
	} `json:"data"`
}

// Handle processes POST /payment/webhook.
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	if !verifyGatewaySignature(h.signatureKey, buildAbsoluteURL(r), payload, r.Header.Get("X-Payment-Signature")) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var evt gatewayEvent
	if err := json.Unmarshal(payload, &evt); err != nil {
		h.logger.Error("failed to decode gateway event", "error", err)
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	eventID := evt.EventID
	if eventID == "" {
		eventID = evt.ID
	}
	if eventID == "" {
		http.Error(w, "missing event id", http.StatusBadRequest)
		return
	}

	if seen, err := h.processed.AlreadyProcessed(r.Context(), webhookProvider, eventID); err != nil {
		h.logger.Error("processed lookup failed", "error", err)
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	} else if seen {
		w.WriteHeader(http.StatusOK)
		return
	}

	if evt.Data.Object.Payment.Status != "COMPLETED" {
		w.WriteHeader(http.StatusOK)
		return
	}

	rawSessionID := evt.Data.Object.Payment.Metadata["session_id"]
	sessionID, err := uuid.Parse(rawSessionID)
	if err != nil {
		h.logger.Warn("gateway event carries no usable session id", "event_id", eventID, "session_id", rawSessionID)
		// Acknowledge so the provider stops retrying an event we can never place.
		w.WriteHeader(http.StatusOK)
		return
	}

	if _, err := h.orchestrator.Confirm(r.Context(), sessionID, ChannelWebhook); err != nil {
		h.logger.Error("webhook confirmation failed", "error", err, "session_id", sessionID)
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	if _, err := h.processed.MarkProcessed(r.Context(), webhookProvider, eventID); err != nil {
		h.logger.Error("failed to record processed event", "error", err)
	}
	w.WriteHeader(http.StatusOK)
}

func verifyGatewaySignature(key, url string, body []byte, header string) bool {
	if key == "" || header == "" {
		return false
	}
	message := url + string(body)
	mac := hmac.New(sha1.New, []byte(key))
	mac.Write([]byte(message))
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(header), []byte(expected))
}

func buildAbsoluteURL(r *http.Request) string {
	if r.URL == nil {
		return ""
	}
	scheme := "https"
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	} else if r.TLS == nil {
		scheme = "http"
	}
	host := r.Host
	if fwd := r.Header.Get("X-Forwarded-Host"); fwd != "" {
		host = fwd
	}
	return fmt.Sprintf("%s://%s%s", scheme, host, r.URL.RequestURI())
}
