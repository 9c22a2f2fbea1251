package payments

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tomerlevy/claimdesk/pkg/logging"
)

// Handler wires the payment endpoints to the orchestrator.
type Handler struct {
	orchestrator *Orchestrator
	logger       *logging.Logger
}

// NewHandler creates a payments handler.
func NewHandler(orchestrator *Orchestrator, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{orchestrator: orchestrator, logger: logger}
}

type createPaymentRequest struct {
	SessionID     string `json:"sessionId"`
	Description   string `json:"description"`
	CustomerName  string `json:"customerName"`
	CustomerPhone string `json:"customerPhone"`
	CustomerEmail string `json:"customerEmail"`
	CouponCode    string `json:"couponCode"`
}

// Create handles POST /payment/create.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	sessionID, err := uuid.Parse(req.SessionID)
	if err != nil {
		http.Error(w, "invalid session id", http.StatusBadRequest)
		return
	}

	outcome, err := h.orchestrator.Create(r.Context(), CreateParams{
		SessionID:     sessionID,
		Description:   req.Description,
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		CustomerEmail: req.CustomerEmail,
		CouponCode:    req.CouponCode,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrSessionMissing):
			http.Error(w, "session not found", http.StatusNotFound)
		case errors.Is(err, ErrClaimNotReady):
			http.Error(w, "document is not ready for payment", http.StatusConflict)
		case errors.Is(err, ErrAlreadyPaid):
			http.Error(w, "session already paid", http.StatusConflict)
		default:
			h.logger.Error("checkout creation failed", "error", err, "session_id", sessionID)
			http.Error(w, "failed to create payment", http.StatusBadGateway)
		}
		return
	}

	resp := map[string]any{"success": true, "amount": outcome.Amount}
	if outcome.Free {
		resp["free"] = true
	}
	if outcome.Checkout != nil {
		if outcome.Checkout.AuthCode != "" {
			resp["authCode"] = outcome.Checkout.AuthCode
		}
		if outcome.Checkout.PaymentURL != "" {
			resp["paymentUrl"] = outcome.Checkout.PaymentURL
		}
		if outcome.Checkout.ProcessID != "" {
			resp["processId"] = outcome.Checkout.ProcessID
		}
		if outcome.Checkout.ProcessToken != "" {
			resp["processToken"] = outcome.Checkout.ProcessToken
		}
	}
	h.writeJSON(w, http.StatusOK, resp)
}

type confirmRequest struct {
	SessionID string `json:"sessionId"`
	Channel   string `json:"channel"`
}

// Confirm handles POST /payment/confirm. Any client-side confirmation signal
// lands here; duplicates answer 200 with confirmed:false.
func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	sessionID, err := uuid.Parse(req.SessionID)
	if err != nil {
		http.Error(w, "invalid session id", http.StatusBadRequest)
		return
	}
	channel := req.Channel
	switch channel {
	case ChannelWallet, ChannelRedirect, ChannelMessage, ChannelMirror:
	case "":
		channel = ChannelRedirect
	default:
		http.Error(w, "unknown channel", http.StatusBadRequest)
		return
	}

	first, err := h.orchestrator.Confirm(r.Context(), sessionID, channel)
	if err != nil {
		if errors.Is(err, ErrSessionMissing) {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
		h.logger.Error("confirmation failed", "error", err, "session_id", sessionID)
		http.Error(w, "failed to confirm payment", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"paid": true, "confirmed": first})
}

// Status handles GET /payment/status/{sessionId}.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	sessionID, err := uuid.Parse(chi.URLParam(r, "sessionId"))
	if err != nil {
		http.Error(w, "invalid session id", http.StatusBadRequest)
		return
	}

	paid, err := h.orchestrator.Status(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, ErrSessionMissing) {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
		h.logger.Error("status lookup failed", "error", err, "session_id", sessionID)
		http.Error(w, "failed to read payment status", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]bool{"paid": paid})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", "error", err)
	}
}
