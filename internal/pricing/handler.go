package pricing

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/tomerlevy/claimdesk/pkg/logging"
)

// Handler exposes coupon validation.
type Handler struct {
	coupons *CouponRepository
	logger  *logging.Logger
}

// NewHandler creates a pricing handler.
func NewHandler(coupons *CouponRepository, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{coupons: coupons, logger: logger}
}

type validateRequest struct {
	Code string `json:"code"`
}

// ValidateCoupon handles POST /coupon. Invalid coupons answer 200 with
// {valid:false, error} so the client can show the reason inline.
func (h *Handler) ValidateCoupon(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	coupon, err := h.coupons.Validate(r.Context(), req.Code)
	if err != nil {
		msg := "invalid coupon"
		switch {
		case errors.Is(err, ErrCouponNotFound):
			msg = "coupon not found"
		case errors.Is(err, ErrCouponInactive):
			msg = "coupon is inactive"
		case errors.Is(err, ErrCouponExpired):
			msg = "coupon has expired"
		case errors.Is(err, ErrCouponExhausted):
			msg = "coupon usage limit reached"
		default:
			h.logger.Error("coupon validation failed", "error", err)
			http.Error(w, "failed to validate coupon", http.StatusInternalServerError)
			return
		}
		h.writeJSON(w, http.StatusOK, map[string]any{"valid": false, "error": msg})
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"valid": true, "coupon": coupon})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", "error", err)
	}
}
