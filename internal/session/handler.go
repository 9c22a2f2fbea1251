package session

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/tomerlevy/claimdesk/pkg/logging"
)

// Handler wires the session endpoints to the store.
type Handler struct {
	store  *Store
	logger *logging.Logger
}

// NewHandler creates a session handler.
func NewHandler(store *Store, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{store: store, logger: logger}
}

type createRequest struct {
	Phone       string `json:"phone"`
	ServiceType string `json:"serviceType"`
}

// Create handles POST /sessions.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	serviceType := ServiceType(req.ServiceType)
	if !serviceType.Valid() {
		http.Error(w, "invalid service type", http.StatusBadRequest)
		return
	}

	sess, err := h.store.Create(r.Context(), req.Phone, serviceType)
	if err != nil {
		h.logger.Error("failed to create session", "error", err)
		http.Error(w, "failed to create session", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]any{
		"session": map[string]string{"id": sess.ID.String()},
	})
}

// Get handles GET /session/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid session id", http.StatusBadRequest)
		return
	}

	sess, err := h.store.Load(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to load session", "error", err, "session_id", id)
		http.Error(w, "failed to load session", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"messages":     sess.Messages,
		"claim_data":   sess.ClaimData,
		"current_step": sess.CurrentStep,
		"status":       sess.Status,
	})
}

type updateRequest struct {
	Messages    []Message       `json:"messages"`
	CurrentStep *int            `json:"current_step"`
	ClaimData   json.RawMessage `json:"claim_data"`
	Status      *string         `json:"status"`
}

// Update handles PUT /session/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid session id", http.StatusBadRequest)
		return
	}

	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	params := UpdateParams{
		Messages:    req.Messages,
		CurrentStep: req.CurrentStep,
		ClaimData:   req.ClaimData,
	}
	if req.Status != nil {
		status := Status(*req.Status)
		if !status.Valid() {
			http.Error(w, "invalid status", http.StatusBadRequest)
			return
		}
		params.Status = &status
	}

	if err := h.store.Save(r.Context(), id, params); err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			http.Error(w, "session not found", http.StatusNotFound)
		case errors.Is(err, ErrStatusBackward):
			http.Error(w, "status cannot move backward", http.StatusConflict)
		default:
			h.logger.Error("failed to save session", "error", err, "session_id", id)
			http.Error(w, "failed to save session", http.StatusInternalServerError)
		}
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", "error", err)
	}
}
