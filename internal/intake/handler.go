package intake

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/tomerlevy/claimdesk/internal/session"
	"github.com/tomerlevy/claimdesk/pkg/logging"
)

// Handler exposes the streamed conversation endpoint.
type Handler struct {
	engine *Engine
	logger *logging.Logger
}

// NewHandler creates a conversation handler.
func NewHandler(engine *Engine, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{engine: engine, logger: logger}
}

type converseRequest struct {
	SessionID   string `json:"sessionId"`
	Phone       string `json:"phone"`
	ServiceType string `json:"serviceType"`
	Messages    []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

// Converse handles POST /conversation. The reply streams as chunked
// text/plain; the session id travels in the X-Session-Id header so a
// first-turn client learns its id before any text arrives.
func (h *Handler) Converse(w http.ResponseWriter, r *http.Request) {
	var req converseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	serviceType := session.ServiceType(req.ServiceType)
	if !serviceType.Valid() {
		http.Error(w, "invalid service type", http.StatusBadRequest)
		return
	}
	if len(req.Messages) == 0 {
		http.Error(w, "messages cannot be empty", http.StatusBadRequest)
		return
	}

	turn := TurnRequest{
		Phone:       req.Phone,
		ServiceType: serviceType,
		Messages:    make([]session.Message, 0, len(req.Messages)),
	}
	if req.SessionID != "" {
		id, err := uuid.Parse(req.SessionID)
		if err != nil {
			http.Error(w, "invalid session id", http.StatusBadRequest)
			return
		}
		turn.SessionID = id
	}
	now := time.Now().UTC()
	for _, m := range req.Messages {
		turn.Messages = append(turn.Messages, session.Message{Role: m.Role, Content: m.Content, Timestamp: now})
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	events, err := h.engine.Converse(r.Context(), turn)
	if err != nil {
		h.logger.Error("failed to start conversation turn", "error", err)
		http.Error(w, "failed to start conversation", http.StatusInternalServerError)
		return
	}

	headerSent := false
	for ev := range events {
		if !headerSent {
			if ev.SessionID != uuid.Nil {
				w.Header().Set("X-Session-Id", ev.SessionID.String())
			}
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.Header().Set("Cache-Control", "no-cache")
			w.WriteHeader(http.StatusOK)
			headerSent = true
		}
		if ev.Chunk != "" {
			if _, err := w.Write([]byte(ev.Chunk)); err != nil {
				h.logger.Warn("client disconnected mid-stream", "error", err, "session_id", ev.SessionID)
				// Keep consuming so the engine can finish the turn.
				go func() {
					for range events {
					}
				}()
				return
			}
			flusher.Flush()
		}
		if ev.Done && ev.Err != nil {
			h.logger.Error("conversation turn failed", "error", ev.Err, "session_id", ev.SessionID)
		}
	}
}
