package webchat

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/websocket"

	"github.com/tomerlevy/claimdesk/internal/intake"
	"github.com/tomerlevy/claimdesk/internal/session"
	"github.com/tomerlevy/claimdesk/pkg/logging"
)

// converser runs one streamed conversation turn.
type converser interface {
	Converse(ctx context.Context, req intake.TurnRequest) (<-chan intake.TurnEvent, error)
}

// historyLoader reads prior session state for reconnects.
type historyLoader interface {
	Load(ctx context.Context, id uuid.UUID) (*session.Session, error)
}

// Handler serves the WebSocket chat surface. It mirrors the streamed HTTP
// conversation endpoint frame by frame.
type Handler struct {
	engine  converser
	history historyLoader
	logger  *logging.Logger
}

// InboundFrame is what the chat widget sends.
type InboundFrame struct {
	Type        string `json:"type"` // "message", "ping"
	ServiceType string `json:"serviceType"`
	Phone       string `json:"phone"`
	Text        string `json:"text"`
}

// OutboundFrame is what the widget receives. Done frames carry the cleaned
// display text plus any quick-reply or form affordance parsed from the reply.
type OutboundFrame struct {
	Type      string                `json:"type"` // "session", "history", "chunk", "step", "done", "error", "pong"
	SessionID string                `json:"sessionId,omitempty"`
	Text      string                `json:"text,omitempty"`
	Step      int                   `json:"step,omitempty"`
	Extracted bool                  `json:"extracted,omitempty"`
	Buttons   []intake.ButtonOption `json:"buttons,omitempty"`
	Form      string                `json:"form,omitempty"`
	Messages  []HistoryMessage      `json:"messages,omitempty"`
}

// HistoryMessage is a simplified message for history frames. Assistant
// entries are display-cleaned; directives travel as structured fields.
type HistoryMessage struct {
	Role      string                `json:"role"`
	Text      string                `json:"text"`
	Buttons   []intake.ButtonOption `json:"buttons,omitempty"`
	Form      string                `json:"form,omitempty"`
	Timestamp string                `json:"timestamp"`
}

// NewHandler creates a webchat handler. The history loader is optional.
func NewHandler(engine converser, history historyLoader, logger *logging.Logger) *Handler {
	if engine == nil {
		panic("webchat: engine cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{engine: engine, history: history, logger: logger}
}

// HandleWebSocket upgrades GET /ws/chat and serves the chat loop.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.Handler(func(conn *websocket.Conn) {
		h.serveWS(conn, r)
	}).ServeHTTP(w, r)
}

func (h *Handler) serveWS(conn *websocket.Conn, r *http.Request) {
	serviceType := session.ServiceType(r.URL.Query().Get("service"))
	if !serviceType.Valid() {
		_ = websocket.JSON.Send(conn, OutboundFrame{Type: "error", Text: "invalid service parameter"})
		return
	}

	var sessionID uuid.UUID
	var messages []session.Message
	if raw := r.URL.Query().Get("session"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			_ = websocket.JSON.Send(conn, OutboundFrame{Type: "error", Text: "invalid session parameter"})
			return
		}
		sessionID = id
		messages = h.loadHistory(r.Context(), conn, id)
	}

	h.logger.Info("webchat connection opened", "session_id", sessionID, "service_type", serviceType)

	for {
		var frame InboundFrame
		if err := websocket.JSON.Receive(conn, &frame); err != nil {
			h.logger.Debug("webchat connection closed", "session_id", sessionID, "error", err)
			return
		}

		if frame.Type == "ping" {
			_ = websocket.JSON.Send(conn, OutboundFrame{Type: "pong"})
			continue
		}
		if frame.Type != "message" || strings.TrimSpace(frame.Text) == "" {
			continue
		}

		messages = append(messages, session.Message{
			Role:      session.RoleUser,
			Content:   frame.Text,
			Timestamp: time.Now().UTC(),
		})

		events, err := h.engine.Converse(r.Context(), intake.TurnRequest{
			SessionID:   sessionID,
			Phone:       frame.Phone,
			ServiceType: serviceType,
			Messages:    messages,
		})
		if err != nil {
			h.logger.Error("webchat turn failed to start", "error", err, "session_id", sessionID)
			_ = websocket.JSON.Send(conn, OutboundFrame{Type: "error", Text: "failed to start turn"})
			continue
		}

		var assistant strings.Builder
		for ev := range events {
			if ev.SessionID != uuid.Nil && sessionID == uuid.Nil {
				sessionID = ev.SessionID
				_ = websocket.JSON.Send(conn, OutboundFrame{Type: "session", SessionID: sessionID.String()})
			}
			if ev.Chunk != "" {
				assistant.WriteString(ev.Chunk)
				_ = websocket.JSON.Send(conn, OutboundFrame{Type: "chunk", Text: ev.Chunk})
			}
			if ev.Step > 0 {
				_ = websocket.JSON.Send(conn, OutboundFrame{Type: "step", Step: ev.Step})
			}
			if ev.Done {
				if ev.Err != nil {
					_ = websocket.JSON.Send(conn, OutboundFrame{Type: "error", Text: "turn interrupted"})
				} else {
					full := assistant.String()
					_ = websocket.JSON.Send(conn, OutboundFrame{
						Type:      "done",
						Extracted: ev.Extracted,
						Text:      intake.CleanDisplay(full, serviceType),
						Buttons:   intake.ParseButtons(full),
						Form:      intake.ParseForm(full),
					})
				}
			}
		}

		if assistant.Len() > 0 {
			messages = append(messages, session.Message{
				Role:      session.RoleAssistant,
				Content:   assistant.String(),
				Timestamp: time.Now().UTC(),
			})
		}
	}
}

// loadHistory replays prior messages to a reconnecting client and seeds the
// in-memory turn state.
func (h *Handler) loadHistory(ctx context.Context, conn *websocket.Conn, id uuid.UUID) []session.Message {
	if h.history == nil {
		return nil
	}
	sess, err := h.history.Load(ctx, id)
	if err != nil {
		h.logger.Warn("webchat history load failed", "error", err, "session_id", id)
		return nil
	}

	frames := make([]HistoryMessage, 0, len(sess.Messages))
	for _, m := range sess.Messages {
		frame := HistoryMessage{
			Role:      m.Role,
			Text:      m.Content,
			Timestamp: m.Timestamp.Format(time.RFC3339),
		}
		// The stored transcript keeps raw model output; the replay shows
		// what the widget originally rendered.
		if m.Role == session.RoleAssistant {
			frame.Text = intake.CleanDisplay(m.Content, sess.ServiceType)
			frame.Buttons = intake.ParseButtons(m.Content)
			frame.Form = intake.ParseForm(m.Content)
		}
		frames = append(frames, frame)
	}
	if len(frames) > 0 {
		_ = websocket.JSON.Send(conn, OutboundFrame{Type: "history", Messages: frames})
	}
	return sess.Messages
}
