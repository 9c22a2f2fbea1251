package documents

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/google/uuid"

	"github.com/tomerlevy/claimdesk/pkg/logging"
)

// Handler exposes the document generation endpoint.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

// NewHandler creates a documents handler.
func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

type generateRequest struct {
	SessionID   string       `json:"sessionId"`
	Signature   string       `json:"signature"`
	Attachments []Attachment `json:"attachments"`
}

// Generate handles POST /generate-pdf. The binary streams straight through;
// the filename travels in Content-Disposition.
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	sessionID, err := uuid.Parse(req.SessionID)
	if err != nil {
		http.Error(w, "invalid session id", http.StatusBadRequest)
		return
	}

	doc, err := h.service.Generate(r.Context(), GenerateParams{
		SessionID:   sessionID,
		Signature:   req.Signature,
		Attachments: req.Attachments,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrSessionMissing):
			http.Error(w, "session not found", http.StatusNotFound)
		case errors.Is(err, ErrNotPaid):
			http.Error(w, "payment required", http.StatusPaymentRequired)
		case errors.Is(err, ErrNoClaim):
			http.Error(w, "document is not ready", http.StatusConflict)
		default:
			h.logger.Error("document generation failed", "error", err, "session_id", sessionID)
			http.Error(w, "failed to generate document", http.StatusBadGateway)
		}
		return
	}
	defer doc.Body.Close()

	// RFC 6266: an ASCII fallback plus the UTF-8 form, so Hebrew filenames
	// survive every browser.
	disposition := fmt.Sprintf("attachment; filename=%q; filename*=UTF-8''%s",
		"document.pdf", url.PathEscape(doc.Filename))
	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Disposition", disposition)
	if _, err := io.Copy(w, doc.Body); err != nil {
		h.logger.Warn("document stream interrupted", "error", err, "session_id", sessionID)
	}
}
