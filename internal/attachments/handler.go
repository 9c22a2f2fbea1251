package attachments

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/tomerlevy/claimdesk/pkg/logging"
)

// Handler exposes the multipart upload endpoint.
type Handler struct {
	manager  *Manager
	maxBytes int64
	logger   *logging.Logger
}

// NewHandler creates an attachments handler. maxBytes <= 0 falls back to 10MB.
func NewHandler(manager *Manager, maxBytes int64, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	if maxBytes <= 0 {
		maxBytes = 10 << 20
	}
	return &Handler{manager: manager, maxBytes: maxBytes, logger: logger}
}

// Upload handles POST /upload (multipart: file + sessionId).
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	if err := r.ParseMultipartForm(h.maxBytes); err != nil {
		http.Error(w, "invalid multipart body", http.StatusBadRequest)
		return
	}

	sessionID, err := uuid.Parse(r.FormValue("sessionId"))
	if err != nil {
		http.Error(w, "invalid session id", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "missing file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "failed to read file", http.StatusBadRequest)
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	uploaded := h.manager.UploadBatch(r.Context(), sessionID, []File{{
		Name:        header.Filename,
		ContentType: contentType,
		Data:        data,
	}})
	if len(uploaded) == 0 {
		h.writeJSON(w, http.StatusBadGateway, map[string]any{"success": false, "error": "upload failed"})
		return
	}

	att := uploaded[0]
	resp := map[string]any{
		"success":  true,
		"url":      att.URL,
		"fileName": att.Name,
		"fileType": att.Type,
		"type":     att.Category,
	}
	if att.Preview != "" {
		resp["preview"] = att.Preview
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", "error", err)
	}
}
