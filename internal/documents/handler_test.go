package documents

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomerlevy/claimdesk/internal/session"
)

func generateBody(t *testing.T, sessionID uuid.UUID) *bytes.Reader {
	t.Helper()
	raw, err := json.Marshal(map[string]any{"sessionId": sessionID.String()})
	require.NoError(t, err)
	return bytes.NewReader(raw)
}

func TestHandlerGenerateStreamsBinary(t *testing.T) {
	sess := paidSession(session.ServiceClaims, `{"plaintiff":{"fullName":"דנה לוי"}}`)
	loader := &fakeLoader{sessions: map[uuid.UUID]*session.Session{sess.ID: sess}}
	h := NewHandler(NewService(loader, &fakeRenderer{body: "%PDF-1.7 rendered"}, nil), nil)

	req := httptest.NewRequest(http.MethodPost, "/generate-pdf", generateBody(t, sess.ID))
	rec := httptest.NewRecorder()
	h.Generate(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")
	assert.Equal(t, "%PDF-1.7 rendered", rec.Body.String())
}

func TestHandlerGenerateHebrewFilenameDisposition(t *testing.T) {
	sess := paidSession(session.ServiceClaims, `{"plaintiff":{"fullName":"דנה לוי"}}`)
	loader := &fakeLoader{sessions: map[uuid.UUID]*session.Session{sess.ID: sess}}
	h := NewHandler(NewService(loader, &fakeRenderer{body: "%PDF-1.7"}, nil), nil)

	req := httptest.NewRequest(http.MethodPost, "/generate-pdf", generateBody(t, sess.ID))
	rec := httptest.NewRecorder()
	h.Generate(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	disposition := rec.Header().Get("Content-Disposition")
	assert.Contains(t, disposition, `filename="document.pdf"`)
	assert.Contains(t, disposition, "filename*=UTF-8''"+url.PathEscape("כתב_תביעה_דנה_לוי.pdf"))
}

func TestHandlerGenerateUnpaid(t *testing.T) {
	sess := paidSession(session.ServiceClaims, `{"plaintiff":{}}`)
	sess.Status = session.StatusPendingPayment
	loader := &fakeLoader{sessions: map[uuid.UUID]*session.Session{sess.ID: sess}}
	h := NewHandler(NewService(loader, &fakeRenderer{}, nil), nil)

	req := httptest.NewRequest(http.MethodPost, "/generate-pdf", generateBody(t, sess.ID))
	rec := httptest.NewRecorder()
	h.Generate(rec, req)

	assert.Equal(t, http.StatusPaymentRequired, rec.Code)
}

func TestHandlerGenerateMissingSession(t *testing.T) {
	loader := &fakeLoader{sessions: map[uuid.UUID]*session.Session{}}
	h := NewHandler(NewService(loader, &fakeRenderer{}, nil), nil)

	req := httptest.NewRequest(http.MethodPost, "/generate-pdf", generateBody(t, uuid.New()))
	rec := httptest.NewRecorder()
	h.Generate(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerGenerateRendererDown(t *testing.T) {
	sess := paidSession(session.ServiceClaims, `{"plaintiff":{}}`)
	loader := &fakeLoader{sessions: map[uuid.UUID]*session.Session{sess.ID: sess}}
	h := NewHandler(NewService(loader, &fakeRenderer{err: assert.AnError}, nil), nil)

	req := httptest.NewRequest(http.MethodPost, "/generate-pdf", generateBody(t, sess.ID))
	rec := httptest.NewRecorder()
	h.Generate(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestHandlerGenerateBadBody(t *testing.T) {
	loader := &fakeLoader{sessions: map[uuid.UUID]*session.Session{}}
	h := NewHandler(NewService(loader, &fakeRenderer{}, nil), nil)

	req := httptest.NewRequest(http.MethodPost, "/generate-pdf", bytes.NewReader([]byte("{")))
	rec := httptest.NewRecorder()
	h.Generate(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
