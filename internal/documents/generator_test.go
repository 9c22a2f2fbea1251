package documents

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomerlevy/claimdesk/internal/session"
)

type fakeLoader struct {
	sessions map[uuid.UUID]*session.Session
}

func (f *fakeLoader) Load(ctx context.Context, id uuid.UUID) (*session.Session, error) {
	sess, ok := f.sessions[id]
	if !ok {
		return nil, session.ErrNotFound
	}
	return sess, nil
}

type fakeRenderer struct {
	lastReq RenderRequest
	err     error
	body    string
}

func (f *fakeRenderer) Render(ctx context.Context, req RenderRequest) (*RenderedDocument, error) {
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	body := f.body
	if body == "" {
		body = "%PDF-1.7 fake"
	}
	return &RenderedDocument{
		ContentType: "application/pdf",
		Body:        io.NopCloser(strings.NewReader(body)),
	}, nil
}

func paidSession(serviceType session.ServiceType, claim string) *session.Session {
	return &session.Session{
		ID:          uuid.New(),
		ServiceType: serviceType,
		Status:      session.StatusPaid,
		ClaimData:   []byte(claim),
	}
}

func TestGenerateRendersPaidSession(t *testing.T) {
	sess := paidSession(session.ServiceClaims, `{"plaintiff":{"fullName":"דנה לוי"}}`)
	loader := &fakeLoader{sessions: map[uuid.UUID]*session.Session{sess.ID: sess}}
	rend := &fakeRenderer{}
	svc := NewService(loader, rend, nil)

	doc, err := svc.Generate(context.Background(), GenerateParams{SessionID: sess.ID})
	require.NoError(t, err)
	defer doc.Body.Close()

	assert.Equal(t, "כתב_תביעה_דנה_לוי.pdf", doc.Filename)
	assert.Equal(t, "application/pdf", doc.ContentType)
	assert.Equal(t, session.ServiceClaims, rend.lastReq.ServiceType)
	assert.JSONEq(t, `{"plaintiff":{"fullName":"דנה לוי"}}`, string(rend.lastReq.Payload))
}

func TestGenerateRequiresPayment(t *testing.T) {
	sess := paidSession(session.ServiceClaims, `{"plaintiff":{}}`)
	sess.Status = session.StatusPendingPayment
	loader := &fakeLoader{sessions: map[uuid.UUID]*session.Session{sess.ID: sess}}
	svc := NewService(loader, &fakeRenderer{}, nil)

	_, err := svc.Generate(context.Background(), GenerateParams{SessionID: sess.ID})
	assert.ErrorIs(t, err, ErrNotPaid)
}

func TestGenerateRequiresClaim(t *testing.T) {
	sess := paidSession(session.ServiceClaims, "")
	sess.ClaimData = nil
	loader := &fakeLoader{sessions: map[uuid.UUID]*session.Session{sess.ID: sess}}
	svc := NewService(loader, &fakeRenderer{}, nil)

	_, err := svc.Generate(context.Background(), GenerateParams{SessionID: sess.ID})
	assert.ErrorIs(t, err, ErrNoClaim)
}

func TestGenerateMissingSession(t *testing.T) {
	svc := NewService(&fakeLoader{sessions: map[uuid.UUID]*session.Session{}}, &fakeRenderer{}, nil)
	_, err := svc.Generate(context.Background(), GenerateParams{SessionID: uuid.New()})
	assert.ErrorIs(t, err, ErrSessionMissing)
}

func TestGenerateIsRepeatable(t *testing.T) {
	sess := paidSession(session.ServiceParking, `{"appellant":{"fullName":"יוסי"},"ticket":{"ticketNumber":"123456"}}`)
	loader := &fakeLoader{sessions: map[uuid.UUID]*session.Session{sess.ID: sess}}
	svc := NewService(loader, &fakeRenderer{}, nil)

	for i := 0; i < 3; i++ {
		doc, err := svc.Generate(context.Background(), GenerateParams{SessionID: sess.ID})
		require.NoError(t, err)
		assert.Equal(t, "ערעור_דוח_חניה_123456.pdf", doc.Filename)
		doc.Body.Close()
	}
	assert.Equal(t, session.StatusPaid, sess.Status)
}

func TestGeneratePassesAttachments(t *testing.T) {
	sess := paidSession(session.ServiceClaims, `{"plaintiff":{"fullName":"דנה"}}`)
	loader := &fakeLoader{sessions: map[uuid.UUID]*session.Session{sess.ID: sess}}
	rend := &fakeRenderer{}
	svc := NewService(loader, rend, nil)

	attachments := []Attachment{{Name: "receipt.jpg", URL: "https://files/receipt.jpg", Type: "image"}}
	doc, err := svc.Generate(context.Background(), GenerateParams{SessionID: sess.ID, Attachments: attachments})
	require.NoError(t, err)
	doc.Body.Close()

	assert.Equal(t, attachments, rend.lastReq.Attachments)
}

func TestFilename(t *testing.T) {
	tests := []struct {
		name        string
		serviceType session.ServiceType
		hint        string
		want        string
	}{
		{"claims with name", session.ServiceClaims, "דנה לוי", "כתב_תביעה_דנה_לוי.pdf"},
		{"whitespace normalized", session.ServiceClaims, "  דנה   לוי ", "כתב_תביעה_דנה_לוי.pdf"},
		{"parking ticket number", session.ServiceParking, "123456", "ערעור_דוח_חניה_123456.pdf"},
		{"empty hint", session.ServiceClaims, "", "כתב_תביעה.pdf"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Filename(tt.serviceType, tt.hint))
		})
	}
}
