package documents

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/tomerlevy/claimdesk/internal/session"
	"github.com/tomerlevy/claimdesk/pkg/logging"
)

var documentsTracer = otel.Tracer("claimdesk.internal.documents")

var (
	ErrNotPaid        = errors.New("documents: session is not paid")
	ErrNoClaim        = errors.New("documents: session has no claim payload")
	ErrSessionMissing = errors.New("documents: session not found")
)

// sessionLoader is the session surface the generator needs.
type sessionLoader interface {
	Load(ctx context.Context, id uuid.UUID) (*session.Session, error)
}

// renderer produces the binary document.
type renderer interface {
	Render(ctx context.Context, req RenderRequest) (*RenderedDocument, error)
}

// Document is one generated file ready to stream to the client.
type Document struct {
	Filename    string
	ContentType string
	Body        io.ReadCloser
}

// Service gates document generation on a paid session and produces the
// deterministic filename. Generation is repeatable and side-effect-free on
// session state.
type Service struct {
	sessions sessionLoader
	renderer renderer
	logger   *logging.Logger
}

// NewService creates a document generation service.
func NewService(sessions sessionLoader, renderer renderer, logger *logging.Logger) *Service {
	if sessions == nil {
		panic("documents: session loader required")
	}
	if renderer == nil {
		panic("documents: renderer required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{sessions: sessions, renderer: renderer, logger: logger}
}

// GenerateParams describes one generation request.
type GenerateParams struct {
	SessionID   uuid.UUID
	Signature   string
	Attachments []Attachment
}

// Generate renders the session's document. The session must be paid and
// carry a claim payload.
func (s *Service) Generate(ctx context.Context, params GenerateParams) (*Document, error) {
	ctx, span := documentsTracer.Start(ctx, "documents.generate")
	defer span.End()
	span.SetAttributes(
		attribute.String("claimdesk.session_id", params.SessionID.String()),
		attribute.Int("claimdesk.attachments", len(params.Attachments)),
	)

	sess, err := s.sessions.Load(ctx, params.SessionID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil, ErrSessionMissing
		}
		return nil, fmt.Errorf("documents: load session: %w", err)
	}
	if sess.Status != session.StatusPaid {
		return nil, ErrNotPaid
	}
	if !sess.HasClaimData() {
		return nil, ErrNoClaim
	}

	payload, err := session.ParseClaimPayload(sess.ServiceType, sess.ClaimData)
	if err != nil {
		return nil, fmt.Errorf("documents: claim payload: %w", err)
	}

	rendered, err := s.renderer.Render(ctx, RenderRequest{
		ServiceType: sess.ServiceType,
		Payload:     payload.Raw(),
		Signature:   params.Signature,
		Attachments: params.Attachments,
	})
	if err != nil {
		return nil, err
	}

	return &Document{
		Filename:    Filename(sess.ServiceType, payload.FilenameHint()),
		ContentType: rendered.ContentType,
		Body:        rendered.Body,
	}, nil
}

// TriggerGeneration prewarms the renderer right after payment confirmation,
// so the first download answers from a warm path. The result is discarded;
// failures are logged and the user can still download on demand.
func (s *Service) TriggerGeneration(ctx context.Context, sessionID uuid.UUID) {
	doc, err := s.Generate(ctx, GenerateParams{SessionID: sessionID})
	if err != nil {
		s.logger.Warn("post-payment render prewarm failed", "error", err, "session_id", sessionID)
		return
	}
	_, _ = io.Copy(io.Discard, doc.Body)
	doc.Body.Close()
	s.logger.Info("document prewarmed", "session_id", sessionID, "filename", doc.Filename)
}

// Filename derives the download filename from the payload hint: the party
// name for claims, the ticket number for parking. Whitespace collapses to
// single underscores.
func Filename(serviceType session.ServiceType, hint string) string {
	prefix := "כתב_תביעה"
	if serviceType == session.ServiceParking {
		prefix = "ערעור_דוח_חניה"
	}

	hint = strings.Join(strings.Fields(hint), "_")
	if hint == "" {
		return prefix + ".pdf"
	}
	return fmt.Sprintf("%s_%s.pdf", prefix, hint)
}
