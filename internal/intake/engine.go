package intake

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/tomerlevy/claimdesk/internal/observability/metrics"
	"github.com/tomerlevy/claimdesk/internal/session"
	"github.com/tomerlevy/claimdesk/pkg/logging"
)

var intakeTracer = otel.Tracer("claimdesk.internal.intake")

// apologyMessage is shown when the model transport fails mid-turn. State is
// left untouched, so the user can simply resend.
const apologyMessage = "מצטערים, משהו השתבש. נסו לשלוח את ההודעה שוב."

// SessionStore is the persistence surface the engine needs.
type SessionStore interface {
	Create(ctx context.Context, phone string, serviceType session.ServiceType) (*session.Session, error)
	Load(ctx context.Context, id uuid.UUID) (*session.Session, error)
	Save(ctx context.Context, id uuid.UUID, params session.UpdateParams) error
}

// Engine drives one streamed conversation turn: it sends the full history to
// the model, surfaces content chunk by chunk, re-derives the intake step as
// text arrives, and runs claim extraction once the reply is final.
type Engine struct {
	llm           StreamingLLMClient
	store         SessionStore
	model         string
	maxTokens     int32
	temperature   float32
	streamTimeout time.Duration
	logger        *logging.Logger
	metrics       *metrics.IntakeMetrics
}

// EngineConfig carries Engine construction parameters.
type EngineConfig struct {
	Model         string
	MaxTokens     int32
	Temperature   float32
	StreamTimeout time.Duration
	Metrics       *metrics.IntakeMetrics
}

// NewEngine creates a conversation engine.
func NewEngine(llm StreamingLLMClient, store SessionStore, cfg EngineConfig, logger *logging.Logger) *Engine {
	if llm == nil {
		panic("intake: llm client cannot be nil")
	}
	if store == nil {
		panic("intake: session store cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 2048
	}
	if cfg.StreamTimeout <= 0 {
		cfg.StreamTimeout = 90 * time.Second
	}
	return &Engine{
		llm:           llm,
		store:         store,
		model:         cfg.Model,
		maxTokens:     cfg.MaxTokens,
		temperature:   cfg.Temperature,
		streamTimeout: cfg.StreamTimeout,
		logger:        logger,
		metrics:       cfg.Metrics,
	}
}

// TurnRequest is one user turn: the full prior message list plus the new
// user message as its last element.
type TurnRequest struct {
	SessionID   uuid.UUID // uuid.Nil: create the session lazily
	Phone       string
	ServiceType session.ServiceType
	Messages    []session.Message
}

// TurnEvent is one increment of a streamed turn.
type TurnEvent struct {
	SessionID uuid.UUID // set on the first event
	Chunk     string    // incremental assistant text
	Step      int       // >0 when the derived step changed
	Done      bool
	Extracted bool // terminal payload detected (only with Done)
	Err       error
}

// Converse runs one streamed turn. The returned channel is closed after the
// Done event. Session persistence is fire-and-forget: the turn never blocks
// on it and a failed save only costs reload freshness.
func (e *Engine) Converse(ctx context.Context, req TurnRequest) (<-chan TurnEvent, error) {
	ctx, span := intakeTracer.Start(ctx, "intake.turn")
	span.SetAttributes(
		attribute.String("claimdesk.service_type", string(req.ServiceType)),
		attribute.Int("claimdesk.history_len", len(req.Messages)),
	)

	sessionID := e.resolveSession(ctx, req)

	llmReq := LLMRequest{
		Model:       e.model,
		System:      SystemPrompt(req.ServiceType),
		Messages:    toChatMessages(req.Messages),
		MaxTokens:   e.maxTokens,
		Temperature: e.temperature,
	}

	events := make(chan TurnEvent, 32)
	started := time.Now()

	streamCtx, cancel := context.WithTimeout(ctx, e.streamTimeout)
	chunks, err := e.llm.CompleteStream(streamCtx, llmReq)
	if err != nil {
		cancel()
		span.RecordError(err)
		span.End()
		e.logger.Error("failed to open model stream", "error", err, "session_id", sessionID)
		e.metrics.ObserveTurn(string(req.ServiceType), "error", time.Since(started).Seconds())
		go func() {
			defer close(events)
			events <- TurnEvent{SessionID: sessionID, Chunk: apologyMessage}
			events <- TurnEvent{SessionID: sessionID, Done: true, Err: err}
		}()
		return events, nil
	}

	go func() {
		defer close(events)
		defer cancel()
		defer span.End()

		// emit blocks until the consumer takes the event or walks away.
		// A false return means the turn was abandoned; the chunk stream
		// must still be drained so the producer can finish and close.
		emit := func(ev TurnEvent) bool {
			select {
			case events <- ev:
				return true
			case <-streamCtx.Done():
				return false
			}
		}
		abandoned := func() {
			e.logger.Warn("turn abandoned by consumer", "session_id", sessionID)
			e.metrics.ObserveTurn(string(req.ServiceType), "abandoned", time.Since(started).Seconds())
			for range chunks {
			}
		}

		var assistant []byte
		step := 1
		if !emit(TurnEvent{SessionID: sessionID, Step: step}) {
			abandoned()
			return
		}

		for chunk := range chunks {
			if chunk.Error != nil {
				span.RecordError(chunk.Error)
				e.logger.Error("model stream interrupted", "error", chunk.Error, "session_id", sessionID)
				e.metrics.ObserveTurn(string(req.ServiceType), "error", time.Since(started).Seconds())
				if !emit(TurnEvent{SessionID: sessionID, Chunk: apologyMessage}) ||
					!emit(TurnEvent{SessionID: sessionID, Done: true, Err: chunk.Error}) {
					abandoned()
				}
				return
			}
			if chunk.Text != "" {
				assistant = append(assistant, chunk.Text...)
				ev := TurnEvent{SessionID: sessionID, Chunk: chunk.Text}
				if next := TrackStep(string(assistant), req.ServiceType.MaxSteps()); next != step {
					step = next
					ev.Step = step
				}
				if !emit(ev) {
					abandoned()
					return
				}
			}
			if chunk.Done {
				break
			}
		}

		finalText := string(assistant)
		claim, extracted := ExtractClaim(finalText, req.ServiceType)
		if extracted {
			e.metrics.ObserveExtraction(string(req.ServiceType))
		}

		messages := append(append([]session.Message{}, req.Messages...), session.Message{
			Role:      session.RoleAssistant,
			Content:   finalText,
			Timestamp: time.Now().UTC(),
		})
		e.persistTurn(ctx, sessionID, req.ServiceType, messages, step, claim)

		e.metrics.ObserveTurn(string(req.ServiceType), "ok", time.Since(started).Seconds())
		if !emit(TurnEvent{SessionID: sessionID, Done: true, Extracted: extracted, Step: step}) {
			abandoned()
		}
	}()

	return events, nil
}

// resolveSession lazily creates the session on the first turn. Persistence
// being down is not a reason to fail the turn; the engine keeps going with
// in-memory state only.
func (e *Engine) resolveSession(ctx context.Context, req TurnRequest) uuid.UUID {
	if req.SessionID != uuid.Nil {
		return req.SessionID
	}
	sess, err := e.store.Create(ctx, req.Phone, req.ServiceType)
	if err != nil {
		e.logger.Warn("lazy session creation failed, continuing unpersisted", "error", err)
		return uuid.Nil
	}
	return sess.ID
}

// persistTurn saves the turn outcome without blocking the stream consumer.
func (e *Engine) persistTurn(ctx context.Context, id uuid.UUID, serviceType session.ServiceType, messages []session.Message, step int, claim []byte) {
	if id == uuid.Nil {
		return
	}

	params := session.UpdateParams{
		Messages:    messages,
		CurrentStep: &step,
	}
	if len(claim) > 0 {
		params.ClaimData = claim
	}

	saveCtx := context.WithoutCancel(ctx)
	go func() {
		saveTimeout, cancel := context.WithTimeout(saveCtx, 10*time.Second)
		defer cancel()
		if err := e.store.Save(saveTimeout, id, params); err != nil {
			e.logger.Warn("session save failed",
				"error", err, "session_id", id, "service_type", serviceType)
		}
	}()
}

func toChatMessages(messages []session.Message) []ChatMessage {
	out := make([]ChatMessage, 0, len(messages))
	for _, m := range messages {
		out = append(out, ChatMessage{Role: m.Role, Content: m.Content})
	}
	return out
}
