package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound is returned when a session does not exist.
	ErrNotFound = errors.New("session: not found")
	// ErrStatusBackward is returned when a save would move status backward.
	ErrStatusBackward = errors.New("session: status cannot move backward")
	// ErrInvalidServiceType is returned for unknown service types.
	ErrInvalidServiceType = errors.New("session: invalid service type")
)

// DB is the subset of pgxpool.Pool used by Repository.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository persists intake sessions in Postgres.
type Repository struct {
	db DB
}

// NewRepository creates a session repository backed by pgx.
func NewRepository(db DB) *Repository {
	if db == nil {
		panic("session: db required")
	}
	return &Repository{db: db}
}

const insertSessionSQL = `
INSERT INTO sessions (id, phone, service_type, messages, current_step, status, created_at, updated_at)
VALUES ($1, $2, $3, '[]'::jsonb, 1, $4, now(), now())
RETURNING created_at, updated_at`

// Create inserts a new draft session. Lazy-creation guarding (one session per
// conversation) is the caller's responsibility via the cached session id.
func (r *Repository) Create(ctx context.Context, phone string, serviceType ServiceType) (*Session, error) {
	if !serviceType.Valid() {
		return nil, ErrInvalidServiceType
	}

	s := &Session{
		ID:          uuid.New(),
		Phone:       phone,
		ServiceType: serviceType,
		Messages:    []Message{},
		CurrentStep: 1,
		Status:      StatusDraft,
	}
	row := r.db.QueryRow(ctx, insertSessionSQL, s.ID, phone, string(serviceType), string(StatusDraft))
	if err := row.Scan(&s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, fmt.Errorf("session: insert: %w", err)
	}
	return s, nil
}

const getSessionSQL = `
SELECT phone, service_type, messages, claim_data, current_step, status, created_at, updated_at
FROM sessions WHERE id = $1`

// Get loads a session by id.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*Session, error) {
	s := &Session{ID: id}
	var (
		serviceType string
		status      string
		messages    []byte
		claimData   []byte
	)
	row := r.db.QueryRow(ctx, getSessionSQL, id)
	err := row.Scan(&s.Phone, &serviceType, &messages, &claimData, &s.CurrentStep, &status, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("session: load: %w", err)
	}

	s.ServiceType = ServiceType(serviceType)
	s.Status = Status(status)
	if len(messages) > 0 {
		if err := json.Unmarshal(messages, &s.Messages); err != nil {
			return nil, fmt.Errorf("session: decode messages: %w", err)
		}
	}
	if len(claimData) > 0 {
		s.ClaimData = json.RawMessage(claimData)
	}
	return s, nil
}

// UpdateParams carries a partial session save. Nil fields are left unchanged.
type UpdateParams struct {
	Messages    []Message
	CurrentStep *int
	ClaimData   json.RawMessage
	Status      *Status
}

const getStatusSQL = `SELECT status, claim_data IS NOT NULL FROM sessions WHERE id = $1`

const updateSessionSQL = `
UPDATE sessions SET
	messages = COALESCE($2, messages),
	current_step = COALESCE($3, current_step),
	claim_data = COALESCE($4, claim_data),
	status = COALESCE($5, status),
	updated_at = now()
WHERE id = $1`

// Update applies a partial save. Invariants enforced here:
//   - status only moves forward (draft -> pending_payment -> paid)
//   - claim_data is written at most once; later writes are dropped
//   - a claim_data write on a draft session also moves it to pending_payment
func (r *Repository) Update(ctx context.Context, id uuid.UUID, params UpdateParams) error {
	var (
		current  string
		hasClaim bool
	)
	if err := r.db.QueryRow(ctx, getStatusSQL, id).Scan(&current, &hasClaim); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("session: load status: %w", err)
	}
	currentStatus := Status(current)

	claimWrite := params.ClaimData
	if hasClaim {
		// First extraction wins; re-saves of the payload are no-ops.
		claimWrite = nil
	}

	nextStatus := params.Status
	if nextStatus == nil && claimWrite != nil && currentStatus == StatusDraft {
		pending := StatusPendingPayment
		nextStatus = &pending
	}
	if nextStatus != nil && !currentStatus.CanTransitionTo(*nextStatus) {
		return ErrStatusBackward
	}

	var messagesArg any
	if params.Messages != nil {
		encoded, err := json.Marshal(params.Messages)
		if err != nil {
			return fmt.Errorf("session: encode messages: %w", err)
		}
		messagesArg = encoded
	}
	var claimArg any
	if claimWrite != nil {
		claimArg = []byte(claimWrite)
	}
	var stepArg any
	if params.CurrentStep != nil {
		stepArg = *params.CurrentStep
	}
	var statusArg any
	if nextStatus != nil {
		statusArg = string(*nextStatus)
	}

	tag, err := r.db.Exec(ctx, updateSessionSQL, id, messagesArg, stepArg, claimArg, statusArg)
	if err != nil {
		return fmt.Errorf("session: update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const markPaidSQL = `
UPDATE sessions SET status = $2, updated_at = now()
WHERE id = $1 AND status <> $2`

const sessionExistsSQL = `SELECT 1 FROM sessions WHERE id = $1`

// MarkPaid flips the session to paid exactly once. The boolean result
// reports whether this call performed the transition; a false result with a
// nil error means the session was already paid. A missing session is
// ErrNotFound, never a silent false.
func (r *Repository) MarkPaid(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.db.Exec(ctx, markPaidSQL, id, string(StatusPaid))
	if err != nil {
		return false, fmt.Errorf("session: mark paid: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}

	var one int
	if err := r.db.QueryRow(ctx, sessionExistsSQL, id).Scan(&one); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, ErrNotFound
		}
		return false, fmt.Errorf("session: mark paid lookup: %w", err)
	}
	return false, nil
}
