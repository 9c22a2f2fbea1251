package payments

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// rowQuerier is the pgx surface the processed-event tracker needs.
type rowQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ProcessedStore records webhook events that were already handled, so
// provider retries never re-run a confirmation.
type ProcessedStore struct {
	db rowQuerier
}

// NewProcessedStore creates a processed-event tracker.
func NewProcessedStore(db rowQuerier) *ProcessedStore {
	if db == nil {
		panic("payments: db cannot be nil")
	}
	return &ProcessedStore{db: db}
}

// AlreadyProcessed checks if this provider event id was seen before.
func (s *ProcessedStore) AlreadyProcessed(ctx context.Context, provider, eventID string) (bool, error) {
	query := `SELECT 1 FROM processed_events WHERE provider = $1 AND event_id = $2`
	var exists int
	if err := s.db.QueryRow(ctx, query, provider, eventID).Scan(&exists); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("payments: check processed: %w", err)
	}
	return true, nil
}

// MarkProcessed records an event id for the provider, returning false if it
// already existed.
func (s *ProcessedStore) MarkProcessed(ctx context.Context, provider, eventID string) (bool, error) {
	query := `
		INSERT INTO processed_events (provider, event_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`
	ct, err := s.db.Exec(ctx, query, provider, eventID)
	if err != nil {
		return false, fmt.Errorf("payments: mark processed: %w", err)
	}
	return ct.RowsAffected() > 0, nil
}
