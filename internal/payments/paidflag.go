package payments

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// PaidFlagStore mirrors the paid bit into Redis. A reload that cannot reach
// Postgres still unlocks the document from this mirror; Postgres stays the
// source of truth.
type PaidFlagStore struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewPaidFlagStore creates the paid-flag mirror. TTL <= 0 falls back to 30d.
func NewPaidFlagStore(client *redis.Client, ttl time.Duration) *PaidFlagStore {
	if client == nil {
		panic("payments: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &PaidFlagStore{redis: client, ttl: ttl}
}

func paidKey(id uuid.UUID) string {
	return fmt.Sprintf("paid:%s", id)
}

// Set marks a session paid in the mirror.
func (s *PaidFlagStore) Set(ctx context.Context, id uuid.UUID) error {
	if err := s.redis.Set(ctx, paidKey(id), "1", s.ttl).Err(); err != nil {
		return fmt.Errorf("payments: paid flag write: %w", err)
	}
	return nil
}

// IsPaid reports whether the mirror holds a paid flag for the session.
func (s *PaidFlagStore) IsPaid(ctx context.Context, id uuid.UUID) (bool, error) {
	if err := s.redis.Get(ctx, paidKey(id)).Err(); err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, fmt.Errorf("payments: paid flag read: %w", err)
	}
	return true, nil
}
