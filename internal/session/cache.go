package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Cache is a TTL-bounded hot copy of session state in Redis. It exists so a
// page reload does not hit Postgres for every turn; Postgres stays the
// source of truth.
type Cache struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewCache creates a session cache. TTL <= 0 falls back to 24h.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	if client == nil {
		panic("session: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Cache{redis: client, ttl: ttl}
}

func sessionKey(id uuid.UUID) string {
	return fmt.Sprintf("session:%s", id)
}

// Save stores the session JSON blob.
func (c *Cache) Save(ctx context.Context, s *Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("session: marshal cache entry: %w", err)
	}
	if err := c.redis.Set(ctx, sessionKey(s.ID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("session: cache write: %w", err)
	}
	return nil
}

// Load retrieves a cached session. A miss returns (nil, nil).
func (c *Cache) Load(ctx context.Context, id uuid.UUID) (*Session, error) {
	data, err := c.redis.Get(ctx, sessionKey(id)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("session: cache read: %w", err)
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("session: decode cache entry: %w", err)
	}
	return &s, nil
}

// Invalidate removes a cached session.
func (c *Cache) Invalidate(ctx context.Context, id uuid.UUID) error {
	if err := c.redis.Del(ctx, sessionKey(id)).Err(); err != nil {
		return fmt.Errorf("session: cache delete: %w", err)
	}
	return nil
}
