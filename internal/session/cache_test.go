package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, time.Hour)
}

func TestCacheRoundTrip(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	sess := &Session{
		ID:          uuid.New(),
		Phone:       "0501234567",
		ServiceType: ServiceClaims,
		Messages: []Message{
			{Role: RoleUser, Content: "hello", Timestamp: time.Now().UTC().Truncate(time.Second)},
		},
		CurrentStep: 3,
		Status:      StatusDraft,
	}

	require.NoError(t, cache.Save(ctx, sess))

	got, err := cache.Load(ctx, sess.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, sess.ID, got.ID)
	assert.Equal(t, 3, got.CurrentStep)
	assert.Len(t, got.Messages, 1)
	assert.Equal(t, "hello", got.Messages[0].Content)
}

func TestCacheMissReturnsNil(t *testing.T) {
	cache := newTestCache(t)

	got, err := cache.Load(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCacheInvalidate(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	sess := &Session{ID: uuid.New(), ServiceType: ServiceParking, Status: StatusDraft}
	require.NoError(t, cache.Save(ctx, sess))
	require.NoError(t, cache.Invalidate(ctx, sess.ID))

	got, err := cache.Load(ctx, sess.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}
